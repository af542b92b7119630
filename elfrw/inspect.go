package elfrw

import (
	"debug/elf"

	"github.com/pkg/errors"
	"github.com/yalue/elf_reader"
)

// FindSection returns the index of the first section called name.
func (e *ELFFile) FindSection(name string) (int, error) {
	for i := 1; i < len(e.Sections); i++ {
		if e.Sections[i].Name == name {
			return i, nil
		}
	}
	return -1, errors.Wrap(ErrSectionNotFound, name)
}

// FindSectionByType returns the index of the first section of the given type.
func (e *ELFFile) FindSectionByType(typ elf.SectionType) (int, error) {
	for i := 1; i < len(e.Sections); i++ {
		if elf.SectionType(e.Sections[i].Type) == typ {
			return i, nil
		}
	}
	return -1, errors.Wrap(ErrSectionNotFound, typ.String())
}

// SectionData returns the raw bytes of a section, without copying.
func (e *ELFFile) SectionData(index int) ([]byte, error) {
	if index < 0 || index >= len(e.Sections) {
		return nil, errors.Errorf("invalid section index: %d", index)
	}
	s := &e.Sections[index]
	if elf.SectionType(s.Type) == elf.SHT_NOBITS {
		return nil, nil
	}
	if s.End() < s.Off || s.End() > uint64(len(e.RawData)) {
		return nil, errors.Errorf("section %s at 0x%x, size 0x%x is outside of the file", s.DisplayName(), s.Off, s.Size)
	}
	return e.RawData[s.Off:s.End()], nil
}

// StringTable returns every string of the string table section at index,
// starting with the leading empty string.
func (e *ELFFile) StringTable(index int) ([]string, error) {
	if index < 0 || index >= len(e.Sections) {
		return nil, errors.Errorf("invalid section index: %d", index)
	}
	if e.Sections[index].Size == 0 {
		return nil, nil
	}
	var (
		strs []string
		err  error
	)
	switch f := e.ELF.(type) {
	case *elf_reader.ELF64File:
		strs, err = f.GetStringTable(uint16(index))
	case *elf_reader.ELF32File:
		strs, err = f.GetStringTable(uint16(index))
	default:
		return nil, errors.Errorf("unsupported ELF representation %T", e.ELF)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading string table %s", e.Sections[index].DisplayName())
	}
	return strs, nil
}

// DynamicSymbols returns the entries of .dynsym, names resolved from .dynstr.
func (e *ELFFile) DynamicSymbols() ([]Symbol, error) {
	index, err := e.FindSectionByType(elf.SHT_DYNSYM)
	if err != nil {
		return nil, err
	}
	return e.Symbols(index)
}

// Symbols parses the symbol table section at index.
func (e *ELFFile) Symbols(index int) ([]Symbol, error) {
	if index < 0 || index >= len(e.Sections) {
		return nil, errors.Errorf("invalid section index: %d", index)
	}
	var res []Symbol
	switch f := e.ELF.(type) {
	case *elf_reader.ELF64File:
		syms, names, err := f.GetSymbolTable(uint16(index))
		if err != nil {
			return nil, errors.Wrapf(err, "reading symbol table %s", e.Sections[index].DisplayName())
		}
		res = make([]Symbol, 0, len(syms))
		for i, s := range syms {
			res = append(res, Symbol{
				Name:         names[i],
				NameOffset:   s.Name,
				Info:         uint8(s.Info),
				Other:        s.Other,
				SectionIndex: s.SectionIndex,
				Value:        s.Value,
				Size:         s.Size,
			})
		}
	case *elf_reader.ELF32File:
		syms, names, err := f.GetSymbolTable(uint16(index))
		if err != nil {
			return nil, errors.Wrapf(err, "reading symbol table %s", e.Sections[index].DisplayName())
		}
		res = make([]Symbol, 0, len(syms))
		for i, s := range syms {
			res = append(res, Symbol{
				Name:         names[i],
				NameOffset:   s.Name,
				Info:         uint8(s.Info),
				Other:        s.Other,
				SectionIndex: s.SectionIndex,
				Value:        uint64(s.Value),
				Size:         uint64(s.Size),
			})
		}
	default:
		return nil, errors.Errorf("unsupported ELF representation %T", e.ELF)
	}
	return res, nil
}

// FindDynamicSymbol looks a dynamic symbol up by name. It returns nil, without
// an error, when there is no such symbol.
func (e *ELFFile) FindDynamicSymbol(name string) (*Symbol, error) {
	syms, err := e.DynamicSymbols()
	if err != nil {
		return nil, err
	}
	for i := range syms {
		if syms[i].Name == name {
			return &syms[i], nil
		}
	}
	return nil, nil
}

// RelocationCount is the number of entries of one relocation section.
type RelocationCount struct {
	Section string
	Type    elf.SectionType
	Entries uint64
}

// RelocationCounts counts the entries of every SHT_REL and SHT_RELA section.
func (e *ELFFile) RelocationCounts() []RelocationCount {
	var res []RelocationCount
	for i := 1; i < len(e.Sections); i++ {
		s := &e.Sections[i]
		typ := elf.SectionType(s.Type)
		if typ != elf.SHT_REL && typ != elf.SHT_RELA {
			continue
		}
		var entries uint64
		if s.Entsize != 0 {
			entries = s.Size / s.Entsize
		}
		res = append(res, RelocationCount{Section: s.DisplayName(), Type: typ, Entries: entries})
	}
	return res
}
