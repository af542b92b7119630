package elfrw

import (
	"debug/elf"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/yalue/elf_reader"
)

// ELFFile is the parsed, read-only view of an input file. Relayout never
// mutates it.
type ELFFile struct {
	RawData        []byte
	ELF            elf_reader.ELFFile
	FileName       string
	Context        Context
	Header         Header
	ProgramHeaders []ProgramHeader
	Sections       []SectionHeader
}

// ReadELF reads the whole input into memory and parses it.
func ReadELF(r io.Reader, name string) (*ELFFile, error) {
	rawData, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return ParseELF(rawData, name)
}

func ParseELF(rawData []byte, name string) (*ELFFile, error) {
	if len(rawData) < elf.EI_NIDENT {
		return nil, errors.Errorf("%s: file is too small to be an ELF (%d bytes)", name, len(rawData))
	}
	parsed, err := elf_reader.ParseELFFile(rawData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ELF file %s", name)
	}

	ef := &ELFFile{
		RawData:  rawData,
		ELF:      parsed,
		FileName: name,
	}

	switch f := parsed.(type) {
	case *elf_reader.ELF64File:
		ef.Context = Context{Class: elf.ELFCLASS64, ByteOrder: f.Endianness}
		ef.Header = header64(f.Header)
		ef.ProgramHeaders = programHeaders64(f.Segments)
		ef.Sections = sectionHeaders64(f.Sections)
	case *elf_reader.ELF32File:
		ef.Context = Context{Class: elf.ELFCLASS32, ByteOrder: f.Endianness}
		ef.Header = header32(f.Header)
		ef.ProgramHeaders = programHeaders32(f.Segments)
		ef.Sections = sectionHeaders32(f.Sections)
	default:
		return nil, errors.Errorf("%s: unsupported ELF representation %T", name, parsed)
	}
	copy(ef.Header.Ident[:], rawData[:elf.EI_NIDENT])

	for i := 1; i < len(ef.Sections); i++ {
		if sectionName, err := ef.sectionName(uint16(i)); err == nil {
			ef.Sections[i].Name = sectionName
		}
	}

	return ef, nil
}

func (e *ELFFile) Codec() Codec {
	return NewCodec(e.Context)
}

func (e *ELFFile) IsLittleEndian() bool {
	return e.Context.ByteOrder == binary.LittleEndian
}

func (e *ELFFile) sectionName(index uint16) (string, error) {
	switch f := e.ELF.(type) {
	case *elf_reader.ELF64File:
		return f.GetSectionName(index)
	case *elf_reader.ELF32File:
		return f.GetSectionName(index)
	}
	return "", errors.Errorf("unsupported ELF representation %T", e.ELF)
}

func header64(h elf_reader.ELF64Header) Header {
	return Header{
		Type:      uint16(h.Type),
		Machine:   uint16(h.Machine),
		Version:   h.Version2,
		Entry:     h.EntryPoint,
		Phoff:     h.ProgramHeaderOffset,
		Shoff:     h.SectionHeaderOffset,
		Flags:     h.Flags,
		Ehsize:    h.HeaderSize,
		Phentsize: h.ProgramHeaderEntrySize,
		Phnum:     h.ProgramHeaderEntries,
		Shentsize: h.SectionHeaderEntrySize,
		Shnum:     h.SectionHeaderEntries,
		Shstrndx:  h.SectionNamesTable,
	}
}

func header32(h elf_reader.ELF32Header) Header {
	return Header{
		Type:      uint16(h.Type),
		Machine:   uint16(h.Machine),
		Version:   h.Version2,
		Entry:     uint64(h.EntryPoint),
		Phoff:     uint64(h.ProgramHeaderOffset),
		Shoff:     uint64(h.SectionHeaderOffset),
		Flags:     h.Flags,
		Ehsize:    h.HeaderSize,
		Phentsize: h.ProgramHeaderEntrySize,
		Phnum:     h.ProgramHeaderEntries,
		Shentsize: h.SectionHeaderEntrySize,
		Shnum:     h.SectionHeaderEntries,
		Shstrndx:  h.SectionNamesTable,
	}
}

func programHeaders64(segments []elf_reader.ELF64ProgramHeader) []ProgramHeader {
	res := make([]ProgramHeader, 0, len(segments))
	for _, p := range segments {
		res = append(res, ProgramHeader{
			Type:   uint32(p.Type),
			Flags:  uint32(p.Flags),
			Off:    p.FileOffset,
			Vaddr:  p.VirtualAddress,
			Paddr:  p.PhysicalAddress,
			Filesz: p.FileSize,
			Memsz:  p.MemorySize,
			Align:  p.Align,
		})
	}
	return res
}

func programHeaders32(segments []elf_reader.ELF32ProgramHeader) []ProgramHeader {
	res := make([]ProgramHeader, 0, len(segments))
	for _, p := range segments {
		res = append(res, ProgramHeader{
			Type:   uint32(p.Type),
			Flags:  uint32(p.Flags),
			Off:    uint64(p.FileOffset),
			Vaddr:  uint64(p.VirtualAddress),
			Paddr:  uint64(p.PhysicalAddress),
			Filesz: uint64(p.FileSize),
			Memsz:  uint64(p.MemorySize),
			Align:  uint64(p.Align),
		})
	}
	return res
}

func sectionHeaders64(sections []elf_reader.ELF64SectionHeader) []SectionHeader {
	res := make([]SectionHeader, 0, len(sections))
	for _, s := range sections {
		res = append(res, SectionHeader{
			NameOffset: s.Name,
			Type:       uint32(s.Type),
			Flags:      uint64(s.Flags),
			Addr:       s.VirtualAddress,
			Off:        s.FileOffset,
			Size:       s.Size,
			Link:       s.LinkedIndex,
			Info:       s.Info,
			Addralign:  s.Align,
			Entsize:    s.EntrySize,
		})
	}
	return res
}

func sectionHeaders32(sections []elf_reader.ELF32SectionHeader) []SectionHeader {
	res := make([]SectionHeader, 0, len(sections))
	for _, s := range sections {
		res = append(res, SectionHeader{
			NameOffset: s.Name,
			Type:       uint32(s.Type),
			Flags:      uint64(s.Flags),
			Addr:       uint64(s.VirtualAddress),
			Off:        uint64(s.FileOffset),
			Size:       uint64(s.Size),
			Link:       s.LinkedIndex,
			Info:       s.Info,
			Addralign:  uint64(s.Align),
			Entsize:    uint64(s.EntrySize),
		})
	}
	return res
}
