package elfrw

import (
	"debug/elf"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Codec packs fixed-layout ELF records for one Context.
type Codec struct {
	ctx Context
}

func NewCodec(ctx Context) Codec {
	return Codec{ctx: ctx}
}

func (c Codec) Context() Context {
	return c.ctx
}

func (c Codec) HeaderSize() int {
	if c.ctx.Is64Bit() {
		return binary.Size(elf.Header64{})
	}
	return binary.Size(elf.Header32{})
}

func (c Codec) ProgramHeaderSize() int {
	if c.ctx.Is64Bit() {
		return binary.Size(elf.Prog64{})
	}
	return binary.Size(elf.Prog32{})
}

func (c Codec) SectionHeaderSize() int {
	if c.ctx.Is64Bit() {
		return binary.Size(elf.Section64{})
	}
	return binary.Size(elf.Section32{})
}

func (c Codec) SymbolSize() int {
	if c.ctx.Is64Bit() {
		return binary.Size(elf.Sym64{})
	}
	return binary.Size(elf.Sym32{})
}

// MaxRecordSize is the size of the largest record this codec produces.
func (c Codec) MaxRecordSize() int {
	return max(c.HeaderSize(), c.ProgramHeaderSize(), c.SectionHeaderSize(), c.SymbolSize())
}

func (c Codec) EncodeHeader(buf []byte, h Header) (int, error) {
	if c.ctx.Is64Bit() {
		return c.encode(buf, elf.Header64{
			Ident:     h.Ident,
			Type:      h.Type,
			Machine:   h.Machine,
			Version:   h.Version,
			Entry:     h.Entry,
			Phoff:     h.Phoff,
			Shoff:     h.Shoff,
			Flags:     h.Flags,
			Ehsize:    h.Ehsize,
			Phentsize: h.Phentsize,
			Phnum:     h.Phnum,
			Shentsize: h.Shentsize,
			Shnum:     h.Shnum,
			Shstrndx:  h.Shstrndx,
		})
	}
	if err := fits32("ELF header", h.Entry, h.Phoff, h.Shoff); err != nil {
		return 0, err
	}
	return c.encode(buf, elf.Header32{
		Ident:     h.Ident,
		Type:      h.Type,
		Machine:   h.Machine,
		Version:   h.Version,
		Entry:     uint32(h.Entry),
		Phoff:     uint32(h.Phoff),
		Shoff:     uint32(h.Shoff),
		Flags:     h.Flags,
		Ehsize:    h.Ehsize,
		Phentsize: h.Phentsize,
		Phnum:     h.Phnum,
		Shentsize: h.Shentsize,
		Shnum:     h.Shnum,
		Shstrndx:  h.Shstrndx,
	})
}

func (c Codec) EncodeProgramHeader(buf []byte, p ProgramHeader) (int, error) {
	if c.ctx.Is64Bit() {
		return c.encode(buf, elf.Prog64{
			Type:   p.Type,
			Flags:  p.Flags,
			Off:    p.Off,
			Vaddr:  p.Vaddr,
			Paddr:  p.Paddr,
			Filesz: p.Filesz,
			Memsz:  p.Memsz,
			Align:  p.Align,
		})
	}
	if err := fits32("program header", p.Off, p.Vaddr, p.Paddr, p.Filesz, p.Memsz, p.Align); err != nil {
		return 0, err
	}
	return c.encode(buf, elf.Prog32{
		Type:   p.Type,
		Off:    uint32(p.Off),
		Vaddr:  uint32(p.Vaddr),
		Paddr:  uint32(p.Paddr),
		Filesz: uint32(p.Filesz),
		Memsz:  uint32(p.Memsz),
		Flags:  p.Flags,
		Align:  uint32(p.Align),
	})
}

func (c Codec) EncodeSectionHeader(buf []byte, s SectionHeader) (int, error) {
	if c.ctx.Is64Bit() {
		return c.encode(buf, elf.Section64{
			Name:      s.NameOffset,
			Type:      s.Type,
			Flags:     s.Flags,
			Addr:      s.Addr,
			Off:       s.Off,
			Size:      s.Size,
			Link:      s.Link,
			Info:      s.Info,
			Addralign: s.Addralign,
			Entsize:   s.Entsize,
		})
	}
	if err := fits32("section header "+s.DisplayName(), s.Flags, s.Addr, s.Off, s.Size, s.Addralign, s.Entsize); err != nil {
		return 0, err
	}
	return c.encode(buf, elf.Section32{
		Name:      s.NameOffset,
		Type:      s.Type,
		Flags:     uint32(s.Flags),
		Addr:      uint32(s.Addr),
		Off:       uint32(s.Off),
		Size:      uint32(s.Size),
		Link:      s.Link,
		Info:      s.Info,
		Addralign: uint32(s.Addralign),
		Entsize:   uint32(s.Entsize),
	})
}

func (c Codec) EncodeSymbol(buf []byte, s Symbol) (int, error) {
	if c.ctx.Is64Bit() {
		return c.encode(buf, elf.Sym64{
			Name:  s.NameOffset,
			Info:  s.Info,
			Other: s.Other,
			Shndx: s.SectionIndex,
			Value: s.Value,
			Size:  s.Size,
		})
	}
	if err := fits32("symbol", s.Value, s.Size); err != nil {
		return 0, err
	}
	return c.encode(buf, elf.Sym32{
		Name:  s.NameOffset,
		Value: uint32(s.Value),
		Size:  uint32(s.Size),
		Info:  s.Info,
		Other: s.Other,
		Shndx: s.SectionIndex,
	})
}

func (c Codec) encode(buf []byte, record interface{}) (int, error) {
	n, err := binary.Encode(buf, c.ctx.ByteOrder, record)
	if err != nil {
		return 0, errors.Wrapf(err, "encoding %T into a %d byte buffer", record, len(buf))
	}
	return n, nil
}

func fits32(what string, values ...uint64) error {
	for _, v := range values {
		if v > math.MaxUint32 {
			return errors.Errorf("%s: value 0x%x does not fit a 32-bit ELF field", what, v)
		}
	}
	return nil
}
