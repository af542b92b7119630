package elfrw

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Context carries the word size and byte order every record is encoded with.
type Context struct {
	Class     elf.Class
	ByteOrder binary.ByteOrder
}

func (c Context) Is64Bit() bool {
	return c.Class == elf.ELFCLASS64
}

func (c Context) String() string {
	return fmt.Sprintf("%s, %s", c.Class, c.ByteOrder)
}

type Header struct {
	Ident     [elf.EI_NIDENT]byte // ELF identification
	Type      uint16              // Object file type
	Machine   uint16              // Architecture
	Version   uint32              // Object file version
	Entry     uint64              // Entry point virtual address
	Phoff     uint64              // Program header table file offset
	Shoff     uint64              // Section header table file offset
	Flags     uint32              // Processor-specific flags
	Ehsize    uint16              // ELF header size in bytes
	Phentsize uint16              // Program header table entry size
	Phnum     uint16              // Program header table entry count
	Shentsize uint16              // Section header table entry size
	Shnum     uint16              // Section header table entry count
	Shstrndx  uint16              // Section header string table index
}

// ProgramHeaderTableSize is the number of bytes the header claims for the
// program header table.
func (h *Header) ProgramHeaderTableSize() uint64 {
	return uint64(h.Phentsize) * uint64(h.Phnum)
}

// SectionHeaderTableSize is the number of bytes the header claims for the
// section header table.
func (h *Header) SectionHeaderTableSize() uint64 {
	return uint64(h.Shentsize) * uint64(h.Shnum)
}

func (h *Header) String() string {
	return fmt.Sprintf("ELF Header:\n"+
		"  Type: %s, Machine: %s, Version: %d\n"+
		"  Entry: 0x%x, Phoff: 0x%x, Shoff: 0x%x\n"+
		"  Flags: 0x%x, Ehsize: %d\n"+
		"  Phentsize: %d, Phnum: %d\n"+
		"  Shentsize: %d, Shnum: %d, Shstrndx: %d",
		elf.Type(h.Type), elf.Machine(h.Machine), h.Version,
		h.Entry, h.Phoff, h.Shoff,
		h.Flags, h.Ehsize,
		h.Phentsize, h.Phnum,
		h.Shentsize, h.Shnum, h.Shstrndx)
}

type ProgramHeader struct {
	Type   uint32 // Segment type
	Flags  uint32 // Segment flags
	Off    uint64 // Segment file offset
	Vaddr  uint64 // Segment virtual address
	Paddr  uint64 // Segment physical address
	Filesz uint64 // Segment size in file
	Memsz  uint64 // Segment size in memory
	Align  uint64 // Segment alignment
}

// End is the file offset right after the last byte of the segment.
func (p *ProgramHeader) End() uint64 {
	return p.Off + p.Filesz
}

func (p *ProgramHeader) String() string {
	return fmt.Sprintf("Program Header:\n"+
		"  Type: %s, Flags: %s\n"+
		"  Off: 0x%x, Vaddr: 0x%x, Paddr: 0x%x\n"+
		"  Filesz: %d, Memsz: %d, Align: %d",
		elf.ProgType(p.Type), elf.ProgFlag(p.Flags),
		p.Off, p.Vaddr, p.Paddr,
		p.Filesz, p.Memsz, p.Align)
}

type SectionHeader struct {
	Name       string // Resolved from .shstrtab, never serialized
	NameOffset uint32 // Index into .shstrtab
	Type       uint32
	Flags      uint64
	Addr       uint64
	Off        uint64
	Size       uint64
	Link       uint32
	Info       uint32
	Addralign  uint64
	Entsize    uint64
}

// End is the file offset right after the last byte of the section.
func (s *SectionHeader) End() uint64 {
	return s.Off + s.Size
}

// DisplayName is the section name, or a placeholder when it could not be
// resolved.
func (s *SectionHeader) DisplayName() string {
	if s.Name == "" {
		return "---"
	}
	return s.Name
}

type Symbol struct {
	Name         string // Resolved from the linked string table
	NameOffset   uint32
	Info         uint8
	Other        uint8
	SectionIndex uint16
	Value        uint64
	Size         uint64
}

func (s *Symbol) String() string {
	return fmt.Sprintf("Symbol { name: 0x%x, info: %s %s, other: 0x%x, shndx: %d, value: 0x%x, size: 0x%x }",
		s.NameOffset,
		elf.SymBind(s.Info>>4), elf.SymType(s.Info&0xf),
		s.Other, s.SectionIndex, s.Value, s.Size)
}
