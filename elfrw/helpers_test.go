package elfrw

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"elfedit/common"
)

var (
	ctx64 = Context{Class: elf.ELFCLASS64, ByteOrder: binary.LittleEndian}
	ctx32 = Context{Class: elf.ELFCLASS32, ByteOrder: binary.BigEndian}
)

// testImage is an ELF file built in memory together with the structures it
// was built from.
type testImage struct {
	header   Header
	progs    []ProgramHeader
	sections []SectionHeader
	raw      []byte
}

func (img *testImage) verify() error {
	return VerifyStructure(img.raw, ctx64, img.header, img.progs, img.sections)
}

// assemble lays out an ELF file: the header, the program headers right after
// it, every section at its own offset and the section header table at shoff.
// contents is parallel to sections; a nil entry is filled with a non-zero
// pattern of the section size. The last section is used as .shstrtab.
func assemble(t *testing.T, ctx Context, progs []ProgramHeader, sections []SectionHeader, contents [][]byte, shoff uint64) *testImage {
	t.Helper()
	codec := NewCodec(ctx)

	hdr := Header{
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_BPF),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     uint64(codec.HeaderSize()),
		Shoff:     shoff,
		Ehsize:    uint16(codec.HeaderSize()),
		Phentsize: uint16(codec.ProgramHeaderSize()),
		Phnum:     uint16(len(progs)),
		Shentsize: uint16(codec.SectionHeaderSize()),
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(len(sections) - 1),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(ctx.Class)
	if ctx.ByteOrder == binary.LittleEndian {
		hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	} else {
		hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	}
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	raw := make([]byte, shoff+hdr.SectionHeaderTableSize())
	buf := make([]byte, codec.MaxRecordSize())

	n, err := codec.EncodeHeader(buf, hdr)
	require.NoError(t, err)
	copy(raw, buf[:n])

	at := hdr.Phoff
	for _, p := range progs {
		n, err := codec.EncodeProgramHeader(buf, p)
		require.NoError(t, err)
		copy(raw[at:], buf[:n])
		at += uint64(n)
	}

	for i := 1; i < len(sections); i++ {
		s := sections[i]
		data := contents[i]
		if data == nil {
			data = bytes.Repeat([]byte{0xa5}, int(s.Size))
		}
		require.Len(t, data, int(s.Size), "content of section %d", i)
		copy(raw[s.Off:], data)
	}

	at = shoff
	for _, s := range sections {
		n, err := codec.EncodeSectionHeader(buf, s)
		require.NoError(t, err)
		copy(raw[at:], buf[:n])
		at += uint64(n)
	}

	return &testImage{header: hdr, progs: progs, sections: sections, raw: raw}
}

// newDynamicImage builds a small but complete 64-bit shared object:
//
//	0x00  ELF header
//	0x40  PT_LOAD program header, covering .dynstr and .dynsym
//	0x78  .dynstr
//	0x88  .dynsym, aligned to 8, after 4 bytes of zero padding
//	0xb8  .shstrtab, padded with zeroes up to the section header table
//	0xd8  section header table
func newDynamicImage(t *testing.T) *testImage {
	t.Helper()
	codec := NewCodec(ctx64)

	dynstr := []byte("\x00entrypoint\x00")
	shstrtab := make([]byte, 0x20)
	copy(shstrtab, "\x00.dynstr\x00.dynsym\x00.shstrtab\x00")

	dynsym := make([]byte, 2*codec.SymbolSize())
	_, err := codec.EncodeSymbol(dynsym[codec.SymbolSize():], Symbol{
		NameOffset:   1,
		Info:         byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC),
		SectionIndex: 2,
		Value:        0x120,
		Size:         0x48,
	})
	require.NoError(t, err)

	sections := []SectionHeader{
		{},
		{Name: ".dynstr", NameOffset: 1, Type: uint32(elf.SHT_STRTAB), Flags: uint64(elf.SHF_ALLOC),
			Addr: 0x78, Off: 0x78, Size: uint64(len(dynstr)), Addralign: 1},
		{Name: ".dynsym", NameOffset: 9, Type: uint32(elf.SHT_DYNSYM), Flags: uint64(elf.SHF_ALLOC),
			Addr: 0x88, Off: 0x88, Size: uint64(len(dynsym)), Link: 1, Info: 1, Addralign: 8,
			Entsize: uint64(codec.SymbolSize())},
		{Name: ".shstrtab", NameOffset: 17, Type: uint32(elf.SHT_STRTAB),
			Off: 0xb8, Size: uint64(len(shstrtab)), Addralign: 1},
	}
	progs := []ProgramHeader{{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R),
		Off:    0x78,
		Vaddr:  0x78,
		Paddr:  0x78,
		Filesz: 0xb8 - 0x78,
		Memsz:  0xb8 - 0x78 + 0x10,
		Align:  8,
	}}

	return assemble(t, ctx64, progs, sections, [][]byte{nil, dynstr, dynsym, shstrtab}, sections[3].End())
}

// resizeSection changes the size of the section called name by adjustment,
// writing a recognizable filler in place of its content.
func resizeSection(name string, adjustment int64) SectionTransformer {
	return TransformerFunc(func(_ []byte, sh SectionHeader, _ Context, out io.Writer) (uint64, bool, error) {
		if sh.Name != name {
			return 0, false, nil
		}
		size, ok := common.CheckedAddSigned64(sh.Size, adjustment)
		if !ok {
			panic("adjusted section size does not fit into uint64")
		}
		_, err := out.Write(bytes.Repeat([]byte{0x5a}, int(size)))
		return size, true, err
	})
}

// requireInvariant runs f and checks that it panics with an *InvariantError
// whose message contains msg.
func requireInvariant(t *testing.T, msg string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic")
		ierr, ok := r.(*InvariantError)
		require.Truef(t, ok, "panic value %T is not an *InvariantError: %v", r, r)
		require.Contains(t, ierr.Error(), msg)
	}()
	f()
}
