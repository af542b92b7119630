package elfrw

import (
	"bytes"
	"debug/elf"
	"io"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func rewriteImage(t *testing.T, img *testImage, ctx Context, tr SectionTransformer) (Plan, []byte) {
	t.Helper()
	plan, err := ComputeShifts(img.raw, img.progs, img.sections, ctx, tr)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteRelayout(&out, img.raw, img.header, img.sections, plan, ctx, tr))
	return plan, out.Bytes()
}

func TestWriteRelayoutKeepAllIsIdentity(t *testing.T) {
	img := newDynamicImage(t)
	_, out := rewriteImage(t, img, ctx64, KeepAllSections)
	require.Equal(t, img.raw, out)
}

func TestWriteRelayoutKeepAll32BitBigEndian(t *testing.T) {
	sections := withNullSection(
		SectionHeader{Name: "a", Type: uint32(elf.SHT_PROGBITS), Off: 84, Size: 12, Addralign: 4},
		SectionHeader{Name: "b", Type: uint32(elf.SHT_PROGBITS), Off: 96, Size: 8, Addralign: 8},
	)
	progs := []ProgramHeader{{Type: uint32(elf.PT_LOAD), Off: 84, Filesz: 20, Memsz: 20, Align: 4}}
	img := assemble(t, ctx32, progs, sections, make([][]byte, len(sections)), 104)

	require.NoError(t, VerifyStructure(img.raw, ctx32, img.header, img.progs, img.sections))
	_, out := rewriteImage(t, img, ctx32, KeepAllSections)
	require.Equal(t, img.raw, out)
}

func TestWriteRelayoutGrowSection(t *testing.T) {
	img := newDynamicImage(t)
	plan, out := rewriteImage(t, img, ctx64, resizeSection(".dynstr", 5))

	// .dynstr grows to 0x11 bytes, .dynsym moves to the next multiple of 8.
	require.Equal(t, uint64(0x78), plan.Sections[1].Off)
	require.Equal(t, uint64(0x11), plan.Sections[1].Size)
	require.Equal(t, uint64(0x90), plan.Sections[2].Off)
	require.Equal(t, uint64(0xc0), plan.Sections[3].Off)
	require.Equal(t, uint64(0xe0), plan.SectionHeadersOffset)

	require.Equal(t, uint64(0x78), plan.ProgramHeaders[0].Off)
	require.Equal(t, uint64(0x48), plan.ProgramHeaders[0].Filesz)
	require.Equal(t, uint64(0x58), plan.ProgramHeaders[0].Memsz)

	require.Len(t, out, 0xe0+4*64)
	require.Equal(t, bytes.Repeat([]byte{0x5a}, 0x11), out[0x78:0x89])
	require.Equal(t, make([]byte, 7), out[0x89:0x90], "alignment padding")
	require.Equal(t, img.raw[0x88:0xb8], out[0x90:0xc0], ".dynsym is copied as is")
	require.Equal(t, img.raw[0xb8:0xd8], out[0xc0:0xe0], ".shstrtab is copied as is")

	hdr := img.header
	hdr.Shoff = 0xe0
	require.NoError(t, VerifyStructure(out, ctx64, hdr, plan.ProgramHeaders, plan.Sections))

	// The output is readable by an independent parser.
	f, err := elf.NewFile(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.Sections, 4)
	require.Equal(t, ".dynsym", f.Sections[2].Name)
	require.Equal(t, uint64(0x90), f.Sections[2].Offset)
	require.Equal(t, uint64(0x48), f.Progs[0].Filesz)
}

func TestWriteRelayoutShrinkSection(t *testing.T) {
	img := newDynamicImage(t)
	plan, out := rewriteImage(t, img, ctx64, resizeSection(".shstrtab", -5))

	require.Equal(t, uint64(0x1b), plan.Sections[3].Size)
	require.Equal(t, uint64(0xd3), plan.SectionHeadersOffset)
	require.Len(t, out, 0xd3+4*64)
}

func TestRewriteLogsPlan(t *testing.T) {
	raw := newDynamicImage(t).raw
	e, err := ParseELF(raw, "input.so")
	require.NoError(t, err)

	var logs, out bytes.Buffer
	plan, err := e.Rewrite(&out, resizeSection(".dynstr", 5), log.NewLogfmtLogger(&logs))
	require.NoError(t, err)
	require.Equal(t, uint64(0xe0), plan.SectionHeadersOffset)
	require.Contains(t, logs.String(), "msg=\"section moved\" section=.dynsym")
	require.Contains(t, logs.String(), "file=input.so")

	_, err = e.Rewrite(io.Discard, KeepAllSections, nil)
	require.NoError(t, err)
}

func TestWriteRelayoutPropagatesWriteErrors(t *testing.T) {
	img := newDynamicImage(t)
	plan, err := ComputeShifts(img.raw, img.progs, img.sections, ctx64, KeepAllSections)
	require.NoError(t, err)

	err = WriteRelayout(failingWriter{}, img.raw, img.header, img.sections, plan, ctx64, KeepAllSections)
	require.ErrorIs(t, err, io.ErrShortWrite)
	require.Contains(t, err.Error(), "writing ELF header")
}

func TestWriteRelayoutInvariants(t *testing.T) {
	t.Run("transformer writes less than it reported", func(t *testing.T) {
		img := newDynamicImage(t)
		lying := TransformerFunc(func(input []byte, sh SectionHeader, _ Context, out io.Writer) (uint64, bool, error) {
			if sh.Name != ".dynstr" {
				return 0, false, nil
			}
			_, err := out.Write(input[sh.Off:sh.End()])
			return sh.Size + 1, true, err
		})
		plan, err := ComputeShifts(img.raw, img.progs, img.sections, ctx64, lying)
		require.NoError(t, err)
		requireInvariant(t, "Section .dynstr: produced 0xc bytes, but its planned size is 0xd", func() {
			_ = WriteRelayout(io.Discard, img.raw, img.header, img.sections, plan, ctx64, lying)
		})
	})

	t.Run("program header table is not next to the ELF header", func(t *testing.T) {
		img := newDynamicImage(t)
		plan, err := ComputeShifts(img.raw, img.progs, img.sections, ctx64, KeepAllSections)
		require.NoError(t, err)
		hdr := img.header
		hdr.Phoff = 0x48
		requireInvariant(t, "the program header table starts at 0x48", func() {
			_ = WriteRelayout(io.Discard, img.raw, hdr, img.sections, plan, ctx64, KeepAllSections)
		})
	})

	t.Run("program header entry size differs from the codec", func(t *testing.T) {
		img := newDynamicImage(t)
		plan, err := ComputeShifts(img.raw, img.progs, img.sections, ctx64, KeepAllSections)
		require.NoError(t, err)
		hdr := img.header
		hdr.Phentsize = 32
		requireInvariant(t, "Program header entry size 32", func() {
			_ = WriteRelayout(io.Discard, img.raw, hdr, img.sections, plan, ctx64, KeepAllSections)
		})
	})

	t.Run("plan does not match the input", func(t *testing.T) {
		img := newDynamicImage(t)
		plan := Plan{Sections: img.sections[:2]}
		requireInvariant(t, "Plan holds 2 section headers, the input has 4", func() {
			_ = WriteRelayout(io.Discard, img.raw, img.header, img.sections, plan, ctx64, KeepAllSections)
		})
	})
}

func TestRelayoutWriterPadding(t *testing.T) {
	var out bytes.Buffer
	w := newRelayoutWriter(&out, ctx64)
	_, err := w.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	// Longer than the scratch buffer, so several chunks are needed.
	require.NoError(t, w.padTo(3*scratchSize+10))
	require.Equal(t, uint64(3*scratchSize+10), w.written)
	require.Equal(t, []byte{1, 2, 3}, out.Bytes()[:3])
	require.Equal(t, make([]byte, 3*scratchSize+7), out.Bytes()[3:])

	require.NoError(t, w.padTo(w.written))
	requireInvariant(t, "Cannot pad backwards", func() {
		_ = w.padTo(5)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrShortWrite
}
