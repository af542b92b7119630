package elfrw

// The relayout code only supports files laid out in a fixed order: ELF header,
// program header table, sections in section header order, and the section
// header table as the last element. Anything between them must be zero bytes.
//
// Zero gaps show up for alignment purposes, and there is no single convention
// for their size, so any gap length is accepted as long as it holds only
// zeroes.

const (
	regionProgramHeaderTable = "Program section headers table"
	regionSectionHeaderTable = "Section headers table"
)

// VerifyStructure checks that the file matches the layout the relayout code
// expects. Should be called for the input file before any modification.
func (e *ELFFile) VerifyStructure() error {
	return VerifyStructure(e.RawData, e.Context, e.Header, e.ProgramHeaders, e.Sections)
}

// VerifyStructure returns a *StructureError describing the first layout rule
// raw breaks, or nil.
func VerifyStructure(raw []byte, ctx Context, hdr Header, progs []ProgramHeader, sections []SectionHeader) error {
	v := layoutVerifier{
		raw:       raw,
		coveredTo: uint64(NewCodec(ctx).HeaderSize()),
	}

	if err := v.cover(regionProgramHeaderTable, hdr.Phoff, hdr.ProgramHeaderTableSize()); err != nil {
		return err
	}

	if len(sections) < 2 {
		return &StructureError{Kind: TooFewSections, Count: len(sections)}
	}
	if null := sections[0]; null.Off != 0 || null.Size != 0 {
		return &StructureError{Kind: BadNullSection, Region: "null section", Offset: null.Off, Size: null.Size}
	}

	for i := 1; i < len(sections); i++ {
		s := &sections[i]
		if err := v.cover("Section "+s.DisplayName(), s.Off, s.Size); err != nil {
			return err
		}
	}

	if err := v.cover(regionSectionHeaderTable, hdr.Shoff, hdr.SectionHeaderTableSize()); err != nil {
		return err
	}

	if !allZero(raw[v.coveredTo:]) {
		return &StructureError{
			Kind:        TrailingData,
			Region:      regionSectionHeaderTable,
			PreviousEnd: v.coveredTo,
			FileSize:    uint64(len(raw)),
		}
	}

	return nil
}

type layoutVerifier struct {
	raw       []byte
	coveredTo uint64
}

// cover accepts the region [offset, offset+size) if it starts at or after the
// covered end, with only zero bytes in between.
func (v *layoutVerifier) cover(region string, offset, size uint64) error {
	fileSize := uint64(len(v.raw))
	structErr := func(kind StructureKind) error {
		return &StructureError{
			Kind:        kind,
			Region:      region,
			Offset:      offset,
			Size:        size,
			PreviousEnd: v.coveredTo,
			FileSize:    fileSize,
		}
	}

	if offset < v.coveredTo {
		return structErr(Overlap)
	}
	end := offset + size
	if end < offset || end > fileSize {
		return structErr(PastEndOfFile)
	}
	if offset > v.coveredTo && !allZero(v.raw[v.coveredTo:offset]) {
		return structErr(NonZeroGap)
	}

	v.coveredTo = end
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
