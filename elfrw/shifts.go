package elfrw

import (
	"io"

	"github.com/pkg/errors"

	"elfedit/common"
)

// Plan is the new layout of a file: updated program headers, updated section
// headers, and the offset the section header table moves to.
type Plan struct {
	ProgramHeaders []ProgramHeader
	// Sections is parallel to the input section headers. Sections[0] is the
	// null entry, copied as is.
	Sections             []SectionHeader
	SectionHeadersOffset uint64
}

// ComputeShifts runs the transformer over every section without producing any
// output, only to learn the new section sizes. From those it lays the sections
// out again, in their original order, honoring each section alignment, and
// moves the program headers whose boundaries coincide with section boundaries.
//
// Inconsistent program header bindings and arithmetic overflows panic with an
// *InvariantError.
func ComputeShifts(raw []byte, progs []ProgramHeader, sections []SectionHeader, ctx Context, t SectionTransformer) (Plan, error) {
	if len(sections) <= 1 {
		return Plan{
			Sections: append([]SectionHeader(nil), sections...),
		}, nil
	}

	tracker := newProgramHeaderTracker(progs)
	output := make([]SectionHeader, 0, len(sections))
	output = append(output, sections[0])

	vacantAt := sections[1].Off
	for i := 1; i < len(sections); i++ {
		input := sections[i]

		newSize, changed, err := t.TransformSection(raw, input, ctx, io.Discard)
		if err != nil {
			return Plan{}, errors.Wrapf(err, "sizing section %d (%s)", i, input.DisplayName())
		}
		if !changed {
			newSize = input.Size
		}

		newOffset, ok := common.AlignUp64(vacantAt, input.Addralign)
		if !ok {
			invariantf("Section %s: offset 0x%x aligned to %d does not fit into u64",
				input.DisplayName(), vacantAt, input.Addralign)
		}

		updated := input
		updated.Off = newOffset
		updated.Size = newSize
		output = append(output, updated)

		tracker.observeSection(
			sectionDimensions{offset: input.Off, size: input.Size},
			sectionDimensions{offset: newOffset, size: newSize},
		)

		// observeSection already rejected an overflowing end.
		vacantAt = newOffset + newSize
	}

	return Plan{
		ProgramHeaders:       tracker.result(),
		Sections:             output,
		SectionHeadersOffset: vacantAt,
	}, nil
}
