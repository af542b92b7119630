package elfrw

import "io"

// SectionTransformer decides how the content of one section changes.
//
// TransformSection either declines, returning changed == false, in which case
// the original section bytes are copied, or writes the complete new content of
// the section into out and returns its size.
//
// Every non-null section is passed to the transformer exactly twice: first
// with out set to io.Discard, to learn the new size, then with the real output.
// Both calls must report the same size.
type SectionTransformer interface {
	TransformSection(input []byte, sh SectionHeader, ctx Context, out io.Writer) (newSize uint64, changed bool, err error)
}

// TransformerFunc adapts a function to SectionTransformer.
type TransformerFunc func(input []byte, sh SectionHeader, ctx Context, out io.Writer) (uint64, bool, error)

func (f TransformerFunc) TransformSection(input []byte, sh SectionHeader, ctx Context, out io.Writer) (uint64, bool, error) {
	return f(input, sh, ctx, out)
}

// KeepAllSections declines every section.
var KeepAllSections SectionTransformer = TransformerFunc(
	func([]byte, SectionHeader, Context, io.Writer) (uint64, bool, error) {
		return 0, false, nil
	},
)
