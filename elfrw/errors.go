package elfrw

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrNotImplemented  = errors.New("not implemented yet")
)

// StructureKind tells which layout rule a file broke.
type StructureKind int

const (
	Overlap StructureKind = iota
	NonZeroGap
	TooFewSections
	BadNullSection
	TrailingData
	PastEndOfFile
)

func (k StructureKind) String() string {
	switch k {
	case Overlap:
		return "overlap"
	case NonZeroGap:
		return "non-zero gap"
	case TooFewSections:
		return "too few sections"
	case BadNullSection:
		return "bad null section"
	case TrailingData:
		return "trailing data"
	case PastEndOfFile:
		return "past end of file"
	}
	return fmt.Sprintf("StructureKind(%d)", int(k))
}

// StructureError reports an input layout this tool cannot rewrite. It is meant
// to be shown to the user.
type StructureError struct {
	Kind StructureKind
	// Region names the offending element: a section name, or one of the
	// header tables.
	Region      string
	Offset      uint64
	Size        uint64
	PreviousEnd uint64
	FileSize    uint64
	// Count is the number of section headers, for TooFewSections.
	Count int
}

func (e *StructureError) Error() string {
	switch e.Kind {
	case TooFewSections:
		return fmt.Sprintf("ELF must have at least 2 sections.  Got: %d", e.Count)
	case BadNullSection:
		return fmt.Sprintf("First section is not 0/0.\nGot offset: 0x%x, size: 0x%x", e.Offset, e.Size)
	case TrailingData:
		return fmt.Sprintf("There are non-zero bytes after the %s that is expected to be the last element of the file.\n"+
			"%s end: 0x%x\nFile size: 0x%x", e.Region, e.Region, e.PreviousEnd, e.FileSize)
	case PastEndOfFile:
		return fmt.Sprintf("%s extends past the end of the file.\n"+
			"%s offset: 0x%x, size: 0x%x\nFile size: 0x%x", e.Region, e.Region, e.Offset, e.Size, e.FileSize)
	case Overlap:
		return fmt.Sprintf("%s starts at a point that is already covered by the previous element.\n"+
			"%s offset: 0x%x, size: 0x%x\nPrevious element ends at: 0x%x",
			e.Region, e.Region, e.Offset, e.Size, e.PreviousEnd)
	case NonZeroGap:
		return fmt.Sprintf("There is a non-zero byte gap between the previous element and %s.\n"+
			"%s offset: 0x%x, size: 0x%x\nPrevious element ends at: 0x%x",
			e.Region, e.Region, e.Offset, e.Size, e.PreviousEnd)
	}
	return fmt.Sprintf("unsupported ELF structure (%s) at 0x%x", e.Kind, e.Offset)
}

// IsStructureError reports whether err, or any error it wraps, is a
// *StructureError.
func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}

// InvariantError is raised with panic when relayout meets a shape it cannot
// handle safely. It is never returned as a regular error.
type InvariantError struct {
	err error
}

func (e *InvariantError) Error() string {
	return e.err.Error()
}

func (e *InvariantError) Unwrap() error {
	return e.err
}

// Format keeps the stack trace recorded by errors.Errorf for %+v.
func (e *InvariantError) Format(s fmt.State, verb rune) {
	if f, ok := e.err.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	_, _ = fmt.Fprint(s, e.err.Error())
}

func invariantf(format string, args ...interface{}) {
	panic(&InvariantError{err: errors.Errorf(format, args...)})
}
