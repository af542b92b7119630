package elfrw

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// scratchSize is the size of the buffer shared by record serialization and
// zero padding.
const scratchSize = 256

// Rewrite produces a modified copy of e in out. The layout is computed in full
// before the first byte is written.
func (e *ELFFile) Rewrite(out io.Writer, t SectionTransformer, logger log.Logger) (Plan, error) {
	plan, err := e.PlanRewrite(t, logger)
	if err != nil {
		return Plan{}, err
	}
	if err := e.WritePlan(out, plan, t); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// PlanRewrite computes the layout of the copy of e that t produces, without
// writing anything.
func (e *ELFFile) PlanRewrite(t SectionTransformer, logger log.Logger) (Plan, error) {
	plan, err := ComputeShifts(e.RawData, e.ProgramHeaders, e.Sections, e.Context, t)
	if err != nil {
		return Plan{}, err
	}
	logPlan(logger, e, plan)
	return plan, nil
}

// WritePlan writes the copy of e laid out by plan.
func (e *ELFFile) WritePlan(out io.Writer, plan Plan, t SectionTransformer) error {
	return WriteRelayout(out, e.RawData, e.Header, e.Sections, plan, e.Context, t)
}

// WriteRelayout writes the file described by plan: the updated ELF header, the
// program headers, every section at its new offset, and the section header
// table. Sections the transformer declines are copied from raw.
func WriteRelayout(out io.Writer, raw []byte, hdr Header, sections []SectionHeader, plan Plan, ctx Context, t SectionTransformer) error {
	w := newRelayoutWriter(out, ctx)
	w.checkPreconditions(hdr, sections, plan)

	newHeader := hdr
	newHeader.Shoff = plan.SectionHeadersOffset
	if err := w.writeRecord(func(buf []byte) (int, error) {
		return w.codec.EncodeHeader(buf, newHeader)
	}); err != nil {
		return errors.Wrap(err, "writing ELF header")
	}

	// Sections are never added or removed, so the program header table keeps
	// its position and size.
	if w.written != hdr.Phoff {
		invariantf("ELF header ends at 0x%x, but the program header table starts at 0x%x", w.written, hdr.Phoff)
	}
	for i, p := range plan.ProgramHeaders {
		if err := w.writeRecord(func(buf []byte) (int, error) {
			return w.codec.EncodeProgramHeader(buf, p)
		}); err != nil {
			return errors.Wrapf(err, "writing program header %d", i)
		}
	}

	for i := 1; i < len(sections); i++ {
		input, planned := sections[i], plan.Sections[i]
		if err := w.padTo(planned.Off); err != nil {
			return errors.Wrapf(err, "padding before section %s", input.DisplayName())
		}

		start := w.written
		_, changed, err := t.TransformSection(raw, input, ctx, w)
		if err != nil {
			return errors.Wrapf(err, "writing section %d (%s)", i, input.DisplayName())
		}
		if !changed {
			if _, err := w.Write(raw[input.Off:input.End()]); err != nil {
				return errors.Wrapf(err, "copying section %d (%s)", i, input.DisplayName())
			}
		}
		if produced := w.written - start; produced != planned.Size {
			invariantf("Section %s: produced 0x%x bytes, but its planned size is 0x%x",
				input.DisplayName(), produced, planned.Size)
		}
	}

	if err := w.padTo(plan.SectionHeadersOffset); err != nil {
		return errors.Wrap(err, "padding before the section header table")
	}

	for i, s := range plan.Sections {
		if err := w.writeRecord(func(buf []byte) (int, error) {
			return w.codec.EncodeSectionHeader(buf, s)
		}); err != nil {
			return errors.Wrapf(err, "writing section header %d", i)
		}
	}
	return nil
}

// relayoutWriter tracks how many bytes went to the output.
type relayoutWriter struct {
	out     io.Writer
	codec   Codec
	written uint64
	buf     [scratchSize]byte
}

func newRelayoutWriter(out io.Writer, ctx Context) *relayoutWriter {
	return &relayoutWriter{out: out, codec: NewCodec(ctx)}
}

func (w *relayoutWriter) Write(p []byte) (int, error) {
	n, err := w.out.Write(p)
	w.written += uint64(n)
	return n, err
}

// checkPreconditions rejects every shape the writer cannot produce before
// anything is written.
func (w *relayoutWriter) checkPreconditions(hdr Header, sections []SectionHeader, plan Plan) {
	if w.codec.MaxRecordSize() > len(w.buf) {
		invariantf("Single serialized record should fit into the serialization buffer.\n"+
			"Current buffer size: %d\nLargest record size: %d", len(w.buf), w.codec.MaxRecordSize())
	}
	if len(plan.Sections) != len(sections) {
		invariantf("Plan holds %d section headers, the input has %d", len(plan.Sections), len(sections))
	}
	if uint64(w.codec.HeaderSize()) != hdr.Phoff {
		invariantf("ELF header ends at 0x%x, but the program header table starts at 0x%x",
			w.codec.HeaderSize(), hdr.Phoff)
	}
	if len(plan.ProgramHeaders) > 0 && int(hdr.Phentsize) != w.codec.ProgramHeaderSize() {
		invariantf("Program header entry size %d differs from the %s record size %d",
			hdr.Phentsize, w.codec.Context().Class, w.codec.ProgramHeaderSize())
	}
	if len(plan.Sections) > 0 && int(hdr.Shentsize) != w.codec.SectionHeaderSize() {
		invariantf("Section header entry size %d differs from the %s record size %d",
			hdr.Shentsize, w.codec.Context().Class, w.codec.SectionHeaderSize())
	}
}

func (w *relayoutWriter) writeRecord(encode func(buf []byte) (int, error)) error {
	n, err := encode(w.buf[:])
	if err != nil {
		return err
	}
	_, err = w.Write(w.buf[:n])
	return err
}

// padTo writes zero bytes until the output reaches target.
func (w *relayoutWriter) padTo(target uint64) error {
	if target < w.written {
		invariantf("Cannot pad backwards: output is at 0x%x, target offset is 0x%x", w.written, target)
	}
	clear(w.buf[:])
	for w.written < target {
		n := min(target-w.written, uint64(len(w.buf)))
		if _, err := w.Write(w.buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

func logPlan(logger log.Logger, e *ELFFile, plan Plan) {
	if logger == nil {
		return
	}
	for i := 1; i < len(plan.Sections); i++ {
		old, updated := e.Sections[i], plan.Sections[i]
		if old.Off == updated.Off && old.Size == updated.Size {
			continue
		}
		level.Debug(logger).Log(
			"msg", "section moved",
			"section", old.DisplayName(),
			"old_offset", old.Off, "old_size", old.Size,
			"new_offset", updated.Off, "new_size", updated.Size,
		)
	}
	level.Debug(logger).Log(
		"msg", "computed relayout plan",
		"file", e.FileName,
		"sections", len(plan.Sections),
		"program_headers", len(plan.ProgramHeaders),
		"old_section_headers_offset", e.Header.Shoff,
		"new_section_headers_offset", plan.SectionHeadersOffset,
	)
}
