package elfrw

import "elfedit/common"

// sectionDimensions is the file range of one section.
type sectionDimensions struct {
	offset uint64
	size   uint64
}

func (d sectionDimensions) end() uint64 {
	return d.offset + d.size
}

// programHeaderBinding records which boundaries of one program header were
// matched by a section. Each flag is set at most once. The flags only catch
// unsupported input; they do not change the output.
type programHeaderBinding struct {
	old   sectionDimensions
	start bool // a section starts where this program header starts
	end   bool // a section ends where this program header ends
}

// programHeaderTracker moves program headers along with the sections whose
// boundaries coincide with theirs.
type programHeaderTracker struct {
	bindings []programHeaderBinding
	output   []ProgramHeader
}

func newProgramHeaderTracker(progs []ProgramHeader) *programHeaderTracker {
	t := &programHeaderTracker{
		bindings: make([]programHeaderBinding, len(progs)),
		output:   make([]ProgramHeader, len(progs)),
	}
	copy(t.output, progs)
	for i, p := range progs {
		if _, ok := common.CheckedAdd64(p.Off, p.Filesz); !ok {
			invariantf("Program section at offset 0x%016x: end does not fit into u64 (p_filesz: 0x%x)",
				p.Off, p.Filesz)
		}
		t.bindings[i].old = sectionDimensions{offset: p.Off, size: p.Filesz}
	}
	return t
}

// observeSection updates the first program header whose old start matches the
// old start of the section, and the first whose old end matches its old end.
// A later program header on the same boundary stays unbound, which result
// reports. It is a linear scan; there are few program headers.
func (t *programHeaderTracker) observeSection(old, updated sectionDimensions) {
	if i := t.find(func(b *programHeaderBinding) bool { return b.old.offset == old.offset }); i >= 0 {
		b := &t.bindings[i]
		if b.start {
			invariantf("Program section at offset 0x%016x: Two file sections coincide with the start "+
				"of this program section.\nThis tool does not support ELF files with such structure, "+
				"as it makes it harder to know when such a program section offset needs to be updated.",
				b.old.offset)
		}
		b.start = true
		t.output[i].Off = updated.offset
	}

	newEnd, ok := common.CheckedAdd64(updated.offset, updated.size)
	if !ok {
		invariantf("File section end 0x%x + 0x%x does not fit into uint64", updated.offset, updated.size)
	}

	if i := t.find(func(b *programHeaderBinding) bool { return b.old.end() == old.end() }); i >= 0 {
		b := &t.bindings[i]
		if b.end {
			invariantf("Program section at offset 0x%016x: Two file sections coincide with the end "+
				"of this program section.\nThis tool does not support ELF files with such structure, "+
				"as it makes it harder to know when such a program section size needs to be updated.",
				b.old.offset)
		}
		b.end = true

		// The section may not cover the whole program section, so the new
		// file size is computed from absolute offsets.
		out := &t.output[i]
		newFilesz, ok := common.CheckedSub64(newEnd, out.Off)
		if !ok {
			invariantf("Program section at offset 0x%016x: new end 0x%x is before its start 0x%x",
				b.old.offset, newEnd, out.Off)
		}
		delta, ok := common.StrictSignedDiff(newFilesz, out.Filesz)
		if !ok {
			invariantf("0x%x: u64 - 0x%x: u64 overflows i64", newFilesz, out.Filesz)
		}
		newMemsz, ok := common.CheckedAddSigned64(out.Memsz, delta)
		if !ok {
			invariantf("Program section at offset 0x%016x: p_memsz 0x%x adjusted by %d does not fit into u64",
				b.old.offset, out.Memsz, delta)
		}
		out.Filesz = newFilesz
		out.Memsz = newMemsz
	}
}

func (t *programHeaderTracker) find(match func(b *programHeaderBinding) bool) int {
	for i := range t.bindings {
		if match(&t.bindings[i]) {
			return i
		}
	}
	return -1
}

// result returns the updated program headers. Every program header must have
// had both of its boundaries matched.
func (t *programHeaderTracker) result() []ProgramHeader {
	for i, b := range t.bindings {
		if !b.start {
			invariantf("Program section at offset 0x%016x: No file sections coincide with the start of "+
				"this program section.\nThis tool does not support ELF files with such structure, "+
				"as it makes it harder to know when such a program section offset needs to be updated.",
				t.output[i].Off)
		}
		if !b.end {
			invariantf("Program section at offset 0x%016x: No file sections coincide with the end of "+
				"this program section.\nThis tool does not support ELF files with such structure, "+
				"as it makes it harder to know when such a program section size needs to be updated.",
				t.output[i].Off)
		}
	}
	return t.output
}
