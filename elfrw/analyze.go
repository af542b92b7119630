package elfrw

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

const entrypointSymbol = "entrypoint"

// PrintHeader shows the ELF header and the byte range it occupies.
func (e *ELFFile) PrintHeader(out io.Writer) {
	fmt.Fprintf(out, "ELF header offsets: 0x%016x - 0x%016x\n", 0, e.Codec().HeaderSize())
	fmt.Fprintf(out, "Class: %s, Data: %s\n", e.Context.Class, dataName(e))
	fmt.Fprintln(out, e.Header.String())
}

// PrintLayout gives an overview of where every element of the file lives.
func (e *ELFFile) PrintLayout(out io.Writer) {
	fileSize := uint64(len(e.RawData))
	fmt.Fprintf(out, "Input file data size: 0x%016x (%s)\n", fileSize, humanize.IBytes(fileSize))
	fmt.Fprintf(out, "File type: %s\n", elf.Type(e.Header.Type))

	table := newTable(out, "Element", "Start", "End", "Size")
	headerSize := uint64(e.Codec().HeaderSize())
	table.Append(layoutRow("ELF header", 0, headerSize))
	table.Append(layoutRow("Program section header table", e.Header.Phoff, e.Header.ProgramHeaderTableSize()))
	for i := 1; i < len(e.Sections); i++ {
		s := &e.Sections[i]
		table.Append(layoutRow(s.DisplayName(), s.Off, s.Size))
	}
	table.Append(layoutRow("File segment header table", e.Header.Shoff, e.Header.SectionHeaderTableSize()))
	table.Render()

	e.PrintProgramHeaders(out)
}

// PrintProgramHeaders lists every program header.
func (e *ELFFile) PrintProgramHeaders(out io.Writer) {
	fmt.Fprintln(out, "All programs sections byte offsets:")
	table := newTable(out, "Type", "Start", "End", "Paddr", "Vaddr", "Memsz", "Align")
	for _, p := range e.ProgramHeaders {
		table.Append([]string{
			elf.ProgType(p.Type).String(),
			hex16(p.Off),
			hex16(p.End()),
			hex16(p.Paddr),
			hex16(p.Vaddr),
			hex16(p.Memsz),
			fmt.Sprintf("%d", p.Align),
		})
	}
	table.Render()
}

// PrintSections lists every section header.
func (e *ELFFile) PrintSections(out io.Writer) {
	fmt.Fprintln(out, "All file segments byte offsets:")
	table := newTable(out, "Name", "Type", "Start", "End", "Align")
	for i := range e.Sections {
		s := &e.Sections[i]
		table.Append([]string{
			s.DisplayName(),
			elf.SectionType(s.Type).String(),
			hex16(s.Off),
			hex16(s.End()),
			fmt.Sprintf("%d", s.Addralign),
		})
	}
	table.Render()
}

// PrintDynamicSymbols shows .dynsym and the content of .dynstr.
func (e *ELFFile) PrintDynamicSymbols(out io.Writer) error {
	syms, err := e.DynamicSymbols()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Dynamic symbols (%d):\n", len(syms))
	for i := range syms {
		name := syms[i].Name
		if name == "" {
			name = "---"
		}
		fmt.Fprintf(out, "  %s:\n", name)
		fmt.Fprintf(out, "    %s\n", syms[i].String())
	}

	return e.printStringTable(out, dynstrSection)
}

// PrintShStrTab shows the section names string table.
func (e *ELFFile) PrintShStrTab(out io.Writer) error {
	return e.printStringTable(out, ".shstrtab")
}

func (e *ELFFile) printStringTable(out io.Writer, name string) error {
	index, err := e.FindSection(name)
	if err != nil {
		return err
	}
	strs, err := e.StringTable(index)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s content:\n", name)
	for _, s := range strs {
		fmt.Fprintf(out, "  %q\n", s)
	}
	return nil
}

// PrintRelocations shows how many entries every relocation section holds.
func (e *ELFFile) PrintRelocations(out io.Writer) {
	counts := e.RelocationCounts()
	if len(counts) == 0 {
		fmt.Fprintln(out, "No relocation sections")
		return
	}
	table := newTable(out, "Section", "Type", "Entries")
	for _, c := range counts {
		table.Append([]string{c.Section, c.Type.String(), fmt.Sprintf("%d", c.Entries)})
	}
	table.Render()
}

// PrintEntrypoint finds the "entrypoint" dynamic symbol, used by the Solana VM
// loader, and shows where it is.
func (e *ELFFile) PrintEntrypoint(out io.Writer) error {
	sym, err := e.FindDynamicSymbol(entrypointSymbol)
	if err != nil {
		return err
	}
	if sym == nil {
		fmt.Fprintf(out, "Input does not have an %q dynamic symbol\n", entrypointSymbol)
		return nil
	}
	fmt.Fprintf(out, "%q address: 0x%016x - 0x%016x, size: 0x%08x\n",
		entrypointSymbol, sym.Value, sym.Value+sym.Size, sym.Size)
	return nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func layoutRow(name string, offset, size uint64) []string {
	return []string{name, hex16(offset), hex16(offset + size), humanize.IBytes(size)}
}

func hex16(v uint64) string {
	return fmt.Sprintf("0x%016x", v)
}

func dataName(e *ELFFile) string {
	if e.IsLittleEndian() {
		return "little endian"
	}
	return "big endian"
}
