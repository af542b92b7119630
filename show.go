package main

import (
	"io"

	"github.com/pkg/errors"

	"elfedit/elfrw"
)

// show prints one view of the input. It does not require the layout to pass
// verification.
func (p *pipeline) show(input, target string) error {
	e, err := p.load(input)
	if err != nil {
		return err
	}
	return showTarget(p.stdout, e, target)
}

func showTarget(out io.Writer, e *elfrw.ELFFile, target string) error {
	switch target {
	case "header":
		e.PrintHeader(out)
	case "layout":
		e.PrintLayout(out)
	case "program-sections":
		e.PrintProgramHeaders(out)
	case "file-segments":
		e.PrintSections(out)
	case "dyn-sym":
		return e.PrintDynamicSymbols(out)
	case "sh-str-tab":
		return e.PrintShStrTab(out)
	case "relocations":
		e.PrintRelocations(out)
	case "entrypoint":
		return e.PrintEntrypoint(out)
	default:
		return errors.Errorf("unknown show target %q", target)
	}
	return nil
}
