package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"elfedit/common"
	"elfedit/elfrw"
)

// pipeline runs one command against files of fs.
type pipeline struct {
	fs     afero.Fs
	logger log.Logger
	stdout io.Writer
}

func (p *pipeline) load(path string) (*elfrw.ELFFile, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the input file")
	}
	defer func() {
		_ = f.Close()
	}()
	return elfrw.ReadELF(f, path)
}

// transformerBuilder prepares the edit for a verified input.
type transformerBuilder func(e *elfrw.ELFFile) (elfrw.SectionTransformer, error)

// modify verifies the input, then writes the edited copy to output. An input
// with an unsupported layout is reported and skipped; no output is created.
func (p *pipeline) modify(input, output string, build transformerBuilder) (*common.OperationResult, error) {
	e, err := p.load(input)
	if err != nil {
		return nil, err
	}

	if err := e.VerifyStructure(); err != nil {
		if !elfrw.IsStructureError(err) {
			return nil, err
		}
		p.reportStructure(err)
		return common.NewSkipped(input, "unsupported ELF structure"), nil
	}

	t, err := build(e)
	if err != nil {
		return nil, err
	}

	plan, err := e.PlanRewrite(t, p.logger)
	if err != nil {
		return nil, err
	}
	if err := p.writeOutput(output, e, plan, t); err != nil {
		return nil, err
	}

	size := plan.SectionHeadersOffset + e.Header.SectionHeaderTableSize()
	level.Info(p.logger).Log(
		"msg", "wrote output",
		"output", output,
		"input_size", humanize.IBytes(uint64(len(e.RawData))),
		"output_size", humanize.IBytes(size),
	)
	return common.NewApplied(input, output, size, resizedSections(e, plan)), nil
}

// writeOutput writes the planned copy to output. A failed or aborted write
// removes the partial output.
func (p *pipeline) writeOutput(output string, e *elfrw.ELFFile, plan elfrw.Plan, t elfrw.SectionTransformer) (err error) {
	out, err := p.fs.Create(output)
	if err != nil {
		return errors.Wrapf(err, "failed to open the output file: %s", output)
	}
	done := false
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "closing %s", output)
		}
		if !done || err != nil {
			_ = p.fs.Remove(output)
		}
	}()

	w := bufio.NewWriter(out)
	if err := e.WritePlan(w, plan, t); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flushing output")
	}
	done = true
	return nil
}

// verify reports whether the input layout can be rewritten.
func (p *pipeline) verify(input string) error {
	e, err := p.load(input)
	if err != nil {
		return err
	}
	if err := e.VerifyStructure(); err != nil {
		if elfrw.IsStructureError(err) {
			p.reportStructure(err)
		}
		return err
	}
	fmt.Fprintf(p.stdout, "%s: supported ELF structure (%s, %d sections, %d program headers)\n",
		input, e.Context, len(e.Sections), len(e.ProgramHeaders))
	return nil
}

func (p *pipeline) reportStructure(err error) {
	_, _ = color.New(color.FgRed, color.Bold).Fprintln(p.stdout, "Unsupported ELF structure:")
	_, _ = fmt.Fprintln(p.stdout, err)
}

func resizedSections(e *elfrw.ELFFile, plan elfrw.Plan) int {
	count := 0
	for i := 1; i < len(plan.Sections); i++ {
		if plan.Sections[i].Size != e.Sections[i].Size {
			count++
		}
	}
	return count
}

func dynSymAdd(cfg *Config) transformerBuilder {
	return func(e *elfrw.ELFFile) (elfrw.SectionTransformer, error) {
		args := cfg.DynSymAdd
		return elfrw.AppendDynamicSymbol(e, args.Name, elfrw.Symbol{
			Info:         args.Info,
			Other:        args.Other,
			SectionIndex: args.Shndx,
			Value:        args.Value,
			Size:         args.Size,
		})
	}
}

func dynSymRemove(cfg *Config) transformerBuilder {
	return func(e *elfrw.ELFFile) (elfrw.SectionTransformer, error) {
		return elfrw.RemoveDynamicSymbol(e, cfg.DynSymRemove.Name)
	}
}
