package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/alecthomas/kingpin.v2"

	"elfedit/elfrw"
)

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	cfg := &Config{}
	app, cmds := newApp(filepath.Base(os.Args[0]), cfg)
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if !cfg.Verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	level.Debug(logger).Log("msg", "parsed command line", "cmd", parsedCmd, "input", cfg.Input)

	p := &pipeline{fs: afero.NewOsFs(), logger: logger, stdout: os.Stdout}
	os.Exit(run(p, cfg, cmds, parsedCmd))
}

func run(p *pipeline, cfg *Config, cmds commands, parsedCmd string) int {
	if target, ok := cmds.show[parsedCmd]; ok {
		return checkError(p.show(cfg.Input, target))
	}

	var build transformerBuilder
	switch parsedCmd {
	case cmds.verify:
		return checkError(p.verify(cfg.Input))
	case cmds.dynSymAdd:
		build = dynSymAdd(cfg)
	case cmds.dynSymRemove:
		build = dynSymRemove(cfg)
	default:
		level.Error(p.logger).Log("msg", "unknown command", "cmd", parsedCmd)
		return 1
	}

	result, err := p.modify(cfg.Input, cfg.Output, build)
	if err != nil {
		return checkError(err)
	}
	level.Info(p.logger).Log("msg", "modify finished", "result", result.String())
	return 0
}

func checkError(err error) int {
	switch {
	case err == nil:
		return 0
	case elfrw.IsStructureError(err):
		// Already reported to stdout.
	case errors.Is(err, elfrw.ErrNotImplemented):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return 1
}
