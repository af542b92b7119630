package main

import (
	"gopkg.in/alecthomas/kingpin.v2"
)

const versionString = "elfedit, version 0.1"

// Config holds everything the command line selects.
type Config struct {
	Input   string
	Output  string
	Verbose bool

	DynSymAdd struct {
		Name  string
		Info  uint8
		Other uint8
		Shndx uint16
		Value uint64
		Size  uint64
	}
	DynSymRemove struct {
		Name string
	}
}

// commands maps the full kingpin command names to what they run.
type commands struct {
	show         map[string]string
	dynSymAdd    string
	dynSymRemove string
	verify       string
}

var showTargets = []struct {
	name string
	help string
}{
	{"header", "Show the ELF header."},
	{"layout", "Overview of the file layout."},
	{"program-sections", "Show the program sections."},
	{"file-segments", "Show the file segments."},
	{"dyn-sym", "Show the .dynsym table and the .dynstr string table content."},
	{"sh-str-tab", "Show the .shstrtab string table content."},
	{"relocations", "Show the relocation information."},
	{"entrypoint", "Find the \"entrypoint\" dynamic symbol, used by the Solana VM loader, and show info on it."},
}

func newApp(name string, cfg *Config) (*kingpin.Application, commands) {
	app := kingpin.New(name, "Editor for ELF files.")
	app.Version(versionString)
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Envar("ELFEDIT_VERBOSE").Default("false").BoolVar(&cfg.Verbose)
	app.Flag("input", "Input ELF file to process.").PlaceHolder("INPUT").Required().StringVar(&cfg.Input)

	cmds := commands{show: make(map[string]string, len(showTargets))}

	showCmd := app.Command("show", "Show the input file.")
	for _, target := range showTargets {
		cmds.show[showCmd.Command(target.name, target.help).FullCommand()] = target.name
	}

	modifyCmd := app.Command("modify", "Modify the input file.")
	modifyCmd.Flag("output", "Output ELF file to generate.").PlaceHolder("OUTPUT").Required().StringVar(&cfg.Output)

	dynSymCmd := modifyCmd.Command("dyn-sym", "Modify the .dynsym section, holding the loader dynamic symbols.")

	addCmd := dynSymCmd.Command("add", "Append a dynamic symbol.")
	addCmd.Arg("name", "Symbol name, appended to .dynstr.").Required().StringVar(&cfg.DynSymAdd.Name)
	addCmd.Arg("info", "st_info: binding and type.").Required().Uint8Var(&cfg.DynSymAdd.Info)
	addCmd.Arg("other", "st_other: visibility.").Required().Uint8Var(&cfg.DynSymAdd.Other)
	addCmd.Arg("shndx", "st_shndx: index of the section the symbol is defined in.").Required().Uint16Var(&cfg.DynSymAdd.Shndx)
	addCmd.Arg("value", "st_value.").Required().Uint64Var(&cfg.DynSymAdd.Value)
	addCmd.Arg("size", "st_size.").Required().Uint64Var(&cfg.DynSymAdd.Size)
	cmds.dynSymAdd = addCmd.FullCommand()

	removeCmd := dynSymCmd.Command("remove", "Remove a dynamic symbol.")
	removeCmd.Arg("name", "Symbol name.").Required().StringVar(&cfg.DynSymRemove.Name)
	cmds.dynSymRemove = removeCmd.FullCommand()

	cmds.verify = app.Command("verify", "Check that the input layout can be modified.").FullCommand()

	return app, cmds
}
