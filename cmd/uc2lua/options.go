package main

import (
	"fmt"
	"strings"

	"github.com/xplshn/uc2lua/pkg/cli"
	"github.com/xplshn/uc2lua/pkg/config"
)

// options holds the raw command line before it is layered onto a Config.
type options struct {
	functions      []string
	intrinsicsFile string
	projectFile    string
	jobs           int
	indent         int
	verbose        bool
	dump           bool

	fs       *cli.FlagSet
	warnings *cli.Group
	features *cli.Group
}

func (o *options) register(fs *cli.FlagSet, cfg *config.Config) {
	o.fs = fs
	fs.List(&o.functions, "functions", "f", "Only convert the given functions, in hex such as 0096. Several may follow one -f or be joined with commas (-f 0096,0401); use -- before an input named like a number.", "number", isFunctionList)
	fs.Bool(&o.verbose, "verbose", "v", false, "Log progress for every function.")
	fs.Int(&o.jobs, "jobs", "j", cfg.Jobs, "Number of functions translated in parallel.", "n")
	fs.Bool(&o.dump, "dump", "d", false, "Dump the parsed function records and exit.")
	fs.String(&o.intrinsicsFile, "intrinsics", "", "", "Load intrinsic name overrides from a YAML file.", "file")
	fs.String(&o.projectFile, "config", "c", "", "Read settings from a project file (default: ./"+config.ProjectFileName+" if present).", "file")
	fs.Int(&o.indent, "indent", "", cfg.IndentWidth, "Spaces per indentation level in the generated Lua.", "n")
	o.warnings, o.features = cfg.SetupFlagGroups(fs)
}

// configure layers built-in defaults, the project file and the command line,
// in that order, and returns the listing to read.
func (o *options) configure(cfg *config.Config, args []string) (string, error) {
	var project *config.Project
	path := o.projectFile
	if path == "" {
		path = config.FindProject(".")
	}
	if path != "" {
		p, err := config.LoadProject(path)
		if err != nil {
			return "", err
		}
		if err := p.Apply(cfg); err != nil {
			return "", err
		}
		log.Infof("using project file %s", path)
		project = p
	}

	if err := cfg.ApplyFlagGroups(o.warnings, o.features); err != nil {
		return "", err
	}
	if o.fs.Changed("jobs") {
		cfg.Jobs = o.jobs
	}
	if o.fs.Changed("indent") {
		cfg.IndentWidth = o.indent
	}
	if cfg.IndentWidth < 0 {
		return "", fmt.Errorf("indent width must not be negative")
	}
	if o.intrinsicsFile != "" {
		cfg.IntrinsicsFile = o.intrinsicsFile
	}
	if len(o.functions) > 0 {
		numbers, err := parseFunctionList(o.functions)
		if err != nil {
			return "", err
		}
		cfg.Functions = numbers
	}

	if len(args) > 2 {
		return "", fmt.Errorf("unexpected argument '%s'", args[2])
	}
	if len(args) > 1 {
		cfg.OutputDir = args[1]
	}
	switch {
	case len(args) > 0:
		return args[0], nil
	case project != nil:
		return project.Input, nil
	}
	return "", nil
}

// isFunctionList reports whether s reads as one or more comma separated
// function numbers, so that "-f 0096 0401 in.dis" stops at the listing.
func isFunctionList(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ",") {
		if len(part) > 6 {
			return false
		}
		if _, err := config.ParseFunctionNumber(part); err != nil {
			return false
		}
	}
	return true
}

func parseFunctionList(values []string) ([]int, error) {
	var numbers []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			n, err := config.ParseFunctionNumber(part)
			if err != nil {
				return nil, err
			}
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}
