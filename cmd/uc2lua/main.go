package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/xplshn/uc2lua/pkg/cli"
	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/converter"
	"github.com/xplshn/uc2lua/pkg/intrinsics"
	"github.com/xplshn/uc2lua/pkg/token"
	"github.com/xplshn/uc2lua/pkg/usecode"
	"github.com/xplshn/uc2lua/pkg/util"
)

var log = commonlog.GetLogger("uc2lua")

func main() {
	util.SetProgram("uc2lua")
	if err := newApp().Run(os.Args[1:]); err != nil {
		var usage *cli.UsageError
		if !errors.As(err, &usage) {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp("uc2lua")
	app.Synopsis = "[options] <usecode.dis> <output-dir>"
	app.Description = "Reconstructs readable Lua from a usecode disassembly listing, one func_XXXX.lua per function."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/uc2lua>"
	app.Version = "0.3.0"
	app.Since = 2025

	cfg := config.NewConfig()
	o := &options{}
	o.register(app.FlagSet, cfg)
	app.Action = func(args []string) error { return run(app, cfg, o, args) }
	return app
}

// logVerbosity maps -v onto commonlog levels: warnings and errors by default,
// everything down to debug with -v.
func logVerbosity(verbose bool) int {
	if verbose {
		return 2
	}
	return -1
}

func run(app *cli.App, cfg *config.Config, o *options, args []string) error {
	commonlog.Configure(logVerbosity(o.verbose), nil)

	input, err := o.configure(cfg, args)
	if err != nil {
		return err
	}
	if input == "" || (cfg.OutputDir == "" && !o.dump) {
		app.Usage(app.Stderr)
		return fmt.Errorf("missing input listing or output directory")
	}

	table := intrinsics.Default()
	if cfg.IntrinsicsFile != "" {
		ov, err := intrinsics.LoadOverrides(cfg.IntrinsicsFile)
		if err != nil {
			return err
		}
		table = table.WithOverrides(ov)
		log.Infof("loaded %d intrinsic override(s) from %s", len(ov.Intrinsics)+len(ov.UI), cfg.IntrinsicsFile)
	}

	start := time.Now()
	listing, err := converter.ReadListing(input, cfg)
	if err != nil {
		return err
	}
	selected := converter.Select(listing, cfg.Functions, cfg)

	if o.dump {
		dumpFunctions(app.Stdout, selected, table)
		return nil
	}

	if len(selected) == 0 {
		return fmt.Errorf("no functions to convert")
	}
	fmt.Fprintf(app.Stdout, "Converting %d function(s) from %s...\n", len(selected), input)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := converter.New(cfg, table).Convert(ctx, selected, cfg.OutputDir)
	if err != nil {
		return err
	}

	summary := converter.Summarize(results, time.Since(start))
	fmt.Fprintln(app.Stdout, summary)
	if !summary.OK() {
		return fmt.Errorf("no function was converted")
	}
	return nil
}

func dumpFunctions(w io.Writer, fns []*usecode.Function, table *intrinsics.Table) {
	cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	for _, fn := range fns {
		fmt.Fprintf(w, "--- function %04X ---\n", fn.Number)
		cs.Fdump(w, fn)
		for _, inst := range fn.Instructions {
			if inst.Mnemonic != usecode.CallIS {
				continue
			}
			if op, err := intrinsics.ParseOpcode(inst.Operand(0)); err == nil {
				fmt.Fprintf(w, "  %04X: callis %04XH ; %s\n", inst.Address, op, table.Describe(op))
			}
		}
	}
}
