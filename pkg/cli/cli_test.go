package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func isNumber(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

func TestParse(t *testing.T) {
	var (
		functions []string
		verbose   bool
		jobs      int
		config    string
	)
	fs := NewFlagSet("uc2lua")
	fs.List(&functions, "functions", "f", "Functions.", "number", nil)
	fs.Bool(&verbose, "verbose", "v", false, "Verbose.")
	fs.Int(&jobs, "jobs", "j", 4, "Jobs.", "n")
	fs.String(&config, "config", "c", "", "Project file.", "file")

	args := []string{"-f", "0096", "--functions=0097", "-v", "-j8", "--config", "u.toml", "in.dis", "--", "-out"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"0096", "0097"}, functions); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}
	if !verbose || jobs != 8 || config != "u.toml" {
		t.Errorf("verbose %v, jobs %d, config %q", verbose, jobs, config)
	}
	if diff := cmp.Diff([]string{"in.dis", "-out"}, fs.Args()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if !fs.Changed("jobs") || !fs.Changed("verbose") || !fs.Changed("config") || fs.Changed("missing") {
		t.Errorf("Changed does not track parsed flags")
	}
}

func TestListAcceptsFollowingWords(t *testing.T) {
	var nums []string
	fs := NewFlagSet("uc2lua")
	fs.List(&nums, "num", "n", "Numbers.", "n", isNumber)

	if err := fs.Parse([]string{"-n", "1", "2", "3", "in.dis", "-n", "4", "--", "5"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, nums); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"in.dis", "5"}, fs.Args()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--nope"},
		{"-q"},
		{"-j", "many"},
		{"--jobs"},
		{"-vx"},
		{"--verbose=maybe"},
		{"-Wbogus"},
	} {
		var (
			jobs    int
			verbose bool
		)
		fs := NewFlagSet("uc2lua")
		fs.Int(&jobs, "jobs", "j", 1, "Jobs.", "n")
		fs.Bool(&verbose, "verbose", "v", false, "Verbose.")
		fs.Group("Warning Flags", "W", "warning", true).Add("extra", "Extra.", false)
		if err := fs.Parse(args); err == nil {
			t.Errorf("Parse(%q) succeeded", args)
		}
	}
}

func TestGroupSwitchesKeepOrder(t *testing.T) {
	fs := NewFlagSet("uc2lua")
	warn := fs.Group("Warning Flags", "W", "warning", true)
	warn.Add("stack-underflow", "Underflow.", false)
	warn.Add("empty-call", "Empty calls.", true)
	feat := fs.Group("Feature Flags", "F", "feature", false)
	feat.Add("ui-names", "UI names.", false)

	if err := fs.Parse([]string{"-Wall", "-Fui-names", "-Wno-empty-call", "x.dis"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"-Wall", "-Wno-empty-call"}, warn.Switches()); diff != "" {
		t.Errorf("warning switches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-Fui-names"}, feat.Switches()); diff != "" {
		t.Errorf("feature switches mismatch (-want +got):\n%s", diff)
	}

	fs = NewFlagSet("uc2lua")
	fs.Group("Feature Flags", "F", "feature", false).Add("ui-names", "UI names.", false)
	if err := fs.Parse([]string{"-Fall"}); err == nil {
		t.Errorf("-Fall accepted by a group without 'all'")
	}
}

func TestHelpAndUsage(t *testing.T) {
	var jobs int
	app := NewApp("uc2lua")
	app.Synopsis = "[options] <usecode.dis> <output-dir>"
	app.Version = "1.0"
	app.FlagSet.Int(&jobs, "jobs", "j", 4, "Number of functions translated in parallel.", "n")
	warn := app.FlagSet.Group("Warning Flags", "W", "warning", true)
	warn.Add("stack-underflow", "Warn about underflow.", false)
	warn.Add("empty-call", "Warn about empty calls.", true)

	var out, errs bytes.Buffer
	app.Stdout, app.Stderr = &out, &errs
	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatal(err)
	}
	help := out.String()
	for _, want := range []string{
		"uc2lua 1.0",
		"uc2lua [options] <usecode.dis> <output-dir>",
		"-j, --jobs <n>",
		"|4|",
		"Warning Flags",
		"-W<warning>",
		"-Wno-<warning>",
		"-Wall",
		"|x|",
		"|-|",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help page lacks %q:\n%s", want, help)
		}
	}

	var usage bytes.Buffer
	app.Usage(&usage)
	if !strings.HasPrefix(usage.String(), "Usage: uc2lua [options] <usecode.dis> <output-dir>\n") {
		t.Errorf("usage = %q", usage.String())
	}
}

func TestRunReportsErrors(t *testing.T) {
	app := NewApp("uc2lua")
	var out, errs bytes.Buffer
	app.Stdout, app.Stderr = &out, &errs
	app.Action = func(args []string) error { return nil }

	err := app.Run([]string{"--bogus"})
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("Run(--bogus) = %v, want a usage error", err)
	}
	if !strings.HasPrefix(errs.String(), "uc2lua: unknown flag: --bogus\nUsage: uc2lua") {
		t.Errorf("stderr = %q", errs.String())
	}

	errs.Reset()
	failed := errors.New("no functions to convert")
	app = NewApp("uc2lua")
	app.Stdout, app.Stderr = &out, &errs
	app.Action = func(args []string) error { return failed }
	if err := app.Run([]string{"in.dis"}); err != failed {
		t.Errorf("Run = %v, want the action's error", err)
	}
	if errs.Len() != 0 {
		t.Errorf("action error was printed: %q", errs.String())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four"}, got); diff != "" {
		t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
	}
	if got := wrapText("", 9); len(got) != 0 {
		t.Errorf("wrapText of nothing = %q", got)
	}
}
