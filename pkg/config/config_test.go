package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/uc2lua/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	on := []Feature{FeatIfRecovery, FeatEventConstants, FeatStringData}
	off := []Feature{FeatUnderflowComments, FeatInstructionComments, FeatUINames}
	for _, f := range on {
		if !cfg.IsFeatureEnabled(f) {
			t.Errorf("feature %s should default to on", cfg.Features[f].Name)
		}
	}
	for _, f := range off {
		if cfg.IsFeatureEnabled(f) {
			t.Errorf("feature %s should default to off", cfg.Features[f].Name)
		}
	}
	if len(cfg.FeatureMap) != int(FeatCount) || len(cfg.WarningMap) != int(WarnCount) {
		t.Errorf("name maps incomplete: %d features, %d warnings", len(cfg.FeatureMap), len(cfg.WarningMap))
	}
}

func TestProcessFlagString(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ProcessFlagString("-Wall -Wno-empty-call -Fno-if-recovery -Fui-names"); err != nil {
		t.Fatal(err)
	}
	for w := Warning(0); w < WarnCount; w++ {
		if want := w != WarnEmptyCall; cfg.IsWarningEnabled(w) != want {
			t.Errorf("warning %s = %v, want %v", cfg.Warnings[w].Name, cfg.IsWarningEnabled(w), want)
		}
	}
	if cfg.IsFeatureEnabled(FeatIfRecovery) || !cfg.IsFeatureEnabled(FeatUINames) {
		t.Errorf("feature flags not applied")
	}

	for _, bad := range []string{"-Wbogus", "-Fbogus", "-Xfoo", "-Fall"} {
		if err := NewConfig().ProcessFlagString(bad); err == nil {
			t.Errorf("ProcessFlagString(%q) succeeded", bad)
		}
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("uc2lua")
	warn, feat := cfg.SetupFlagGroups(fs)
	args := []string{"-Wall", "-Wno-leftover-values", "-Wno-malformed-line", "-Funderflow-comments", "in.dis"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	if err := cfg.ApplyFlagGroups(warn, feat); err != nil {
		t.Fatal(err)
	}

	if !cfg.IsWarningEnabled(WarnStackUnderflow) || cfg.IsWarningEnabled(WarnMalformedLine) || cfg.IsWarningEnabled(WarnLeftoverValues) {
		t.Errorf("warning switches not applied in order")
	}
	if !cfg.IsFeatureEnabled(FeatUnderflowComments) || !cfg.IsFeatureEnabled(FeatIfRecovery) {
		t.Errorf("feature groups not applied")
	}
	if diff := cmp.Diff([]string{"in.dis"}, fs.Args()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFunctionNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0096", 0x96, true},
		{"0096H", 0x96, true},
		{"0x0401", 0x401, true},
		{"ff", 0xff, true},
		{"", 0, false},
		{"96zz", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseFunctionNumber(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFunctionNumber(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestProject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFileName)
	content := `input = "usecode.dis"
output = "lua"
functions = ["0096", "0401H"]
intrinsics = "/etc/uc2lua/names.yaml"
flags = "-Fui-names -Wdropped-jump"

[translate]
indent = 2
jobs = 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := FindProject(dir); got != path {
		t.Errorf("FindProject = %q, want %q", got, path)
	}
	if got := FindProject(t.TempDir()); got != "" {
		t.Errorf("FindProject in empty dir = %q", got)
	}

	p, err := LoadProject(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Input != filepath.Join(dir, "usecode.dis") || p.Output != filepath.Join(dir, "lua") {
		t.Errorf("relative paths not resolved: %q, %q", p.Input, p.Output)
	}
	if p.Intrinsics != "/etc/uc2lua/names.yaml" {
		t.Errorf("absolute path rewritten: %q", p.Intrinsics)
	}

	cfg := NewConfig()
	if err := p.Apply(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.IndentWidth != 2 || cfg.Jobs != 8 || cfg.OutputDir != filepath.Join(dir, "lua") {
		t.Errorf("translate settings: indent %d, jobs %d, output %q", cfg.IndentWidth, cfg.Jobs, cfg.OutputDir)
	}
	if diff := cmp.Diff([]int{0x96, 0x401}, cfg.Functions); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}
	if !cfg.IsFeatureEnabled(FeatUINames) || !cfg.IsWarningEnabled(WarnDroppedJump) {
		t.Errorf("project flags not applied")
	}
}

func TestProjectErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadProject(filepath.Join(dir, "missing.toml")); err == nil {
		t.Errorf("LoadProject of a missing file succeeded")
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("input = [unterminated"), 0o644)
	if _, err := LoadProject(bad); err == nil {
		t.Errorf("LoadProject of invalid TOML succeeded")
	}

	p := &Project{Functions: []string{"nope"}}
	if err := p.Apply(NewConfig()); err == nil {
		t.Errorf("Apply accepted an invalid function number")
	}
}
