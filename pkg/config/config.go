package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/uc2lua/pkg/cli"
)

type Feature int

const (
	FeatIfRecovery Feature = iota
	FeatUnderflowComments
	FeatInstructionComments
	FeatUINames
	FeatEventConstants
	FeatStringData
	FeatCount
)

type Warning int

const (
	WarnMalformedLine Warning = iota
	WarnUnknownMnemonic
	WarnUnknownIntrinsic
	WarnStackUnderflow
	WarnDroppedJump
	WarnMissingFunction
	WarnLeftoverValues
	WarnEmptyCall
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	IndentWidth    int
	Jobs           int
	Functions      []int
	IntrinsicsFile string
	OutputDir      string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		IndentWidth: 4,
		Jobs:        4,
	}

	features := map[Feature]Info{
		FeatIfRecovery:          {"if-recovery", true, "Recover structured 'if ... end' blocks from compare and jump pairs."},
		FeatUnderflowComments:   {"underflow-comments", false, "Emit a comment where an instruction finds too few values on the stack."},
		FeatInstructionComments: {"instruction-comments", false, "Append the listing's trailing comment to the line an instruction emits."},
		FeatUINames:             {"ui-names", false, "Rename symbolic 'UI_*' callees to their Lua API names."},
		FeatEventConstants:      {"event-constants", true, "Declare EVENT_* constants in functions that test 'eventid'."},
		FeatStringData:          {"string-data", true, "Declare the data segment strings as 'local str_<label>'."},
	}

	warnings := map[Warning]Info{
		WarnMalformedLine:    {"malformed-line", true, "Warn about listing lines that cannot be parsed."},
		WarnUnknownMnemonic:  {"unknown-mnemonic", false, "Warn about mnemonics passed through as comments."},
		WarnUnknownIntrinsic: {"unknown-intrinsic", false, "Warn about intrinsic opcodes missing from the table."},
		WarnStackUnderflow:   {"stack-underflow", false, "Warn when an instruction consumes more values than the stack holds."},
		WarnDroppedJump:      {"dropped-jump", false, "Warn about unconditional jumps that are not structured."},
		WarnMissingFunction:  {"missing-function", true, "Warn about requested functions that are not in the listing."},
		WarnLeftoverValues:   {"leftover-values", false, "Warn about computed values still on the stack when a function ends."},
		WarnEmptyCall:        {"empty-call", true, "Warn about calls without a callee, which are skipped."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetupFlagGroups registers the -W and -F switch groups on fs. After parsing,
// ApplyFlagGroups replays what was given.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features *cli.Group) {
	warnings = fs.Group("Warning Flags", "W", "warning", true)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings.Add(info.Name, info.Description, info.Enabled)
	}
	features = fs.Group("Feature Flags", "F", "feature", false)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features.Add(info.Name, info.Description, info.Enabled)
	}
	return warnings, features
}

// ApplyFlagGroups applies the switches parsed into groups in command-line
// order, so "-Wall -Wno-empty-call" leaves empty-call off. Explicit switches
// win over whatever a project file set.
func (c *Config) ApplyFlagGroups(groups ...*cli.Group) error {
	for _, g := range groups {
		for _, sw := range g.Switches() {
			if err := c.applyFlag(sw); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	name := trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessFlagString applies a space separated list of -W/-F switches, such as the
// 'flags' entry of a project file.
func (c *Config) ProcessFlagString(flagStr string) error {
	for _, flag := range strings.Fields(flagStr) {
		if err := c.applyFlag(flag); err != nil {
			return err
		}
	}
	return nil
}

// ParseFunctionNumber accepts "0096", "0096H" or "0x0096".
func ParseFunctionNumber(s string) (int, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(s, "H"), "h")
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	n, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid function number '%s'", s)
	}
	return int(n), nil
}
