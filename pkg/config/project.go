package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectFileName is looked up in the working directory when --config is not given.
const ProjectFileName = "uc2lua.toml"

// Project is the on-disk form of a uc2lua.toml file.
type Project struct {
	Input      string          `toml:"input"`
	Output     string          `toml:"output"`
	Functions  []string        `toml:"functions"`
	Intrinsics string          `toml:"intrinsics"`
	Flags      string          `toml:"flags"`
	Translate  TranslateConfig `toml:"translate"`

	// Dir is the directory containing the project file (set at load time).
	Dir string `toml:"-"`
}

type TranslateConfig struct {
	Indent int `toml:"indent"`
	Jobs   int `toml:"jobs"`
}

// LoadProject parses a project file. Relative paths inside it are resolved against
// the file's directory.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	p.Dir = filepath.Dir(path)
	p.Input = p.resolve(p.Input)
	p.Output = p.resolve(p.Output)
	p.Intrinsics = p.resolve(p.Intrinsics)
	return &p, nil
}

// FindProject returns the project file in dir, or "" if there is none.
func FindProject(dir string) string {
	path := filepath.Join(dir, ProjectFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

// Apply copies the project settings into cfg. Command-line switches are applied
// afterwards and take precedence.
func (p *Project) Apply(cfg *Config) error {
	if p.Translate.Indent > 0 {
		cfg.IndentWidth = p.Translate.Indent
	}
	if p.Translate.Jobs > 0 {
		cfg.Jobs = p.Translate.Jobs
	}
	if p.Output != "" {
		cfg.OutputDir = p.Output
	}
	if p.Intrinsics != "" {
		cfg.IntrinsicsFile = p.Intrinsics
	}
	for _, f := range p.Functions {
		n, err := ParseFunctionNumber(f)
		if err != nil {
			return fmt.Errorf("project %s: %w", filepath.Join(p.Dir, ProjectFileName), err)
		}
		cfg.Functions = append(cfg.Functions, n)
	}
	if err := cfg.ProcessFlagString(p.Flags); err != nil {
		return fmt.Errorf("project flags: %w", err)
	}
	return nil
}
