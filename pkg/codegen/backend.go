package codegen

import (
	"bytes"

	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/ir"
	"github.com/xplshn/uc2lua/pkg/usecode"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate wraps the translated body of fn in a complete script for the
	// target language.
	Generate(fn *usecode.Function, body []ir.Line, cfg *config.Config) (*bytes.Buffer, error)
	// Extension is the file suffix of generated scripts, including the dot.
	Extension() string
}
