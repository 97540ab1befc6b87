package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/token"
)

// SourceFileRecord tracks the name and content of a single listing file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles  []SourceFileRecord
	mu           sync.Mutex
	out          io.Writer = os.Stderr
	colour                 = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	warningCount atomic.Int64
	exit                   = os.Exit
	program                = filepath.Base(os.Args[0])
)

// SetSourceFiles stores the listing text for all inputs for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	mu.Lock()
	defer mu.Unlock()
	sourceFiles = files
}

// SetOutput redirects diagnostics. Colour is only used on a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if f, ok := w.(*os.File); ok {
		colour = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	} else {
		colour = false
	}
}

// SetProgram names the prefix of diagnostics that have no listing position,
// such as command-line errors.
func SetProgram(name string) {
	mu.Lock()
	defer mu.Unlock()
	program = name
}

// WarningCount reports how many warnings were printed since the last reset.
func WarningCount() int64 { return warningCount.Load() }

func ResetWarningCount() { warningCount.Store(0) }

func paint(code, s string) string {
	if !colour {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// location is "file:line:col" for a token inside a known listing and the
// program name for anything else.
func location(tok token.Token) string {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return program
	}
	return fmt.Sprintf("%s:%d:%d", sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column)
}

// printErrorLine prints the listing line and a caret under the offending token
func printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(out, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	col := tok.Column - 1
	if col < 0 {
		col = 0
	}
	fmt.Fprintf(out, "  %s%s\n", strings.Repeat(" ", col), paint("32", caret))
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	mu.Lock()
	fmt.Fprintf(out, "%s: %s ", location(tok), paint("31", "error:"))
	fmt.Fprintf(out, format, args...)
	fmt.Fprintln(out)
	printErrorLine(tok)
	mu.Unlock()
	exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	warningCount.Add(1)

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s: %s ", location(tok), paint("33", "warning:"))
	fmt.Fprintf(out, format, args...)
	fmt.Fprintf(out, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(tok)
}
