// Package converter drives a whole listing through the pipeline: parse, pick
// the requested functions, translate them in parallel and write one Lua file
// per function.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/xplshn/uc2lua/pkg/codegen"
	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/intrinsics"
	"github.com/xplshn/uc2lua/pkg/lexer"
	"github.com/xplshn/uc2lua/pkg/parser"
	"github.com/xplshn/uc2lua/pkg/token"
	"github.com/xplshn/uc2lua/pkg/translator"
	"github.com/xplshn/uc2lua/pkg/usecode"
	"github.com/xplshn/uc2lua/pkg/util"
)

var log = commonlog.GetLogger("uc2lua.converter")

// ParseListing tokenizes and parses one listing. name is only used for
// diagnostics.
func ParseListing(name string, src []byte, cfg *config.Config) *usecode.Listing {
	content := []rune(string(src))
	util.SetSourceFiles([]util.SourceFileRecord{{Name: name, Content: content}})
	tokens := lexer.NewLexer(content, 0).All()
	return parser.NewParser(tokens, cfg).Parse()
}

func ReadListing(path string, cfg *config.Config) (*usecode.Listing, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read listing: %w", err)
	}
	listing := ParseListing(path, src, cfg)
	log.Infof("parsed %d function(s) from %s (%s)", len(listing.Functions), path, humanize.Bytes(uint64(len(src))))
	return listing, nil
}

// Select returns the functions named in numbers, in listing order, or every
// function when numbers is empty. Numbers that are not in the listing are
// reported together in one missing-function warning.
func Select(listing *usecode.Listing, numbers []int, cfg *config.Config) []*usecode.Function {
	if len(numbers) == 0 {
		return listing.Functions
	}

	wanted := make(map[int]bool, len(numbers))
	var missing []string
	for _, n := range numbers {
		if wanted[n] { continue }
		wanted[n] = true
		if _, ok := listing.Lookup(n); !ok {
			missing = append(missing, fmt.Sprintf("%04X", n))
		}
	}
	if len(missing) > 0 {
		util.Warn(cfg, config.WarnMissingFunction, token.Token{FileIndex: 0}, "function(s) not found in listing: %s", strings.Join(missing, ", "))
	}

	var selected []*usecode.Function
	for _, fn := range listing.Functions {
		if wanted[fn.Number] {
			selected = append(selected, fn)
		}
	}
	return selected
}

// Result describes what happened to one function.
type Result struct {
	Number    int
	Path      string
	Size      int
	Lines     int
	Unchanged bool
	Err       error
}

type Converter struct {
	cfg     *config.Config
	table   *intrinsics.Table
	backend codegen.Backend
}

// New builds a converter. A nil table selects the built-in intrinsics.
func New(cfg *config.Config, table *intrinsics.Table) *Converter {
	if table == nil {
		table = intrinsics.Default()
	}
	return &Converter{cfg: cfg, table: table, backend: codegen.NewLuaBackend()}
}

// Generate translates fn and wraps it into a complete script.
func (c *Converter) Generate(fn *usecode.Function) (out []byte, lines int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("function %04X: translation panicked: %v", fn.Number, r)
		}
	}()

	body := translator.Translate(fn, translator.WithTable(c.table), translator.WithConfig(c.cfg))
	// Backends hold per-call state; workers each get their own.
	buf, err := codegen.NewLuaBackend().Generate(fn, body, c.cfg)
	if err != nil {
		return nil, 0, fmt.Errorf("function %04X: %w", fn.Number, err)
	}
	return buf.Bytes(), len(body), nil
}

// FileName is the output file of function n.
func (c *Converter) FileName(n int) string { return codegen.FuncName(n) + c.backend.Extension() }

// Convert writes every function in fns to outDir using at most cfg.Jobs
// workers. A failing function is recorded in its Result and does not stop the
// others; the returned error is only set for problems with outDir or ctx.
func (c *Converter) Convert(ctx context.Context, fns []*usecode.Function, outDir string) ([]Result, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}

	results := make([]Result, len(fns))
	g, ctx := errgroup.WithContext(ctx)
	jobs := c.cfg.Jobs
	if jobs < 1 { jobs = 1 }
	g.SetLimit(jobs)

	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.convertOne(fn, outDir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (c *Converter) convertOne(fn *usecode.Function, outDir string) Result {
	res := Result{Number: fn.Number, Path: filepath.Join(outDir, c.FileName(fn.Number))}

	out, lines, err := c.Generate(fn)
	if err != nil {
		log.Errorf("%s", err)
		res.Err = err
		return res
	}
	res.Size, res.Lines = len(out), lines

	if sameContent(res.Path, out) {
		log.Debugf("%s is up to date", res.Path)
		res.Unchanged = true
		return res
	}
	if err := os.WriteFile(res.Path, out, 0o644); err != nil {
		res.Err = fmt.Errorf("could not write %s: %w", res.Path, err)
		log.Errorf("%s", res.Err)
		return res
	}
	log.Debugf("wrote %s (%d lines)", res.Path, lines)
	return res
}

// sameContent reports whether path already holds exactly out.
func sameContent(path string, out []byte) bool {
	old, err := os.ReadFile(path)
	if err != nil || len(old) != len(out) {
		return false
	}
	return xxhash.Sum64(old) == xxhash.Sum64(out) && bytes.Equal(old, out)
}

// Summary aggregates a conversion run.
type Summary struct {
	Converted int
	Unchanged int
	Failed    []int
	Bytes     uint64
	Warnings  int64
	Elapsed   time.Duration
}

func Summarize(results []Result, elapsed time.Duration) Summary {
	s := Summary{Elapsed: elapsed, Warnings: util.WarningCount()}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed = append(s.Failed, r.Number)
		case r.Unchanged:
			s.Unchanged++
			s.Converted++
		default:
			s.Converted++
			s.Bytes += uint64(r.Size)
		}
	}
	sort.Ints(s.Failed)
	return s
}

// OK reports whether at least one function made it through.
func (s Summary) OK() bool { return s.Converted > 0 }

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "converted %s function(s)", humanize.Comma(int64(s.Converted)))
	if s.Unchanged > 0 {
		fmt.Fprintf(&sb, " (%s unchanged)", humanize.Comma(int64(s.Unchanged)))
	}
	fmt.Fprintf(&sb, ", wrote %s", humanize.Bytes(s.Bytes))
	if n := len(s.Failed); n > 0 {
		failed := make([]string, n)
		for i, f := range s.Failed {
			failed[i] = fmt.Sprintf("%04X", f)
		}
		fmt.Fprintf(&sb, ", %d failed: %s", n, strings.Join(failed, ", "))
	}
	if s.Warnings > 0 {
		fmt.Fprintf(&sb, ", %s warning(s)", humanize.Comma(s.Warnings))
	}
	fmt.Fprintf(&sb, " in %s", s.Elapsed.Round(time.Millisecond))
	return sb.String()
}
