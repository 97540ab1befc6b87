package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/intrinsics"
	"github.com/xplshn/uc2lua/pkg/ir"
	"github.com/xplshn/uc2lua/pkg/usecode"
)

type luaBackend struct {
	out *bytes.Buffer
	fn  *usecode.Function
	cfg *config.Config
}

func NewLuaBackend() Backend { return &luaBackend{} }

func (b *luaBackend) Extension() string { return ".lua" }

// FuncName is the Lua name given to usecode function number n.
func FuncName(n int) string { return fmt.Sprintf("func_%04X", n) }

func (b *luaBackend) Generate(fn *usecode.Function, body []ir.Line, cfg *config.Config) (*bytes.Buffer, error) {
	if fn == nil { return nil, fmt.Errorf("no function to generate") }
	b.out, b.fn, b.cfg = &bytes.Buffer{}, fn, cfg
	indent := strings.Repeat(" ", cfg.IndentWidth)

	b.genHeader(indent)
	b.out.WriteString("\n")

	if cfg.IsFeatureEnabled(config.FeatEventConstants) && UsesEventChecks(fn) {
		b.genEventConstants()
		b.out.WriteString("\n")
	}

	if cfg.IsFeatureEnabled(config.FeatStringData) && len(fn.DataSegments) > 0 {
		b.genStringData()
		b.out.WriteString("\n")
	}

	fmt.Fprintf(b.out, "function %s(%s)\n", FuncName(fn.Number), strings.Join(Parameters(fn), ", "))
	if fn.LocalCount > 0 {
		fmt.Fprintf(b.out, "%slocal %s\n\n", indent, strings.Join(Locals(fn), ", "))
	}
	b.out.WriteString(ir.Render(body, cfg.IndentWidth, 1))
	b.out.WriteString("end\n")

	return b.out, nil
}

func (b *luaBackend) genHeader(indent string) {
	b.out.WriteString("--[[\n")
	fmt.Fprintf(b.out, "%sFunction: %s\n", indent, FuncName(b.fn.Number))
	fmt.Fprintf(b.out, "%sOriginal Usecode: 0x%04X\n", indent, b.fn.Number)
	b.out.WriteString("\n")
	fmt.Fprintf(b.out, "%sArgs: %d\n", indent, b.fn.ArgCount)
	fmt.Fprintf(b.out, "%sLocals: %d\n", indent, b.fn.LocalCount)
	if n := len(b.fn.ExternalFuncs); n > 0 {
		fmt.Fprintf(b.out, "%sExternal functions: %d\n", indent, n)
	}
	b.out.WriteString("]]\n")
}

func (b *luaBackend) genEventConstants() {
	ids := make([]int, 0, len(intrinsics.EventTypes))
	for id := range intrinsics.EventTypes { ids = append(ids, id) }
	sort.Ints(ids)

	b.out.WriteString("-- Event types\n")
	for _, id := range ids {
		fmt.Fprintf(b.out, "local EVENT_%s = %d\n", strings.ToUpper(intrinsics.EventTypes[id]), id)
	}
}

func (b *luaBackend) genStringData() {
	b.out.WriteString("-- String data\n")
	for _, seg := range b.fn.DataSegments {
		if !seg.IsString || seg.Text == "" { continue }
		fmt.Fprintf(b.out, "local str_%s = %s\n", seg.Label, QuoteString(seg.Text))
	}
}

// Parameters lists the formal parameters: every usecode function receives the
// event id and the object it was invoked on, extra arguments follow.
func Parameters(fn *usecode.Function) []string {
	params := []string{"eventid", "objectref"}
	for i := 2; i < fn.ArgCount; i++ {
		params = append(params, fmt.Sprintf("arg%d", i))
	}
	return params
}

func Locals(fn *usecode.Function) []string {
	locals := make([]string, fn.LocalCount)
	for i := range locals {
		locals[i] = fmt.Sprintf("var_%04X", i)
	}
	return locals
}

// UsesEventChecks reports whether fn compares 'eventid' against an immediate,
// the usual dispatch at the top of a usecode function.
func UsesEventChecks(fn *usecode.Function) bool {
	insts := fn.Instructions
	for i, inst := range insts {
		if inst.Mnemonic != usecode.Push || i+2 >= len(insts) { continue }
		for _, op := range inst.Operands {
			if op == "eventid" && insts[i+1].Mnemonic == usecode.PushI {
				return true
			}
		}
	}
	return false
}

// QuoteString renders s as a double quoted Lua string literal.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03d`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
