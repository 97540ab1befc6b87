// Package translator turns the flat instruction list of one usecode function
// into structured Lua statements.
//
// A Session simulates the VM's operand stack with textual expressions. Value
// producing instructions push expressions, consuming instructions (pop, calls)
// turn them into statements, and compare/jump pairs are recovered as nested
// 'if ... end' blocks by the matcher in matcher.go. The session never fails:
// malformed input degrades to comments or to plain sequential statements.
package translator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/intrinsics"
	"github.com/xplshn/uc2lua/pkg/ir"
	"github.com/xplshn/uc2lua/pkg/usecode"
	"github.com/xplshn/uc2lua/pkg/util"
)

// stackValue is a pending expression. inst produced it; stmt is set when the
// expression was also emitted as a statement.
type stackValue struct {
	expr string
	inst *usecode.Instruction
	stmt bool
}

type Session struct {
	fn     *usecode.Function
	insts  []*usecode.Instruction
	table  *intrinsics.Table
	cfg    *config.Config
	pc     int
	stack  []stackValue
	lines  []ir.Line
	indent int
}

type Option func(*Session)

// WithTable selects the intrinsic table; the default is intrinsics.Default().
func WithTable(t *intrinsics.Table) Option {
	return func(s *Session) { s.table = t }
}

// WithConfig supplies feature switches and warning settings.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

func NewSession(fn *usecode.Function, opts ...Option) *Session {
	s := &Session{fn: fn, insts: fn.Instructions}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = intrinsics.Default()
	}
	if s.cfg == nil {
		s.cfg = config.NewConfig()
	}
	return s
}

// Translate runs a fresh session over fn and returns the function body.
func Translate(fn *usecode.Function, opts ...Option) []ir.Line {
	return NewSession(fn, opts...).Translate()
}

// Translate processes every instruction once, offering each position to the
// conditional matcher before falling back to single instruction translation.
func (s *Session) Translate() []ir.Line {
	s.pc, s.stack, s.lines, s.indent = 0, nil, nil, 0
	for s.pc < len(s.insts) {
		if s.tryIf(math.MaxInt) == matched {
			continue
		}
		s.translateInstruction(s.insts[s.pc])
		s.advance()
	}
	s.reportLeftovers()
	return s.lines
}

// reportLeftovers warns about computed values that nothing consumed by the
// end of the function. Calls already emitted as statements do not count.
func (s *Session) reportLeftovers() {
	var left []string
	var first *usecode.Instruction
	for _, v := range s.stack {
		if v.stmt {
			continue
		}
		if first == nil {
			first = v.inst
		}
		left = append(left, v.expr)
	}
	if first == nil {
		return
	}
	util.Warn(s.cfg, config.WarnLeftoverValues, first.Pos, "function %04X ends with %d unused value(s) on the stack: %s",
		s.fn.Number, len(left), strings.Join(left, ", "))
}

// advance is the only way the program counter moves; it never goes backwards.
func (s *Session) advance() { s.pc++ }

func (s *Session) emit(inst *usecode.Instruction, kind ir.Kind, text string) {
	if inst != nil && inst.Comment != "" && kind == ir.KindStatement && s.cfg.IsFeatureEnabled(config.FeatInstructionComments) {
		text += " -- " + inst.Comment
	}
	addr := -1
	if inst != nil {
		addr = inst.Address
	}
	s.lines = append(s.lines, ir.Line{Indent: s.indent, Text: text, Kind: kind, Address: addr})
}

func (s *Session) push(inst *usecode.Instruction, expr string) {
	s.stack = append(s.stack, stackValue{expr: expr, inst: inst})
}

// popN removes the top n values and returns them bottom first. It reports
// false, leaving the stack untouched, when fewer than n values are available.
func (s *Session) popN(inst *usecode.Instruction, n int) ([]stackValue, bool) {
	if len(s.stack) < n {
		s.underflow(inst, n)
		return nil, false
	}
	vals := make([]stackValue, n)
	copy(vals, s.stack[len(s.stack)-n:])
	s.stack = s.stack[:len(s.stack)-n]
	return vals, true
}

func (s *Session) underflow(inst *usecode.Instruction, want int) {
	util.Warn(s.cfg, config.WarnStackUnderflow, inst.Pos, "'%s' at %04X needs %d stack value(s), %d available",
		inst.Mnemonic, inst.Address, want, len(s.stack))
	if s.cfg.IsFeatureEnabled(config.FeatUnderflowComments) {
		s.emit(inst, ir.KindComment, fmt.Sprintf("-- stack underflow at %04X: %s", inst.Address, inst.Mnemonic))
	}
}

// varName converts a "[0000]" slot reference to var_0000. Anything else, such
// as the implicit 'eventid' and 'objectref' parameters, is used as written.
func varName(ref string) string {
	if len(ref) >= 2 && strings.HasPrefix(ref, "[") && strings.HasSuffix(ref, "]") {
		return "var_" + ref[1:len(ref)-1]
	}
	return ref
}

// immediate decodes a pushi operand. "0010H" is hexadecimal and becomes "16";
// values that do not parse are kept verbatim.
func immediate(raw string) string {
	if !strings.Contains(raw, "H") {
		return raw
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(raw, "H", ""), 16, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatInt(n, 10)
}

// valueOf is the expression a push-type instruction places on the stack.
func valueOf(inst *usecode.Instruction) string {
	switch inst.Mnemonic {
	case usecode.Push:
		if ref := inst.Operand(0); ref != "" {
			return varName(ref)
		}
		return "unknown"
	case usecode.PushI:
		if raw := inst.Operand(0); raw != "" {
			return immediate(raw)
		}
		return "0"
	case usecode.PushS:
		label := inst.Operand(0)
		if label == "" {
			label = "L0000"
		}
		return "str_" + label
	}
	return ""
}

var arithOps = map[usecode.Mnemonic]string{
	usecode.Add: "+",
	usecode.Sub: "-",
	usecode.Mul: "*",
	usecode.Div: "//",
	usecode.Mod: "%",
}

func (s *Session) translateInstruction(inst *usecode.Instruction) {
	switch m := inst.Mnemonic; {
	case m.IsPush():
		s.push(inst, valueOf(inst))

	case m == usecode.Pop:
		dst := inst.Operand(0)
		if dst == "" {
			return
		}
		vals, ok := s.popN(inst, 1)
		if !ok {
			return
		}
		s.emit(inst, ir.KindStatement, fmt.Sprintf("%s = %s", varName(dst), vals[0].expr))

	case m.IsArith():
		vals, ok := s.popN(inst, 2)
		if !ok {
			return
		}
		s.push(inst, fmt.Sprintf("(%s %s %s)", vals[0].expr, arithOps[m], vals[1].expr))

	case m == usecode.Not:
		vals, ok := s.popN(inst, 1)
		if !ok {
			return
		}
		s.push(inst, "not "+vals[0].expr)

	case m == usecode.And || m == usecode.Or:
		vals, ok := s.popN(inst, 2)
		if !ok {
			return
		}
		s.push(inst, fmt.Sprintf("(%s %s %s)", vals[0].expr, m, vals[1].expr))

	case m == usecode.CallIS || m == usecode.CallI:
		s.translateCall(inst)

	case m.IsCompare() || m == usecode.Jne || m == usecode.Je:
		// Only meaningful as part of a guard; see tryIf.

	case m == usecode.Jmp:
		util.Warn(s.cfg, config.WarnDroppedJump, inst.Pos, "unconditional jump at %04X to %s is not structured", inst.Address, inst.Operand(0))

	case m == usecode.Ret:

	case m == usecode.Abrt:
		s.emit(inst, ir.KindReturn, "return")

	default:
		util.Warn(s.cfg, config.WarnUnknownMnemonic, inst.Pos, "unknown mnemonic '%s' kept as a comment", m)
		s.emit(inst, ir.KindComment, strings.TrimRight(fmt.Sprintf("-- %s %s", m, inst.OperandText()), " "))
	}
}

func (s *Session) resolveCallee(inst *usecode.Instruction) (string, int) {
	operand, secondary := inst.Operand(0), inst.Operand(1)
	if inst.Mnemonic == usecode.CallI {
		return intrinsics.ResolveInternal(operand, secondary)
	}

	name, arity := s.table.Resolve(operand, secondary)
	if !strings.Contains(operand, "@") {
		if op, err := intrinsics.ParseOpcode(operand); err == nil {
			if _, ok := s.table.Lookup(op); !ok {
				util.Warn(s.cfg, config.WarnUnknownIntrinsic, inst.Pos, "intrinsic %04XH is not in the table", op)
			}
		}
	} else if s.cfg.IsFeatureEnabled(config.FeatUINames) {
		name = s.table.LuaName(name)
	}
	return name, arity
}

// translateCall pops up to arity arguments, restores their call-site order and
// pushes the call. The call is also emitted as a statement unless the next
// instruction is a pop, which will emit it as an assignment instead.
func (s *Session) translateCall(inst *usecode.Instruction) {
	if len(inst.Operands) == 0 {
		util.Warn(s.cfg, config.WarnEmptyCall, inst.Pos, "'%s' at %04X has no callee and is skipped", inst.Mnemonic, inst.Address)
		return
	}
	name, arity := s.resolveCallee(inst)

	take := arity
	if take > len(s.stack) {
		s.underflow(inst, arity)
		take = len(s.stack)
	}
	vals, _ := s.popN(inst, take)
	args := make([]string, len(vals))
	for i, v := range vals {
		args[i] = v.expr
	}

	call := fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	s.push(inst, call)

	if s.pc+1 < len(s.insts) && s.insts[s.pc+1].Mnemonic == usecode.Pop {
		return
	}
	s.stack[len(s.stack)-1].stmt = true
	s.emit(inst, ir.KindStatement, call)
}
