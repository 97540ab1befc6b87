package translator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/ir"
	"github.com/xplshn/uc2lua/pkg/usecode"
)

const (
	// lookahead is how many instructions from the program counter are searched
	// for the comparison of a guard.
	lookahead = 4
	// guardOperands is what a binary comparison consumes.
	guardOperands = 2
)

type matchResult int

const (
	noMatch matchResult = iota
	matched
)

var relOps = map[usecode.Mnemonic]string{
	usecode.CmpEq: "==",
	usecode.CmpNe: "~=",
	usecode.CmpLt: "<",
	usecode.CmpLe: "<=",
	usecode.CmpGt: ">",
	usecode.CmpGe: ">=",
}

// negated is the logical complement of each relational operator.
var negated = map[string]string{
	"==": "~=",
	"~=": "==",
	"<":  ">=",
	">=": "<",
	">":  "<=",
	"<=": ">",
}

// ifPattern describes a recognised "push, push, cmpXX, jne/je" run. All
// fields are instruction indices except target, which is an address.
type ifPattern struct {
	guardStart int
	cmp        int
	jump       int
	target     int
}

// condition builds the guard of the block. A jne skips the block when the
// comparison fails, so the comparison is the guard as written; a je skips it
// when the comparison holds, so the guard is its negation.
func condition(cmp, jump usecode.Mnemonic, left, right string) string {
	op := relOps[cmp]
	if jump == usecode.Je {
		op = negated[op]
	}
	return fmt.Sprintf("%s %s %s", left, op, right)
}

// jumpTarget reads a jump operand such as "0010H" or "0010".
func jumpTarget(inst *usecode.Instruction) (int, bool) {
	raw := strings.TrimSuffix(inst.Operand(0), "H")
	n, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// findIf looks for a guard starting at pc without touching any state. limit
// is the address the enclosing block ends at; a guard whose jump lies at or
// beyond it belongs to the enclosing level and is not matched here.
func findIf(insts []*usecode.Instruction, pc, limit int) (ifPattern, bool) {
	if pc+3 >= len(insts) {
		return ifPattern{}, false
	}

	cmp := -1
	for i := pc; i < pc+lookahead && i < len(insts); i++ {
		m := insts[i].Mnemonic
		if m == usecode.Pop {
			return ifPattern{}, false
		}
		if m.IsCompare() {
			cmp = i
			break
		}
	}
	if cmp < 0 || cmp+1 >= len(insts) || !insts[cmp+1].Mnemonic.IsCondJump() {
		return ifPattern{}, false
	}
	jump := cmp + 1
	if insts[jump].Address >= limit {
		return ifPattern{}, false
	}

	start := cmp
	for start > pc && cmp-start < guardOperands && insts[start-1].Mnemonic.IsPush() {
		start--
	}
	if cmp-start < guardOperands {
		return ifPattern{}, false
	}

	target, ok := jumpTarget(insts[jump])
	if !ok {
		return ifPattern{}, false
	}
	return ifPattern{guardStart: start, cmp: cmp, jump: jump, target: target}, true
}

// tryIf recovers one conditional block at the program counter. On noMatch the
// session is exactly as it was: nothing is emitted and nothing is consumed.
// On a match the program counter is left on the first instruction at or past
// the jump target, so sibling blocks are picked up by the caller's loop.
func (s *Session) tryIf(limit int) matchResult {
	if !s.cfg.IsFeatureEnabled(config.FeatIfRecovery) {
		return noMatch
	}
	pat, ok := findIf(s.insts, s.pc, limit)
	if !ok {
		return noMatch
	}

	for s.pc < pat.guardStart {
		s.translateInstruction(s.insts[s.pc])
		s.advance()
	}

	// The guard operands go to a private stack so enclosing values stay put.
	guard := make([]string, 0, guardOperands)
	for i := pat.guardStart; i < pat.cmp; i++ {
		guard = append(guard, valueOf(s.insts[i]))
	}
	cmpInst, jumpInst := s.insts[pat.cmp], s.insts[pat.jump]

	s.emit(cmpInst, ir.KindIf, fmt.Sprintf("if %s then", condition(cmpInst.Mnemonic, jumpInst.Mnemonic, guard[0], guard[1])))
	s.indent++
	for s.pc <= pat.jump {
		s.advance()
	}

	for s.pc < len(s.insts) && s.insts[s.pc].Address < pat.target {
		if s.tryIf(pat.target) == matched {
			continue
		}
		s.translateInstruction(s.insts[s.pc])
		s.advance()
	}

	s.indent--
	s.emit(jumpInst, ir.KindEnd, "end")
	return matched
}
