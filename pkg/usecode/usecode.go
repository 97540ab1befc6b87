// Package usecode holds the decoded form of a usecode disassembly listing:
// functions, their data segments and their instructions. Values in this package
// are built once by the parser and only read afterwards.
package usecode

import (
	"strings"

	"github.com/xplshn/uc2lua/pkg/token"
)

// Mnemonic is the textual operation name of an instruction as it appears in
// the listing.
type Mnemonic string

const (
	Push   Mnemonic = "push"
	PushI  Mnemonic = "pushi"
	PushS  Mnemonic = "pushs"
	Pop    Mnemonic = "pop"
	CallIS Mnemonic = "callis"
	CallI  Mnemonic = "calli"
	Add    Mnemonic = "add"
	Sub    Mnemonic = "sub"
	Mul    Mnemonic = "mul"
	Div    Mnemonic = "div"
	Mod    Mnemonic = "mod"
	Not    Mnemonic = "not"
	And    Mnemonic = "and"
	Or     Mnemonic = "or"
	CmpEq  Mnemonic = "cmpeq"
	CmpNe  Mnemonic = "cmpne"
	CmpLt  Mnemonic = "cmplt"
	CmpLe  Mnemonic = "cmple"
	CmpGt  Mnemonic = "cmpgt"
	CmpGe  Mnemonic = "cmpge"
	Jne    Mnemonic = "jne"
	Je     Mnemonic = "je"
	Jmp    Mnemonic = "jmp"
	Ret    Mnemonic = "ret"
	Abrt   Mnemonic = "abrt"
)

// IsPush reports whether m only builds a value on the stack.
func (m Mnemonic) IsPush() bool { return m == Push || m == PushI || m == PushS }

func (m Mnemonic) IsArith() bool {
	return m == Add || m == Sub || m == Mul || m == Div || m == Mod
}

func (m Mnemonic) IsCompare() bool {
	switch m {
	case CmpEq, CmpNe, CmpLt, CmpLe, CmpGt, CmpGe:
		return true
	}
	return false
}

// IsCondJump reports whether m is a conditional jump the block matcher understands.
func (m Mnemonic) IsCondJump() bool { return m == Jne || m == Je }

type Instruction struct {
	Address  int
	Opcode   int
	Bytes    []byte
	Mnemonic Mnemonic
	Operands []string
	Comment  string
	Pos      token.Token
}

// Operand returns operand n, or "" when there is none.
func (i *Instruction) Operand(n int) string {
	if n < 0 || n >= len(i.Operands) {
		return ""
	}
	return i.Operands[n]
}

// OperandText is the operand list the way the listing shows it.
func (i *Instruction) OperandText() string { return strings.Join(i.Operands, ", ") }

type DataSegment struct {
	Label    string
	Address  int
	Text     string
	Byte     int
	IsString bool
}

type Function struct {
	Number        int
	ArgCount      int
	LocalCount    int
	ExternSize    int
	ExternalFuncs []int
	DataSegments  []*DataSegment
	DataLabels    map[string]*DataSegment
	Instructions  []*Instruction
	Pos           token.Token
}

func NewFunction(number int, pos token.Token) *Function {
	return &Function{Number: number, DataLabels: make(map[string]*DataSegment), Pos: pos}
}

// AddSegment appends a data segment and indexes it by label.
func (f *Function) AddSegment(seg *DataSegment) {
	f.DataSegments = append(f.DataSegments, seg)
	f.DataLabels[seg.Label] = seg
}

// Listing is every function of one disassembly, in listing order. A function
// number that appears twice keeps the last definition.
type Listing struct {
	Functions []*Function
	byNumber  map[int]*Function
}

func NewListing() *Listing { return &Listing{byNumber: make(map[int]*Function)} }

func (l *Listing) Add(f *Function) {
	if old, ok := l.byNumber[f.Number]; ok {
		for i, fn := range l.Functions {
			if fn == old {
				l.Functions[i] = f
			}
		}
	} else {
		l.Functions = append(l.Functions, f)
	}
	l.byNumber[f.Number] = f
}

func (l *Listing) Lookup(number int) (*Function, bool) {
	f, ok := l.byNumber[number]
	return f, ok
}
