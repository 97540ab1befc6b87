package parser

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/lexer"
	"github.com/xplshn/uc2lua/pkg/usecode"
	"github.com/xplshn/uc2lua/pkg/util"
)

const listing = `; usecode.dis
.funcnumber 0096H
.data
L0000: db 'Hello, '
db 'world'
L000D: db 00
.code
.argc 0002H
.localc 0003H
.externsize 0001H
.extern 0401H
0000: 48          push eventid
0001: 1F 01 00    pushi 0001H      ; the answer
0004: 24 40 00 02 callis 0040H, 2
0008: 12 00 00    pop [0000]

.funcnumber 0097H
.code
0000: 32          ret
`

func parse(t *testing.T, src string) (*usecode.Listing, string) {
	t.Helper()
	var diag bytes.Buffer
	util.SetOutput(&diag)
	t.Cleanup(func() { util.SetOutput(os.Stderr) })
	util.SetSourceFiles([]util.SourceFileRecord{{Name: "usecode.dis", Content: []rune(src)}})

	toks := lexer.NewLexer([]rune(src), 0).All()
	return NewParser(toks, config.NewConfig()).Parse(), diag.String()
}

func TestParseListing(t *testing.T) {
	l, diag := parse(t, listing)
	if diag != "" {
		t.Errorf("unexpected diagnostics:\n%s", diag)
	}
	if len(l.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(l.Functions))
	}

	fn, ok := l.Lookup(0x96)
	if !ok {
		t.Fatalf("function 0096 missing")
	}
	if fn.ArgCount != 2 || fn.LocalCount != 3 || fn.ExternSize != 1 {
		t.Errorf("header = args %d, locals %d, externsize %d", fn.ArgCount, fn.LocalCount, fn.ExternSize)
	}
	if diff := cmp.Diff([]int{0x401}, fn.ExternalFuncs); diff != "" {
		t.Errorf("externs mismatch (-want +got):\n%s", diff)
	}

	wantData := []*usecode.DataSegment{
		{Label: "L0000", Address: 0, Text: "Hello, world", IsString: true},
		{Label: "L000D", Address: 0x0D},
	}
	if diff := cmp.Diff(wantData, fn.DataSegments); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	if fn.DataLabels["L0000"] != fn.DataSegments[0] {
		t.Errorf("label index does not point at the segment")
	}

	wantCode := []*usecode.Instruction{
		{Address: 0x00, Opcode: 0x48, Bytes: []byte{0x48}, Mnemonic: usecode.Push, Operands: []string{"eventid"}},
		{Address: 0x01, Opcode: 0x1F, Bytes: []byte{0x1F, 0x01, 0x00}, Mnemonic: usecode.PushI, Operands: []string{"0001H"}, Comment: "the answer"},
		{Address: 0x04, Opcode: 0x24, Bytes: []byte{0x24, 0x40, 0x00, 0x02}, Mnemonic: usecode.CallIS, Operands: []string{"0040H", "2"}},
		{Address: 0x08, Opcode: 0x12, Bytes: []byte{0x12, 0x00, 0x00}, Mnemonic: usecode.Pop, Operands: []string{"[0000]"}},
	}
	if diff := cmp.Diff(wantCode, fn.Instructions, cmpopts.IgnoreFields(usecode.Instruction{}, "Pos")); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	if pos := fn.Instructions[1].Pos; pos.Line != 13 || pos.Value != "pushi" {
		t.Errorf("pushi position = line %d %q", pos.Line, pos.Value)
	}

	ret, _ := l.Lookup(0x97)
	if len(ret.Instructions) != 1 || ret.Instructions[0].Mnemonic != usecode.Ret {
		t.Errorf("function 0097 = %+v", ret.Instructions)
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	src := `.funcnumber 0010H
.data
X0000: db 'nope'
.code
0000: 48          push eventid
garbage here
0002: 12 00 00    pop [0000]
0001: 32          ret
0005:
.argc zz
`
	util.ResetWarningCount()
	l, diag := parse(t, src)

	fn, _ := l.Lookup(0x10)
	var got []usecode.Mnemonic
	for _, inst := range fn.Instructions {
		got = append(got, inst.Mnemonic)
	}
	if diff := cmp.Diff([]usecode.Mnemonic{usecode.Push, usecode.Pop}, got); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
	if len(fn.DataSegments) != 0 {
		t.Errorf("bad data label produced %d segment(s)", len(fn.DataSegments))
	}
	if n := util.WarningCount(); n != 5 {
		t.Errorf("got %d warnings, want 5:\n%s", n, diag)
	}
	if !strings.Contains(diag, "usecode.dis:6:1: warning: expected an instruction address like '0000:' [-Wmalformed-line]") {
		t.Errorf("diagnostics do not point at the garbage line:\n%s", diag)
	}
	if !strings.Contains(diag, "0001 does not follow 0002") {
		t.Errorf("out of order address not reported:\n%s", diag)
	}
}

func TestDuplicateFunctionKeepsLast(t *testing.T) {
	l, _ := parse(t, ".funcnumber 0001H\n.code\n0000: 32 ret\n.funcnumber 0001H\n.code\n0000: 0A abrt\n")
	if len(l.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(l.Functions))
	}
	if m := l.Functions[0].Instructions[0].Mnemonic; m != usecode.Abrt {
		t.Errorf("kept %s, want the later abrt", m)
	}
}

func TestLinesOutsideFunctionsAreIgnored(t *testing.T) {
	l, diag := parse(t, "0000: 32 ret\n.code\n.funcnumber 0002H\n")
	if diag != "" {
		t.Errorf("unexpected diagnostics:\n%s", diag)
	}
	if len(l.Functions) != 1 || len(l.Functions[0].Instructions) != 0 {
		t.Errorf("got %+v", l.Functions)
	}
}
