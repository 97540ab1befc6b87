package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/uc2lua/pkg/token"
)

type tok struct {
	Type  token.Type
	Value string
}

func lex(src string) []tok {
	var out []tok
	for _, t := range NewLexer([]rune(src), 0).All() {
		out = append(out, tok{t.Type, t.Value})
	}
	return out
}

func TestTokens(t *testing.T) {
	src := ".funcnumber 0096H\n" +
		"0001: 1F 01 00    pushi 0001H      ; the answer\n" +
		"L0000: db 'It's here'\n" +
		"0004: 24 0A 00    callis 0040H, 2\n"

	want := []tok{
		{token.Directive, ".funcnumber"}, {token.Ident, "0096H"}, {token.Newline, ""},
		{token.Label, "0001"}, {token.Ident, "1F"}, {token.Ident, "01"}, {token.Ident, "00"},
		{token.Ident, "pushi"}, {token.Ident, "0001H"}, {token.Comment, "the answer"}, {token.Newline, ""},
		{token.Label, "L0000"}, {token.Ident, "db"}, {token.String, "It's here"}, {token.Newline, ""},
		{token.Label, "0004"}, {token.Ident, "24"}, {token.Ident, "0A"}, {token.Ident, "00"},
		{token.Ident, "callis"}, {token.Ident, "0040H"}, {token.Comma, ""}, {token.Ident, "2"}, {token.Newline, ""},
		{token.EOF, ""},
	}
	if diff := cmp.Diff(want, lex(src)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestUnterminatedString(t *testing.T) {
	want := []tok{{token.Ident, "db"}, {token.String, "open ended"}, {token.Newline, ""}, {token.Ident, "ret"}, {token.EOF, ""}}
	if diff := cmp.Diff(want, lex("db 'open ended\nret")); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestStringStopsBeforeComment(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		want []tok
	}{
		{
			name: "apostrophe in comment",
			src:  "L0000: db 'Hi' ; Bob's note",
			want: []tok{{token.Label, "L0000"}, {token.Ident, "db"}, {token.String, "Hi"}, {token.Comment, "Bob's note"}, {token.EOF, ""}},
		},
		{
			name: "semicolon in text",
			src:  "db 'wait; it's late'",
			want: []tok{{token.Ident, "db"}, {token.String, "wait; it's late"}, {token.EOF, ""}},
		},
		{
			name: "comma after literal",
			src:  "db 'ab', 00",
			want: []tok{{token.Ident, "db"}, {token.String, "ab"}, {token.Comma, ""}, {token.Ident, "00"}, {token.EOF, ""}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, lex(tc.src)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCRLF(t *testing.T) {
	want := []tok{{token.Directive, ".code"}, {token.Newline, ""}, {token.Label, "0000"}, {token.Ident, "ret"}, {token.Newline, ""}, {token.EOF, ""}}
	if diff := cmp.Diff(want, lex(".code\r\n0000: ret\r\n")); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	toks := NewLexer([]rune(".code\n0000: 48    push eventid\n"), 3).All()
	var push token.Token
	for _, tk := range toks {
		if tk.Value == "push" {
			push = tk
		}
	}
	want := token.Token{Type: token.Ident, Value: "push", FileIndex: 3, Line: 2, Column: 13, Len: 4}
	if diff := cmp.Diff(want, push); diff != "" {
		t.Errorf("position mismatch (-want +got):\n%s", diff)
	}
}
