package lexer

import (
	"strings"

	"github.com/xplshn/uc2lua/pkg/token"
)

// Lexer splits a usecode listing into tokens. It is line oriented: every line
// break is reported as a Newline token so the parser can work one line at a time.
type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

func (l *Lexer) Next() token.Token {
	l.skipBlanks()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	switch ch := l.peek(); ch {
	case '\n':
		l.advance()
		return l.makeToken(token.Newline, "", startPos, startCol, startLine)
	case ',':
		l.advance()
		return l.makeToken(token.Comma, "", startPos, startCol, startLine)
	case ';':
		return l.comment(startPos, startCol, startLine)
	case '\'':
		return l.stringLiteral(startPos, startCol, startLine)
	}
	return l.word(startPos, startCol, startLine)
}

// All drains the lexer, always ending with an EOF token.
func (l *Lexer) All() []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipBlanks() {
	for {
		switch l.peek() {
		case ' ', '\t', '\r', '\f', '\v':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) restOfLine() int {
	end := l.pos
	for end < len(l.source) && l.source[end] != '\n' {
		end++
	}
	return end
}

func (l *Lexer) comment(startPos, startCol, startLine int) token.Token {
	l.advance()
	bodyStart := l.pos
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	text := strings.TrimSpace(string(l.source[bodyStart:l.pos]))
	return l.makeToken(token.Comment, text, startPos, startCol, startLine)
}

// stringLiteral ends at the first quote that is followed by the end of the
// line, a comma or a comment. Apostrophes inside the text ('It's here') and in
// a trailing comment ('Hi' ; Bob's) stay where they belong. An unterminated
// literal takes the rest of the line.
func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	end := l.restOfLine()
	closing := -1
	for i := l.pos + 1; i < end && closing < 0; i++ {
		if l.source[i] == '\'' && closesString(l.source[i+1:end]) {
			closing = i
		}
	}

	l.advance()
	bodyStart := l.pos
	if closing < 0 {
		for l.pos < end {
			l.advance()
		}
		return l.makeToken(token.String, string(l.source[bodyStart:end]), startPos, startCol, startLine)
	}
	for l.pos < closing {
		l.advance()
	}
	value := string(l.source[bodyStart:closing])
	l.advance()
	return l.makeToken(token.String, value, startPos, startCol, startLine)
}

// closesString reports whether rest, the text after a quote, starts a new
// field or is empty.
func closesString(rest []rune) bool {
	for _, ch := range rest {
		switch ch {
		case ' ', '\t', '\r', '\f', '\v':
		case ',', ';':
			return true
		default:
			return false
		}
	}
	return true
}

func isWordBreak(ch rune) bool {
	switch ch {
	case ' ', '\t', '\r', '\f', '\v', '\n', ',', ';':
		return true
	}
	return false
}

func (l *Lexer) word(startPos, startCol, startLine int) token.Token {
	for !l.isAtEnd() && !isWordBreak(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])

	if len(value) > 1 && strings.HasSuffix(value, ":") {
		return l.makeToken(token.Label, strings.TrimSuffix(value, ":"), startPos, startCol, startLine)
	}
	if token.DirectiveMap[value] {
		return l.makeToken(token.Directive, value, startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}
