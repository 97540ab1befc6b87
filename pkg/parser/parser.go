package parser

import (
	"strconv"
	"strings"

	"github.com/xplshn/uc2lua/pkg/config"
	"github.com/xplshn/uc2lua/pkg/token"
	"github.com/xplshn/uc2lua/pkg/usecode"
	"github.com/xplshn/uc2lua/pkg/util"
)

type section int

const (
	sectionNone section = iota
	sectionData
	sectionCode
)

// Parser holds the state for the parsing process. It never stops on bad input:
// a line it cannot make sense of is skipped with a malformed-line warning.
type Parser struct {
	tokens  []token.Token
	pos     int
	cfg     *config.Config
	listing *usecode.Listing
	fn      *usecode.Function
	section section
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	return &Parser{tokens: tokens, cfg: cfg, listing: usecode.NewListing()}
}

// Parse consumes the whole token stream. It may be called once.
func (p *Parser) Parse() *usecode.Listing {
	for {
		line, more := p.nextLine()
		if len(line) > 0 {
			p.parseLine(line)
		}
		if !more {
			break
		}
	}
	p.finishFunction()
	return p.listing
}

// nextLine returns the tokens up to the next Newline. more is false once EOF
// has been reached.
func (p *Parser) nextLine() (line []token.Token, more bool) {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		switch tok.Type {
		case token.EOF:
			return line, false
		case token.Newline:
			return line, true
		default:
			line = append(line, tok)
		}
	}
	return line, false
}

func (p *Parser) malformed(tok token.Token, format string, args ...interface{}) {
	util.Warn(p.cfg, config.WarnMalformedLine, tok, format, args...)
}

func (p *Parser) finishFunction() {
	if p.fn != nil {
		p.listing.Add(p.fn)
		p.fn = nil
	}
}

func (p *Parser) parseLine(line []token.Token) {
	first := line[0]
	if first.Type == token.Comment {
		return
	}

	if first.Type == token.Directive {
		p.parseDirective(line)
		return
	}

	if p.fn == nil {
		return
	}

	switch p.section {
	case sectionData:
		p.parseDataLine(line)
	case sectionCode:
		p.parseCodeLine(line)
	}
}

// parseHexWord reads the "0096H" style numbers used by directives and labels.
func parseHexWord(s string) (int, bool) {
	s = strings.TrimSuffix(s, "H")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func (p *Parser) directiveOperand(line []token.Token) (int, bool) {
	if len(line) < 2 || line[1].Type != token.Ident {
		p.malformed(line[0], "'%s' expects a hexadecimal operand", line[0].Value)
		return 0, false
	}
	n, ok := parseHexWord(line[1].Value)
	if !ok {
		p.malformed(line[1], "invalid hexadecimal operand '%s' for '%s'", line[1].Value, line[0].Value)
	}
	return n, ok
}

func (p *Parser) parseDirective(line []token.Token) {
	dir := line[0]
	if dir.Value == ".funcnumber" {
		n, ok := p.directiveOperand(line)
		if !ok {
			return
		}
		p.finishFunction()
		p.fn = usecode.NewFunction(n, dir)
		p.section = sectionNone
		return
	}

	if p.fn == nil {
		return
	}

	switch dir.Value {
	case ".data":
		p.section = sectionData
	case ".code":
		p.section = sectionCode
	case ".argc":
		if n, ok := p.directiveOperand(line); ok {
			p.fn.ArgCount = n
		}
	case ".localc":
		if n, ok := p.directiveOperand(line); ok {
			p.fn.LocalCount = n
		}
	case ".externsize":
		if n, ok := p.directiveOperand(line); ok {
			p.fn.ExternSize = n
		}
	case ".extern":
		if n, ok := p.directiveOperand(line); ok {
			p.fn.ExternalFuncs = append(p.fn.ExternalFuncs, n)
		}
	}
}

// parseDataLine handles "L0000: db 'text'", "L000C: db 00" and the bare
// "db 'more text'" continuation of the previous string.
func (p *Parser) parseDataLine(line []token.Token) {
	first := line[0]

	if first.Type == token.Ident && first.Value == "db" {
		if len(line) < 2 {
			p.malformed(first, "'db' without a value")
			return
		}
		n := len(p.fn.DataSegments)
		if n == 0 || !p.fn.DataSegments[n-1].IsString {
			return
		}
		last := p.fn.DataSegments[n-1]
		if line[1].Type == token.String {
			last.Text += line[1].Value
		} else {
			last.Text += joinValues(line[1:])
		}
		return
	}

	if first.Type != token.Label || !strings.HasPrefix(first.Value, "L") {
		p.malformed(first, "expected a data label like 'L0000:'")
		return
	}
	addr, ok := parseHexWord(first.Value[1:])
	if !ok {
		p.malformed(first, "invalid data label '%s'", first.Value)
		return
	}
	if len(line) < 3 || line[1].Type != token.Ident || line[1].Value != "db" {
		p.malformed(first, "expected 'db <value>' after label '%s'", first.Value)
		return
	}

	seg := &usecode.DataSegment{Label: first.Value, Address: addr}
	switch value := line[2]; value.Type {
	case token.String:
		seg.IsString, seg.Text = true, value.Value
	default:
		raw := joinValues(line[2:])
		if b, err := strconv.ParseUint(raw, 16, 8); err == nil {
			seg.Byte = int(b)
		} else {
			seg.Text = raw
		}
	}
	p.fn.AddSegment(seg)
}

func isHexByte(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, ch := range s {
		if !(ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'F') {
			return false
		}
	}
	return true
}

// parseCodeLine handles "0001: 1F 01 00    pushi 0001H    ; comment".
func (p *Parser) parseCodeLine(line []token.Token) {
	first := line[0]
	if first.Type != token.Label {
		p.malformed(first, "expected an instruction address like '0000:'")
		return
	}
	addr, ok := parseHexWord(first.Value)
	if !ok {
		p.malformed(first, "invalid instruction address '%s'", first.Value)
		return
	}

	rest := line[1:]
	var comment string
	if n := len(rest); n > 0 && rest[n-1].Type == token.Comment {
		comment = rest[n-1].Value
		rest = rest[:n-1]
	}

	var encoded []byte
	i := 0
	for i+1 < len(rest) && rest[i].Type == token.Ident && isHexByte(rest[i].Value) {
		b, _ := strconv.ParseUint(rest[i].Value, 16, 8)
		encoded = append(encoded, byte(b))
		i++
	}
	if i >= len(rest) || rest[i].Type != token.Ident {
		p.malformed(first, "instruction at %04X has no mnemonic", addr)
		return
	}
	mnemonicTok := rest[i]

	inst := &usecode.Instruction{
		Address:  addr,
		Bytes:    encoded,
		Mnemonic: usecode.Mnemonic(mnemonicTok.Value),
		Operands: splitOperands(rest[i+1:]),
		Comment:  comment,
		Pos:      mnemonicTok,
	}
	if len(encoded) > 0 {
		inst.Opcode = int(encoded[0])
	}

	if n := len(p.fn.Instructions); n > 0 && p.fn.Instructions[n-1].Address >= addr {
		p.malformed(first, "instruction address %04X does not follow %04X", addr, p.fn.Instructions[n-1].Address)
		return
	}
	p.fn.Instructions = append(p.fn.Instructions, inst)
}

// splitOperands groups the tokens between commas; tokens inside one group are
// joined with a single space.
func splitOperands(toks []token.Token) []string {
	if len(toks) == 0 {
		return nil
	}
	var operands []string
	var group []token.Token
	for _, tok := range toks {
		if tok.Type == token.Comma {
			operands = append(operands, joinValues(group))
			group = group[:0]
			continue
		}
		group = append(group, tok)
	}
	return append(operands, joinValues(group))
}

func joinValues(toks []token.Token) string {
	parts := make([]string, 0, len(toks))
	for _, tok := range toks {
		if tok.Type == token.String {
			parts = append(parts, "'"+tok.Value+"'")
			continue
		}
		parts = append(parts, tok.Value)
	}
	return strings.Join(parts, " ")
}
