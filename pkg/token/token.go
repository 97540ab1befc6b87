package token

type Type int

const (
	EOF Type = iota
	Newline
	Directive // .funcnumber, .data, .code, ...
	Label     // "0000:" or "L0000:", Value holds the name without the colon
	Ident     // any other bare word: hex bytes, mnemonics, operands
	String    // '...' literal, Value holds the unquoted text
	Comma
	Comment // "; ..." up to end of line, Value holds the trimmed text
)

var typeNames = map[Type]string{
	EOF:       "EOF",
	Newline:   "newline",
	Directive: "directive",
	Label:     "label",
	Ident:     "identifier",
	String:    "string",
	Comma:     "','",
	Comment:   "comment",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// DirectiveMap lists the section and metadata directives of a usecode listing
var DirectiveMap = map[string]bool{
	".funcnumber": true,
	".data":       true,
	".code":       true,
	".argc":       true,
	".localc":     true,
	".externsize": true,
	".extern":     true,
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
