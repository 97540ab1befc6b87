// Package ir is the hand-off between the translator and the Lua backend: a
// function body as an ordered list of indented source lines.
package ir

import (
	"strings"
)

type Kind int

const (
	KindStatement Kind = iota
	KindIf
	KindEnd
	KindComment
	KindReturn
)

// Line is one emitted line. Indent counts nesting levels, not spaces; the
// backend decides the indentation width.
type Line struct {
	Indent int
	Text   string
	Kind   Kind
	// Address of the instruction that produced the line.
	Address int
}

// Render joins lines with width spaces per nesting level plus base extra levels.
func Render(lines []Line, width, base int) string {
	var sb strings.Builder
	unit := strings.Repeat(" ", width)
	for _, l := range lines {
		sb.WriteString(strings.Repeat(unit, base+l.Indent))
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Texts strips the indentation, handy when only the statements matter.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// MaxDepth reports the deepest nesting level among lines.
func MaxDepth(lines []Line) int {
	depth := 0
	for _, l := range lines {
		if l.Indent > depth {
			depth = l.Indent
		}
	}
	return depth
}
