// Package intrinsics maps usecode intrinsic opcodes to callee names and
// argument counts.
//
// A Table is immutable once built; Default returns one shared instance and
// WithOverrides derives a new table from a YAML override file, so translation
// sessions running in parallel can all read the same table.
package intrinsics

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Entry struct {
	Name        string
	Description string
	Arity       int
}

type Table struct {
	byOpcode map[int]Entry
	byUIName map[string]Entry
}

var defaultTable = sync.OnceValue(func() *Table {
	t := &Table{
		byOpcode: make(map[int]Entry, len(builtin)),
		byUIName: make(map[string]Entry, len(uiNames)),
	}
	for op, e := range builtin {
		t.byOpcode[op] = e
	}
	for name, e := range uiNames {
		t.byUIName[name] = e
	}
	return t
})

// Default returns the built-in table.
func Default() *Table { return defaultTable() }

func (t *Table) clone() *Table {
	c := &Table{
		byOpcode: make(map[int]Entry, len(t.byOpcode)),
		byUIName: make(map[string]Entry, len(t.byUIName)),
	}
	for op, e := range t.byOpcode {
		c.byOpcode[op] = e
	}
	for name, e := range t.byUIName {
		c.byUIName[name] = e
	}
	return c
}

func (t *Table) Lookup(opcode int) (Entry, bool) {
	e, ok := t.byOpcode[opcode]
	return e, ok
}

func (t *Table) Len() int { return len(t.byOpcode) }

// Describe returns a human description of an opcode, falling back to the
// names of opcodes that are known to exist but are not bound yet.
func (t *Table) Describe(opcode int) string {
	if e, ok := t.byOpcode[opcode]; ok {
		return e.Description
	}
	if hint, ok := hints[opcode]; ok {
		return hint
	}
	return "Unknown function"
}

// UnknownName is the placeholder callee for an opcode missing from the table.
func UnknownName(opcode int) string { return fmt.Sprintf("unknown_%04XH", opcode) }

// ParseOpcode reads an opcode written either as "0027H" or as bare hex digits.
func ParseOpcode(s string) (int, error) {
	n, err := strconv.ParseUint(strings.ReplaceAll(s, "H", ""), 16, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// secondaryArity is the argument count a listing spells out as a second operand.
func secondaryArity(secondary string) int {
	n, err := strconv.Atoi(strings.TrimSpace(secondary))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// splitSymbolic splits the "name@argc" operand form.
func splitSymbolic(operand, secondary string) (string, int, bool) {
	parts := strings.Split(operand, "@")
	if len(parts) != 2 {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		return parts[0], secondaryArity(secondary), true
	}
	return parts[0], n, true
}

// Resolve turns a callis operand into a callee name and argument count. The
// symbolic "name@argc" form wins over an opcode lookup. Resolve never fails:
// an opcode missing from the table gets a placeholder name, and an operand
// that is not a number at all is used verbatim as the name. In both cases the
// arity comes from secondary, or 0.
func (t *Table) Resolve(operand, secondary string) (name string, arity int) {
	if name, arity, ok := splitSymbolic(operand, secondary); ok {
		return name, arity
	}
	opcode, err := ParseOpcode(operand)
	if err != nil {
		return operand, secondaryArity(secondary)
	}
	if e, ok := t.byOpcode[opcode]; ok {
		return e.Name, e.Arity
	}
	return UnknownName(opcode), secondaryArity(secondary)
}

// ResolveInternal is Resolve for calli: the callee is another usecode
// function, named func_XXXX after its number.
func ResolveInternal(operand, secondary string) (name string, arity int) {
	if name, arity, ok := splitSymbolic(operand, secondary); ok {
		return name, arity
	}
	if opcode, err := ParseOpcode(operand); err == nil {
		return fmt.Sprintf("func_%04X", opcode), secondaryArity(secondary)
	}
	return operand, secondaryArity(secondary)
}

// LuaName renames a symbolic UI_* callee. Names without a mapping lose the
// prefix and are lowercased; other names are returned unchanged.
func (t *Table) LuaName(name string) string {
	if e, ok := t.byUIName[name]; ok {
		return e.Name
	}
	if strings.HasPrefix(name, "UI_") {
		return strings.ToLower(strings.TrimPrefix(name, "UI_"))
	}
	return name
}

// Overrides is the YAML form of an intrinsics override file:
//
//	intrinsics:
//	  - opcode: 0097H
//	    name: set_weather
//	    description: Change the weather
//	    args: 1
//	ui:
//	  - name: UI_set_weather
//	    lua: set_weather
//	    args: 1
type Overrides struct {
	Intrinsics []OpcodeOverride `yaml:"intrinsics"`
	UI         []UIOverride     `yaml:"ui,omitempty"`
}

type OpcodeOverride struct {
	Opcode      string `yaml:"opcode"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Args        int    `yaml:"args"`
}

type UIOverride struct {
	Name        string `yaml:"name"`
	Lua         string `yaml:"lua"`
	Description string `yaml:"description,omitempty"`
	Args        int    `yaml:"args"`
}

// LoadOverrides reads and validates an override file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &o, nil
}

func (o *Overrides) Validate() error {
	for i, ov := range o.Intrinsics {
		if _, err := ParseOpcode(ov.Opcode); err != nil {
			return fmt.Errorf("intrinsics[%d]: invalid opcode %q", i, ov.Opcode)
		}
		if ov.Name == "" {
			return fmt.Errorf("intrinsics[%d]: name is required", i)
		}
		if ov.Args < 0 {
			return fmt.Errorf("intrinsics[%d]: args must not be negative", i)
		}
	}
	for i, ov := range o.UI {
		if ov.Name == "" || ov.Lua == "" {
			return fmt.Errorf("ui[%d]: name and lua are required", i)
		}
		if ov.Args < 0 {
			return fmt.Errorf("ui[%d]: args must not be negative", i)
		}
	}
	return nil
}

// WithOverrides returns a new table: t's entries with o applied on top.
func (t *Table) WithOverrides(o *Overrides) *Table {
	c := t.clone()
	for _, ov := range o.Intrinsics {
		op, _ := ParseOpcode(ov.Opcode)
		c.byOpcode[op] = Entry{Name: ov.Name, Description: ov.Description, Arity: ov.Args}
	}
	for _, ov := range o.UI {
		c.byUIName[ov.Name] = Entry{Name: ov.Lua, Description: ov.Description, Arity: ov.Args}
	}
	return c
}
