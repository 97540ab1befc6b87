// Package cli parses uc2lua style command lines and renders their usage and
// help pages. Options have a long form (--jobs 4, --jobs=4) and an optional
// short form (-j 4, -j4). Switch groups such as -W<warning> or -Fno-<feature>
// are recorded in command-line order and replayed by the caller.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Flag struct {
	Name    string
	Short   string
	Usage   string
	Arg     string // placeholder shown for the value
	Default string // shown on the help page when not empty

	boolean bool
	set     func(string) error
	accept  func(string) bool
}

func (fl *Flag) label() string {
	var sb strings.Builder
	if fl.Short != "" {
		fmt.Fprintf(&sb, "-%s, ", fl.Short)
	}
	fmt.Fprintf(&sb, "--%s", fl.Name)
	if !fl.boolean && fl.Arg != "" {
		fmt.Fprintf(&sb, " <%s>", fl.Arg)
	}
	return sb.String()
}

// GroupEntry is one member of a switch group.
type GroupEntry struct {
	Name    string
	Usage   string
	Enabled bool
}

// Group is a family of on/off switches sharing a prefix: -W<name> turns an
// entry on and -Wno-<name> turns it off.
type Group struct {
	Title    string
	Prefix   string
	Kind     string
	AllowAll bool

	entries  []GroupEntry
	switches []string
}

func (g *Group) Add(name, usage string, enabled bool) {
	g.entries = append(g.entries, GroupEntry{Name: name, Usage: usage, Enabled: enabled})
}

// Switches returns the switches of this group given on the command line, in
// order and with their prefix ("-Wall", "-Wno-extra").
func (g *Group) Switches() []string {
	out := make([]string, len(g.switches))
	for i, s := range g.switches {
		out[i] = "-" + g.Prefix + s
	}
	return out
}

func (g *Group) has(name string) bool {
	if name == "all" {
		return g.AllowAll
	}
	for _, e := range g.entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// record takes body ("Wno-extra" without the dash) if it belongs to g.
func (g *Group) record(body string) (bool, error) {
	rest, ok := strings.CutPrefix(body, g.Prefix)
	if !ok || rest == "" {
		return false, nil
	}
	if name := strings.TrimPrefix(rest, "no-"); !g.has(name) {
		return true, fmt.Errorf("unknown %s '%s'", g.Kind, name)
	}
	g.switches = append(g.switches, rest)
	return true, nil
}

type FlagSet struct {
	name    string
	flags   []*Flag
	long    map[string]*Flag
	short   map[string]*Flag
	groups  []*Group
	changed map[string]bool
	args    []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:    name,
		long:    make(map[string]*Flag),
		short:   make(map[string]*Flag),
		changed: make(map[string]bool),
	}
}

// Args returns the positional arguments left after Parse.
func (f *FlagSet) Args() []string { return f.args }

// Changed reports whether name was given on the parsed command line.
func (f *FlagSet) Changed(name string) bool { return f.changed[name] }

func (f *FlagSet) define(fl *Flag) {
	if fl.Name == "" {
		panic("cli: flag without a name")
	}
	if _, dup := f.long[fl.Name]; dup {
		panic("cli: flag redefined: " + fl.Name)
	}
	if fl.Short != "" {
		if _, dup := f.short[fl.Short]; dup {
			panic("cli: shorthand redefined: " + fl.Short)
		}
		f.short[fl.Short] = fl
	}
	f.long[fl.Name] = fl
	f.flags = append(f.flags, fl)
}

func (f *FlagSet) String(p *string, name, short, value, usage, arg string) {
	*p = value
	f.define(&Flag{Name: name, Short: short, Usage: usage, Arg: arg, Default: value,
		set: func(s string) error { *p = s; return nil }})
}

func (f *FlagSet) Bool(p *bool, name, short string, value bool, usage string) {
	*p = value
	f.define(&Flag{Name: name, Short: short, Usage: usage, boolean: true,
		set: func(s string) error {
			if s == "" {
				*p = true
				return nil
			}
			v, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean value '%s' for --%s", s, name)
			}
			*p = v
			return nil
		}})
}

func (f *FlagSet) Int(p *int, name, short string, value int, usage, arg string) {
	*p = value
	def := ""
	if value != 0 {
		def = strconv.Itoa(value)
	}
	f.define(&Flag{Name: name, Short: short, Usage: usage, Arg: arg, Default: def,
		set: func(s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid integer value '%s' for --%s", s, name)
			}
			*p = v
			return nil
		}})
}

// List collects every occurrence of the flag. When accept is not nil the
// words following a value are collected as well for as long as accept
// approves them, so "-f 0096 0401 in.dis" yields two values.
func (f *FlagSet) List(p *[]string, name, short, usage, arg string, accept func(string) bool) {
	*p = nil
	f.define(&Flag{Name: name, Short: short, Usage: usage, Arg: arg, accept: accept,
		set: func(s string) error { *p = append(*p, s); return nil }})
}

// Group adds a switch group whose entries are added with Group.Add.
func (f *FlagSet) Group(title, prefix, kind string, allowAll bool) *Group {
	g := &Group{Title: title, Prefix: prefix, Kind: kind, AllowAll: allowAll}
	f.groups = append(f.groups, g)
	return g
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		fl, value, inline, err := f.lookup(arg)
		if err != nil {
			return err
		}
		if fl == nil {
			continue
		}
		if !inline && !fl.boolean {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = arguments[i]
		}
		if err := f.apply(fl, value); err != nil {
			return err
		}
		for fl.accept != nil && i+1 < len(arguments) && fl.accept(arguments[i+1]) {
			i++
			if err := f.apply(fl, arguments[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlagSet) apply(fl *Flag, value string) error {
	f.changed[fl.Name] = true
	return fl.set(value)
}

// lookup finds the flag named by arg and any value attached to it. Group
// switches are recorded on their group and return a nil flag.
func (f *FlagSet) lookup(arg string) (fl *Flag, value string, inline bool, err error) {
	if body, ok := strings.CutPrefix(arg, "--"); ok {
		name, value, inline := strings.Cut(body, "=")
		if name == "" {
			return nil, "", false, fmt.Errorf("empty flag name")
		}
		if fl = f.long[name]; fl == nil {
			return nil, "", false, fmt.Errorf("unknown flag: --%s", name)
		}
		return fl, value, inline, nil
	}

	body := arg[1:]
	if name, value, inline := strings.Cut(body, "="); f.long[name] != nil {
		return f.long[name], value, inline, nil
	}
	for _, g := range f.groups {
		if taken, err := g.record(body); taken {
			return nil, "", false, err
		}
	}

	if fl = f.short[body[:1]]; fl == nil {
		return nil, "", false, fmt.Errorf("unknown shorthand flag: -%s", body[:1])
	}
	if rest := body[1:]; rest != "" {
		if fl.boolean {
			return nil, "", false, fmt.Errorf("flag -%s takes no value", fl.Short)
		}
		return fl, rest, true, nil
	}
	return fl, "", false, nil
}

// UsageError is a command line that could not be parsed. Run has already
// printed it along with the usage page.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Version     string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run parses arguments and calls Action with the positional ones. A parse
// error is printed to Stderr and returned as a *UsageError; Action errors are
// returned unprinted for the caller to report.
func (a *App) Run(arguments []string) error {
	var help, version bool
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information.")
	if a.Version != "" {
		a.FlagSet.Bool(&version, "version", "V", false, "Print the version and exit.")
	}

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		a.Usage(a.Stderr)
		return &UsageError{err}
	}
	switch {
	case help:
		a.Help(a.Stdout)
		return nil
	case version:
		fmt.Fprintf(a.Stdout, "%s %s\n", a.Name, a.Version)
		return nil
	case a.Action == nil:
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

func (a *App) synopsis() string {
	if a.Synopsis == "" {
		return "[options] ..."
	}
	return a.Synopsis
}

// Usage prints the short usage page to w.
func (a *App) Usage(w io.Writer) {
	p := a.newPage()
	fmt.Fprintf(&p.sb, "Usage: %s %s\n", a.Name, a.synopsis())
	a.options(p)
	fmt.Fprintf(&p.sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, p.sb.String())
}

// Help prints the full help page to w, including every switch group.
func (a *App) Help(w io.Writer) {
	p := a.newPage()

	now := time.Now().Year()
	years := strconv.Itoa(now)
	if a.Since > 0 && a.Since < now {
		years = fmt.Sprintf("%d-%d", a.Since, now)
	}
	p.sb.WriteString("\n")
	if a.Version != "" {
		p.line(1, a.Name+" "+a.Version)
	}
	p.line(1, fmt.Sprintf("Copyright (c) %s: %s and contributors", years, strings.Join(a.Authors, ", ")))
	if a.Repository != "" {
		p.line(1, "For more details refer to "+a.Repository)
	}

	p.heading("Synopsis")
	p.line(2, a.Name+" "+a.synopsis())
	if a.Description != "" {
		p.heading("Description")
		for _, l := range wrapText(a.Description, p.width-2*len(pad)) {
			p.line(2, l)
		}
	}

	a.options(p)

	groups := append([]*Group(nil), a.FlagSet.groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	for _, g := range groups {
		p.heading(g.Title)
		p.entry(fmt.Sprintf("-%s<%s>", g.Prefix, g.Kind), "Enable a "+g.Kind+".", "")
		p.entry(fmt.Sprintf("-%sno-<%s>", g.Prefix, g.Kind), "Disable a "+g.Kind+".", "")
		if g.AllowAll {
			p.entry("-"+g.Prefix+"all", "Enable every "+g.Kind+".", "")
		}
		entries := append([]GroupEntry(nil), g.entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Enabled {
				state = "|x|"
			}
			p.entry(e.Name, e.Usage, state)
		}
	}
	io.WriteString(w, p.sb.String())
}

func (a *App) options(p *page) {
	flags := append([]*Flag(nil), a.FlagSet.flags...)
	if len(flags) == 0 {
		return
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	p.heading("Options")
	for _, fl := range flags {
		note := ""
		if fl.Default != "" && !fl.boolean {
			note = "|" + fl.Default + "|"
		}
		p.entry(fl.label(), fl.Usage, note)
	}
}

const pad = "    "

// page lays help text out in two columns: the option on the left, its
// description wrapped to the terminal on the right.
type page struct {
	sb    strings.Builder
	width int
	left  int
	usage int
}

func (a *App) newPage() *page {
	p := &page{width: terminalWidth()}
	for _, fl := range a.FlagSet.flags {
		p.left = max(p.left, len(fl.label()))
		p.usage = max(p.usage, len(fl.Usage))
	}
	for _, g := range a.FlagSet.groups {
		p.left = max(p.left, len(g.Prefix)+len(g.Kind)+6)
		for _, e := range g.entries {
			p.left = max(p.left, len(e.Name))
			p.usage = max(p.usage, len(e.Usage))
		}
	}
	return p
}

func (p *page) line(level int, s string) {
	fmt.Fprintf(&p.sb, "%s%s\n", strings.Repeat(pad, level), s)
}

func (p *page) heading(title string) {
	p.sb.WriteString("\n")
	p.line(1, title)
}

func (p *page) entry(left, usage, note string) {
	avail := p.width - 2*len(pad) - p.left - 1
	if note != "" {
		avail -= len(note) + 2
	}
	avail = max(avail, 10)

	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if note != "" {
		p.line(2, fmt.Sprintf("%-*s %-*s  %s", p.left, left, min(p.usage, avail), first, note))
	} else {
		p.line(2, strings.TrimRight(fmt.Sprintf("%-*s %s", p.left, left, first), " "))
	}
	for _, l := range lines[min(1, len(lines)):] {
		p.line(2, strings.Repeat(" ", p.left+1)+l)
	}
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 80
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 80
	}
	return max(w, 40)
}

// wrapText breaks text into lines of at most width bytes. A word longer than
// width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return words
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}
