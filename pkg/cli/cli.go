package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const indentUnit = 4

func indent(level int) string { return strings.Repeat(" ", indentUnit*level) }

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error {
	*v.p = s
	return nil
}
func (v *stringValue) String() string { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number '%s'", s)
	}
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = b
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error {
	*v.p = append(*v.p, s)
	return nil
}
func (v *listValue) String() string { return strings.Join(*v.p, ", ") }

type Flag struct {
	Name      string
	Shorthand string
	Usage     string
	Value     Value
	DefValue  string
	Meta      string // placeholder shown in help, e.g. "file"
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// GroupEntry is one named switch of a flag group, such as a feature
// toggled with -Fname / -Fno-name.
type GroupEntry struct {
	Name    string
	Usage   string
	Enabled bool
}

// FlagGroup collects prefixed switches. Every occurrence is handed to the
// group's list in command-line order, without the leading '-'.
type FlagGroup struct {
	Title   string
	Prefix  string
	Kind    string
	Entries []GroupEntry
	seen    *[]string
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []*FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{name: name, flags: make(map[string]*Flag), shorthands: make(map[string]*Flag)}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, meta string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, meta)
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, meta string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), meta)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, "", "")
}

func (f *FlagSet) List(p *[]string, name, shorthand, usage, meta string) {
	*p = nil
	f.Var(&listValue{p}, name, shorthand, usage, "", meta)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, meta string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, Meta: meta}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// Group registers a prefix such as "F" or "W". Matching arguments
// (-Fname, -Fno-name, -Wall) are appended to seen.
func (f *FlagSet) Group(seen *[]string, title, prefix, kind string, entries []GroupEntry) {
	*seen = nil
	f.groups = append(f.groups, &FlagGroup{Title: title, Prefix: prefix, Kind: kind, Entries: entries, seen: seen})
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
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

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		flag, ok := f.flags[name]
		if !ok && !strings.HasPrefix(arg, "--") {
			if g := f.group(arg[1:]); g != nil {
				*g.seen = append(*g.seen, arg[1:])
				continue
			}
			flag, ok = f.shorthands[arg[1:2]]
			if ok && len(arg) > 2 && !flag.isBool() {
				value, hasValue = arg[2:], true
			} else if ok && len(arg) > 2 {
				ok = false
			}
		}
		if !ok {
			return fmt.Errorf("unknown flag: %s", arg)
		}

		switch {
		case hasValue:
		case flag.isBool():
			value = ""
		case i+1 < len(arguments):
			i++
			value = arguments[i]
		default:
			return fmt.Errorf("flag needs an argument: %s", arg)
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

func (f *FlagSet) group(arg string) *FlagGroup {
	for _, g := range f.groups {
		if strings.HasPrefix(arg, g.Prefix) && len(arg) > len(g.Prefix) {
			return g
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		fmt.Fprintf(a.Stderr, "Run '%s --help' for all available options and flags.\n", a.Name)
		return err
	}
	if help {
		a.WriteHelp(a.Stdout, TerminalWidth())
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// WriteHelp renders the full help page wrapped to width columns.
func (a *App) WriteHelp(w io.Writer, width int) {
	var sb strings.Builder

	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "%sSynopsis\n%s%s %s\n", indent(1), indent(2), a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent(1))
		for _, line := range wrapText(a.Description, width-len(indent(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent(2), line)
		}
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "\n%sFor more details refer to %s\n", indent(1), a.Repository)
	}

	flags := make([]*Flag, 0, len(a.FlagSet.flags))
	for _, fl := range a.FlagSet.flags {
		flags = append(flags, fl)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })

	left := 0
	for _, fl := range flags {
		left = max(left, len(flagString(fl)))
	}
	for _, g := range a.FlagSet.groups {
		left = max(left, len(fmt.Sprintf("-%sno-<%s>", g.Prefix, g.Kind)))
		for _, e := range g.Entries {
			left = max(left, len(e.Name))
		}
	}

	if len(flags) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, fl := range flags {
			right := ""
			if !fl.isBool() && fl.DefValue != "" {
				right = "|" + fl.DefValue + "|"
			}
			writeEntry(&sb, width, left, flagString(fl), fl.Usage, right)
		}
	}

	for _, g := range a.FlagSet.groups {
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), g.Title)
		writeEntry(&sb, width, left, fmt.Sprintf("-%s<%s>", g.Prefix, g.Kind), "Enable a specific "+g.Kind, "")
		writeEntry(&sb, width, left, fmt.Sprintf("-%sno-<%s>", g.Prefix, g.Kind), "Disable a specific "+g.Kind, "")
		entries := append([]GroupEntry(nil), g.Entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			mark := "|-|"
			if e.Enabled {
				mark = "|x|"
			}
			writeEntry(&sb, width, left, e.Name, e.Usage, mark)
		}
	}
	fmt.Fprint(w, sb.String())
}

func flagString(fl *Flag) string {
	meta := ""
	if !fl.isBool() && fl.Meta != "" {
		meta = " <" + fl.Meta + ">"
	}
	if fl.Shorthand != "" {
		return fmt.Sprintf("-%s%s, --%s%s", fl.Shorthand, meta, fl.Name, meta)
	}
	return "--" + fl.Name + meta
}

func writeEntry(sb *strings.Builder, width, left int, name, usage, right string) {
	avail := max(width-len(indent(2))-left-1-len(right)-2, 10)
	lines := wrapText(usage, avail)
	if len(lines) == 0 {
		lines = []string{""}
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent(2), left, name, avail, lines[0], right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent(2), left, name, lines[0])
	}
	for _, l := range lines[1:] {
		fmt.Fprintf(sb, "%s%s %s\n", indent(2), strings.Repeat(" ", left), l)
	}
}

// TerminalWidth returns the width of stdout, or 80 when it is not a
// terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
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
