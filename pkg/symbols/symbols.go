// Package symbols holds the namespace consulted by every stage: constants,
// variables, unary functions and binary operators.
package symbols

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

// Operator is a binary operator. Higher Priority binds tighter.
type Operator struct {
	Name     string
	Priority int
	Apply    func(l, r float64) float64
}

// Function is a unary function.
type Function func(float64) float64

var defaultConstants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"phi": math.Phi,
}

var defaultFunctions = map[string]Function{
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
	"exp":   math.Exp,
	"ln":    math.Log,
	"log":   math.Log10,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
}

var defaultOperators = []Operator{
	{"+", 1, func(l, r float64) float64 { return l + r }},
	{"-", 1, func(l, r float64) float64 { return l - r }},
	{"*", 2, func(l, r float64) float64 { return l * r }},
	{"/", 2, func(l, r float64) float64 { return l / r }},
	{"//", 2, func(l, r float64) float64 { return math.Floor(l / r) }},
	{"%", 2, math.Mod},
	{"^", 3, math.Pow},
}

// Table is one evaluation namespace. Constants, functions and operators are
// fixed once the table is in use; variables are copy-on-write so readers can
// hold a Snapshot while a single writer updates the table.
type Table struct {
	constants map[string]float64
	functions map[string]Function
	operators map[string]Operator
	reserved  map[string]bool

	mu   sync.Mutex
	vars atomic.Pointer[map[string]float64]
}

// New returns a table seeded with the default constants, functions and
// operators. HoneyC keywords are reserved as well.
func New() *Table {
	t := &Table{
		constants: make(map[string]float64, len(defaultConstants)),
		functions: make(map[string]Function, len(defaultFunctions)),
		operators: make(map[string]Operator, len(defaultOperators)),
		reserved:  make(map[string]bool),
	}
	for name, v := range defaultConstants {
		t.constants[name] = v
	}
	for name, fn := range defaultFunctions {
		t.functions[name] = fn
	}
	for _, op := range defaultOperators {
		t.operators[op.Name] = op
	}
	for _, kw := range token.HoneyCKeywords {
		t.reserved[kw] = true
	}
	empty := map[string]float64{}
	t.vars.Store(&empty)
	return t
}

// DefineConstant adds a constant. It follows the same naming rules as
// variables and must happen before the table is shared.
func (t *Table) DefineConstant(name string, v float64) error {
	if err := t.ValidateName(name); err != nil {
		return err
	}
	t.constants[name] = v
	return nil
}

func (t *Table) Constant(name string) (float64, bool) {
	v, ok := t.constants[name]
	return v, ok
}

func (t *Table) Function(name string) (Function, bool) {
	fn, ok := t.functions[name]
	return fn, ok
}

func (t *Table) Operator(name string) (Operator, bool) {
	op, ok := t.operators[name]
	return op, ok
}

func (t *Table) Variable(name string) (float64, bool) {
	v, ok := (*t.vars.Load())[name]
	return v, ok
}

// Variables returns a copy of the variable bindings.
func (t *Table) Variables() map[string]float64 {
	cur := *t.vars.Load()
	out := make(map[string]float64, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

// Names returns the sorted names of one namespace: "constants", "functions",
// "operators" or "variables".
func (t *Table) Names(namespace string) []string {
	var names []string
	switch namespace {
	case "constants":
		for n := range t.constants {
			names = append(names, n)
		}
	case "functions":
		for n := range t.functions {
			names = append(names, n)
		}
	case "operators":
		for n := range t.operators {
			names = append(names, n)
		}
	case "variables":
		for n := range *t.vars.Load() {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// ValidateName checks that name may be bound as a variable.
func (t *Table) ValidateName(name string) error {
	if !token.IsWord(name) {
		return util.Errorf(util.InvalidName, "%q must consist of letters only", name)
	}
	if t.protected(name) {
		return util.Errorf(util.NameProtected, "%q is a reserved name", name)
	}
	return nil
}

func (t *Table) protected(name string) bool {
	if _, ok := t.constants[name]; ok {
		return true
	}
	if _, ok := t.functions[name]; ok {
		return true
	}
	if _, ok := t.operators[name]; ok {
		return true
	}
	return t.reserved[name]
}

// Set creates or updates a variable. The name is validated before anything
// is written.
func (t *Table) Set(name string, v float64) error {
	if err := t.ValidateName(name); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := *t.vars.Load()
	next := make(map[string]float64, len(cur)+1)
	for k, val := range cur {
		next[k] = val
	}
	next[name] = v
	t.vars.Store(&next)
	return nil
}

// Remove deletes a variable.
func (t *Table) Remove(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := *t.vars.Load()
	if _, ok := cur[name]; !ok {
		return util.Errorf(util.UndefinedVariable, "%q is not defined", name)
	}
	next := make(map[string]float64, len(cur))
	for k, val := range cur {
		if k != name {
			next[k] = val
		}
	}
	t.vars.Store(&next)
	return nil
}

// Snapshot pins the current variable bindings.
func (t *Table) Snapshot() *Snapshot {
	return &Snapshot{table: t, vars: *t.vars.Load()}
}

// Syntax returns the calculator symbol table: every operator plus brackets.
func (t *Table) Syntax() *token.Syntax {
	syms := make(map[string]token.Kind, len(t.operators)+len(token.Brackets))
	for name := range t.operators {
		syms[name] = token.Operator
	}
	for b, k := range token.Brackets {
		syms[b] = k
	}
	return token.NewSyntax(syms)
}

// Snapshot is a stable read-only view of a Table. Later Set or Remove calls
// on the table are not visible through it.
type Snapshot struct {
	table *Table
	vars  map[string]float64
}

// Resolve classifies an identifier. Constants and variables resolve to
// token.Value with their number, functions to token.Function.
func (s *Snapshot) Resolve(name string) (token.Kind, float64, bool) {
	if v, ok := s.table.constants[name]; ok {
		return token.Value, v, true
	}
	if v, ok := s.vars[name]; ok {
		return token.Value, v, true
	}
	if _, ok := s.table.functions[name]; ok {
		return token.Function, 0, true
	}
	return token.None, 0, false
}

func (s *Snapshot) Table() *Table { return s.table }
