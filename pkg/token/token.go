package token

import (
	"sort"
	"strings"
)

type Kind int

const (
	None Kind = iota
	Value
	Operator
	Function
	Identifier
	Keyword
	AssignmentOperator
	ComparativeOperator
	MathOperator
	Scope
	Split
	Nest
	Compound
)

var kindNames = [...]string{
	None:                "None",
	Value:               "Value",
	Operator:            "Operator",
	Function:            "Function",
	Identifier:          "Identifier",
	Keyword:             "Keyword",
	AssignmentOperator:  "AssignmentOperator",
	ComparativeOperator: "ComparativeOperator",
	MathOperator:        "MathOperator",
	Scope:               "Scope",
	Split:               "Split",
	Nest:                "Nest",
	Compound:            "Compound",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(?)"
	}
	return kindNames[k]
}

// Token is one lexical unit. Num is only meaningful for Value tokens that
// were resolved to a number; Layer is the bracket depth, 0 being outermost.
// Neg marks an open bracket or a function (or unresolved name) written with
// a unary minus: the value it produces is negated.
type Token struct {
	Kind   Kind
	Text   string
	Num    float64
	Pos    int
	Line   int
	Column int
	Len    int
	Layer  int
	Neg    bool
}

// Spelling is Text with the unary minus of a negated token restored.
func (t Token) Spelling() string {
	if t.Neg {
		return "-" + t.Text
	}
	return t.Text
}

// IsOpen reports whether t opens a bracket pair.
func (t Token) IsOpen() bool { return t.Kind == Nest && (t.Text == "(" || t.Text == "[") }

// IsClose reports whether t closes a bracket pair.
func (t Token) IsClose() bool { return t.Kind == Nest && (t.Text == ")" || t.Text == "]") }

// Closer returns the bracket that closes open.
func Closer(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	}
	return ""
}

// Syntax is the fixed literal symbol table the lexer matches against.
// Symbols made only of letters are keywords and are matched on whole words.
type Syntax struct {
	symbols  map[string]Kind
	ordered  []string // non-letter symbols, longest first
	Strings  bool     // quoted string literals are values
	Comments bool     // '#' starts a comment running to end of line
}

func NewSyntax(symbols map[string]Kind) *Syntax {
	s := &Syntax{symbols: make(map[string]Kind, len(symbols))}
	for sym, kind := range symbols {
		s.symbols[sym] = kind
		if !isWord(sym) {
			s.ordered = append(s.ordered, sym)
		}
	}
	sort.Slice(s.ordered, func(i, j int) bool {
		if len(s.ordered[i]) != len(s.ordered[j]) {
			return len(s.ordered[i]) > len(s.ordered[j])
		}
		return s.ordered[i] < s.ordered[j]
	})
	return s
}

// Match returns the longest non-letter symbol that prefixes src.
func (s *Syntax) Match(src string) (string, Kind, bool) {
	for _, sym := range s.ordered {
		if strings.HasPrefix(src, sym) {
			return sym, s.symbols[sym], true
		}
	}
	return "", None, false
}

// Keyword reports whether word is a keyword of this syntax.
func (s *Syntax) Keyword(word string) (Kind, bool) {
	if !isWord(word) {
		return None, false
	}
	k, ok := s.symbols[word]
	return k, ok
}

// Symbols lists every literal symbol, sorted.
func (s *Syntax) Symbols() []string {
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// IsWord reports whether s matches the identifier format: ASCII letters only.
func IsWord(s string) bool { return isWord(s) }

var Brackets = map[string]Kind{
	"(": Nest, ")": Nest, "[": Nest, "]": Nest,
}

var HoneyCKeywords = []string{
	"let", "func", "object", "enum", "import", "return", "if", "while", "this",
}

// HoneyCSyntax is the symbol table of the HoneyC language.
func HoneyCSyntax() *Syntax {
	symbols := map[string]Kind{
		"=": AssignmentOperator, "+=": AssignmentOperator, "-=": AssignmentOperator,
		"*=": AssignmentOperator, "/=": AssignmentOperator,
		"==": ComparativeOperator, "!=": ComparativeOperator,
		"<": ComparativeOperator, ">": ComparativeOperator,
		"<=": ComparativeOperator, ">=": ComparativeOperator,
		"+": MathOperator, "-": MathOperator, "*": MathOperator, "/": MathOperator,
		"//": MathOperator, "%": MathOperator, "^": MathOperator,
		";": Scope, "{": Scope, "}": Scope,
		",": Split,
		".": Compound,
	}
	for b, k := range Brackets {
		symbols[b] = k
	}
	for _, kw := range HoneyCKeywords {
		symbols[kw] = Keyword
	}
	s := NewSyntax(symbols)
	s.Strings = true
	s.Comments = true
	return s
}
