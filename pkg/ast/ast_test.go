package ast

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/honeyc/pkg/token"
)

func leaf(k token.Kind, text string) *Node {
	return NewLeaf(token.Token{Kind: k, Text: text})
}

func TestFlattenAndString(t *testing.T) {
	calc := NewGroup(Calculation, []*Node{
		leaf(token.Value, "1"), leaf(token.MathOperator, "+"), leaf(token.Value, "2"),
	})
	line := NewGroup(Assignment, []*Node{
		leaf(token.Identifier, "x"), leaf(token.AssignmentOperator, "="), calc, leaf(token.Scope, ";"),
	})

	if got, want := line.String(), "x = 1 + 2 ;"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	var texts []string
	for _, tok := range line.Flatten() {
		texts = append(texts, tok.Text)
	}
	if diff := cmp.Diff([]string{"x", "=", "1", "+", "2", ";"}, texts); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
	if got := calc.First().Text; got != "1" {
		t.Errorf("First() = %q, want \"1\"", got)
	}
	if got := NewGroup(Line, nil).First(); got != (token.Token{}) {
		t.Errorf("First() of empty group = %+v", got)
	}
}

func TestIs(t *testing.T) {
	n := leaf(token.Keyword, "this")
	if !n.Is(token.Keyword) || !n.IsText(token.Keyword, "this") {
		t.Error("keyword leaf not matched")
	}
	if n.IsText(token.Keyword, "let") || n.Is(token.Identifier) {
		t.Error("keyword leaf matched the wrong form")
	}
	if NewGroup(Calculation, nil).Is(token.Value) {
		t.Error("group reported as a leaf")
	}
}

func TestKindString(t *testing.T) {
	if got := LineLoopEnd.String(); got != "LineLoopEnd" {
		t.Errorf("got %q", got)
	}
	if got := Kind(99).String(); got != "Kind(?)" {
		t.Errorf("got %q", got)
	}
}

func TestDump(t *testing.T) {
	prog := &Program{
		Lines: []*Node{
			NewGroup(Condition, []*Node{
				leaf(token.Keyword, "if"),
				NewGroup(Calculation, []*Node{
					leaf(token.Identifier, "x"), leaf(token.ComparativeOperator, ">"), leaf(token.Value, "1"),
				}),
				leaf(token.Scope, "{"),
			}),
			NewGroup(LineLoopEnd, []*Node{leaf(token.Scope, "}")}),
		},
		Scopes: []ScopePair{{Start: 0, End: 1}},
	}

	var buf bytes.Buffer
	Dump(&buf, prog)
	want := `0: Condition
    Keyword "if"
    Calculation
        Identifier "x"
        ComparativeOperator ">"
        Value "1"
    Scope "{"
1: LineLoopEnd
    Scope "}"
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
	if got := len(prog.Flatten()); got != 7 {
		t.Errorf("Program.Flatten() has %d tokens, want 7", got)
	}
}
