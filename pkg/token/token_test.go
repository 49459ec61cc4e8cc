package token

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatchLongest(t *testing.T) {
	s := HoneyCSyntax()
	tests := []struct {
		src  string
		sym  string
		kind Kind
		ok   bool
	}{
		{"+= 1", "+=", AssignmentOperator, true},
		{"+1", "+", MathOperator, true},
		{"// 2", "//", MathOperator, true},
		{"<=3", "<=", ComparativeOperator, true},
		{"== b", "==", ComparativeOperator, true},
		{"(x)", "(", Nest, true},
		{"; rest", ";", Scope, true},
		{"a.b", "", None, false},
		{"@", "", None, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			sym, kind, ok := s.Match(tt.src)
			if sym != tt.sym || kind != tt.kind || ok != tt.ok {
				t.Errorf("Match(%q) = %q, %v, %v; want %q, %v, %v", tt.src, sym, kind, ok, tt.sym, tt.kind, tt.ok)
			}
		})
	}
}

func TestKeywordWholeWord(t *testing.T) {
	s := HoneyCSyntax()
	for _, kw := range HoneyCKeywords {
		if k, ok := s.Keyword(kw); !ok || k != Keyword {
			t.Errorf("Keyword(%q) = %v, %v", kw, k, ok)
		}
	}
	for _, word := range []string{"letter", "iff", "fun", "", "+"} {
		if _, ok := s.Keyword(word); ok {
			t.Errorf("Keyword(%q) matched", word)
		}
	}
}

func TestSymbolsSorted(t *testing.T) {
	s := NewSyntax(map[string]Kind{"*": Operator, "+": Operator, "(": Nest, "let": Keyword})
	want := []string{"(", "*", "+", "let"}
	if diff := cmp.Diff(want, s.Symbols()); diff != "" {
		t.Errorf("Symbols() mismatch (-want +got):\n%s", diff)
	}
}

func TestBrackets(t *testing.T) {
	open := Token{Kind: Nest, Text: "("}
	cl := Token{Kind: Nest, Text: ")"}
	if !open.IsOpen() || open.IsClose() {
		t.Errorf("'(' classified wrong")
	}
	if !cl.IsClose() || cl.IsOpen() {
		t.Errorf("')' classified wrong")
	}
	if (Token{Kind: Scope, Text: "{"}).IsOpen() {
		t.Errorf("'{' is a scope, not a bracket")
	}
	for open, want := range map[string]string{"(": ")", "[": "]", "{": "}", "x": ""} {
		if got := Closer(open); got != want {
			t.Errorf("Closer(%q) = %q, want %q", open, got, want)
		}
	}
}

func TestIsWord(t *testing.T) {
	for s, want := range map[string]bool{
		"abc": true, "ABC": true, "aB": true,
		"": false, "a1": false, "a_b": false, "a.b": false, "é": false,
	} {
		if got := IsWord(s); got != want {
			t.Errorf("IsWord(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := Identifier.String(); got != "Identifier" {
		t.Errorf("Identifier.String() = %q", got)
	}
	if got := Kind(99).String(); got != "Kind(?)" {
		t.Errorf("Kind(99).String() = %q", got)
	}
}
