// Package ast defines the token groups produced by the HoneyC resolver.
package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/xplshn/honeyc/pkg/token"
)

// Kind tags a Node. Leaf nodes wrap a single token; every other kind is a
// group with ordered children.
type Kind int

const (
	Leaf Kind = iota
	None
	Line
	Calculation
	Function
	FunctionCall
	Assignment
	Object
	Enum
	Import
	LineLoopEnd
	Return
	Condition
	Loop
)

var kindNames = [...]string{
	Leaf:         "Leaf",
	None:         "None",
	Line:         "Line",
	Calculation:  "Calculation",
	Function:     "Function",
	FunctionCall: "FunctionCall",
	Assignment:   "Assignment",
	Object:       "Object",
	Enum:         "Enum",
	Import:       "Import",
	LineLoopEnd:  "LineLoopEnd",
	Return:       "Return",
	Condition:    "Condition",
	Loop:         "Loop",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(?)"
	}
	return kindNames[k]
}

// Node is either a leaf token or a group of nodes.
type Node struct {
	Kind     Kind
	Tok      token.Token
	Children []*Node
}

func NewLeaf(tok token.Token) *Node { return &Node{Kind: Leaf, Tok: tok} }

func NewGroup(kind Kind, children []*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

func (n *Node) IsLeaf() bool { return n.Kind == Leaf }

// Is reports whether n is a leaf of token kind k.
func (n *Node) Is(k token.Kind) bool { return n.Kind == Leaf && n.Tok.Kind == k }

// IsText reports whether n is a leaf of token kind k spelled text.
func (n *Node) IsText(k token.Kind, text string) bool { return n.Is(k) && n.Tok.Text == text }

// Flatten returns the tokens under n in source order.
func (n *Node) Flatten() []token.Token {
	if n.IsLeaf() {
		return []token.Token{n.Tok}
	}
	var out []token.Token
	for _, c := range n.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

// First returns the first token under n, for diagnostics.
func (n *Node) First() token.Token {
	for n != nil && !n.IsLeaf() {
		if len(n.Children) == 0 {
			return token.Token{}
		}
		n = n.Children[0]
	}
	if n == nil {
		return token.Token{}
	}
	return n.Tok
}

// String renders n's tokens separated by spaces.
func (n *Node) String() string {
	toks := n.Flatten()
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Spelling()
	}
	return strings.Join(parts, " ")
}

// ScopePair records the statement indices of a '{' line and its '}' line.
type ScopePair struct {
	Start int
	End   int
}

// Program is a resolved HoneyC source: one classified group per statement.
type Program struct {
	Lines  []*Node
	Scopes []ScopePair
}

// Flatten returns every token of the program in source order.
func (p *Program) Flatten() []token.Token {
	var out []token.Token
	for _, l := range p.Lines {
		out = append(out, l.Flatten()...)
	}
	return out
}

// Dump writes an indented tree of p to w.
func Dump(w io.Writer, p *Program) {
	depth := 0
	scopeEnds := make(map[int]bool)
	for _, s := range p.Scopes {
		scopeEnds[s.End] = true
	}
	for i, line := range p.Lines {
		if scopeEnds[i] && depth > 0 {
			depth--
		}
		fmt.Fprintf(w, "%s%d: %s\n", strings.Repeat("    ", depth), i, line.Kind)
		for _, c := range line.Children {
			dumpNode(w, c, depth+1)
		}
		if last := line.Flatten(); len(last) > 0 && last[len(last)-1].Text == "{" {
			depth++
		}
	}
}

func dumpNode(w io.Writer, n *Node, depth int) {
	indent := strings.Repeat("    ", depth)
	if n.IsLeaf() {
		fmt.Fprintf(w, "%s%s %q\n", indent, n.Tok.Kind, n.Tok.Spelling())
		return
	}
	fmt.Fprintf(w, "%s%s\n", indent, n.Kind)
	for _, c := range n.Children {
		dumpNode(w, c, depth+1)
	}
}
