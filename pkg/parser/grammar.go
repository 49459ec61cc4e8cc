package parser

import (
	"github.com/xplshn/honeyc/pkg/ast"
	"github.com/xplshn/honeyc/pkg/token"
)

// elem matches one top-level node of a statement.
type elem struct {
	match    func(*ast.Node) bool
	optional bool
	repeat   bool
}

type rule struct {
	kind  ast.Kind
	elems []elem
}

func tok(k token.Kind) elem { return elem{match: func(n *ast.Node) bool { return n.Is(k) }} }

func text(k token.Kind, s string) elem {
	return elem{match: func(n *ast.Node) bool { return n.IsText(k, s) }}
}

func group(k ast.Kind) elem { return elem{match: func(n *ast.Node) bool { return n.Kind == k }} }

func operand() elem { return elem{match: isOperand} }

func opt(e elem) elem {
	e.optional = true
	return e
}

func many(e elem) elem {
	e.repeat = true
	return e
}

func kw(s string) elem { return text(token.Keyword, s) }

var (
	semi       = text(token.Scope, ";")
	scopeOpen  = text(token.Scope, "{")
	scopeClose = text(token.Scope, "}")
)

// grammar is tried top to bottom; the first full match classifies a line.
var grammar = []rule{
	{ast.Assignment, []elem{opt(kw("let")), tok(token.Identifier), tok(token.AssignmentOperator), operand(), semi}},
	{ast.Assignment, []elem{kw("let"), tok(token.Identifier), semi}},
	{ast.FunctionCall, []elem{group(ast.FunctionCall), semi}},
	{ast.LineLoopEnd, []elem{scopeClose}},
	{ast.Function, []elem{kw("func"), group(ast.Function), scopeOpen}},
	{ast.Object, []elem{kw("object"), tok(token.Identifier), scopeOpen}},
	{ast.Enum, []elem{kw("enum"), tok(token.Identifier), scopeOpen}},
	{ast.Import, []elem{kw("import"), tok(token.Identifier), semi}},
	{ast.Return, []elem{kw("return"), opt(operand()), semi}},
	{ast.Condition, []elem{kw("if"), operand(), scopeOpen}},
	{ast.Loop, []elem{kw("while"), operand(), scopeOpen}},
	// enum members: "red, green, blue;"
	{ast.Enum, []elem{tok(token.Identifier), many(enumTail()), semi}},
}

func enumTail() elem {
	return elem{match: func(n *ast.Node) bool { return n.Is(token.Split) || n.Is(token.Identifier) }}
}

func classify(line []*ast.Node) ast.Kind {
	for _, r := range grammar {
		if matchElems(line, r.elems) {
			return r.kind
		}
	}
	return ast.None
}

func matchElems(nodes []*ast.Node, elems []elem) bool {
	if len(elems) == 0 {
		return len(nodes) == 0
	}
	e := elems[0]
	if e.optional && matchElems(nodes, elems[1:]) {
		return true
	}
	if len(nodes) == 0 || !e.match(nodes[0]) {
		return false
	}
	if e.repeat {
		more := e
		more.optional = true
		if matchElems(nodes[1:], append([]elem{more}, elems[1:]...)) {
			return true
		}
	}
	return matchElems(nodes[1:], elems[1:])
}
