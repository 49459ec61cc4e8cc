// Package check resolves declarations across the scopes of a grouped HoneyC
// program: names must be declared before use, declarations may not repeat
// within a scope, and return and enum-member statements must sit inside the
// body that owns them.
package check

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xplshn/honeyc/pkg/ast"
	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/symbols"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymParameter
	SymFunction
	SymObject
	SymEnum
	SymEnumMember
	SymImport
	SymBuiltin
)

var symbolKindNames = [...]string{
	SymVariable:   "variable",
	SymParameter:  "parameter",
	SymFunction:   "function",
	SymObject:     "object",
	SymEnum:       "enum",
	SymEnumMember: "enum member",
	SymImport:     "import",
	SymBuiltin:    "builtin",
}

func (k SymbolKind) String() string {
	if k < 0 || int(k) >= len(symbolKindNames) {
		return "symbol"
	}
	return symbolKindNames[k]
}

type Symbol struct {
	Name string
	Kind SymbolKind
	Tok  token.Token
	Next *Symbol
}

// Scope is one '{' ... '}' body. Owner is the statement kind that opened it;
// the global scope is owned by ast.Line.
type Scope struct {
	Symbols *Symbol
	Parent  *Scope
	Owner   ast.Kind
}

// Warning is a non-fatal finding, reported only when its warning is enabled.
type Warning struct {
	Kind config.Warning
	Tok  token.Token
	Msg  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s", w.Tok.Line, w.Tok.Column, w.Msg)
}

// Builtins are declared in the global scope of every program, next to the
// constants and functions of the symbol table.
var Builtins = []string{"print"}

type Checker struct {
	currentScope *Scope
	globalScope  *Scope
	cfg          *config.Config
	log          zerolog.Logger
	line         int
	Warnings     []Warning
}

func NewChecker(table *symbols.Table, cfg *config.Config, log zerolog.Logger) *Checker {
	if table == nil {
		table = symbols.New()
	}
	globalScope := newScope(nil, ast.Line)
	c := &Checker{currentScope: globalScope, globalScope: globalScope, cfg: cfg, log: log}

	names := append([]string(nil), Builtins...)
	names = append(names, table.Names("constants")...)
	names = append(names, table.Names("functions")...)
	for _, name := range names {
		globalScope.Symbols = &Symbol{Name: name, Kind: SymBuiltin, Next: globalScope.Symbols}
	}
	return c
}

// Check runs a fresh checker over prog.
func Check(prog *ast.Program, table *symbols.Table, cfg *config.Config, log zerolog.Logger) ([]Warning, error) {
	c := NewChecker(table, cfg, log)
	err := c.Check(prog)
	return c.Warnings, err
}

func newScope(parent *Scope, owner ast.Kind) *Scope { return &Scope{Parent: parent, Owner: owner} }

func (c *Checker) enterScope(owner ast.Kind) { c.currentScope = newScope(c.currentScope, owner) }

func (c *Checker) exitScope() {
	if c.currentScope.Parent != nil {
		c.currentScope = c.currentScope.Parent
	}
}

func (c *Checker) Check(prog *ast.Program) error {
	for i, line := range prog.Lines {
		c.line = i
		if err := c.statement(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) statement(line *ast.Node) error {
	ch := line.Children
	var params []*ast.Node

	switch line.Kind {
	case ast.LineLoopEnd:
		c.exitScope()
		return nil

	case ast.Import:
		if err := c.declare(c.currentScope, ch[1].Tok, SymImport); err != nil {
			return err
		}

	case ast.Assignment:
		isLet := ch[0].IsText(token.Keyword, "let")
		idx := 0
		if isLet {
			idx = 1
		}
		target := ch[idx]
		// the value is read before the new name exists, so "let x = x + 1"
		// refers to an outer x
		if len(ch) > idx+3 {
			c.uses(ch[idx+2])
		}
		if isLet {
			if err := c.declare(c.currentScope, target.Tok, SymVariable); err != nil {
				return err
			}
		} else {
			c.use(target.Tok)
		}

	case ast.Function:
		fn := ch[1]
		if err := c.declare(c.currentScope, fn.Children[0].Tok, SymFunction); err != nil {
			return err
		}
		params = fn.Children[2 : len(fn.Children)-1]

	case ast.Object:
		if err := c.declare(c.currentScope, ch[1].Tok, SymObject); err != nil {
			return err
		}

	case ast.Enum:
		if ch[0].IsText(token.Keyword, "enum") {
			if err := c.declare(c.currentScope, ch[1].Tok, SymEnum); err != nil {
				return err
			}
			break
		}
		if c.currentScope.Owner != ast.Enum {
			return c.errorAt(util.MisplacedStatement, ch[0].Tok, "enum members outside an enum body")
		}
		for _, n := range ch {
			if n.Is(token.Identifier) {
				if err := c.declare(c.currentScope.Parent, n.Tok, SymEnumMember); err != nil {
					return err
				}
			}
		}

	case ast.Return:
		if !c.inside(ast.Function) {
			return c.errorAt(util.MisplacedStatement, ch[0].Tok, "return outside a function body")
		}
		c.usesAll(ch[1:])

	case ast.Condition, ast.Loop, ast.FunctionCall:
		c.usesAll(ch)
	}

	if last := line.Flatten(); len(last) > 0 && last[len(last)-1].Text == "{" {
		c.enterScope(line.Kind)
		for _, p := range params {
			if p.Is(token.Identifier) {
				if err := c.declare(c.currentScope, p.Tok, SymParameter); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// declare adds tok's name to scope; for dotted names only the root is bound.
func (c *Checker) declare(scope *Scope, tok token.Token, kind SymbolKind) error {
	name := rootName(tok.Text)
	for sym := scope.Symbols; sym != nil; sym = sym.Next {
		if sym.Name == name && sym.Kind != SymBuiltin {
			return c.errorAt(util.Redefinition, tok, "%s '%s' is already declared as a %s on line %d", kind, name, sym.Kind, sym.Tok.Line)
		}
	}
	if scope.Parent != nil {
		if outer := c.findSymbolFrom(scope.Parent, name); outer != nil && outer.Kind != SymBuiltin {
			c.warn(config.WarnShadow, tok, "'%s' hides the %s declared on line %d", name, outer.Kind, outer.Tok.Line)
		}
	}
	scope.Symbols = &Symbol{Name: name, Kind: kind, Tok: tok, Next: scope.Symbols}
	return nil
}

func (c *Checker) findSymbol(name string) *Symbol { return c.findSymbolFrom(c.currentScope, name) }

func (c *Checker) findSymbolFrom(s *Scope, name string) *Symbol {
	for ; s != nil; s = s.Parent {
		for sym := s.Symbols; sym != nil; sym = sym.Next {
			if sym.Name == name {
				return sym
			}
		}
	}
	return nil
}

func (c *Checker) inside(owner ast.Kind) bool {
	for s := c.currentScope; s != nil; s = s.Parent {
		if s.Owner == owner {
			return true
		}
	}
	return false
}

func (c *Checker) usesAll(nodes []*ast.Node) {
	for _, n := range nodes {
		c.uses(n)
	}
}

func (c *Checker) uses(n *ast.Node) {
	for _, t := range n.Flatten() {
		if t.Kind == token.Identifier {
			c.use(t)
		}
	}
}

func (c *Checker) use(tok token.Token) {
	name := rootName(tok.Text)
	if name == "this" {
		if !c.inside(ast.Function) && !c.inside(ast.Object) {
			c.warn(config.WarnUndeclared, tok, "'this' outside a function or object body")
		}
		return
	}
	if c.findSymbol(name) == nil {
		c.warn(config.WarnUndeclared, tok, "'%s' is used before any declaration", name)
	}
}

func (c *Checker) warn(w config.Warning, tok token.Token, format string, args ...interface{}) {
	if !c.cfg.IsWarningEnabled(w) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, Warning{Kind: w, Tok: tok, Msg: msg})
	c.log.Warn().Str("warning", c.cfg.Warnings[w].Name).Int("line", tok.Line).Int("column", tok.Column).Msg(msg)
}

func (c *Checker) errorAt(code util.Code, tok token.Token, format string, args ...interface{}) *util.Error {
	e := util.At(code, tok, format, args...)
	e.LineIndex = c.line
	return e
}

func rootName(name string) string {
	root, _, _ := strings.Cut(name, ".")
	return root
}
