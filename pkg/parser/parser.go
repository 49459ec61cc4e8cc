package parser

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/xplshn/honeyc/pkg/ast"
	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

// Parser groups a HoneyC token stream into classified statements.
type Parser struct {
	tokens []token.Token
	index  map[int]int // token Pos -> index in tokens
	cfg    *config.Config
	log    zerolog.Logger
	lines  [][]*ast.Node
	scopes []ast.ScopePair
}

func NewParser(tokens []token.Token, cfg *config.Config, log zerolog.Logger) *Parser {
	p := &Parser{tokens: tokens, cfg: cfg, log: log, index: make(map[int]int, len(tokens))}
	for i, t := range tokens {
		p.index[t.Pos] = i
	}
	return p
}

// Parse resolves tokens with a silent logger.
func Parse(tokens []token.Token, cfg *config.Config) (*ast.Program, error) {
	return NewParser(tokens, cfg, zerolog.Nop()).Parse()
}

func (p *Parser) Parse() (*ast.Program, error) {
	if err := p.splitLines(); err != nil {
		return nil, err
	}

	prog := &ast.Program{Scopes: p.scopes}
	for i, line := range p.lines {
		if p.cfg.IsFeatureEnabled(config.FeatMemberMerge) {
			line = mergeMembers(line)
		}
		line, err := p.resolveBrackets(i, line)
		if err != nil {
			return nil, err
		}

		kind := classify(line)
		group := ast.NewGroup(kind, line)
		if kind == ast.None {
			if p.cfg.IsFeatureEnabled(config.FeatStrict) {
				return nil, p.errorAt(util.UnknownStatement, i, line[0], "%q matches no statement form", group.String())
			}
			if p.cfg.IsWarningEnabled(config.WarnUnclassified) {
				p.log.Warn().Int("line", i).Str("statement", group.String()).Msg("unclassified statement")
			}
		}
		if p.cfg.IsFeatureEnabled(config.FeatTrace) {
			p.log.Debug().Int("line", i).Stringer("kind", kind).Str("statement", group.String()).Msg("classified")
		}
		prog.Lines = append(prog.Lines, group)
	}
	return prog, nil
}

func (p *Parser) errorAt(code util.Code, lineIdx int, n *ast.Node, format string, args ...interface{}) *util.Error {
	tok := n.First()
	e := util.At(code, tok, format, args...)
	e.LineIndex = lineIdx
	if idx, ok := p.index[tok.Pos]; ok {
		e.TokenIndex = idx
	}
	return e
}

// splitLines cuts the stream at ';', '{' and '}' and pairs up scopes.
func (p *Parser) splitLines() error {
	var cur []*ast.Node
	var open []int

	for _, tok := range p.tokens {
		leaf := ast.NewLeaf(tok)
		if tok.Kind == token.Scope && tok.Text == "}" {
			if len(cur) > 0 {
				return p.errorAt(util.MissingTerminator, len(p.lines), cur[len(cur)-1], "expected ';' before '}'")
			}
			p.lines = append(p.lines, []*ast.Node{leaf})
			if len(open) == 0 {
				return p.errorAt(util.UnmatchedCloseBrace, len(p.lines)-1, leaf, "'}' closes no scope")
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			p.scopes = append(p.scopes, ast.ScopePair{Start: start, End: len(p.lines) - 1})
			continue
		}
		if tok.Kind == token.Scope && tok.Text == ";" && len(cur) == 0 {
			continue
		}

		cur = append(cur, leaf)
		if tok.Kind == token.Scope {
			if tok.Text == "{" {
				open = append(open, len(p.lines))
			}
			p.lines = append(p.lines, cur)
			cur = nil
		}
	}

	if len(cur) > 0 {
		return p.errorAt(util.MissingTerminator, len(p.lines), cur[len(cur)-1], "expected ';' at end of statement")
	}
	if len(open) > 0 {
		start := open[len(open)-1]
		line := p.lines[start]
		return p.errorAt(util.UnmatchedOpenBrace, start, line[len(line)-1], "'{' is never closed")
	}
	return nil
}

// mergeMembers collapses "(identifier|this) . identifier" into a single
// identifier until nothing more merges.
func mergeMembers(line []*ast.Node) []*ast.Node {
	for changed := true; changed; {
		changed = false
		for j := 0; j+2 < len(line); j++ {
			a, dot, b := line[j], line[j+1], line[j+2]
			if !(a.Is(token.Identifier) || a.IsText(token.Keyword, "this")) || !dot.Is(token.Compound) || !b.Is(token.Identifier) {
				continue
			}
			tok := a.Tok
			tok.Kind = token.Identifier
			tok.Text = a.Tok.Text + "." + b.Tok.Text
			tok.Len = b.Tok.Pos + b.Tok.Len - a.Tok.Pos
			line = splice(line, j, j+3, ast.NewLeaf(tok))
			changed = true
			break
		}
	}
	return line
}

type bracketPair struct {
	start, end, depth int
}

func (p *Parser) resolveBrackets(li int, line []*ast.Node) ([]*ast.Node, error) {
	var pairs []bracketPair
	var stack []int
	for j, n := range line {
		switch {
		case n.IsLeaf() && n.Tok.IsOpen():
			stack = append(stack, j)
		case n.IsLeaf() && n.Tok.IsClose():
			if len(stack) == 0 {
				return nil, p.errorAt(util.UnmatchedBracket, li, n, "'%s' has no matching opening bracket", n.Tok.Text)
			}
			s := stack[len(stack)-1]
			if token.Closer(line[s].Tok.Text) != n.Tok.Text {
				return nil, p.errorAt(util.UnmatchedBracket, li, n, "'%s' does not close '%s'", n.Tok.Text, line[s].Tok.Text)
			}
			stack = stack[:len(stack)-1]
			pairs = append(pairs, bracketPair{start: s, end: j, depth: len(stack)})
		}
	}
	if len(stack) > 0 {
		n := line[stack[len(stack)-1]]
		return nil, p.errorAt(util.UnmatchedBracket, li, n, "'%s' is never closed", n.Tok.Text)
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].depth != pairs[b].depth {
			return pairs[a].depth > pairs[b].depth
		}
		return pairs[a].start < pairs[b].start
	})

	for k, pr := range pairs {
		var (
			from, to = pr.start, pr.end
			repl     *ast.Node
			err      error
		)
		if pr.start > 0 && line[pr.start-1].Is(token.Identifier) {
			from = pr.start - 1
			repl, err = p.call(li, line[from:pr.end+1], from > 0 && line[from-1].IsText(token.Keyword, "func"))
		} else {
			from, to, err = p.calculation(li, line, pr.start, pr.end)
			if err == nil {
				repl = ast.NewGroup(ast.Calculation, clone(line[from:to+1]))
			}
		}
		if err != nil {
			return nil, err
		}

		line = splice(line, from, to+1, repl)
		delta := to - from
		for r := k + 1; r < len(pairs); r++ {
			if pairs[r].start > to {
				pairs[r].start -= delta
			}
			if pairs[r].end > to {
				pairs[r].end -= delta
			}
		}
	}

	return p.coalesceRuns(li, line, 0, len(line), 2)
}

// call builds a Function (definition) or FunctionCall group out of
// ident '(' ... ')'.
func (p *Parser) call(li int, nodes []*ast.Node, definition bool) (*ast.Node, error) {
	ident, lparen, rparen := nodes[0], nodes[1], nodes[len(nodes)-1]
	interior := nodes[2 : len(nodes)-1]

	if definition {
		for j, n := range interior {
			want := token.Identifier
			if j%2 == 1 {
				want = token.Split
			}
			if !n.Is(want) {
				return nil, p.errorAt(util.InvalidArgumentList, li, n, "parameter list of %q must be comma-separated names", ident.Tok.Text)
			}
		}
		if len(interior) > 0 && len(interior)%2 == 0 {
			return nil, p.errorAt(util.InvalidArgumentList, li, rparen, "trailing ',' in parameters of %q", ident.Tok.Text)
		}
		return ast.NewGroup(ast.Function, clone(nodes)), nil
	}

	children := []*ast.Node{ident, lparen}
	if len(interior) > 0 {
		start := 0
		for j := 0; j <= len(interior); j++ {
			if j < len(interior) && !interior[j].Is(token.Split) {
				continue
			}
			arg := interior[start:j]
			if len(arg) == 0 {
				at := rparen
				if j < len(interior) {
					at = interior[j]
				}
				return nil, p.errorAt(util.InvalidArgumentList, li, at, "empty argument in call to %q", ident.Tok.Text)
			}
			for _, n := range arg {
				if !isArithmetic(n) {
					return nil, p.errorAt(util.InvalidArgumentList, li, n, "%q is not a valid argument", n.String())
				}
			}
			grouped, err := p.coalesceRuns(li, clone(arg), 0, len(arg), 2)
			if err != nil {
				return nil, err
			}
			children = append(children, grouped...)
			if j < len(interior) {
				children = append(children, interior[j])
			}
			start = j + 1
		}
	}
	children = append(children, rparen)
	return ast.NewGroup(ast.FunctionCall, children), nil
}

// calculation validates the bracket pair at [s, e] and widens it over the
// arithmetic run flanking it. It returns the inclusive span to coalesce.
func (p *Parser) calculation(li int, line []*ast.Node, s, e int) (int, int, error) {
	interior := line[s+1 : e]
	if len(interior) == 0 {
		return 0, 0, p.errorAt(util.InvalidCalculation, li, line[s], "empty brackets")
	}
	if err := p.checkRun(li, interior); err != nil {
		return 0, 0, err
	}

	from, to := s, e
	for from > 0 && isRunMember(line, from-1) {
		from--
	}
	for to+1 < len(line) && isRunMember(line, to+1) {
		to++
	}

	units := append(clone(line[from:s]), ast.NewGroup(ast.Calculation, nil))
	units = append(units, line[e+1:to+1]...)
	if err := p.checkRun(li, units); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

// coalesceRuns wraps every maximal arithmetic run of at least least nodes in
// line[from:to] into a Calculation group.
func (p *Parser) coalesceRuns(li int, line []*ast.Node, from, to, least int) ([]*ast.Node, error) {
	for j := from; j < to; {
		if !isRunMember(line, j) {
			j++
			continue
		}
		end := j
		for end < to && isRunMember(line, end) {
			end++
		}
		if end-j < least {
			j = end
			continue
		}
		run := line[j:end]
		if err := p.checkRun(li, run); err != nil {
			return nil, err
		}
		line = splice(line, j, end, ast.NewGroup(ast.Calculation, clone(run)))
		to -= end - j - 1
		j++
	}
	return line, nil
}

// checkRun requires operands at both ends and never two operators in a row.
func (p *Parser) checkRun(li int, run []*ast.Node) error {
	for j, n := range run {
		if !isOperator(n) {
			continue
		}
		if j == 0 {
			return p.errorAt(util.InvalidCalculation, li, n, "'%s' has no left operand", n.Tok.Text)
		}
		if j == len(run)-1 {
			return p.errorAt(util.InvalidCalculation, li, n, "'%s' has no right operand", n.Tok.Text)
		}
		if isOperator(run[j+1]) {
			return p.errorAt(util.InvalidCalculation, li, run[j+1], "unexpected '%s' after '%s'", run[j+1].Tok.Text, n.Tok.Text)
		}
	}
	return nil
}

func isOperator(n *ast.Node) bool {
	return n.Is(token.MathOperator) || n.Is(token.ComparativeOperator) || n.Is(token.Operator)
}

func isOperand(n *ast.Node) bool {
	switch n.Kind {
	case ast.Leaf:
		return n.Tok.Kind == token.Value || n.Tok.Kind == token.Identifier
	case ast.Calculation, ast.FunctionCall:
		return true
	}
	return false
}

func isArithmetic(n *ast.Node) bool { return isOperand(n) || isOperator(n) }

// isRunMember is isArithmetic, except that an identifier directly in front
// of a still unresolved bracket belongs to that call, not to the run.
func isRunMember(line []*ast.Node, j int) bool {
	n := line[j]
	if !isArithmetic(n) {
		return false
	}
	if n.Is(token.Identifier) && j+1 < len(line) && line[j+1].IsLeaf() && line[j+1].Tok.IsOpen() {
		return false
	}
	return true
}

func splice(line []*ast.Node, from, to int, n *ast.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(line)-(to-from)+1)
	out = append(out, line[:from]...)
	out = append(out, n)
	return append(out, line[to:]...)
}

func clone(nodes []*ast.Node) []*ast.Node {
	return append([]*ast.Node(nil), nodes...)
}
