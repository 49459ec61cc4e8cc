package lexer

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

// Resolver turns identifiers into Value or Function tokens. A lexer without
// a resolver leaves identifiers unresolved.
type Resolver interface {
	Resolve(name string) (token.Kind, float64, bool)
}

type class int

const (
	classNone class = iota
	classValue
	classIdent
	classString
)

// Lexer grows a token construct one rune at a time and closes it off when
// the next rune would change its classification.
type Lexer struct {
	source   []rune
	pos      int
	line     int
	column   int
	syntax   *token.Syntax
	resolver Resolver
	cfg      *config.Config

	tokens []token.Token
	open   []token.Token
	negate bool // a unary '-' waits for the bracket it negates

	construct  []rune
	class      class
	startPos   int
	startLine  int
	startCol   int
	Directives []string
}

func NewLexer(source []rune, syntax *token.Syntax, resolver Resolver, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, line: 1, column: 1,
		syntax: syntax, resolver: resolver, cfg: cfg,
	}
}

// Tokenize runs a fresh lexer over text.
func Tokenize(text string, syntax *token.Syntax, resolver Resolver, cfg *config.Config) ([]token.Token, error) {
	return NewLexer([]rune(text), syntax, resolver, cfg).Tokenize()
}

func (l *Lexer) Tokenize() ([]token.Token, error) {
	for !l.isAtEnd() {
		c := l.peek()

		if len(l.construct) > 0 {
			if l.extends(c) {
				l.construct = append(l.construct, c)
				l.class = classify(l.construct, l.syntax.Strings)
				l.advance()
				continue
			}
			if l.class == classValue && c == '.' {
				bad := token.Token{Text: string(l.construct) + ".", Pos: l.startPos, Line: l.startLine, Column: l.startCol, Len: len(l.construct) + 1}
				return nil, util.At(util.InvalidToken, bad, "malformed number %q", bad.Text)
			}
			if err := l.flush(); err != nil {
				return nil, err
			}
		}

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
			continue
		case c == '#' && l.syntax.Comments:
			l.comment()
			continue
		case c == '"' && l.syntax.Strings,
			unicode.IsLetter(c), unicode.IsDigit(c),
			c == '.' && unicode.IsDigit(l.peekNext()):
			l.begin()
			continue
		}

		sym, kind, ok := l.syntax.Match(string(l.source[l.pos:]))
		if !ok {
			return nil, l.errorHere(util.InvalidToken, string(c), "unexpected character '%c'", c)
		}
		if sym == "-" && l.unaryAllowed() {
			next := l.peekNext()
			switch {
			case unicode.IsDigit(next) || unicode.IsLetter(next) || next == '.':
				l.begin()
				continue
			case next == '(' || next == '[':
				l.negate = true
				l.advance()
				continue
			}
		}
		if err := l.symbol(sym, kind); err != nil {
			return nil, err
		}
	}

	if len(l.construct) > 0 {
		if err := l.flush(); err != nil {
			return nil, err
		}
	}
	if len(l.open) > 0 {
		tok := l.open[len(l.open)-1]
		return nil, util.At(util.UnmatchedBracket, tok, "'%s' is never closed", tok.Text)
	}
	return l.tokens, nil
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) begin() {
	l.startPos, l.startLine, l.startCol = l.pos, l.line, l.column
	l.construct = append(l.construct[:0], l.advance())
	l.class = classify(l.construct, l.syntax.Strings)
}

// extends reports whether appending c keeps the construct's classification.
// An unclassified construct ("-", ".", "-.") may grow into a classified one.
func (l *Lexer) extends(c rune) bool {
	cand := append(l.construct[:len(l.construct):len(l.construct)], c)
	next := classify(cand, l.syntax.Strings)
	if next == classNone {
		return l.class == classNone && isPendingPrefix(cand)
	}
	return next == l.class || l.class == classNone
}

func (l *Lexer) unaryAllowed() bool {
	if !l.cfg.IsFeatureEnabled(config.FeatUnaryMinus) {
		return false
	}
	if len(l.tokens) == 0 {
		return true
	}
	prev := l.tokens[len(l.tokens)-1]
	switch prev.Kind {
	case token.Value, token.Identifier:
		return false
	case token.Nest:
		return !prev.IsClose()
	}
	return true
}

func (l *Lexer) comment() {
	start := l.pos
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	text := strings.TrimSpace(string(l.source[start+1 : l.pos]))
	if strings.HasPrefix(text, "[hc]:") {
		l.Directives = append(l.Directives, strings.TrimSpace(strings.TrimPrefix(text, "[hc]:")))
	}
}

func (l *Lexer) flush() error {
	text := string(l.construct)
	base := token.Token{Text: text, Pos: l.startPos, Line: l.startLine, Column: l.startCol, Len: len(l.construct)}
	cls := l.class
	l.construct = l.construct[:0]
	l.class = classNone

	switch cls {
	case classValue:
		num, ok := parseNumber(text)
		if !ok {
			return util.At(util.InvalidToken, base, "malformed number %q", text)
		}
		base.Kind, base.Num = token.Value, num
		return l.emit(base)
	case classString:
		if len(text) < 2 || !strings.HasSuffix(text, `"`) {
			return util.At(util.InvalidToken, base, "unterminated string literal")
		}
		base.Kind = token.Value
		return l.emit(base)
	case classIdent:
		return l.identifier(base)
	}

	if text == "-" {
		base.Kind = token.Operator
		if _, kind, ok := l.syntax.Match(text); ok {
			base.Kind = kind
		}
		return l.emit(base)
	}
	return util.At(util.InvalidToken, base, "cannot classify %q", text)
}

func (l *Lexer) identifier(base token.Token) error {
	name := strings.TrimPrefix(base.Text, "-")
	negative := name != base.Text

	if kind, ok := l.syntax.Keyword(name); ok && !negative {
		base.Kind = kind
		return l.emit(base)
	}

	kind, num := token.Identifier, 0.0
	if l.resolver != nil {
		k, n, ok := l.resolver.Resolve(name)
		if !ok {
			return util.At(util.InvalidToken, base, "undefined identifier %q", name)
		}
		kind, num = k, n
	}

	if kind == token.Value {
		if negative {
			num = -num
		}
		base.Kind, base.Num = token.Value, num
		return l.emit(base)
	}

	// Functions and unresolved names keep the sign as a flag; the value
	// they produce is negated.
	base.Kind, base.Text, base.Neg = kind, name, negative
	return l.emit(base)
}

func (l *Lexer) symbol(sym string, kind token.Kind) error {
	tok := token.Token{Kind: kind, Text: sym, Pos: l.pos, Line: l.line, Column: l.column, Len: len([]rune(sym))}
	for i := 0; i < tok.Len; i++ {
		l.advance()
	}

	switch {
	case tok.IsOpen():
		tok.Neg, l.negate = l.negate, false
		if err := l.emit(tok); err != nil {
			return err
		}
		l.open = append(l.open, tok)
		if limit := l.cfg.Limits.MaxDepth; limit > 0 && len(l.open) > limit {
			return util.At(util.LimitExceeded, tok, "bracket nesting deeper than %d", limit)
		}
		return nil
	case tok.IsClose():
		if len(l.open) == 0 {
			return util.At(util.UnmatchedBracket, tok, "'%s' has no matching opening bracket", sym)
		}
		top := l.open[len(l.open)-1]
		if token.Closer(top.Text) != sym {
			return util.At(util.UnmatchedBracket, tok, "'%s' closes '%s' opened at column %d", sym, top.Text, top.Column)
		}
		l.open = l.open[:len(l.open)-1]
		return l.emit(tok)
	}
	return l.emit(tok)
}

func (l *Lexer) emit(tok token.Token) error {
	tok.Layer = len(l.open)
	if limit := l.cfg.Limits.MaxTokens; limit > 0 && len(l.tokens) >= limit {
		return util.At(util.LimitExceeded, tok, "more than %d tokens", limit)
	}
	l.tokens = append(l.tokens, tok)
	return nil
}

func (l *Lexer) errorHere(code util.Code, text, format string, args ...interface{}) error {
	tok := token.Token{Text: text, Pos: l.pos, Line: l.line, Column: l.column, Len: 1}
	return util.At(code, tok, format, args...)
}

// classify reports what s currently reads as. A leading '-' is allowed on
// values and identifiers.
func classify(s []rune, strs bool) class {
	if len(s) == 0 {
		return classNone
	}
	if s[0] == '"' {
		if !strs {
			return classNone
		}
		for i := 1; i < len(s); i++ {
			if s[i] == '"' && i != len(s)-1 {
				return classNone
			}
		}
		return classString
	}

	body := s
	if body[0] == '-' {
		body = body[1:]
	}
	if len(body) == 0 {
		return classNone
	}
	if token.IsWord(string(body)) {
		return classIdent
	}
	hasDigit := false
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.':
		default:
			return classNone
		}
	}
	if !hasDigit {
		return classNone
	}
	if _, ok := parseNumber(string(s)); !ok {
		return classNone
	}
	return classValue
}

// parseNumber accepts literals beyond float64 range as ±Inf (or zero on
// underflow), the same IEEE behaviour arithmetic has.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return v, true
	}
	var ne *strconv.NumError
	if errors.As(err, &ne) && ne.Err == strconv.ErrRange {
		return v, true
	}
	return 0, false
}

func isPendingPrefix(s []rune) bool {
	switch string(s) {
	case "-", ".", "-.":
		return true
	}
	return false
}
