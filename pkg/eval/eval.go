// Package eval reduces calculator expressions layer by layer, innermost
// brackets first.
package eval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/lexer"
	"github.com/xplshn/honeyc/pkg/symbols"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

// Session evaluates expressions against one symbol table. Evaluate may be
// called from several goroutines; each call reads a stable snapshot of the
// variables.
type Session struct {
	table  *symbols.Table
	syntax *token.Syntax
	cfg    *config.Config
	log    zerolog.Logger
}

// NewSession binds table and cfg. The extra constants in cfg are defined on
// table, so it must not be shared yet. A nil table gets the defaults.
func NewSession(table *symbols.Table, cfg *config.Config, log zerolog.Logger) (*Session, error) {
	if table == nil {
		table = symbols.New()
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	names := make([]string, 0, len(cfg.Constants))
	for name := range cfg.Constants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := table.DefineConstant(name, cfg.Constants[name]); err != nil {
			return nil, fmt.Errorf("constant '%s': %w", name, err)
		}
	}
	return &Session{table: table, syntax: table.Syntax(), cfg: cfg, log: log}, nil
}

func (s *Session) Table() *symbols.Table { return s.table }

// Tokenize splits text into calculator tokens, resolving names against the
// current variables.
func (s *Session) Tokenize(text string) ([]token.Token, error) {
	return lexer.Tokenize(text, s.syntax, s.table.Snapshot(), s.cfg)
}

// Evaluate computes the value of text.
func (s *Session) Evaluate(text string) (float64, error) {
	toks, err := s.Tokenize(text)
	if err != nil {
		return 0, err
	}
	return s.Reduce(toks)
}

// Reduce evaluates an already tokenized expression.
func (s *Session) Reduce(toks []token.Token) (float64, error) {
	r := &reducer{a: newArena(toks), table: s.table, cfg: s.cfg, log: s.log}
	v, err := r.run()
	if err != nil {
		return 0, err
	}
	if s.cfg.IsWarningEnabled(config.WarnPrecision) && (math.IsInf(v, 0) || math.IsNaN(v)) {
		s.log.Warn().Float64("result", v).Msg("result is not finite")
	}
	return v, nil
}

// Assign validates name, evaluates expr and binds the result. Nothing is
// written when either step fails.
func (s *Session) Assign(name, expr string) error {
	name = strings.TrimSpace(name)
	if err := s.table.ValidateName(name); err != nil {
		return err
	}
	v, err := s.Evaluate(expr)
	if err != nil {
		return err
	}
	return s.table.Set(name, v)
}

func (s *Session) Unassign(name string) error {
	return s.table.Remove(strings.TrimSpace(name))
}

// Action says what Exec did.
type Action int

const (
	ActionEvaluate Action = iota
	ActionAssign
	ActionUnassign
)

// Result is the outcome of one Exec command.
type Result struct {
	Action Action
	Name   string
	Value  float64
}

func (r Result) String() string {
	switch r.Action {
	case ActionAssign:
		return fmt.Sprintf("%s = %s", r.Name, FormatNumber(r.Value))
	case ActionUnassign:
		return fmt.Sprintf("%s removed", r.Name)
	}
	return FormatNumber(r.Value)
}

// Exec runs one interactive command: "unset NAME", "NAME = EXPR" or a plain
// expression.
func (s *Session) Exec(command string) (Result, error) {
	command = strings.TrimSpace(command)
	if rest, ok := strings.CutPrefix(command, "unset "); ok {
		name := strings.TrimSpace(rest)
		if err := s.Unassign(name); err != nil {
			return Result{}, err
		}
		return Result{Action: ActionUnassign, Name: name}, nil
	}
	if name, expr, ok := strings.Cut(command, "="); ok {
		name = strings.TrimSpace(name)
		if err := s.Assign(name, expr); err != nil {
			return Result{}, err
		}
		v, _ := s.table.Variable(name)
		return Result{Action: ActionAssign, Name: name, Value: v}, nil
	}
	v, err := s.Evaluate(command)
	if err != nil {
		return Result{}, err
	}
	return Result{Action: ActionEvaluate, Value: v}, nil
}

// FormatNumber renders v the shortest way that reads back exactly.
func FormatNumber(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

type reducer struct {
	a     *arena
	table *symbols.Table
	cfg   *config.Config
	log   zerolog.Logger
}

func (r *reducer) trace(step string, layer int) {
	if r.cfg.IsFeatureEnabled(config.FeatTrace) {
		r.log.Debug().Str("step", step).Int("layer", layer).Str("tokens", r.a.String()).Msg("reduce")
	}
}

func (r *reducer) run() (float64, error) {
	if r.a.live == 0 {
		return 0, util.Errorf(util.EmptyResult, "nothing to evaluate")
	}

	top := 0
	for h := r.a.head; h != nilHandle; h = r.a.next(h) {
		top = max(top, r.a.tok(h).Layer)
	}

	for layer := top; layer > 0; layer-- {
		for h := r.a.head; h != nilHandle; {
			if !r.a.tok(h).IsOpen() || r.a.tok(h).Layer != layer-1 {
				h = r.a.next(h)
				continue
			}
			closer, err := r.segment(h, layer)
			if err != nil {
				return 0, err
			}
			h = r.a.next(closer)
			if err := r.collapse(closer, layer); err != nil {
				return 0, err
			}
		}
	}

	if err := r.reduce(nilHandle, nilHandle, 0); err != nil {
		return 0, err
	}
	switch {
	case r.a.live == 0:
		return 0, util.Errorf(util.EmptyResult, "expression reduced to nothing")
	case r.a.live > 1:
		return 0, util.At(util.Unreduced, *r.a.tok(r.a.head), "%q is left over", r.a.String())
	}
	last := r.a.tok(r.a.head)
	if last.Kind != token.Value {
		return 0, util.At(util.Unreduced, *last, "'%s' is not a value", last.Text)
	}
	return last.Num, nil
}

// segment reduces the cells between the bracket at open and its partner and
// returns the partner.
func (r *reducer) segment(open handle, layer int) (handle, error) {
	closer := r.a.next(open)
	for closer != nilHandle && !(r.a.tok(closer).IsClose() && r.a.tok(closer).Layer == layer-1) {
		closer = r.a.next(closer)
	}
	if closer == nilHandle {
		return nilHandle, util.At(util.UnmatchedBracket, *r.a.tok(open), "'%s' is never closed", r.a.tok(open).Text)
	}
	if r.a.next(open) == closer {
		return nilHandle, util.At(util.EmptyResult, *r.a.tok(open), "empty brackets")
	}
	return closer, r.reduce(open, closer, layer)
}

// collapse drops the bracket pair around the single value left between
// them and promotes it one layer, multiplying it into a neighbouring value.
// A negated bracket negates the value.
func (r *reducer) collapse(closer handle, layer int) error {
	v := r.a.prev(closer)
	open := r.a.prev(v)
	if open == nilHandle || !r.a.tok(open).IsOpen() {
		return util.At(util.Unreduced, *r.a.tok(v), "bracket did not reduce to a single value")
	}
	vt := r.a.tok(v)
	if r.a.tok(open).Neg {
		vt.Num = -vt.Num
		vt.Text = FormatNumber(vt.Num)
	}
	r.a.remove(open)
	r.a.remove(closer)
	vt.Layer = layer - 1
	r.trace("collapse", layer)

	if !r.cfg.IsFeatureEnabled(config.FeatImplicitMul) {
		return nil
	}
	if p := r.a.prev(v); p != nilHandle && r.isValue(p, layer-1) {
		r.multiplyAfter(p)
	}
	if n := r.a.next(v); n != nilHandle && r.isValue(n, layer-1) {
		r.multiplyAfter(v)
	}
	return nil
}

// reduce runs implicit multiplication, function application and operators
// over the cells strictly between from and to (nilHandle meaning the ends).
func (r *reducer) reduce(from, to handle, layer int) error {
	r.implicit(from, to, layer)
	if err := r.functions(from, to, layer); err != nil {
		return err
	}
	r.implicit(from, to, layer)
	if err := r.operators(from, to, layer); err != nil {
		return err
	}
	if r.first(from) == to {
		return util.Errorf(util.EmptyResult, "segment reduced to nothing")
	}
	return nil
}

func (r *reducer) first(from handle) handle {
	if from == nilHandle {
		return r.a.head
	}
	return r.a.next(from)
}

func (r *reducer) isValue(h handle, layer int) bool {
	t := r.a.tok(h)
	return t.Kind == token.Value && t.Layer == layer
}

func (r *reducer) multiplyAfter(h handle) {
	t := *r.a.tok(h)
	r.a.insertAfter(h, token.Token{Kind: token.Operator, Text: "*", Pos: t.Pos + t.Len, Line: t.Line, Column: t.Column + t.Len, Layer: t.Layer})
}

func (r *reducer) implicit(from, end handle, layer int) {
	if !r.cfg.IsFeatureEnabled(config.FeatImplicitMul) {
		return
	}
	inserted := false
	for h := r.first(from); h != end && h != nilHandle; h = r.a.next(h) {
		n := r.a.next(h)
		if n != end && n != nilHandle && r.isValue(h, layer) && r.isValue(n, layer) {
			r.multiplyAfter(h)
			inserted = true
		}
	}
	if inserted {
		r.trace("implicit-mul", layer)
	}
}

// functions applies every function to the value right after it, innermost
// (rightmost) first so that "sqrt sqrt 16" works.
func (r *reducer) functions(from, end handle, layer int) error {
	var fns []handle
	for h := r.first(from); h != end && h != nilHandle; h = r.a.next(h) {
		if r.a.tok(h).Kind == token.Function && r.a.tok(h).Layer == layer {
			fns = append(fns, h)
		}
	}
	for i := len(fns) - 1; i >= 0; i-- {
		h := fns[i]
		ft := *r.a.tok(h)
		arg := r.a.next(h)
		if arg == end || arg == nilHandle {
			return util.At(util.MissingFunctionArgument, ft, "'%s' needs an argument", ft.Text)
		}
		if !r.isValue(arg, layer) {
			return util.At(util.InvalidFunctionArgument, *r.a.tok(arg), "'%s' cannot be applied to '%s'", ft.Text, r.a.tok(arg).Text)
		}
		fn, ok := r.table.Function(ft.Text)
		if !ok {
			return util.At(util.InvalidToken, ft, "unknown function '%s'", ft.Text)
		}
		at := r.a.tok(arg)
		at.Num = fn(at.Num)
		if ft.Neg {
			at.Num = -at.Num
		}
		at.Text = FormatNumber(at.Num)
		r.a.remove(h)
	}
	if len(fns) > 0 {
		r.trace("functions", layer)
	}
	return nil
}

func (r *reducer) operators(from, end handle, layer int) error {
	type pending struct {
		h  handle
		op symbols.Operator
	}
	var ops []pending
	for h := r.first(from); h != end && h != nilHandle; h = r.a.next(h) {
		t := r.a.tok(h)
		if t.Layer != layer || (t.Kind != token.Operator && t.Kind != token.MathOperator) {
			continue
		}
		op, ok := r.table.Operator(t.Text)
		if !ok {
			return util.At(util.InvalidToken, *t, "unknown operator '%s'", t.Text)
		}
		ops = append(ops, pending{h, op})
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].op.Priority > ops[j].op.Priority })

	for _, p := range ops {
		ot := *r.a.tok(p.h)
		left, right := r.a.prev(p.h), r.a.next(p.h)
		if left == nilHandle || left == from || right == nilHandle || right == end {
			return util.At(util.MissingOperatorOperand, ot, "'%s' needs two operands", ot.Text)
		}
		if !r.isValue(left, layer) {
			return util.At(util.InvalidOperatorOperand, *r.a.tok(left), "'%s' is not a valid left operand of '%s'", r.a.tok(left).Text, ot.Text)
		}
		if !r.isValue(right, layer) {
			return util.At(util.InvalidOperatorOperand, *r.a.tok(right), "'%s' is not a valid right operand of '%s'", r.a.tok(right).Text, ot.Text)
		}

		lt, rt := r.a.tok(left), r.a.tok(right)
		if rt.Num == 0 && r.cfg.IsWarningEnabled(config.WarnDivZero) && (ot.Text == "/" || ot.Text == "//" || ot.Text == "%") {
			r.log.Warn().Int("pos", ot.Pos).Str("op", ot.Text).Msg("division by zero")
		}
		lt.Num = p.op.Apply(lt.Num, rt.Num)
		lt.Text = FormatNumber(lt.Num)
		lt.Len = rt.Pos + rt.Len - lt.Pos
		r.a.remove(p.h)
		r.a.remove(right)
	}
	if len(ops) > 0 {
		r.trace("operators", layer)
	}
	return nil
}
