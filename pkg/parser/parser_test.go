package parser

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/xplshn/honeyc/pkg/ast"
	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/lexer"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

func parse(t *testing.T, src string, cfg *config.Config) (*ast.Program, error) {
	t.Helper()
	toks, err := lexer.Tokenize(src, token.HoneyCSyntax(), nil, cfg)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	return Parse(toks, cfg)
}

func kinds(p *ast.Program) []ast.Kind {
	out := make([]ast.Kind, len(p.Lines))
	for i, l := range p.Lines {
		out[i] = l.Kind
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []ast.Kind
	}{
		{"let", "let x = 5 ;", []ast.Kind{ast.Assignment}},
		{"declare", "let x;", []ast.Kind{ast.Assignment}},
		{"compound assign", "x += 2 * y;", []ast.Kind{ast.Assignment}},
		{"call", "foo ( 1 , 2 ) ;", []ast.Kind{ast.FunctionCall}},
		{"nested call", "print(sqrt(4) + 1);", []ast.Kind{ast.FunctionCall}},
		{"condition", "if x {\n}", []ast.Kind{ast.Condition, ast.LineLoopEnd}},
		{"loop", "while i < 10 {\ni += 1;\n}", []ast.Kind{ast.Loop, ast.Assignment, ast.LineLoopEnd}},
		{"function", "func add(a, b) {\nreturn a + b;\n}", []ast.Kind{ast.Function, ast.Return, ast.LineLoopEnd}},
		{"bare return", "func f() {\nreturn;\n}", []ast.Kind{ast.Function, ast.Return, ast.LineLoopEnd}},
		{"object", "object Point {\n}", []ast.Kind{ast.Object, ast.LineLoopEnd}},
		{"enum", "enum Color {\nred, green;\n}", []ast.Kind{ast.Enum, ast.Enum, ast.LineLoopEnd}},
		{"import", "import io;", []ast.Kind{ast.Import}},
		{"empty statements", ";; x = 1;;", []ast.Kind{ast.Assignment}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := parse(t, tt.src, config.NewConfig())
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}
			if diff := cmp.Diff(tt.want, kinds(prog)); diff != "" {
				t.Errorf("Parse(%q) kinds mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestGrouping(t *testing.T) {
	tests := []struct {
		src  string
		want []string // rendering of each child of the first statement
	}{
		{"x = 1 + 2;", []string{"x", "=", "1 + 2", ";"}},
		{"x = (1 + 2) * 3;", []string{"x", "=", "( 1 + 2 ) * 3", ";"}},
		{"x = a * (b + c);", []string{"x", "=", "a * ( b + c )", ";"}},
		{"foo(1 + 2, y);", []string{"foo ( 1 + 2 , y )", ";"}},
		{"this.size += 1;", []string{"this.size", "+=", "1", ";"}},
		{"if (a > 1) {\n}", []string{"if", "( a > 1 )", "{"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog, err := parse(t, tt.src, config.NewConfig())
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}
			var got []string
			for _, c := range prog.Lines[0].Children {
				got = append(got, c.String())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestCallArguments(t *testing.T) {
	prog, err := parse(t, "print(sqrt(4) + 1, 2);", config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	call := prog.Lines[0].Children[0]
	if call.Kind != ast.FunctionCall {
		t.Fatalf("got %s, want FunctionCall", call.Kind)
	}
	var got []ast.Kind
	for _, c := range call.Children {
		got = append(got, c.Kind)
	}
	want := []ast.Kind{ast.Leaf, ast.Leaf, ast.Calculation, ast.Leaf, ast.Leaf, ast.Leaf}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("call children mismatch (-want +got):\n%s", diff)
	}
	if inner := call.Children[2].Children[0]; inner.Kind != ast.FunctionCall || inner.String() != "sqrt ( 4 )" {
		t.Errorf("inner call = %s %q", inner.Kind, inner.String())
	}
}

func TestMemberMergeDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatMemberMerge, false)
	cfg.SetFeature(config.FeatStrict, false)
	prog, err := parse(t, "this.size += 1;", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if prog.Lines[0].Kind != ast.None {
		t.Errorf("got %s, want None", prog.Lines[0].Kind)
	}
}

func TestScopes(t *testing.T) {
	prog, err := parse(t, "if a {\nwhile b {\nc = 1;\n}\n}", config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []ast.ScopePair{{Start: 1, End: 3}, {Start: 0, End: 4}}
	if diff := cmp.Diff(want, prog.Scopes); diff != "" {
		t.Errorf("scopes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"x = 1", util.ErrMissingTerminator},
		{"if x { y = 1 }", util.ErrMissingTerminator},
		{"if x {", util.ErrUnmatchedOpenBrace},
		{"}", util.ErrUnmatchedCloseBrace},
		{"x;", util.ErrUnknownStatement},
		{"x = 1 + ;", util.ErrInvalidCalculation},
		{"x = ();", util.ErrInvalidCalculation},
		{"x = (* 2);", util.ErrInvalidCalculation},
		{"x = 1 + * 2;", util.ErrInvalidCalculation},
		{"foo(1,,2);", util.ErrInvalidArgumentList},
		{"foo(1,);", util.ErrInvalidArgumentList},
		{"foo(x = 1);", util.ErrInvalidArgumentList},
		{"func f(a b) {\n}", util.ErrInvalidArgumentList},
		{"func f(a,) {\n}", util.ErrInvalidArgumentList},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parse(t, tt.src, config.NewConfig())
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.src, err, tt.want)
			}
		})
	}
}

func TestErrorLocation(t *testing.T) {
	_, err := parse(t, "a = 1;\nb = 2 + ;", config.NewConfig())
	var e *util.Error
	if !errors.As(err, &e) {
		t.Fatalf("got %v, want *util.Error", err)
	}
	if e.LineIndex != 1 || e.Line != 2 || e.Text != "+" || e.TokenIndex != 7 {
		t.Errorf("error at statement %d line %d token %d text %q", e.LineIndex, e.Line, e.TokenIndex, e.Text)
	}
}

func TestNonStrictWarns(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatStrict, false)
	toks, err := lexer.Tokenize("x;", token.HoneyCSyntax(), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	prog, err := NewParser(toks, cfg, zerolog.New(&buf)).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if prog.Lines[0].Kind != ast.None {
		t.Errorf("got %s, want None", prog.Lines[0].Kind)
	}
	if !strings.Contains(buf.String(), "unclassified statement") {
		t.Errorf("expected a warning, got %q", buf.String())
	}

	buf.Reset()
	cfg.SetWarning(config.WarnUnclassified, false)
	if _, err := NewParser(toks, cfg, zerolog.New(&buf)).Parse(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSample(t *testing.T) {
	src, err := os.ReadFile("../../testdata/sample.hc")
	if err != nil {
		t.Fatal(err)
	}
	prog, err := parse(t, string(src), config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []ast.Kind{
		ast.Import,
		ast.Assignment, ast.Assignment,
		ast.Function, ast.Assignment, ast.Return, ast.LineLoopEnd,
		ast.Enum, ast.Enum, ast.LineLoopEnd,
		ast.Condition, ast.FunctionCall, ast.LineLoopEnd,
		ast.Loop, ast.Assignment, ast.LineLoopEnd,
	}
	if diff := cmp.Diff(want, kinds(prog)); diff != "" {
		t.Errorf("sample kinds mismatch (-want +got):\n%s", diff)
	}
	scopes := []ast.ScopePair{{Start: 3, End: 6}, {Start: 7, End: 9}, {Start: 10, End: 12}, {Start: 13, End: 15}}
	if diff := cmp.Diff(scopes, prog.Scopes); diff != "" {
		t.Errorf("sample scopes mismatch (-want +got):\n%s", diff)
	}
}
