package check

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/xplshn/honeyc/pkg/ast"
	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/lexer"
	"github.com/xplshn/honeyc/pkg/parser"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

func program(t *testing.T, src string, cfg *config.Config) *ast.Program {
	t.Helper()
	toks, err := lexer.Tokenize(src, token.HoneyCSyntax(), nil, cfg)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	prog, err := parser.Parse(toks, cfg)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func messages(ws []Warning) []string {
	var out []string
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"clean", "let x = 1;\nx += 2;\nprint(x, pi);", nil},
		{"undeclared", "y = 1;", []string{"1:1: 'y' is used before any declaration"}},
		{"self reference", "let x = x;", []string{"1:9: 'x' is used before any declaration"}},
		{"free name in body", "func f(a) {\nreturn a + b;\n}", []string{"2:12: 'b' is used before any declaration"}},
		{"parameter out of scope", "func f(a) {\n}\nlet y = a;", []string{"3:9: 'a' is used before any declaration"}},
		{"enum members", "enum C {\nred, green;\n}\nlet x = red;", nil},
		{"member root", "import std.io;\nstd.io.write(1);", nil},
		{"this outside", "this.x = 1;", []string{"1:1: 'this' outside a function or object body"}},
		{"this inside", "object P {\nfunc grow(n) {\nthis.size += n;\n}\n}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			ws, err := Check(program(t, tt.src, cfg), nil, cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("Check(%q): %v", tt.src, err)
			}
			if diff := cmp.Diff(tt.want, messages(ws)); diff != "" {
				t.Errorf("Check(%q) warnings mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestShadow(t *testing.T) {
	src := "let x = 1;\nif x {\nlet x = 2;\n}"
	cfg := config.NewConfig()
	ws, err := Check(program(t, src, cfg), nil, cfg, zerolog.Nop())
	if err != nil || len(ws) != 0 {
		t.Fatalf("shadow warning off: %v, %v", ws, err)
	}

	cfg.SetWarning(config.WarnShadow, true)
	ws, err = Check(program(t, src, cfg), nil, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"3:5: 'x' hides the variable declared on line 1"}
	if diff := cmp.Diff(want, messages(ws)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if ws[0].Kind != config.WarnShadow {
		t.Errorf("kind = %v, want WarnShadow", ws[0].Kind)
	}
}

func TestUndeclaredDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnUndeclared, false)
	ws, err := Check(program(t, "y = z;", cfg), nil, cfg, zerolog.Nop())
	if err != nil || len(ws) != 0 {
		t.Errorf("got %v, %v", ws, err)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
		line int
	}{
		{"let x = 1;\nlet x = 2;", util.ErrRedefinition, 1},
		{"func f(a, a) {\n}", util.ErrRedefinition, 0},
		{"func f() {\n}\nobject f {\n}", util.ErrRedefinition, 2},
		{"return 1;", util.ErrMisplacedStatement, 0},
		{"if 1 {\nreturn;\n}", util.ErrMisplacedStatement, 1},
		{"red, green;", util.ErrMisplacedStatement, 0},
		{"enum C {\nred, red;\n}", util.ErrRedefinition, 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			cfg := config.NewConfig()
			_, err := Check(program(t, tt.src, cfg), nil, cfg, zerolog.Nop())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Check(%q) = %v, want %v", tt.src, err, tt.want)
			}
			var e *util.Error
			if errors.As(err, &e) && e.LineIndex != tt.line {
				t.Errorf("statement = %d, want %d", e.LineIndex, tt.line)
			}
		})
	}
}

func TestSample(t *testing.T) {
	src, err := os.ReadFile("../../testdata/sample.hc")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.NewConfig()
	ws, err := Check(program(t, string(src), cfg), nil, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 0 {
		t.Errorf("unexpected warnings %q", messages(ws))
	}
}
