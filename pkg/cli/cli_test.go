package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type parsed struct {
	Expr   string
	Inter  bool
	Count  int
	Files  []string
	Groups []string
	Args   []string
}

func newTestSet(p *parsed) *FlagSet {
	fs := NewFlagSet("test")
	fs.String(&p.Expr, "eval", "e", "", "Evaluate an expression.", "expr")
	fs.Bool(&p.Inter, "interactive", "i", false, "Interactive mode.")
	fs.Int(&p.Count, "jobs", "j", 1, "Workers.", "n")
	fs.List(&p.Files, "include", "I", "Include a file.", "file")
	fs.Group(&p.Groups, "Features", "F", "feature", []GroupEntry{{Name: "strict", Enabled: true}})
	fs.Group(&p.Groups, "Warnings", "W", "warning", []GroupEntry{{Name: "div-zero"}})
	return fs
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want parsed
	}{
		{"defaults", nil, parsed{Count: 1}},
		{"long", []string{"--eval", "1+2", "--interactive"}, parsed{Expr: "1+2", Inter: true, Count: 1}},
		{"equals", []string{"--eval=x=5", "-jobs=4"}, parsed{Expr: "x=5", Count: 4}},
		{"shorthand", []string{"-e", "2", "-i", "-j", "8"}, parsed{Expr: "2", Inter: true, Count: 8}},
		{"attached", []string{"-e2+3", "-j3"}, parsed{Expr: "2+3", Count: 3}},
		{"list", []string{"-I", "a", "--include", "b"}, parsed{Count: 1, Files: []string{"a", "b"}}},
		{"groups", []string{"-Fno-strict", "-Wall", "-Wdiv-zero"}, parsed{Count: 1, Groups: []string{"Fno-strict", "Wall", "Wdiv-zero"}}},
		{"positional", []string{"a.hc", "-i", "b.hc"}, parsed{Inter: true, Count: 1, Args: []string{"a.hc", "b.hc"}}},
		{"terminator", []string{"-i", "--", "-e", "x"}, parsed{Inter: true, Count: 1, Args: []string{"-e", "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got parsed
			fs := newTestSet(&got)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse(%q): %v", tt.args, err)
			}
			got.Args = fs.Args()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.args, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--nope"}, "unknown flag: --nope"},
		{[]string{"-ix"}, "unknown flag: -ix"},
		{[]string{"--eval"}, "flag needs an argument: --eval"},
		{[]string{"-j", "many"}, "invalid number 'many'"},
		{[]string{"--interactive=maybe"}, "invalid boolean value 'maybe'"},
	}
	for _, tt := range tests {
		var p parsed
		err := newTestSet(&p).Parse(tt.args)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Parse(%q) = %v, want error containing %q", tt.args, err, tt.want)
		}
	}
}

func TestAppRun(t *testing.T) {
	var out, errOut bytes.Buffer
	var p parsed
	app := NewApp("calc")
	app.FlagSet = newTestSet(&p)
	app.Stdout, app.Stderr = &out, &errOut
	var gotArgs []string
	app.Action = func(args []string) error {
		gotArgs = args
		return nil
	}

	if err := app.Run([]string{"-i", "file.hc"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"file.hc"}, gotArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	app = NewApp("calc")
	app.Stdout, app.Stderr = &out, &errOut
	if err := app.Run([]string{"--bogus"}); err == nil {
		t.Fatal("Run(--bogus) succeeded")
	}
	if !strings.Contains(errOut.String(), "Run 'calc --help'") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestWriteHelp(t *testing.T) {
	var p parsed
	app := NewApp("calc")
	app.Synopsis = "[options] <file>"
	app.Description = "Evaluates expressions."
	app.FlagSet = newTestSet(&p)

	var buf bytes.Buffer
	app.WriteHelp(&buf, 80)
	help := buf.String()
	for _, want := range []string{
		"    Synopsis\n        calc [options] <file>\n",
		"    Description\n        Evaluates expressions.\n",
		"-e <expr>, --eval <expr>",
		"-i, --interactive",
		"|1|",
		"    Features\n",
		"-Fno-<feature>",
		"    Warnings\n",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help does not contain %q:\n%s", want, help)
		}
	}
	if !strings.Contains(help, "|x|") || !strings.Contains(help, "|-|") {
		t.Errorf("help is missing group state markers:\n%s", help)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four"}, got); diff != "" {
		t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
	}
	if got := wrapText("   ", 10); got != nil {
		t.Errorf("wrapText of blanks = %q", got)
	}
}
