package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/honeyc/pkg/token"
)

func texts(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestArena(t *testing.T) {
	a := newArena([]token.Token{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	b := a.next(a.head)

	x := a.insertAfter(b, token.Token{Text: "x"})
	a.insertAfter(nilHandle, token.Token{Text: "front"})
	a.remove(b)
	a.remove(b)

	if diff := cmp.Diff([]string{"front", "a", "x", "c"}, texts(a.tokens())); diff != "" {
		t.Errorf("arena mismatch (-want +got):\n%s", diff)
	}
	if a.live != 4 {
		t.Errorf("live = %d, want 4", a.live)
	}
	if a.tok(x).Text != "x" || a.tok(a.next(x)).Text != "c" || a.tok(a.prev(x)).Text != "a" {
		t.Errorf("x is not linked between a and c: %s", a)
	}

	a.remove(a.tail)
	if got := a.tok(a.tail).Text; got != "x" {
		t.Errorf("tail = %q, want x", got)
	}
	if got := a.String(); got != "front a x" {
		t.Errorf("String() = %q", got)
	}
}

func TestArenaEmpty(t *testing.T) {
	a := newArena(nil)
	if a.head != nilHandle || a.tail != nilHandle || a.live != 0 {
		t.Errorf("empty arena = %+v", a)
	}
	h := a.insertAfter(nilHandle, token.Token{Text: "1"})
	if a.head != h || a.tail != h {
		t.Error("single cell is not both head and tail")
	}
}
