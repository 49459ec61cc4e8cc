package eval

import (
	"strings"

	"github.com/xplshn/honeyc/pkg/token"
)

// handle addresses a cell for its whole lifetime; removing or inserting
// cells never changes the handle of any other cell.
type handle int32

const nilHandle handle = -1

type cell struct {
	tok        token.Token
	prev, next handle
	dead       bool
}

// arena is a doubly linked token sequence backed by a slice.
type arena struct {
	cells      []cell
	head, tail handle
	live       int
}

func newArena(toks []token.Token) *arena {
	a := &arena{cells: make([]cell, 0, len(toks)*2), head: nilHandle, tail: nilHandle}
	for _, t := range toks {
		a.insertAfter(a.tail, t)
	}
	return a
}

func (a *arena) tok(h handle) *token.Token { return &a.cells[h].tok }

func (a *arena) next(h handle) handle { return a.cells[h].next }

func (a *arena) prev(h handle) handle { return a.cells[h].prev }

// insertAfter links tok after h; nilHandle inserts at the front.
func (a *arena) insertAfter(h handle, tok token.Token) handle {
	n := handle(len(a.cells))
	c := cell{tok: tok, prev: h, next: nilHandle}
	if h == nilHandle {
		c.next = a.head
	} else {
		c.next = a.cells[h].next
	}
	a.cells = append(a.cells, c)

	if c.prev == nilHandle {
		a.head = n
	} else {
		a.cells[c.prev].next = n
	}
	if c.next == nilHandle {
		a.tail = n
	} else {
		a.cells[c.next].prev = n
	}
	a.live++
	return n
}

func (a *arena) remove(h handle) {
	c := &a.cells[h]
	if c.dead {
		return
	}
	if c.prev == nilHandle {
		a.head = c.next
	} else {
		a.cells[c.prev].next = c.next
	}
	if c.next == nilHandle {
		a.tail = c.prev
	} else {
		a.cells[c.next].prev = c.prev
	}
	c.dead = true
	a.live--
}

// tokens returns the live tokens in order.
func (a *arena) tokens() []token.Token {
	out := make([]token.Token, 0, a.live)
	for h := a.head; h != nilHandle; h = a.next(h) {
		out = append(out, a.cells[h].tok)
	}
	return out
}

func (a *arena) String() string {
	var sb strings.Builder
	for h := a.head; h != nilHandle; h = a.next(h) {
		if h != a.head {
			sb.WriteByte(' ')
		}
		sb.WriteString(a.cells[h].tok.Spelling())
	}
	return sb.String()
}
