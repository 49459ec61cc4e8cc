package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/xplshn/honeyc/pkg/eval"
)

const replHelp = `Commands:
  <expr>          evaluate an expression
  <name> = <expr> bind a variable
  unset <name>    remove a variable
  vars            list variables
  funcs           list functions and constants
  ops             list operator and bracket symbols
  exit, quit      leave the session`

// repl reads commands from stdin until EOF or "exit". On a terminal the
// line editor from x/term is used.
func repl(sess *eval.Session, color bool) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		sc := bufio.NewScanner(os.Stdin)
		return replLoop(scanLines(sc), os.Stdout, os.Stderr, sess, false)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, "> ")
	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}
	return replLoop(t.ReadLine, t, t, sess, color)
}

func scanLines(sc *bufio.Scanner) func() (string, error) {
	return func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return sc.Text(), nil
	}
}

func replLoop(readLine func() (string, error), stdout, stderr io.Writer, sess *eval.Session, color bool) error {
	fmt.Fprintln(stdout, "honeyc calculator, 'help' for commands")
	for {
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch cmd := strings.TrimSpace(line); cmd {
		case "":
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(stdout, replHelp)
		case "vars":
			vars := sess.Table().Variables()
			for _, name := range sess.Table().Names("variables") {
				fmt.Fprintf(stdout, "%s = %s\n", name, eval.FormatNumber(vars[name]))
			}
		case "funcs":
			fmt.Fprintf(stdout, "functions: %s\n", strings.Join(sess.Table().Names("functions"), " "))
			fmt.Fprintf(stdout, "constants: %s\n", strings.Join(sess.Table().Names("constants"), " "))
		case "ops":
			fmt.Fprintf(stdout, "symbols: %s\n", strings.Join(sess.Table().Syntax().Symbols(), " "))
		default:
			runCommand(stdout, stderr, sess, cmd, color)
		}
	}
}
