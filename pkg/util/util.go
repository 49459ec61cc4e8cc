package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xplshn/honeyc/pkg/token"
)

// Code classifies a failure of any pipeline stage.
type Code int

const (
	InvalidToken Code = iota + 1
	UnmatchedBracket
	MissingTerminator
	UnmatchedCloseBrace
	UnmatchedOpenBrace
	InvalidArgumentList
	InvalidCalculation
	UnknownStatement
	MissingFunctionArgument
	InvalidFunctionArgument
	MissingOperatorOperand
	InvalidOperatorOperand
	EmptyResult
	Unreduced
	InvalidName
	NameProtected
	UndefinedVariable
	LimitExceeded
	Redefinition
	MisplacedStatement
)

var codeNames = map[Code]string{
	InvalidToken:            "invalid token",
	UnmatchedBracket:        "unmatched bracket",
	MissingTerminator:       "missing terminator",
	UnmatchedCloseBrace:     "unmatched '}'",
	UnmatchedOpenBrace:      "unmatched '{'",
	InvalidArgumentList:     "invalid argument list",
	InvalidCalculation:      "invalid calculation",
	UnknownStatement:        "unknown statement",
	MissingFunctionArgument: "missing function argument",
	InvalidFunctionArgument: "invalid function argument",
	MissingOperatorOperand:  "missing operator operand",
	InvalidOperatorOperand:  "invalid operator operand",
	EmptyResult:             "empty result",
	Unreduced:               "expression did not reduce to a value",
	InvalidName:             "invalid name",
	NameProtected:           "name protected",
	UndefinedVariable:       "undefined variable",
	LimitExceeded:           "limit exceeded",
	Redefinition:            "redefinition",
	MisplacedStatement:      "misplaced statement",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is the structured failure returned by every stage. Positions are
// zero-based rune offsets; Line and Column are one-based and zero when
// unknown. LineIndex and TokenIndex locate parser failures and are -1 when
// not applicable.
type Error struct {
	Code       Code
	Text       string
	Msg        string
	Pos        int
	Len        int
	Line       int
	Column     int
	LineIndex  int
	TokenIndex int
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	switch {
	case e.Line > 0:
		fmt.Fprintf(&sb, " (line %d, column %d)", e.Line, e.Column)
	case e.Pos >= 0 && e.Len > 0:
		fmt.Fprintf(&sb, " (position %d)", e.Pos)
	}
	if e.LineIndex >= 0 {
		fmt.Fprintf(&sb, " [statement %d", e.LineIndex)
		if e.TokenIndex >= 0 {
			fmt.Fprintf(&sb, ", token %d", e.TokenIndex)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

// Is matches any *Error carrying the same Code, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func sentinel(c Code) *Error { return &Error{Code: c, Pos: -1, LineIndex: -1, TokenIndex: -1} }

var (
	ErrInvalidToken            = sentinel(InvalidToken)
	ErrUnmatchedBracket        = sentinel(UnmatchedBracket)
	ErrMissingTerminator       = sentinel(MissingTerminator)
	ErrUnmatchedCloseBrace     = sentinel(UnmatchedCloseBrace)
	ErrUnmatchedOpenBrace      = sentinel(UnmatchedOpenBrace)
	ErrInvalidArgumentList     = sentinel(InvalidArgumentList)
	ErrInvalidCalculation      = sentinel(InvalidCalculation)
	ErrUnknownStatement        = sentinel(UnknownStatement)
	ErrMissingFunctionArgument = sentinel(MissingFunctionArgument)
	ErrInvalidFunctionArgument = sentinel(InvalidFunctionArgument)
	ErrMissingOperatorOperand  = sentinel(MissingOperatorOperand)
	ErrInvalidOperatorOperand  = sentinel(InvalidOperatorOperand)
	ErrEmptyResult             = sentinel(EmptyResult)
	ErrUnreduced               = sentinel(Unreduced)
	ErrInvalidName             = sentinel(InvalidName)
	ErrNameProtected           = sentinel(NameProtected)
	ErrUndefinedVariable       = sentinel(UndefinedVariable)
	ErrLimitExceeded           = sentinel(LimitExceeded)
	ErrRedefinition            = sentinel(Redefinition)
	ErrMisplacedStatement      = sentinel(MisplacedStatement)
)

// Errorf builds an Error without a source location.
func Errorf(code Code, format string, args ...interface{}) *Error {
	e := sentinel(code)
	e.Msg = fmt.Sprintf(format, args...)
	return e
}

// At builds an Error located at tok.
func At(code Code, tok token.Token, format string, args ...interface{}) *Error {
	e := Errorf(code, format, args...)
	e.Text = tok.Text
	e.Pos, e.Len = tok.Pos, tok.Len
	e.Line, e.Column = tok.Line, tok.Column
	return e
}

// CodeOf returns the Code of err, or 0 when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
