package util

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type Color int

const (
	Plain Color = iota
	Red
	Green
	Yellow
	Cyan
	Bold
)

var ansi = map[Color]string{
	Red:    "\033[31m",
	Green:  "\033[32m",
	Yellow: "\033[33m",
	Cyan:   "\033[36m",
	Bold:   "\033[1m",
}

// Segment is a run of text with one colour.
type Segment struct {
	Text  string
	Color Color
}

// Line is one display line handed to whatever shows results to the user.
type Line []Segment

func Text(s string) Line                  { return Line{{Text: s}} }
func Colored(c Color, s string) Line      { return Line{{Text: s, Color: c}} }
func (l Line) Add(c Color, s string) Line { return append(l, Segment{Text: s, Color: c}) }

func (l Line) String() string {
	var sb strings.Builder
	for _, seg := range l {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// Render writes lines to w, with ANSI colours when color is set.
func Render(w io.Writer, lines []Line, color bool) error {
	for _, l := range lines {
		var sb strings.Builder
		for _, seg := range l {
			if code, ok := ansi[seg.Color]; ok && color {
				sb.WriteString(code)
				sb.WriteString(seg.Text)
				sb.WriteString("\033[0m")
			} else {
				sb.WriteString(seg.Text)
			}
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// SourceFileRecord tracks the name and content of a single source.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Diagnose formats err against its source: a header line, then the
// offending source line with a caret under the failing span.
func Diagnose(src SourceFileRecord, err error) []Line {
	var e *Error
	if !errors.As(err, &e) {
		return []Line{Colored(Red, "error: ").Add(Plain, err.Error())}
	}

	line, col := e.Line, e.Column
	if line == 0 && e.Pos >= 0 {
		line, col = locate(src.Content, e.Pos)
	}
	header := Text(fmt.Sprintf("%s:%d:%d: ", src.Name, line, col)).
		Add(Red, "error: ").
		Add(Plain, e.Error())
	out := []Line{header}
	if line == 0 || e.Pos < 0 {
		return out
	}

	content := src.Content
	lineStart := 0
	for i, n := 0, line; i < len(content) && n > 1; i++ {
		if content[i] == '\n' {
			n--
			lineStart = i + 1
		}
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	out = append(out, Text("  "+string(content[lineStart:lineEnd])))

	caret := "^"
	if e.Len > 1 {
		caret += strings.Repeat("~", e.Len-1)
	}
	pad := col - 1
	if pad < 0 {
		pad = 0
	}
	out = append(out, Text("  "+strings.Repeat(" ", pad)).Add(Green, caret))
	return out
}

func locate(content []rune, pos int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < pos && i < len(content); i++ {
		if content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
