package markup

import (
	"errors"
	"fmt"
)

// ErrMalformed matches every *MalformedMarkupError with errors.Is.
var ErrMalformed = errors.New("malformed markup")

// MalformedMarkupError reports where markup stops being well-formed. Line is
// 1-based, Column is a 0-based rune offset into that line of the visible text.
type MalformedMarkupError struct {
	Issue  string
	Line   int
	Column int
}

func (e *MalformedMarkupError) Error() string {
	return fmt.Sprintf("%s: line %d column %d", e.Issue, e.Line, e.Column)
}

func (e *MalformedMarkupError) Unwrap() error { return ErrMalformed }

// fromSyntax maps a tokenizer position inside prefix+text+suffix back onto
// text. Only the first line carries the prefix.
func fromSyntax(err error, prefix string) error {
	var se *syntaxError
	if !errors.As(err, &se) {
		return err
	}
	col := se.col
	if se.line == 1 {
		col -= len([]rune(prefix))
		if col < 0 {
			col = 0
		}
	}
	return &MalformedMarkupError{Issue: se.issue, Line: se.line, Column: col}
}
