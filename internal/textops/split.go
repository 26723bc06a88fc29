package textops

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kobzarvs/scedit/internal/markup"
)

var errInsideTag = errors.New("offset is inside a tag")

// SplitResult holds the two markup documents a section is split into.
type SplitResult struct {
	Head string
	Tail string
}

type SplitRejectedError struct {
	Offset int
	Err    error
}

func (e *SplitRejectedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot split the section at offset %d", e.Offset)
	}
	return fmt.Sprintf("cannot split the section at offset %d: %v", e.Offset, e.Err)
}

func (e *SplitRejectedError) Unwrap() error { return e.Err }

// SplitAt divides editable text at a rune offset. Elements open at the
// offset are closed at the end of the head and reopened at the start of the
// tail, so both halves stay well-formed.
func SplitAt(text string, offset int) (SplitResult, error) {
	at := byteOffset(text, offset)
	open, err := openElements(text, at)
	if err != nil {
		return SplitResult{}, &SplitRejectedError{Offset: offset, Err: err}
	}

	var closing, reopening strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		closing.WriteString("</" + open[i].Name + ">")
	}
	for _, tok := range open {
		reopening.WriteString(text[tok.Start:tok.End])
	}
	head := strings.Trim(text[:at]+closing.String(), " \n")
	tail := strings.Trim(reopening.String()+text[at:], " \n")
	for _, half := range []string{head, tail} {
		if err := markup.CheckValidity(half); err != nil {
			return SplitResult{}, &SplitRejectedError{Offset: offset, Err: err}
		}
	}
	return SplitResult{Head: markup.Encode(head), Tail: markup.Encode(tail)}, nil
}

// openElements returns the start tags of the elements enclosing byte offset
// at, outermost first.
func openElements(text string, at int) ([]markup.Token, error) {
	var (
		open   []markup.Token
		inside bool
	)
	err := markup.Scan(text, func(tok markup.Token) bool {
		if tok.End <= at {
			switch tok.Kind {
			case markup.StartElement:
				open = append(open, tok)
			case markup.EndElement:
				open = open[:len(open)-1]
			}
			return true
		}
		inside = tok.Start < at && tok.Kind != markup.CharData
		return false
	})
	if err != nil {
		return nil, err
	}
	if inside {
		return nil, errInsideTag
	}
	return open, nil
}
