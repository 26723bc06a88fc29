package markup

import (
	"errors"
	"io"
	"strings"
)

// syntheticRoot wraps editable text for validation. Error columns on the
// first line are shifted back by the length of its start tag.
const syntheticRoot = "a"

// CheckValidity reports whether text is well-formed markup content. The
// returned error is a *MalformedMarkupError positioned in text.
func CheckValidity(text string) error {
	err := Scan(StripIllegalCharacters(text), nil)
	var me *MalformedMarkupError
	if errors.As(err, &me) {
		me.Column = unstrippedColumn(text, me.Line, me.Column)
	}
	return err
}

// unstrippedColumn maps a column of the stripped line back onto text.
// Stripping never removes line breaks, so lines match.
func unstrippedColumn(text string, line, col int) int {
	lines := strings.Split(text, "\n")
	if line < 1 || line > len(lines) {
		return col
	}
	n, skipped := 0, 0
	for i, r := range []rune(lines[line-1]) {
		if illegalChar(r) {
			skipped++
			continue
		}
		if n == col {
			return i
		}
		n++
	}
	return col + skipped
}

// Scan tokenizes markup content and calls fn for each token until fn returns
// false. Token offsets and positions are relative to text; the synthetic
// root is not reported. A nil fn only checks well-formedness.
func Scan(text string, fn func(Token) bool) error {
	prefix := "<" + syntheticRoot + ">"
	shift := len(prefix)
	tz := NewTokenizer(prefix + text + "</" + syntheticRoot + ">")
	depth := 0
	for {
		tok, err := tz.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fromSyntax(err, prefix)
		}
		switch tok.Kind {
		case StartElement:
			depth++
			if depth == 1 {
				continue
			}
		case EndElement:
			depth--
			if depth == 0 {
				continue
			}
		}
		if fn == nil {
			continue
		}
		tok.Start -= shift
		tok.End -= shift
		if tok.Line == 1 {
			tok.Col -= shift
		}
		if !fn(tok) {
			return nil
		}
	}
}

// Offset converts a line and column of text into a rune offset, clamped to
// the text.
func Offset(text string, line, col int) int {
	offset, cur := 0, 1
	runes := []rune(text)
	for offset < len(runes) && cur < line {
		if runes[offset] == '\n' {
			cur++
		}
		offset++
	}
	for i := 0; i < col && offset < len(runes) && runes[offset] != '\n'; i++ {
		offset++
	}
	return offset
}
