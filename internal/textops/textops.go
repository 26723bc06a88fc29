// Package textops measures and edits the editable text of a section.
package textops

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Dashes and paragraph ends separate words even without surrounding spaces.
	additionalWordLimits = regexp.MustCompile(`--|—|–|</p>`)
	// Annotations don't count; other tags are zero-width.
	noWordLimits = regexp.MustCompile(`<note(?:\s[^>]*)?>.*?</note>|<comment(?:\s[^>]*)?>.*?</comment>|<.+?>`)
)

// styleTags are the tags removed by clearing the format of a selection.
var styleTags = []string{"em", "strong"}

// CountWords counts the words of editable text the way office suites do.
func CountWords(text string) int {
	text = strings.ReplaceAll(text, "\n", "")
	text = additionalWordLimits.ReplaceAllString(text, " ")
	text = noWordLimits.ReplaceAllString(text, "")
	return len(strings.Fields(text))
}

// Range is a selection in rune offsets. An empty range is a cursor.
type Range struct {
	Start int
	End   int
}

func (r Range) Empty() bool { return r.Start == r.End }

func (r Range) normalized() Range {
	if r.Start > r.End {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// ToggleFormat wraps the selection in tag, or unwraps it when it is already
// wrapped. An empty tag clears emphasis and strong emphasis. Without a
// selection an empty tag pair is inserted and the cursor put between.
func ToggleFormat(text string, sel Range, tag string) (string, Range) {
	sel = sel.normalized()
	start, end := byteOffset(text, sel.Start), byteOffset(text, sel.End)
	if tag == "" {
		if start == end {
			return text, sel
		}
		selected := text[start:end]
		for _, t := range styleTags {
			selected = removeFormat(selected, t)
		}
		return replace(text, start, end, selected)
	}

	open, closing := "<"+tag+">", "</"+tag+">"
	if start == end {
		cursor := runeIndex(text, start) + utf8.RuneCountInString(open)
		return text[:start] + open + closing + text[start:], Range{Start: cursor, End: cursor}
	}
	selected := text[start:end]
	if strings.HasPrefix(selected, open) && strings.HasSuffix(selected, closing) {
		return replace(text, start, end, removeFormat(selected, tag))
	}
	return replace(text, start, end, open+removeFormat(selected, tag)+closing)
}

// removeFormat drops every <tag>...</tag> pair from text, keeping the content.
func removeFormat(text, tag string) string {
	open, closing := "<"+tag+">", "</"+tag+">"
	for {
		s := strings.Index(text, open)
		if s < 0 {
			return text
		}
		e := strings.Index(text[s:], closing)
		if e < 0 {
			return text
		}
		e += s
		text = text[:s] + text[s+len(open):e] + text[e+len(closing):]
	}
}

// NewParagraph ends the paragraph at cursor and starts a new one. It returns
// the new text and cursor.
func NewParagraph(text string, cursor int) (string, int) {
	const sep = "</p>\n<p>"
	at := byteOffset(text, cursor)
	return text[:at] + sep + text[at:], runeIndex(text, at) + utf8.RuneCountInString(sep)
}

func replace(text string, start, end int, with string) (string, Range) {
	from := runeIndex(text, start)
	return text[:start] + with + text[end:], Range{Start: from, End: from + utf8.RuneCountInString(with)}
}

// byteOffset converts a rune offset into a byte offset, clamped to text.
func byteOffset(text string, runes int) int {
	if runes <= 0 {
		return 0
	}
	n := 0
	for i := range text {
		if n == runes {
			return i
		}
		n++
	}
	return len(text)
}

func runeIndex(text string, byteOff int) int {
	return utf8.RuneCountInString(text[:byteOff])
}
