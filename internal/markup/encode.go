package markup

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Encode turns editable text back into stored markup. Newlines are
// presentational only and are dropped.
func Encode(editable string) string {
	text := strings.Trim(editable, " \n")
	text = strings.ReplaceAll(text, "\n", "")
	text = StripIllegalCharacters(text)
	return norm.NFC.String(text)
}

// StripIllegalCharacters removes control characters that XML 1.0 does not
// allow anywhere in a document.
func StripIllegalCharacters(text string) string {
	if strings.IndexFunc(text, illegalChar) < 0 {
		return text
	}
	return strings.Map(func(r rune) rune {
		if illegalChar(r) {
			return -1
		}
		return r
	}, text)
}

func illegalChar(r rune) bool {
	return r <= 0x08 || r == 0x0b || r == 0x0c || (r >= 0x0e && r <= 0x1f)
}

func legalChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0a, r == 0x0d:
		return true
	case r >= 0x20 && r <= 0xd7ff:
		return true
	case r >= 0xe000 && r <= 0xfffd:
		return true
	case r >= 0x10000 && r <= 0x10ffff:
		return true
	}
	return false
}
