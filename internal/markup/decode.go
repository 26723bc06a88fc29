package markup

import (
	"io"
	"strings"
)

// Style names carried by TaggedRun.Tag.
const (
	StyleTag     = "tag"
	StyleEm      = "em"
	StyleStrong  = "strong"
	StyleNote    = "note"
	StyleComment = "comment"
)

const contentRoot = "content"

// TaggedRun is a fragment of decoded text together with the style a
// renderer should apply to it.
type TaggedRun struct {
	Text string
	Tag  string
}

type Options struct {
	// Update leaves out the newline that normally follows closing block tags.
	Update bool
}

// Decode converts stored section markup into editable text.
func Decode(markup string) (string, error) {
	return DecodeWith(markup, Options{})
}

func DecodeWith(markup string, opts Options) (string, error) {
	runs, err := decode(markup, opts)
	if err != nil {
		return "", err
	}
	return joinRuns(runs), nil
}

// DecodeRuns is Decode split into styled fragments.
func DecodeRuns(markup string) ([]TaggedRun, error) {
	return decode(markup, Options{})
}

func decode(markup string, opts Options) ([]TaggedRun, error) {
	if strings.TrimSpace(markup) == "" {
		markup = "<p></p>"
	}
	prefix := "<" + contentRoot + ">"
	tz := NewTokenizer(prefix + markup + "</" + contentRoot + ">")

	var (
		runs   []TaggedRun
		open   []string
		inList bool
	)
	for {
		tok, err := tz.Next()
		if err == io.EOF {
			return runs, nil
		}
		if err != nil {
			return nil, fromSyntax(err, prefix)
		}
		switch tok.Kind {
		case StartElement:
			open = append(open, tok.Name)
			if len(open) == 1 {
				continue
			}
			text := startTag(tok)
			switch tok.Name {
			case "ul":
				inList = true
				text += "\n"
			case "note", "comment":
				text += "\n"
			}
			runs = append(runs, TaggedRun{Text: text, Tag: StyleTag})
		case EndElement:
			open = open[:len(open)-1]
			if len(open) == 0 {
				continue
			}
			suffix := ""
			switch tok.Name {
			case "p":
				if !inList {
					suffix = "\n"
				}
			case "li", "creator", "date", "note-citation":
				suffix = "\n"
			case "ul":
				inList = false
				suffix = "\n"
			}
			if opts.Update {
				suffix = ""
			}
			runs = append(runs, TaggedRun{Text: "</" + tok.Name + ">" + suffix, Tag: StyleTag})
		case CharData:
			runs = append(runs, TaggedRun{Text: tok.Text, Tag: styleOf(open)})
		}
	}
}

// Runs splits editable text into styled fragments without changing it: the
// concatenation of the returned texts equals text.
func Runs(text string) ([]TaggedRun, error) {
	prefix := "<" + syntheticRoot + ">"
	tz := NewTokenizer(prefix + text + "</" + syntheticRoot + ">")
	var (
		runs []TaggedRun
		open []string
	)
	for {
		tok, err := tz.Next()
		if err == io.EOF {
			return runs, nil
		}
		if err != nil {
			return nil, fromSyntax(err, prefix)
		}
		switch tok.Kind {
		case StartElement:
			open = append(open, tok.Name)
			if len(open) > 1 {
				runs = append(runs, TaggedRun{Text: tok.source(tz), Tag: StyleTag})
			}
		case EndElement:
			open = open[:len(open)-1]
			if len(open) > 0 && tok.End > tok.Start {
				runs = append(runs, TaggedRun{Text: tok.source(tz), Tag: StyleTag})
			}
		case CharData:
			runs = append(runs, TaggedRun{Text: tok.Text, Tag: styleOf(open)})
		}
	}
}

func (tok Token) source(tz *Tokenizer) string {
	return tz.src[tok.Start:tok.End]
}

// styleOf picks the innermost styled element of the open stack.
func styleOf(open []string) string {
	for i := len(open) - 1; i >= 0; i-- {
		switch open[i] {
		case StyleEm, StyleStrong, StyleNote, StyleComment:
			return open[i]
		}
	}
	return ""
}

func startTag(tok Token) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tok.Name)
	for _, a := range tok.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(strings.ReplaceAll(a.Value, `"`, "&quot;"))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return b.String()
}

func joinRuns(runs []TaggedRun) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}
