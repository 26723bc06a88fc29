package markup

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenKind int

const (
	StartElement TokenKind = iota
	EndElement
	CharData
)

func (k TokenKind) String() string {
	switch k {
	case StartElement:
		return "start"
	case EndElement:
		return "end"
	case CharData:
		return "text"
	default:
		return "unknown"
	}
}

// Attr is an attribute of a start tag. Value is kept as written in the
// source, entity references included.
type Attr struct {
	Name  string
	Value string
}

// Token is one structural event of the markup stream.
type Token struct {
	Kind        TokenKind
	Name        string
	Attrs       []Attr
	Text        string
	SelfClosing bool
	Line        int // 1-based
	Col         int // 0-based, in runes
	Start       int // byte offset of the first byte of the token
	End         int // byte offset one past the last byte of the token
}

const (
	issueMismatchedTag   = "mismatched tag"
	issueInvalidToken    = "not well-formed (invalid token)"
	issueUndefinedEntity = "undefined entity"
	issueUnclosedToken   = "unclosed token"
	issueNoElement       = "no element found"
	issueJunk            = "junk after document element"
	issueDuplicateAttr   = "duplicate attribute"
	issueSyntax          = "syntax error"
)

// syntaxError is a position in the tokenized input, before any mapping back
// to the visible buffer.
type syntaxError struct {
	issue string
	line  int
	col   int
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("%s: line %d, column %d", e.issue, e.line, e.col)
}

// Tokenizer is a pull parser over a single-rooted markup document. It checks
// well-formedness as it goes; the first error is sticky.
type Tokenizer struct {
	src     string
	pos     int
	line    int
	col     int
	stack   []string
	started bool
	done    bool
	pending *Token
	err     error
}

func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src, line: 1}
}

// Next returns the next token, or io.EOF once the root element is closed and
// only whitespace remains.
func (t *Tokenizer) Next() (Token, error) {
	if t.err != nil {
		return Token{}, t.err
	}
	if t.pending != nil {
		tok := *t.pending
		t.pending = nil
		t.pop()
		return tok, nil
	}
	tok, err := t.next()
	if err != nil {
		t.err = err
	}
	return tok, err
}

func (t *Tokenizer) next() (Token, error) {
	for {
		if t.pos >= len(t.src) {
			if !t.started || len(t.stack) > 0 {
				return Token{}, t.errorAt(issueNoElement, t.line, t.col)
			}
			return Token{}, io.EOF
		}
		if t.src[t.pos] == '<' {
			return t.readMarkup()
		}
		tok, err := t.readText()
		if err != nil {
			return Token{}, err
		}
		if len(t.stack) > 0 {
			return tok, nil
		}
		if strings.Trim(tok.Text, " \t\r\n") != "" {
			if t.done {
				return Token{}, t.errorAt(issueJunk, tok.Line, tok.Col)
			}
			return Token{}, t.errorAt(issueSyntax, tok.Line, tok.Col)
		}
	}
}

func (t *Tokenizer) readText() (Token, error) {
	tok := Token{Kind: CharData, Line: t.line, Col: t.col, Start: t.pos}
	for t.pos < len(t.src) && t.src[t.pos] != '<' {
		if t.src[t.pos] == '&' {
			if err := t.readReference(); err != nil {
				return Token{}, err
			}
			continue
		}
		t.advance()
	}
	tok.End = t.pos
	tok.Text = t.src[tok.Start:tok.End]
	return tok, nil
}

func (t *Tokenizer) readReference() error {
	line, col := t.line, t.col
	end := strings.IndexByte(t.src[t.pos:], ';')
	if end < 0 {
		return t.errorAt(issueInvalidToken, line, col)
	}
	ref := t.src[t.pos+1 : t.pos+end]
	if !validReference(ref) {
		if isName(ref) {
			return t.errorAt(issueUndefinedEntity, line, col)
		}
		return t.errorAt(issueInvalidToken, line, col)
	}
	for n := t.pos + end + 1; t.pos < n; {
		t.advance()
	}
	return nil
}

func (t *Tokenizer) readMarkup() (Token, error) {
	line, col, start := t.line, t.col, t.pos
	rest := t.src[t.pos:]
	switch {
	case strings.HasPrefix(rest, "</"):
		return t.readEndTag(line, col, start)
	case strings.HasPrefix(rest, "<!"), strings.HasPrefix(rest, "<?"):
		return Token{}, t.errorAt(issueInvalidToken, line, col)
	}
	return t.readStartTag(line, col, start)
}

func (t *Tokenizer) readStartTag(line, col, start int) (Token, error) {
	if t.done {
		return Token{}, t.errorAt(issueJunk, line, col)
	}
	t.advance()
	name, ok := t.readName()
	if !ok {
		return Token{}, t.errorAt(issueInvalidToken, line, col)
	}
	tok := Token{Kind: StartElement, Name: name, Line: line, Col: col, Start: start}
	seen := make(map[string]bool)
	for {
		hadSpace := t.skipSpace()
		if t.pos >= len(t.src) {
			return Token{}, t.errorAt(issueUnclosedToken, line, col)
		}
		switch t.src[t.pos] {
		case '>':
			t.advance()
			tok.End = t.pos
			t.push(name)
			return tok, nil
		case '/':
			t.advance()
			if t.pos >= len(t.src) {
				return Token{}, t.errorAt(issueUnclosedToken, line, col)
			}
			if t.src[t.pos] != '>' {
				return Token{}, t.errorAt(issueInvalidToken, t.line, t.col)
			}
			t.advance()
			tok.End = t.pos
			tok.SelfClosing = true
			t.push(name)
			t.pending = &Token{Kind: EndElement, Name: name, Line: t.line, Col: t.col, Start: t.pos, End: t.pos}
			return tok, nil
		}
		if !hadSpace {
			return Token{}, t.errorAt(issueInvalidToken, t.line, t.col)
		}
		attr, err := t.readAttr(line, col, seen)
		if err != nil {
			return Token{}, err
		}
		tok.Attrs = append(tok.Attrs, attr)
	}
}

func (t *Tokenizer) readAttr(line, col int, seen map[string]bool) (Attr, error) {
	attrLine, attrCol := t.line, t.col
	name, ok := t.readName()
	if !ok {
		return Attr{}, t.errorAt(issueInvalidToken, attrLine, attrCol)
	}
	if seen[name] {
		return Attr{}, t.errorAt(issueDuplicateAttr, attrLine, attrCol)
	}
	seen[name] = true
	t.skipSpace()
	if t.pos >= len(t.src) {
		return Attr{}, t.errorAt(issueUnclosedToken, line, col)
	}
	if t.src[t.pos] != '=' {
		return Attr{}, t.errorAt(issueInvalidToken, t.line, t.col)
	}
	t.advance()
	t.skipSpace()
	if t.pos >= len(t.src) {
		return Attr{}, t.errorAt(issueUnclosedToken, line, col)
	}
	quote := t.src[t.pos]
	if quote != '"' && quote != '\'' {
		return Attr{}, t.errorAt(issueInvalidToken, t.line, t.col)
	}
	t.advance()
	valueStart := t.pos
	for {
		if t.pos >= len(t.src) {
			return Attr{}, t.errorAt(issueUnclosedToken, line, col)
		}
		c := t.src[t.pos]
		if c == quote {
			break
		}
		if c == '<' {
			return Attr{}, t.errorAt(issueInvalidToken, t.line, t.col)
		}
		if c == '&' {
			if err := t.readReference(); err != nil {
				return Attr{}, err
			}
			continue
		}
		t.advance()
	}
	value := t.src[valueStart:t.pos]
	t.advance()
	return Attr{Name: name, Value: value}, nil
}

func (t *Tokenizer) readEndTag(line, col, start int) (Token, error) {
	t.advance()
	t.advance()
	name, ok := t.readName()
	if !ok {
		return Token{}, t.errorAt(issueInvalidToken, line, col)
	}
	t.skipSpace()
	if t.pos >= len(t.src) {
		return Token{}, t.errorAt(issueUnclosedToken, line, col)
	}
	if t.src[t.pos] != '>' {
		return Token{}, t.errorAt(issueInvalidToken, t.line, t.col)
	}
	t.advance()
	if len(t.stack) == 0 {
		if t.done {
			return Token{}, t.errorAt(issueJunk, line, col)
		}
		return Token{}, t.errorAt(issueSyntax, line, col)
	}
	if t.stack[len(t.stack)-1] != name {
		return Token{}, t.errorAt(issueMismatchedTag, line, col)
	}
	t.pop()
	return Token{Kind: EndElement, Name: name, Line: line, Col: col, Start: start, End: t.pos}, nil
}

func (t *Tokenizer) readName() (string, bool) {
	start := t.pos
	for t.pos < len(t.src) {
		r, _ := utf8.DecodeRuneInString(t.src[t.pos:])
		if t.pos == start {
			if !isNameStart(r) {
				return "", false
			}
		} else if !isNameChar(r) {
			break
		}
		t.advance()
	}
	if t.pos == start {
		return "", false
	}
	return t.src[start:t.pos], true
}

func (t *Tokenizer) skipSpace() bool {
	skipped := false
	for t.pos < len(t.src) {
		switch t.src[t.pos] {
		case ' ', '\t', '\r', '\n':
			t.advance()
			skipped = true
		default:
			return skipped
		}
	}
	return skipped
}

func (t *Tokenizer) advance() {
	r, size := utf8.DecodeRuneInString(t.src[t.pos:])
	t.pos += size
	if r == '\n' {
		t.line++
		t.col = 0
		return
	}
	t.col++
}

func (t *Tokenizer) push(name string) {
	t.started = true
	t.stack = append(t.stack, name)
}

func (t *Tokenizer) pop() {
	t.stack = t.stack[:len(t.stack)-1]
	if len(t.stack) == 0 {
		t.done = true
	}
}

func (t *Tokenizer) errorAt(issue string, line, col int) error {
	return &syntaxError{issue: issue, line: line, col: col}
}

func isNameStart(r rune) bool {
	return r == '_' || r == ':' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isName(s string) bool {
	for i, r := range s {
		if i == 0 && !isNameStart(r) {
			return false
		}
		if !isNameChar(r) {
			return false
		}
	}
	return s != ""
}

func validReference(ref string) bool {
	switch ref {
	case "amp", "lt", "gt", "quot", "apos":
		return true
	}
	if !strings.HasPrefix(ref, "#") {
		return false
	}
	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(ref, "#x") {
		n, err = strconv.ParseUint(ref[2:], 16, 32)
	} else {
		n, err = strconv.ParseUint(ref[1:], 10, 32)
	}
	if err != nil {
		return false
	}
	return legalChar(rune(n))
}
