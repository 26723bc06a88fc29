package markup

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>Hello</p><p>World</p>", "<p>Hello</p>\n<p>World</p>\n"},
		{"empty", "", "<p></p>\n"},
		{"blank", "  ", "<p></p>\n"},
		{"inline", "<p>A <em>b</em> &amp; <strong>c</strong></p>", "<p>A <em>b</em> &amp; <strong>c</strong></p>\n"},
		{"list", "<ul><li><p>One</p></li><li><p>Two</p></li></ul>", "<ul>\n<li><p>One</p></li>\n<li><p>Two</p></li>\n</ul>\n"},
		{"paragraph after list", "<ul><li><p>One</p></li></ul><p>After</p>", "<ul>\n<li><p>One</p></li>\n</ul>\n<p>After</p>\n"},
		{"comment", "<p>x<comment><creator>Me</creator><date>2024-01-01</date><p>y</p></comment></p>",
			"<p>x<comment>\n<creator>Me</creator>\n<date>2024-01-01</date>\n<p>y</p>\n</comment></p>\n"},
		{"note", `<p>x<note id="ftn1" class="footnote"><note-citation>1</note-citation><p>n</p></note></p>`,
			"<p>x<note id=\"ftn1\" class=\"footnote\">\n<note-citation>1</note-citation>\n<p>n</p>\n</note></p>\n"},
		{"single quoted attribute", `<p title='say "hi"'>x</p>`, "<p title=\"say &quot;hi&quot;\">x</p>\n"},
		{"self closing", "<p/>", "<p></p>\n"},
	}
	for _, tt := range tests {
		got, err := Decode(tt.in)
		if err != nil {
			t.Fatalf("%s: Decode error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: Decode = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeUpdateMode(t *testing.T) {
	got, err := DecodeWith("<p>a</p><ul><li>b</li></ul>", Options{Update: true})
	if err != nil {
		t.Fatalf("DecodeWith error: %v", err)
	}
	want := "<p>a</p><ul>\n<li>b</li></ul>"
	if got != want {
		t.Fatalf("DecodeWith = %q, want %q", got, want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode("<p>A<em>B</p>")
	var me *MalformedMarkupError
	if !errors.As(err, &me) {
		t.Fatalf("Decode error = %v, want MalformedMarkupError", err)
	}
	if me.Issue != "mismatched tag" || me.Line != 1 || me.Column != 8 {
		t.Fatalf("error = %+v, want mismatched tag at 1:8", me)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("errors.Is(err, ErrMalformed) = false")
	}
}

func TestDecodeIsRestartable(t *testing.T) {
	first, err := Decode("<ul><li>a</li>")
	if err == nil {
		t.Fatalf("Decode = %q, want error", first)
	}
	got, err := Decode("<p>a</p>")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got != "<p>a</p>\n" {
		t.Fatalf("Decode = %q, want %q", got, "<p>a</p>\n")
	}
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		"<p>Hello</p><p>World</p>",
		"<p>A <em>b</em> &amp; <strong>c &lt; d</strong></p>",
		"<ul><li><p>One</p></li><li><p>Two</p></li></ul><p>After</p>",
		`<p>x<note id="ftn1" class="footnote"><note-citation>1</note-citation><p>n</p></note> y</p>`,
		"<p>x<comment><creator>Me</creator><date>2024-01-01</date><p>y</p></comment></p>",
		"<p></p>",
	}
	for _, d := range docs {
		editable, err := Decode(d)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", d, err)
		}
		if got := Encode(editable); got != d {
			t.Fatalf("Encode(Decode(%q)) = %q", d, got)
		}
	}
}

func TestDecodeRuns(t *testing.T) {
	runs, err := DecodeRuns("<p>x<strong>y<em>z</em></strong></p>")
	if err != nil {
		t.Fatalf("DecodeRuns error: %v", err)
	}
	want := []TaggedRun{
		{"<p>", StyleTag},
		{"x", ""},
		{"<strong>", StyleTag},
		{"y", StyleStrong},
		{"<em>", StyleTag},
		{"z", StyleEm},
		{"</em>", StyleTag},
		{"</strong>", StyleTag},
		{"</p>\n", StyleTag},
	}
	if len(runs) != len(want) {
		t.Fatalf("runs = %+v, want %+v", runs, want)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("runs[%d] = %+v, want %+v", i, runs[i], want[i])
		}
	}
}

func TestRunsCoverText(t *testing.T) {
	text := "<p>a <note>\n<p>n</p>\n</note></p>\n<p>b<br/></p>\n"
	runs, err := Runs(text)
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if got := joinRuns(runs); got != text {
		t.Fatalf("joined runs = %q, want %q", got, text)
	}
	var noted bool
	for _, r := range runs {
		if r.Text == "n" && r.Tag == StyleNote {
			noted = true
		}
	}
	if !noted {
		t.Fatalf("runs = %+v, want note text styled %q", runs, StyleNote)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"\n <p>a</p>\n<p>b</p>\n\n", "<p>a</p><p>b</p>"},
		{"<p>a\x01b\x1fc</p>", "<p>abc</p>"},
		{"<p>é</p>", "<p>é</p>"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Encode(tt.in); got != tt.want {
			t.Fatalf("Encode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckValidity(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		issue string
		line  int
		col   int
	}{
		{name: "valid", text: "<p>ok</p>\n<p>fine</p>\n"},
		{name: "empty", text: ""},
		{name: "illegal characters stripped", text: "<p>a</p>\x01"},
		{"unbalanced em", "<p>A<em>B</p>", "mismatched tag", 1, 8},
		{"unclosed on second line", "<p>a</p>\n<p>b", "mismatched tag", 2, 4},
		{"unknown entity", "<p>a &foo; b</p>", "undefined entity", 1, 5},
		{"bare ampersand", "<p>a & b</p>", "not well-formed (invalid token)", 1, 5},
		{"bare less-than", "<p>a < b</p>", "not well-formed (invalid token)", 1, 5},
		{"duplicate attribute", `<p x="1" x="2">a</p>`, "duplicate attribute", 1, 9},
		{"stray end tag", "<p>a</p></em>", "mismatched tag", 1, 8},
		{"unterminated tag", "<p>a</p><p", "not well-formed (invalid token)", 1, 10},
		{"illegal character before the error", "<p>\x01A<em>B</p>", "mismatched tag", 1, 9},
		{"illegal characters on the error line", "<p>a</p>\n\x02\x03<p>b", "mismatched tag", 2, 6},
		{"illegal character after the error", "<p>A<em>B</p>\x01", "mismatched tag", 1, 8},
	}
	for _, tt := range tests {
		err := CheckValidity(tt.text)
		if tt.issue == "" {
			if err != nil {
				t.Fatalf("%s: CheckValidity error: %v", tt.name, err)
			}
			continue
		}
		var me *MalformedMarkupError
		if !errors.As(err, &me) {
			t.Fatalf("%s: CheckValidity = %v, want MalformedMarkupError", tt.name, err)
		}
		if me.Issue != tt.issue || me.Line != tt.line || me.Column != tt.col {
			t.Fatalf("%s: error = %q, want %s at %d:%d", tt.name, me.Error(), tt.issue, tt.line, tt.col)
		}
	}
}

func TestMalformedMarkupErrorMessage(t *testing.T) {
	err := &MalformedMarkupError{Issue: "mismatched tag", Line: 2, Column: 7}
	if got, want := err.Error(), "mismatched tag: line 2 column 7"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestTokenizer(t *testing.T) {
	tz := NewTokenizer(`<a x="1">t<b/></a>`)
	var kinds []string
	for {
		tok, err := tz.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		kinds = append(kinds, tok.Kind.String()+":"+tok.Name+tok.Text)
	}
	got := strings.Join(kinds, " ")
	want := "start:a text:t start:b end:b end:a"
	if got != want {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
}

func TestTokenizerJunkAfterRoot(t *testing.T) {
	tz := NewTokenizer("<a></a><b/>")
	var err error
	for err == nil {
		_, err = tz.Next()
	}
	var se *syntaxError
	if !errors.As(err, &se) || se.issue != "junk after document element" {
		t.Fatalf("error = %v, want junk after document element", err)
	}
	if _, again := tz.Next(); again != err {
		t.Fatalf("second Next error = %v, want sticky %v", again, err)
	}
}

func TestOffset(t *testing.T) {
	text := "ab\ncd\nef"
	tests := []struct{ line, col, want int }{
		{1, 0, 0},
		{1, 1, 1},
		{2, 1, 4},
		{3, 9, 8},
		{2, 9, 5},
	}
	for _, tt := range tests {
		if got := Offset(text, tt.line, tt.col); got != tt.want {
			t.Fatalf("Offset(%d, %d) = %d, want %d", tt.line, tt.col, got, tt.want)
		}
	}
}
