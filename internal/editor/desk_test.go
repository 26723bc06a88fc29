package editor

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/scedit/internal/novx"
	"github.com/kobzarvs/scedit/internal/session"
)

type fakeActions struct {
	calls []string
}

func (f *fakeActions) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeActions) ApplyNow(id string) error {
	f.record("apply " + id)
	return nil
}

func (f *fakeActions) RequestClose(id string) error {
	f.record("close " + id)
	return nil
}

func (f *fakeActions) NewParagraph(id string) error {
	f.record("paragraph " + id)
	return nil
}

func (f *fakeActions) ShowWordCount(id string) error {
	f.record("count " + id)
	return nil
}

func (f *fakeActions) CycleColorMode() { f.record("color") }

func (f *fakeActions) NavigateNext(id string) (string, error) {
	f.record("next " + id)
	return "", nil
}

func (f *fakeActions) NavigatePrev(id string) (string, error) {
	f.record("prev " + id)
	return "", nil
}

func (f *fakeActions) CreateSection(id string) (string, error) {
	f.record("create " + id)
	return "", nil
}

func (f *fakeActions) SplitSection(id string, offset int) (string, error) {
	f.record("split " + id + " " + string(rune('0'+offset)))
	return "", nil
}

func (f *fakeActions) ToggleFormat(id, tag string) error {
	f.record("format " + id + " " + tag)
	return nil
}

func newTestDesk(t *testing.T) (*Desk, *fakeActions, tcell.SimulationScreen) {
	t.Helper()
	s := newTestScreen(t, 40, 10)
	d := NewDesk(s, nil)
	a := &fakeActions{}
	d.SetActions(a)
	return d, a, s
}

func TestDeskDispatchesBoundKeys(t *testing.T) {
	d, a, _ := newTestDesk(t)
	w := d.NewWindow(&session.Session{ID: "sc1"}).(*Window)
	w.SetText("<p>Hello</p>\n")
	w.SetCursor(5)

	for _, key := range []string{"ctrl+s", "ctrl+b", "tab", "ctrl+p", "enter", "f5", "alt+s", "alt+n", "alt+pgdn", "alt+pgup", "ctrl+q"} {
		d.HandleKey(eventForKeyString(t, key))
	}
	want := []string{
		"apply sc1",
		"format sc1 strong",
		"format sc1 em",
		"format sc1 ",
		"paragraph sc1",
		"count sc1",
		"split sc1 5",
		"create sc1",
		"next sc1",
		"prev sc1",
		"close sc1",
	}
	if !reflect.DeepEqual(a.calls, want) {
		t.Fatalf("calls = %q, want %q", a.calls, want)
	}
}

func TestDeskTypesUnboundRunes(t *testing.T) {
	d, a, _ := newTestDesk(t)
	w := d.NewWindow(&session.Session{ID: "sc1"}).(*Window)
	w.SetText("<p></p>\n")
	w.SetCursor(3)

	for _, r := range "Hi" {
		d.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, 0))
	}
	d.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModAlt))
	if got := w.Text(); got != "<p>Hi</p>\n" {
		t.Fatalf("text = %q", got)
	}
	if len(a.calls) != 0 {
		t.Fatalf("calls = %q", a.calls)
	}

	w.prefs.Options.LiveWordCount = true
	d.HandleKey(tcell.NewEventKey(tcell.KeyRune, '!', 0))
	d.HandleKey(eventForKeyString(t, "backspace"))
	if want := []string{"count sc1", "count sc1"}; !reflect.DeepEqual(a.calls, want) {
		t.Fatalf("calls = %q, want %q", a.calls, want)
	}
}

func TestDeskStacking(t *testing.T) {
	d, _, _ := newTestDesk(t)
	w1 := d.NewWindow(&session.Session{ID: "sc1"})
	w2 := d.NewWindow(&session.Session{ID: "sc2"})
	if d.Active() != w2 {
		t.Fatal("newest window not active")
	}
	w1.Lift()
	if d.Active() != w1 {
		t.Fatal("lifted window not active")
	}
	w1.Close()
	if d.Active() != w2 || len(d.Windows()) != 1 {
		t.Fatalf("windows after close = %d", len(d.Windows()))
	}
	w2.Close()
	if !d.Empty() {
		t.Fatal("desk not empty")
	}
	d.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'x', 0))
}

func TestPromptAnswers(t *testing.T) {
	d, _, s := newTestDesk(t)

	if err := s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'n', 0)); err != nil {
		t.Fatal(err)
	}
	if d.AskYesNo("Apply section changes?") {
		t.Fatal("'n' answered yes")
	}

	if err := s.PostEvent(tcell.NewEventInterrupt("later")); err != nil {
		t.Fatal(err)
	}
	if err := s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'y', 0)); err != nil {
		t.Fatal(err)
	}
	if !d.AskYesNo("Apply section changes?") {
		t.Fatal("'y' answered no")
	}
	ev, ok := s.PollEvent().(*tcell.EventInterrupt)
	if !ok || ev.Data() != "later" {
		t.Fatalf("deferred event = %#v", ev)
	}

	if err := s.PostEvent(tcell.NewEventKey(tcell.KeyEnter, 0, 0)); err != nil {
		t.Fatal(err)
	}
	d.ShowError("Cannot split the section at the cursor position.")
}

func TestPromptDrawsMessage(t *testing.T) {
	d, _, s := newTestDesk(t)
	if err := s.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, 0)); err != nil {
		t.Fatal(err)
	}
	d.ShowInfo("Cannot edit sections, because the project is locked.")

	cells, w, h := s.GetContents()
	var screen strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if rs := cells[y*w+x].Runes; len(rs) > 0 {
				screen.WriteRune(rs[0])
			}
		}
		screen.WriteByte('\n')
	}
	if !strings.Contains(screen.String(), "Information") {
		t.Fatalf("prompt title missing:\n%s", screen.String())
	}
}

const novel = `<?xml version="1.0" encoding="utf-8"?>
<novx version="1.4" lang="en-US">
<PROJECT><Title>The Novel</Title></PROJECT>
<CHAPTERS>
<CHAPTER id="ch1">
<Title>One</Title>
<SECTION id="sc1" scene="1">
<Title>Opening</Title>
<Content><p>Hello world</p></Content>
</SECTION>
</CHAPTER>
</CHAPTERS>
</novx>
`

func TestEditAndCloseThroughController(t *testing.T) {
	p, err := novx.Parse(strings.NewReader(novel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, _, s := newTestDesk(t)
	c := session.NewController(p, p, d, session.WithViewFactory(d.NewWindow))
	defer c.Stop()
	d.SetActions(c)

	if _, err := c.Open("sc1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	w := d.Active()
	if w == nil || w.Title() != "Opening - The Novel, Section ID sc1" {
		t.Fatalf("active window = %+v", w)
	}
	d.Render()

	d.HandleKey(eventForKeyString(t, "ctrl+home"))
	for i := 0; i < 3; i++ {
		d.HandleKey(eventForKeyString(t, "right"))
	}
	for _, r := range "Oh, " {
		d.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, 0))
	}
	for i := 0; i < 5; i++ {
		d.HandleKey(eventForKeyString(t, "shift+right"))
	}
	d.HandleKey(eventForKeyString(t, "ctrl+b"))
	if got := w.Text(); got != "<p>Oh, <strong>Hello</strong> world</p>\n" {
		t.Fatalf("text = %q", got)
	}

	if err := s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'y', 0)); err != nil {
		t.Fatal(err)
	}
	d.HandleKey(eventForKeyString(t, "ctrl+q"))
	sc, _ := p.Section("sc1")
	if want := "<p>Oh, <strong>Hello</strong> world</p>"; sc.Content != want {
		t.Fatalf("content = %q, want %q", sc.Content, want)
	}
	if !d.Empty() {
		t.Fatal("window still open")
	}
}

func TestParseColorNames(t *testing.T) {
	tests := []struct {
		name string
		want tcell.Color
	}{
		{"white", tcell.ColorWhite},
		{"antique white", tcell.ColorAntiqueWhite},
		{"light grey", tcell.ColorLightGray},
		{"gray20", tcell.NewRGBColor(51, 51, 51)},
		{"#FAEBD7", tcell.NewRGBColor(0xFA, 0xEB, 0xD7)},
		{"gray200", tcell.ColorRed},
		{"no such color", tcell.ColorRed},
	}
	for _, tt := range tests {
		if got := parseColor(tt.name, tcell.ColorRed); got != tt.want {
			t.Errorf("parseColor(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
