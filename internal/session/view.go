package session

import (
	"fmt"
	"unicode/utf8"

	"github.com/kobzarvs/scedit/internal/config"
	"github.com/kobzarvs/scedit/internal/novx"
	"github.com/kobzarvs/scedit/internal/textops"
)

// Host is the document that owns the sections.
type Host interface {
	Section(id string) (*novx.Section, bool)
	SetContent(id, content string) error
	SetCharacters(id string, characters []string) error
	AddSectionAfter(id string, tmpl novx.SectionTemplate) (string, error)
	Locked() bool
	Unlock() error
	Subscribe(fn func()) (cancel func())
	ProjectTitle() string
}

// Navigator walks the host's section order.
type Navigator interface {
	NextSection(id string) string
	PrevSection(id string) string
	GoTo(id string)
}

// Prompter asks the user synchronously.
type Prompter interface {
	AskYesNo(message string) bool
	ShowError(message string)
	ShowInfo(message string)
}

// View presents one session. Offsets are in runes.
type View interface {
	Text() string
	SetText(text string)
	Cursor() int
	SetCursor(offset int)
	Selection() (textops.Range, bool)
	SetSelection(r textops.Range)
	SetTitle(title string)
	ShowStatus(message string)
	ApplyPreferences(prefs config.Preferences)
	Lift()
	Close()
}

type ViewFactory func(s *Session) View

type WordCount struct {
	Initial int
	Current int
}

// New is the number of words added since the section was opened; it is
// negative when text was removed.
func (w WordCount) New() int { return w.Current - w.Initial }

func (w WordCount) String() string {
	return fmt.Sprintf("%d words (%d new)", w.Current, w.New())
}

// memoryView is the View used without a presentation layer.
type memoryView struct {
	text      string
	cursor    int
	selection textops.Range
	selected  bool
	title     string
	status    string
	prefs     config.Preferences
	lifted    int
	closed    bool
}

func newMemoryView() *memoryView { return &memoryView{} }

func (v *memoryView) Text() string { return v.text }

func (v *memoryView) SetText(text string) {
	v.text = text
	v.selected = false
	v.SetCursor(v.cursor)
}

func (v *memoryView) Cursor() int { return v.cursor }

func (v *memoryView) SetCursor(offset int) {
	v.cursor = clamp(offset, 0, utf8.RuneCountInString(v.text))
	v.selected = false
}

func (v *memoryView) Selection() (textops.Range, bool) {
	return v.selection, v.selected && !v.selection.Empty()
}

func (v *memoryView) SetSelection(r textops.Range) {
	n := utf8.RuneCountInString(v.text)
	v.selection = textops.Range{Start: clamp(r.Start, 0, n), End: clamp(r.End, 0, n)}
	v.cursor = v.selection.End
	v.selected = true
}

func (v *memoryView) SetTitle(title string)                     { v.title = title }
func (v *memoryView) ShowStatus(message string)                 { v.status = message }
func (v *memoryView) ApplyPreferences(prefs config.Preferences) { v.prefs = prefs }
func (v *memoryView) Lift()                                     { v.lifted++ }
func (v *memoryView) Close()                                    { v.closed = true }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
