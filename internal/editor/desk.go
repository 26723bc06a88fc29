// Package editor is the terminal presentation of section editor sessions:
// one full-screen window per open section, the topmost one active.
package editor

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/scedit/internal/config"
	"github.com/kobzarvs/scedit/internal/highlight"
	"github.com/kobzarvs/scedit/internal/logger"
	"github.com/kobzarvs/scedit/internal/session"
)

// Actions are the session operations a window triggers from the keyboard.
// *session.Controller implements it.
type Actions interface {
	ApplyNow(id string) error
	RequestClose(id string) error
	NavigateNext(id string) (string, error)
	NavigatePrev(id string) (string, error)
	CreateSection(id string) (string, error)
	SplitSection(id string, offset int) (string, error)
	ToggleFormat(id, tag string) error
	NewParagraph(id string) error
	ShowWordCount(id string) error
	CycleColorMode()
}

// Desk stacks the open windows and routes keys to the active one.
type Desk struct {
	screen     tcell.Screen
	highlight  *highlight.Engine
	actions    Actions
	windows    []*Window
	actionHook func(action string)
}

// NewDesk returns a desk drawing on s. hl may be nil.
func NewDesk(s tcell.Screen, hl *highlight.Engine) *Desk {
	return &Desk{screen: s, highlight: hl}
}

// SetActions connects the desk to the controller, which is created after
// the desk because it needs NewWindow.
func (d *Desk) SetActions(a Actions) { d.actions = a }

// NewWindow is a session.ViewFactory.
func (d *Desk) NewWindow(s *session.Session) session.View {
	w := &Window{desk: d, id: s.ID, goalX: -1}
	w.ApplyPreferences(config.Default())
	d.windows = append(d.windows, w)
	return w
}

// Active returns the topmost window, or nil.
func (d *Desk) Active() *Window {
	if len(d.windows) == 0 {
		return nil
	}
	return d.windows[len(d.windows)-1]
}

func (d *Desk) Empty() bool { return len(d.windows) == 0 }

func (d *Desk) Windows() []*Window {
	return append([]*Window(nil), d.windows...)
}

func (d *Desk) lift(w *Window) {
	if i := d.index(w); i >= 0 {
		d.windows = append(d.windows[:i], d.windows[i+1:]...)
		d.windows = append(d.windows, w)
	}
}

func (d *Desk) remove(w *Window) {
	if i := d.index(w); i >= 0 {
		d.windows = append(d.windows[:i], d.windows[i+1:]...)
	}
	w.closed = true
	if d.highlight != nil {
		d.highlight.Forget(w.id)
	}
}

func (d *Desk) index(w *Window) int {
	for i, x := range d.windows {
		if x == w {
			return i
		}
	}
	return -1
}

// Render draws the active window and shows the screen.
func (d *Desk) Render() {
	if w := d.Active(); w != nil {
		w.Render(d.screen)
	} else {
		d.screen.Clear()
		d.screen.HideCursor()
	}
	d.screen.Show()
}

// HandleKey applies a key event to the active window. Keys bound in the
// keymap run their action; other printable keys are typed.
func (d *Desk) HandleKey(ev *tcell.EventKey) {
	w := d.Active()
	if w == nil {
		return
	}
	key := keyString(ev)
	action, ok := w.prefs.Keymap[key]
	if !ok {
		if ev.Key() == tcell.KeyRune && ev.Modifiers()&(tcell.ModAlt|tcell.ModCtrl|tcell.ModMeta) == 0 {
			w.insert(string(ev.Rune()))
			d.edited(w)
		}
		return
	}
	d.exec(w, action)
}

func (d *Desk) exec(w *Window, action string) {
	if d.actionHook != nil {
		d.actionHook(action)
	}
	if handled, modified := w.edit(action); handled {
		if modified {
			d.edited(w)
		}
		return
	}
	if d.actions == nil {
		return
	}

	var err error
	switch action {
	case actionApply:
		err = d.actions.ApplyNow(w.id)
	case actionClose:
		err = d.actions.RequestClose(w.id)
	case actionStrong:
		err = d.actions.ToggleFormat(w.id, "strong")
	case actionEmphasis:
		err = d.actions.ToggleFormat(w.id, "em")
	case actionPlain:
		err = d.actions.ToggleFormat(w.id, "")
	case actionNewParagraph:
		err = d.actions.NewParagraph(w.id)
	case actionWordCount:
		err = d.actions.ShowWordCount(w.id)
	case actionColorMode:
		d.actions.CycleColorMode()
		w.status = w.prefs.ActiveColorMode().Name
	case actionSplit:
		_, err = d.actions.SplitSection(w.id, w.cursor)
	case actionCreate:
		_, err = d.actions.CreateSection(w.id)
	case actionNextSection:
		_, err = d.actions.NavigateNext(w.id)
	case actionPrevSection:
		_, err = d.actions.NavigatePrev(w.id)
	default:
		logger.Warn("unknown keymap action", "action", action)
		return
	}
	if err != nil {
		logger.Debug("action not completed", "action", action, "section", w.id, "err", err)
	}
}

func (d *Desk) edited(w *Window) {
	if w.prefs.Options.LiveWordCount && d.actions != nil {
		_ = d.actions.ShowWordCount(w.id)
	}
}

func parseColor(name string, fallback tcell.Color) tcell.Color {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		r, err1 := strconv.ParseInt(name[1:3], 16, 32)
		g, err2 := strconv.ParseInt(name[3:5], 16, 32)
		b, err3 := strconv.ParseInt(name[5:7], 16, 32)
		if err1 == nil && err2 == nil && err3 == nil {
			return tcell.NewRGBColor(int32(r), int32(g), int32(b))
		}
		return fallback
	}
	// Tk names: "antique white", "light grey", "gray20".
	name = strings.ToLower(strings.ReplaceAll(name, " ", ""))
	name = strings.ReplaceAll(name, "grey", "gray")
	if name == "default" {
		return tcell.ColorDefault
	}
	if level, ok := strings.CutPrefix(name, "gray"); ok && level != "" {
		n, err := strconv.Atoi(level)
		if err != nil || n < 0 || n > 100 {
			return fallback
		}
		v := int32((n*255 + 50) / 100)
		return tcell.NewRGBColor(v, v, v)
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return fallback
	}
	return c
}
