package editor

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// The desk is the session.Prompter of the terminal UI. Each prompt runs a
// nested event loop until answered; events that are not keys are posted
// again afterwards so the main loop still sees them.

func (d *Desk) AskYesNo(message string) bool {
	return d.modal("Question", message, "[y]es  [n]o", true)
}

func (d *Desk) ShowError(message string) {
	d.modal("Error", message, "press any key", false)
}

func (d *Desk) ShowInfo(message string) {
	d.modal("Information", message, "press any key", false)
}

func (d *Desk) modal(title, message, hint string, ask bool) bool {
	var deferred []tcell.Event
	defer func() {
		for _, ev := range deferred {
			_ = d.screen.PostEvent(ev)
		}
	}()
	for {
		d.drawPrompt(title, message, hint)
		switch ev := d.screen.PollEvent().(type) {
		case nil:
			return false
		case *tcell.EventKey:
			if !ask {
				return true
			}
			switch {
			case ev.Key() == tcell.KeyEnter,
				ev.Key() == tcell.KeyRune && (ev.Rune() == 'y' || ev.Rune() == 'Y'):
				return true
			case ev.Key() == tcell.KeyEscape,
				ev.Key() == tcell.KeyRune && (ev.Rune() == 'n' || ev.Rune() == 'N'):
				return false
			}
		case *tcell.EventResize:
			d.screen.Sync()
		default:
			deferred = append(deferred, ev)
		}
	}
}

func (d *Desk) drawPrompt(title, message, hint string) {
	if w := d.Active(); w != nil {
		w.Render(d.screen)
	} else {
		d.screen.Clear()
	}
	st := tcell.StyleDefault.Reverse(true)
	if w := d.Active(); w != nil {
		st = w.styles.bar
	}
	sw, sh := d.screen.Size()
	lines := strings.Split(message, "\n")
	lines = append(lines, "", hint)
	width := len([]rune(title)) + 4
	for _, l := range lines {
		if n := len([]rune(l)) + 4; n > width {
			width = n
		}
	}
	if width > sw {
		width = sw
	}
	height := len(lines) + 2
	x0, y0 := (sw-width)/2, (sh-height)/2
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := ' '
			switch {
			case y == 0 && x == 0:
				r = tcell.RuneULCorner
			case y == 0 && x == width-1:
				r = tcell.RuneURCorner
			case y == height-1 && x == 0:
				r = tcell.RuneLLCorner
			case y == height-1 && x == width-1:
				r = tcell.RuneLRCorner
			case y == 0 || y == height-1:
				r = tcell.RuneHLine
			case x == 0 || x == width-1:
				r = tcell.RuneVLine
			}
			d.screen.SetContent(x0+x, y0+y, r, nil, st)
		}
	}
	putString(d.screen, x0+2, y0, " "+title+" ", width-4, st.Bold(true))
	for i, l := range lines {
		putString(d.screen, x0+2, y0+1+i, l, width-4, st)
	}
	d.screen.HideCursor()
	d.screen.Show()
}

func putString(s tcell.Screen, x, y int, text string, limit int, st tcell.Style) {
	for i, r := range []rune(text) {
		if i >= limit {
			return
		}
		s.SetContent(x+i, y, r, nil, st)
	}
}
