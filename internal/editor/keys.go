package editor

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Actions bound through Preferences.Keymap.
const (
	actionApply           = "apply"
	actionClose           = "close"
	actionStrong          = "strong"
	actionEmphasis        = "emphasis"
	actionPlain           = "plain"
	actionNewParagraph    = "new_paragraph"
	actionWordCount       = "word_count"
	actionColorMode       = "color_mode"
	actionSplit           = "split"
	actionCreate          = "create"
	actionNextSection     = "next_section"
	actionPrevSection     = "prev_section"
	actionCopy            = "copy"
	actionCut             = "cut"
	actionPaste           = "paste"
	actionSelectAll       = "select_all"
	actionMoveLeft        = "move_left"
	actionMoveRight       = "move_right"
	actionMoveUp          = "move_up"
	actionMoveDown        = "move_down"
	actionLineStart       = "line_start"
	actionLineEnd         = "line_end"
	actionPageUp          = "page_up"
	actionPageDown        = "page_down"
	actionTextStart       = "text_start"
	actionTextEnd         = "text_end"
	actionSelectLeft      = "select_left"
	actionSelectRight     = "select_right"
	actionSelectUp        = "select_up"
	actionSelectDown      = "select_down"
	actionSelectLineStart = "select_line_start"
	actionSelectLineEnd   = "select_line_end"
	actionBackspace       = "backspace"
	actionDeleteChar      = "delete_char"
)

// keyString names a key event the way keymap entries are written, for
// example "ctrl+s", "alt+pgdn", "shift+left" or "f5".
func keyString(ev *tcell.EventKey) string {
	mods := ev.Modifiers()
	if ev.Key() == tcell.KeyRune {
		r := ev.Rune()
		name := strings.ToLower(string(r))
		if r == ' ' {
			name = "space"
		}
		switch {
		case mods&tcell.ModAlt != 0:
			return "alt+" + name
		case mods&tcell.ModCtrl != 0:
			return "ctrl+" + name
		case mods&tcell.ModMeta != 0:
			return "cmd+" + name
		}
		return string(r)
	}

	// Tab, Enter, Backspace and Escape share codes with Ctrl-I, Ctrl-M,
	// Ctrl-H and Ctrl-[.
	name := ""
	switch ev.Key() {
	case tcell.KeyTab:
		name = "tab"
	case tcell.KeyBacktab:
		return "shift+tab"
	case tcell.KeyEnter:
		name = "enter"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		name = "backspace"
	case tcell.KeyEscape:
		name = "esc"
	case tcell.KeyUp:
		name = "up"
	case tcell.KeyDown:
		name = "down"
	case tcell.KeyLeft:
		name = "left"
	case tcell.KeyRight:
		name = "right"
	case tcell.KeyPgUp:
		name = "pgup"
	case tcell.KeyPgDn:
		name = "pgdn"
	case tcell.KeyHome:
		name = "home"
	case tcell.KeyEnd:
		name = "end"
	case tcell.KeyDelete:
		name = "del"
	case tcell.KeyInsert:
		name = "insert"
	}
	if ev.Key() >= tcell.KeyF1 && ev.Key() <= tcell.KeyF12 {
		name = "f" + strconv.Itoa(int(ev.Key()-tcell.KeyF1)+1)
	}
	if name == "" {
		if ctrl := ctrlKeyName(ev.Key()); ctrl != "" {
			if mods&tcell.ModAlt != 0 {
				return "alt+" + ctrl
			}
			return ctrl
		}
		return ""
	}

	var prefix string
	if mods&tcell.ModCtrl != 0 {
		prefix += "ctrl+"
	}
	if mods&tcell.ModAlt != 0 {
		prefix += "alt+"
	}
	if mods&tcell.ModShift != 0 {
		prefix += "shift+"
	}
	return prefix + name
}

func ctrlKeyName(key tcell.Key) string {
	if key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ {
		return "ctrl+" + string(rune('a'+int(key-tcell.KeyCtrlA)))
	}
	return ""
}
