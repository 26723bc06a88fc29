package editor

import (
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/scedit/internal/config"
)

func eventForKeyString(t *testing.T, key string) *tcell.EventKey {
	t.Helper()
	parts := strings.Split(key, "+")
	base := parts[len(parts)-1]
	var mod tcell.ModMask
	for _, part := range parts[:len(parts)-1] {
		switch part {
		case "ctrl":
			mod |= tcell.ModCtrl
		case "alt":
			mod |= tcell.ModAlt
		case "shift":
			mod |= tcell.ModShift
		default:
			t.Fatalf("unknown modifier %q in %q", part, key)
		}
	}

	if mod == tcell.ModCtrl {
		if r := []rune(base); len(r) == 1 && unicode.IsLetter(r[0]) {
			return tcell.NewEventKey(tcell.KeyCtrlA+tcell.Key(unicode.ToLower(r[0])-'a'), 0, 0)
		}
	}

	switch base {
	case "left":
		return tcell.NewEventKey(tcell.KeyLeft, 0, mod)
	case "right":
		return tcell.NewEventKey(tcell.KeyRight, 0, mod)
	case "up":
		return tcell.NewEventKey(tcell.KeyUp, 0, mod)
	case "down":
		return tcell.NewEventKey(tcell.KeyDown, 0, mod)
	case "home":
		return tcell.NewEventKey(tcell.KeyHome, 0, mod)
	case "end":
		return tcell.NewEventKey(tcell.KeyEnd, 0, mod)
	case "pgup":
		return tcell.NewEventKey(tcell.KeyPgUp, 0, mod)
	case "pgdn":
		return tcell.NewEventKey(tcell.KeyPgDn, 0, mod)
	case "enter":
		return tcell.NewEventKey(tcell.KeyEnter, 0, mod)
	case "backspace":
		return tcell.NewEventKey(tcell.KeyBackspace, 0, mod)
	case "del":
		return tcell.NewEventKey(tcell.KeyDelete, 0, mod)
	case "tab":
		return tcell.NewEventKey(tcell.KeyTab, 0, mod)
	case "esc":
		return tcell.NewEventKey(tcell.KeyEscape, 0, mod)
	case "f2":
		return tcell.NewEventKey(tcell.KeyF2, 0, mod)
	case "f5":
		return tcell.NewEventKey(tcell.KeyF5, 0, mod)
	}
	if r := []rune(base); len(r) == 1 {
		return tcell.NewEventKey(tcell.KeyRune, r[0], mod)
	}
	t.Fatalf("unsupported key %q", key)
	return nil
}

func TestDefaultKeymapKeysRoundTrip(t *testing.T) {
	keymap := config.Default().Keymap
	keys := make([]string, 0, len(keymap))
	for k := range keymap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if got := keyString(eventForKeyString(t, key)); got != key {
				t.Fatalf("keyString = %q, want %q", got, key)
			}
		})
	}
}

func TestKeyStringSharedCodes(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{tcell.NewEventKey(tcell.KeyEnter, 0, 0), "enter"},
		{tcell.NewEventKey(tcell.KeyTab, 0, 0), "tab"},
		{tcell.NewEventKey(tcell.KeyBackspace2, 0, 0), "backspace"},
		{tcell.NewEventKey(tcell.KeyCtrlP, 0, tcell.ModCtrl), "ctrl+p"},
		{tcell.NewEventKey(tcell.KeyRune, 'X', tcell.ModShift), "X"},
		{tcell.NewEventKey(tcell.KeyRune, ' ', 0), " "},
		{tcell.NewEventKey(tcell.KeyF12, 0, 0), "f12"},
	}
	for _, tt := range tests {
		if got := keyString(tt.ev); got != tt.want {
			t.Fatalf("keyString(%v) = %q, want %q", tt.ev.Name(), got, tt.want)
		}
	}
}
