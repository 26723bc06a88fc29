package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"

	"github.com/kobzarvs/scedit/internal/logger"
)

type Settings struct {
	WinGeometry      string `ini:"win_geometry"`
	ColorMode        int    `ini:"color_mode"`
	ColorBgBright    string `ini:"color_bg_bright"`
	ColorFgBright    string `ini:"color_fg_bright"`
	ColorBgLight     string `ini:"color_bg_light"`
	ColorFgLight     string `ini:"color_fg_light"`
	ColorBgDark      string `ini:"color_bg_dark"`
	ColorFgDark      string `ini:"color_fg_dark"`
	FontFamily       string `ini:"font_family"`
	FontSize         int    `ini:"font_size"`
	LineSpacing      int    `ini:"line_spacing"`
	ParagraphSpacing int    `ini:"paragraph_spacing"`
	MarginX          int    `ini:"margin_x"`
	MarginY          int    `ini:"margin_y"`
}

type Options struct {
	LiveWordCount bool `ini:"live_wordcount"`
}

// Preferences combine editor.ini, which is shared with the novelibre
// editor plugin, and the key bindings from keymap.toml. They are passed by
// value to every open editor; changes are pushed to them explicitly.
type Preferences struct {
	Settings Settings
	Options  Options
	Keymap   map[string]string
}

// ColorMode is a named foreground/background pair.
type ColorMode struct {
	Name       string
	Foreground string
	Background string
}

func Default() Preferences {
	return Preferences{
		Settings: Settings{
			WinGeometry:      "600x800",
			ColorMode:        0,
			ColorBgBright:    "white",
			ColorFgBright:    "black",
			ColorBgLight:     "antique white",
			ColorFgLight:     "black",
			ColorBgDark:      "gray20",
			ColorFgDark:      "light grey",
			FontFamily:       "Courier",
			FontSize:         12,
			LineSpacing:      4,
			ParagraphSpacing: 4,
			MarginX:          40,
			MarginY:          20,
		},
		Options: Options{
			LiveWordCount: false,
		},
		Keymap: map[string]string{
			"ctrl+s":      "apply",
			"ctrl+q":      "close",
			"ctrl+b":      "strong",
			"tab":         "emphasis",
			"ctrl+p":      "plain",
			"enter":       "new_paragraph",
			"f5":          "word_count",
			"f2":          "color_mode",
			"alt+s":       "split",
			"alt+n":       "create",
			"alt+pgdn":    "next_section",
			"alt+pgup":    "prev_section",
			"ctrl+c":      "copy",
			"ctrl+x":      "cut",
			"ctrl+v":      "paste",
			"ctrl+a":      "select_all",
			"left":        "move_left",
			"right":       "move_right",
			"up":          "move_up",
			"down":        "move_down",
			"home":        "line_start",
			"end":         "line_end",
			"pgup":        "page_up",
			"pgdn":        "page_down",
			"ctrl+home":   "text_start",
			"ctrl+end":    "text_end",
			"shift+left":  "select_left",
			"shift+right": "select_right",
			"shift+up":    "select_up",
			"shift+down":  "select_down",
			"shift+home":  "select_line_start",
			"shift+end":   "select_line_end",
			"backspace":   "backspace",
			"del":         "delete_char",
		},
	}
}

// ColorModes lists the selectable color modes; Settings.ColorMode indexes it.
func (p Preferences) ColorModes() []ColorMode {
	s := p.Settings
	return []ColorMode{
		{Name: "Bright mode", Foreground: s.ColorFgBright, Background: s.ColorBgBright},
		{Name: "Light mode", Foreground: s.ColorFgLight, Background: s.ColorBgLight},
		{Name: "Dark mode", Foreground: s.ColorFgDark, Background: s.ColorBgDark},
	}
}

// ActiveColorMode returns the selected color mode, falling back to the first
// one for out-of-range indexes.
func (p Preferences) ActiveColorMode() ColorMode {
	modes := p.ColorModes()
	if p.Settings.ColorMode < 0 || p.Settings.ColorMode >= len(modes) {
		return modes[0]
	}
	return modes[p.Settings.ColorMode]
}

// NextColorMode returns p with the following color mode selected.
func (p Preferences) NextColorMode() Preferences {
	p.Settings.ColorMode = (p.Settings.ColorMode + 1) % len(p.ColorModes())
	return p
}

const (
	settingsSection = "SETTINGS"
	optionsSection  = "OPTIONS"
)

// iniOptions match how the plugin's INI files are written: no inline
// comments, so values such as "#FAEBD7" survive.
var iniOptions = ini.LoadOptions{
	IgnoreInlineComment: true,
	InsensitiveKeys:     true,
}

// Load reads editor.ini and keymap.toml from ConfigDir. The returned error
// concerns editor.ini only; a broken keymap is logged and the default
// bindings are kept.
func Load() (Preferences, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), err
	}
	prefs, err := LoadFile(path)
	if err != nil {
		return prefs, err
	}
	keymap, kerr := LoadKeymap(filepath.Join(filepath.Dir(path), "keymap.toml"))
	if kerr != nil {
		logger.Warn("key bindings not loaded, using defaults", "err", kerr)
	}
	prefs.Keymap = keymap
	return prefs, nil
}

// LoadFile reads an editor.ini. Keys missing from the file keep their
// defaults, values that do not parse are skipped.
func LoadFile(path string) (Preferences, error) {
	prefs := Default()
	cfg, err := ini.LoadSources(iniOptions, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("reading %s: %w", path, err)
	}

	known := ini.Empty(iniOptions)
	if err := known.Section(settingsSection).ReflectFrom(&prefs.Settings); err != nil {
		return prefs, err
	}
	if err := known.Section(optionsSection).ReflectFrom(&prefs.Options); err != nil {
		return prefs, err
	}
	for _, name := range []string{settingsSection, optionsSection} {
		sec, err := cfg.GetSection(name)
		if err != nil {
			continue
		}
		for _, key := range sec.Keys() {
			if !known.Section(name).HasKey(key.Name()) {
				logger.Debug("ignoring unknown preference", "section", name, "key", key.Name(), "path", path)
			}
		}
	}

	if err := cfg.Section(settingsSection).MapTo(&prefs.Settings); err != nil {
		return Default(), fmt.Errorf("reading %s: %w", path, err)
	}
	if err := cfg.Section(optionsSection).MapTo(&prefs.Options); err != nil {
		return Default(), fmt.Errorf("reading %s: %w", path, err)
	}
	if n := prefs.Settings.ColorMode; n < 0 || n >= len(prefs.ColorModes()) {
		logger.Warn("color mode out of range", "color_mode", n, "path", path)
		prefs.Settings.ColorMode = 0
	}
	return prefs, nil
}

// LoadKeymap reads a TOML table of key names to actions and merges it over
// the default bindings.
func LoadKeymap(path string) (map[string]string, error) {
	keymap := Default().Keymap
	var user map[string]string
	md, err := toml.DecodeFile(path, &user)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keymap, nil
		}
		return keymap, err
	}
	for _, key := range md.Undecoded() {
		logger.Warn("ignoring key binding", "key", key.String(), "path", path)
	}
	for k, v := range user {
		keymap[k] = v
	}
	return keymap, nil
}

func Save(prefs Preferences) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, prefs)
}

// SaveFile writes the settings and options of prefs to an editor.ini
// atomically. Other sections and keys already in the file are kept. Key
// bindings are never written.
func SaveFile(path string, prefs Preferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cfg, err := ini.LoadSources(iniOptions, path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = ini.Empty(iniOptions), nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := cfg.Section(settingsSection).ReflectFrom(&prefs.Settings); err != nil {
		return err
	}
	cfg.Section(optionsSection).Key("live_wordcount").SetValue(yesNo(prefs.Options.LiveWordCount))

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := cfg.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ConfigDir is where editor.ini, keymap.toml and the log live, next to the host
// application's own configuration.
func ConfigDir() (string, error) {
	if v := os.Getenv("SCEDIT_CONFIG_HOME"); v != "" {
		return filepath.Clean(v), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".novx", "config"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "editor.ini"), nil
}
