package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConfigDirEnv(t *testing.T) {
	t.Setenv("SCEDIT_CONFIG_HOME", "/tmp/scedit-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/scedit-config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/scedit-config")
	}

	t.Setenv("SCEDIT_CONFIG_HOME", "")
	t.Setenv("HOME", "/tmp/home")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/home/.novx/config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/home/.novx/config")
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("SCEDIT_CONFIG_HOME", t.TempDir())
	prefs, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if prefs.Settings.WinGeometry != "600x800" {
		t.Fatalf("WinGeometry = %q, want %q", prefs.Settings.WinGeometry, "600x800")
	}
	if prefs.Settings.FontSize != 12 {
		t.Fatalf("FontSize = %d, want 12", prefs.Settings.FontSize)
	}
	if prefs.Options.LiveWordCount {
		t.Fatalf("LiveWordCount = true, want false")
	}
}

func TestLoadPluginFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCEDIT_CONFIG_HOME", dir)
	writeFile(t, filepath.Join(dir, "editor.ini"), `[SETTINGS]
win_geometry = 900x700+10+10
color_mode = 1
color_bg_light = antique white
color_fg_dark = light grey
font_family = DejaVu Sans Mono
line_spacing = 0
margin_x = 0
margin_y = 0
unknown_key = ignored

[OPTIONS]
live_wordcount = Yes
`)

	prefs, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	s := prefs.Settings
	if s.WinGeometry != "900x700+10+10" {
		t.Fatalf("WinGeometry = %q, want %q", s.WinGeometry, "900x700+10+10")
	}
	if s.ColorMode != 1 {
		t.Fatalf("ColorMode = %d, want 1", s.ColorMode)
	}
	if got := prefs.ActiveColorMode().Background; got != "antique white" {
		t.Fatalf("active background = %q, want %q", got, "antique white")
	}
	if s.FontFamily != "DejaVu Sans Mono" {
		t.Fatalf("FontFamily = %q, want %q", s.FontFamily, "DejaVu Sans Mono")
	}
	if s.LineSpacing != 0 || s.MarginX != 0 || s.MarginY != 0 {
		t.Fatalf("spacing = %d/%d/%d, want zeros from the file", s.LineSpacing, s.MarginX, s.MarginY)
	}
	if s.FontSize != 12 || s.ParagraphSpacing != 4 {
		t.Fatalf("FontSize/ParagraphSpacing = %d/%d, want defaults", s.FontSize, s.ParagraphSpacing)
	}
	if !prefs.Options.LiveWordCount {
		t.Fatalf("LiveWordCount = false, want true")
	}
}

func TestLoadBooleans(t *testing.T) {
	for _, tt := range []struct {
		value string
		want  bool
	}{
		{"Yes", true},
		{"No", false},
		{"true", true},
		{"0", false},
	} {
		path := filepath.Join(t.TempDir(), "editor.ini")
		writeFile(t, path, "[OPTIONS]\nlive_wordcount = "+tt.value+"\n")
		prefs, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s) error: %v", tt.value, err)
		}
		if prefs.Options.LiveWordCount != tt.want {
			t.Fatalf("live_wordcount = %s read as %v, want %v", tt.value, prefs.Options.LiveWordCount, tt.want)
		}
	}
}

func TestLoadSkipsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.ini")
	writeFile(t, path, "[SETTINGS]\nfont_size = big\ncolor_mode = 7\nmargin_x = 12\n")
	prefs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if prefs.Settings.FontSize != 12 || prefs.Settings.ColorMode != 0 {
		t.Fatalf("FontSize/ColorMode = %d/%d, want defaults", prefs.Settings.FontSize, prefs.Settings.ColorMode)
	}
	if prefs.Settings.MarginX != 12 {
		t.Fatalf("MarginX = %d, want 12", prefs.Settings.MarginX)
	}
}

func TestLoadKeymap(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCEDIT_CONFIG_HOME", dir)
	writeFile(t, filepath.Join(dir, "keymap.toml"), `
"ctrl+w" = "close"
"ctrl+s" = "word_count"
`)

	prefs, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if prefs.Keymap["ctrl+w"] != "close" || prefs.Keymap["ctrl+s"] != "word_count" || prefs.Keymap["ctrl+q"] != "close" {
		t.Fatalf("Keymap = %v, want merged bindings", prefs.Keymap)
	}

	writeFile(t, filepath.Join(dir, "keymap.toml"), "[broken\n")
	prefs, err = Load()
	if err != nil {
		t.Fatalf("Load error with broken keymap: %v", err)
	}
	if prefs.Keymap["ctrl+s"] != "apply" {
		t.Fatalf("Keymap[ctrl+s] = %q, want default", prefs.Keymap["ctrl+s"])
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.ini")
	writeFile(t, path, "[SETTINGS\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("LoadFile error = nil, want parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCEDIT_CONFIG_HOME", dir)
	path := filepath.Join(dir, "editor.ini")
	writeFile(t, path, "[SETTINGS]\nplugin_key = kept\n\n[OTHER]\nx = 1\n")

	prefs := Default()
	prefs.Settings.WinGeometry = "120x40"
	prefs.Settings.ColorMode = 1
	prefs.Settings.ColorBgBright = "#FFFFF0"
	prefs.Settings.MarginY = 0
	prefs.Options.LiveWordCount = true
	prefs.Keymap["ctrl+w"] = "close"
	if err := Save(prefs); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{"[SETTINGS]", "[OPTIONS]", "[OTHER]", "plugin_key", "live_wordcount = Yes"} {
		if !strings.Contains(text, want) {
			t.Fatalf("editor.ini missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ctrl+w") || strings.Contains(text, "`") || strings.Contains(text, "\"") {
		t.Fatalf("editor.ini has keymap or quoted values:\n%s", text)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	s := loaded.Settings
	if s.WinGeometry != "120x40" || s.ColorMode != 1 || s.ColorBgBright != "#FFFFF0" || s.MarginY != 0 || !loaded.Options.LiveWordCount {
		t.Fatalf("loaded = %+v, want saved settings", s)
	}
}

func TestNextColorModeWraps(t *testing.T) {
	prefs := Default()
	names := []string{}
	for i := 0; i < 4; i++ {
		names = append(names, prefs.ActiveColorMode().Name)
		prefs = prefs.NextColorMode()
	}
	want := "Bright mode,Light mode,Dark mode,Bright mode"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("color modes = %q, want %q", got, want)
	}
}
