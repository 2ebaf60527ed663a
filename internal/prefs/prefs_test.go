package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/easel/internal/prompt"
)

func writePrefs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p := Load("")
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if p.Parameters != prompt.Defaults() {
		t.Fatalf("Parameters = %#v, want defaults", p.Parameters)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "easel")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	prefsFile := filepath.Join(prefsDir, "prefs.toml")
	if err := os.WriteFile(prefsFile, []byte("theme = \"Slate\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p := Load("")
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Slate")
	}
}

func TestLoad_ReadsParameters(t *testing.T) {
	path := writePrefs(t, `
theme = "Slate"

[parameters]
sref = "17"
ar = "1:1"
s = 250
`)
	p := Load(path)
	if code, ok := p.Parameters.StyleReference.Code(); !ok || code != 17 {
		t.Fatalf("sref = %v, want 17", p.Parameters.StyleReference)
	}
	if p.Parameters.AspectRatio != "1:1" || p.Parameters.StyleStrength != 250 {
		t.Fatalf("Parameters = %#v", p.Parameters)
	}
}

func TestLoad_MalformedFieldsFallBackIndividually(t *testing.T) {
	path := writePrefs(t, `
theme = 42

[parameters]
sref = 9
ar = "7:5"
s = 5000
`)
	p := Load(path)
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if code, ok := p.Parameters.StyleReference.Code(); !ok || code != 9 {
		t.Fatalf("sref = %v, want 9 from numeric form", p.Parameters.StyleReference)
	}
	if p.Parameters.AspectRatio != "16:9" {
		t.Fatalf("AspectRatio = %q, want default", p.Parameters.AspectRatio)
	}
	if p.Parameters.StyleStrength != 1000 {
		t.Fatalf("StyleStrength = %d, want default", p.Parameters.StyleStrength)
	}
}

func TestLoad_WrongParameterShapeUsesDefaults(t *testing.T) {
	path := writePrefs(t, "parameters = \"16:9\"\n")
	p := Load(path)
	if p.Parameters != prompt.Defaults() {
		t.Fatalf("Parameters = %#v, want defaults", p.Parameters)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	prefsFile := filepath.Join(tmp, "subdir", "prefs.toml")

	ref, _ := prompt.FixedStyle(42)
	want := Prefs{Theme: "Slate", Parameters: prompt.Parameters{StyleReference: ref, AspectRatio: "9:16", StyleStrength: 10}}
	if err := Save(prefsFile, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded := Load(prefsFile)
	if loaded != want {
		t.Fatalf("Load = %#v, want %#v", loaded, want)
	}
}

func TestLoad_EmptyThemeFallsBackToDefault(t *testing.T) {
	p := Load(writePrefs(t, "theme = \"\"\n"))
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	p := Load(writePrefs(t, "not valid toml {{{\n"))
	if p != Defaults() {
		t.Fatalf("Load = %#v, want defaults", p)
	}
}
