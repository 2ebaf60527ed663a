// Package prefs handles easel user preferences persistence.
// Preferences are stored in ~/.config/easel/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/easel/internal/prompt"
)

// Prefs holds user preferences for easel.
type Prefs struct {
	Theme      string            `toml:"theme"`
	Parameters prompt.Parameters `toml:"parameters"`
}

const (
	defaultPrefsPath = "~/.config/easel/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, Parameters: prompt.Defaults()}
}

// Load reads preferences from the given path. It never fails: a missing or
// unreadable file yields defaults, and each stored field that is missing or
// malformed is replaced by its default on its own.
func Load(path string) Prefs {
	prefs := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs
	}
	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return prefs
	}

	var raw map[string]any
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return prefs
	}

	if theme, ok := raw["theme"].(string); ok && strings.TrimSpace(theme) != "" {
		prefs.Theme = strings.TrimSpace(theme)
	}
	if params, ok := raw["parameters"].(map[string]any); ok {
		prefs.Parameters = decodeParameters(params)
	}
	return prefs
}

func decodeParameters(raw map[string]any) prompt.Parameters {
	params := prompt.Defaults()

	switch v := raw["sref"].(type) {
	case string:
		if ref, err := prompt.ParseStyleReference(v); err == nil {
			params.StyleReference = ref
		}
	case int64:
		if ref, err := prompt.FixedStyle(int(v)); err == nil {
			params.StyleReference = ref
		}
	}
	if ar, ok := raw["ar"].(string); ok {
		params.AspectRatio = strings.TrimSpace(ar)
	}
	if s, ok := raw["s"].(int64); ok {
		params.StyleStrength = int(s)
	}
	return params.Normalize()
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
