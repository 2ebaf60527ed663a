package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Escape     key.Binding

	// View switching
	ViewJobs  key.Binding
	ViewSaved key.Binding
	ViewLogs  key.Binding

	// Prompt and parameters
	EditPrompt   key.Binding
	Submit       key.Binding
	CycleAspect  key.Binding
	StrengthDown key.Binding
	StrengthUp   key.Binding
	ToggleRandom key.Binding
	AdoptParams  key.Binding

	// Job actions
	Upscale    key.Binding
	Vary       key.Binding
	ToggleSave key.Binding

	// Saved actions
	EditNotes   key.Binding
	DeleteSaved key.Binding
	Refresh     key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Logs
	ToggleFollow key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),

		ViewJobs: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Jobs view"),
		),
		ViewSaved: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Saved view"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Log view"),
		),

		EditPrompt: key.NewBinding(
			key.WithKeys("i", "/"),
			key.WithHelp("i", "Write prompt"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit"),
		),
		CycleAspect: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Cycle aspect ratio"),
		),
		StrengthDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Style strength -50"),
		),
		StrengthUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Style strength +50"),
		),
		ToggleRandom: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Random style on/off"),
		),
		AdoptParams: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Use job's parameters"),
		),

		Upscale: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u 1-4", "Upscale cell"),
		),
		Vary: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v 1-4", "Vary cell"),
		),
		ToggleSave: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save/unsave job"),
		),

		EditNotes: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Edit notes"),
		),
		DeleteSaved: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Remove saved"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload collection"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("ctrl+u", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("ctrl+d", "Page down"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle follow"),
		),
	}
}

// bindingItems lists bindings for the help overlay.
func bindingItems(bindings ...key.Binding) []helpItem {
	items := make([]helpItem, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		items = append(items, helpItem{key: h.Key, desc: h.Desc})
	}
	return items
}
