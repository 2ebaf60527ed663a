package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	k := m.keys

	sections := []helpSection{
		{
			title: "Prompt",
			items: bindingItems(k.EditPrompt, k.Submit, k.CycleAspect, k.StrengthDown, k.StrengthUp, k.ToggleRandom, k.AdoptParams),
		},
		{
			title: "Jobs",
			items: bindingItems(k.Upscale, k.Vary, k.ToggleSave),
		},
		{
			title: "Saved",
			items: bindingItems(k.EditNotes, k.DeleteSaved, k.Refresh),
		},
		{
			title: "Navigation",
			items: bindingItems(k.Tab, k.ViewJobs, k.ViewSaved, k.ViewLogs, k.Up, k.Down, k.Top, k.Bottom, k.ToggleFollow),
		},
		{
			title: "General",
			items: bindingItems(k.CycleTheme, k.Help, k.Escape, k.Quit),
		},
	}

	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
