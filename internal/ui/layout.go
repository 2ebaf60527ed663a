package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/easel/internal/state"
)

// chromeHeight is the rows used by header, prompt bar and footer.
const chromeHeight = 5

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	sep := "  "

	counts := map[state.Status]int{}
	for _, job := range m.snapshot.Jobs {
		counts[job.Status]++
	}
	active := counts[state.StatusPending] + counts[state.StatusGenerating] + counts[state.StatusUpscaling]

	parts := []string{
		styles.Logo.Render("easel"),
		m.renderTabs(styles),
		styles.InfoText.Render(fmt.Sprintf("%d active", active)),
		styles.SuccessText.Render(fmt.Sprintf("%d done", counts[state.StatusDone])),
	}
	if n := counts[state.StatusError]; n > 0 {
		parts = append(parts, styles.DangerText.Render(fmt.Sprintf("%d failed", n)))
	}
	if m.snapshot.SavedLoaded {
		parts = append(parts, styles.WarningText.Render(fmt.Sprintf("%d saved", len(m.snapshot.Saved))))
	}
	if m.snapshot.CollectionError != nil {
		parts = append(parts, styles.DangerText.Render("collection offline"))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render(m.lastUpdated.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) renderTabs(styles Styles) string {
	names := []struct {
		view  View
		label string
	}{
		{ViewJobs, "1 Jobs"},
		{ViewSaved, "2 Saved"},
		{ViewLogs, "3 Logs"},
	}
	tabs := make([]string, 0, len(names))
	for _, n := range names {
		if n.view == m.currentView {
			tabs = append(tabs, styles.AccentText.Bold(true).Render("["+n.label+"]"))
			continue
		}
		tabs = append(tabs, styles.MutedText.Render(" "+n.label+" "))
	}
	return strings.Join(tabs, "")
}

// renderPromptBar shows the prompt input and the active parameters.
func (m Model) renderPromptBar() string {
	styles := m.theme.Styles()

	var input string
	switch {
	case m.promptInput.Focused():
		input = m.promptInput.View()
	case m.notesInput.Focused():
		input = m.notesInput.View()
	default:
		input = styles.FaintText.Render("press i to write a prompt")
	}

	params := styles.MutedText.Render(m.paramsSummary())
	return input + "\n" + params
}

func (m Model) paramsSummary() string {
	style := m.params.StyleReference.String()
	return fmt.Sprintf("sref %s  ar %s  s %d", style, m.params.AspectRatio, m.params.StyleStrength)
}

// renderFooter renders the status line and key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	var left string
	switch {
	case m.status != "" && m.statusErr:
		left = styles.DangerText.Render(m.status)
	case m.status != "":
		left = styles.InfoText.Render(m.status)
	default:
		left = styles.FaintText.Render(m.footerHints())
	}
	return styles.Footer.Width(m.width).Render(left)
}

func (m Model) footerHints() string {
	switch m.currentView {
	case ViewSaved:
		return "n notes  d remove  r reload  ? help"
	case ViewLogs:
		follow := "off"
		if m.logFollow {
			follow = "on"
		}
		return "space follow (" + follow + ")  g/G top/bottom  ? help"
	default:
		return "i prompt  u/v 1-4 upscale/vary  s save  a ratio  [/] strength  ? help"
	}
}

// renderBox draws content in a bordered box sized to the content area.
func (m Model) renderBox(title, content string, height int) string {
	styles := m.theme.Styles()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		Width(max(0, m.width-2)).
		Height(max(0, height-2))
	return styles.AccentText.Bold(true).Render(title) + "\n" + box.Render(content)
}

// contentHeight is the space left for the active view.
func (m Model) contentHeight() int {
	return max(3, m.height-chromeHeight)
}

// pageSize is the number of list rows a page key moves.
func (m Model) pageSize() int {
	return max(1, m.contentHeight()/2)
}

func ago(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanizeDuration(now.Sub(t))
}
