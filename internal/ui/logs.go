package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// updateLogViewport resizes the viewport and re-renders its content.
func (m *Model) updateLogViewport() {
	m.logViewport.Width = max(0, m.width-4)
	m.logViewport.Height = max(1, m.contentHeight()-2)
	m.logViewport.Style = lipgloss.NewStyle()
	m.logViewport.SetContent(m.renderLogContent())
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}

// renderLogContent formats tailed entries one per line.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if len(m.logEntries) == 0 {
		if m.logPath == "" {
			return styles.FaintText.Render("No log file configured")
		}
		return styles.FaintText.Render("No log entries in " + m.logPath)
	}

	width := max(20, m.width-4)
	lines := make([]string, 0, len(m.logEntries))
	for _, e := range m.logEntries {
		ts := ""
		if !e.Time.IsZero() {
			ts = e.Time.Local().Format("15:04:05")
		}
		level := strings.ToUpper(e.Level)
		if level == "" {
			level = "-"
		}
		line := styles.FaintText.Render(fmt.Sprintf("%-8s", ts)) + " " +
			m.levelStyle(e.Level).Render(fmt.Sprintf("%-5s", truncate(level, 5))) + " " +
			styles.Text.Render(e.Message)
		if fields := e.FieldString(); fields != "" {
			line += " " + styles.MutedText.Render(fields)
		}
		lines = append(lines, truncateStyled(line, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		return styles.DangerText
	case "warn":
		return styles.WarningText
	case "debug", "trace":
		return styles.FaintText
	default:
		return styles.InfoText
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	title := "Logs"
	if m.logPath != "" {
		title = "Logs " + truncateMiddle(m.logPath, max(10, m.width/2))
	}
	if m.logFollow {
		title += " (following)"
	}
	return m.renderBox(title, m.logViewport.View(), m.contentHeight())
}

// truncateStyled cuts a rendered line to width display cells.
func truncateStyled(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
