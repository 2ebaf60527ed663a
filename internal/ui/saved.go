package ui

import (
	"fmt"
	"strings"
	"time"
)

// renderSaved renders the persisted collection.
func (m Model) renderSaved() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	inner := max(1, height-2)
	title := fmt.Sprintf("Saved (%d)", len(m.snapshot.Saved))

	switch {
	case m.snapshot.CollectionError != nil && !m.snapshot.SavedLoaded:
		msg := styles.DangerText.Render("Collection unavailable: "+m.snapshot.CollectionError.Error()) +
			"\n" + styles.FaintText.Render("press r to retry")
		return m.renderBox(title, msg, height)
	case !m.snapshot.SavedLoaded:
		return m.renderBox(title, styles.FaintText.Render("Loading collection..."), height)
	case len(m.snapshot.Saved) == 0:
		return m.renderBox(title, styles.FaintText.Render("Nothing saved yet. Press s on a finished job."), height)
	}

	// Each record takes two rows: prompt then notes.
	rows := max(1, inner/2)
	start := 0
	if m.selectedSaved >= rows {
		start = m.selectedSaved - rows + 1
	}
	end := min(len(m.snapshot.Saved), start+rows)
	now := time.Now()
	width := max(10, m.width-20)

	lines := make([]string, 0, (end-start)*2+1)
	if m.snapshot.CollectionError != nil {
		lines = append(lines, styles.WarningText.Render("showing cached list: "+m.snapshot.CollectionError.Error()))
	}
	for i := start; i < end; i++ {
		saved := m.snapshot.Saved[i]
		marker := "  "
		if i == m.selectedSaved {
			marker = styles.Selected.Render("›") + " "
		}
		age := styles.FaintText.Render(fmt.Sprintf("%4s", ago(now, saved.SavedAt)))
		extra := ""
		if n := len(saved.ModifiedImages); n > 0 {
			extra = styles.MutedText.Render(fmt.Sprintf(" +%d", n))
		}
		lines = append(lines, marker+age+" "+styles.Text.Render(truncate(singleLine(saved.Prompt), width))+extra)

		notes := styles.FaintText.Render("no notes")
		if strings.TrimSpace(saved.Notes) != "" {
			notes = styles.InfoText.Render(truncate(singleLine(saved.Notes), width))
		}
		lines = append(lines, "       "+notes)
	}
	return m.renderBox(title, strings.Join(lines, "\n"), height)
}
