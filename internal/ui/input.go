package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/easel/internal/prefs"
	"github.com/five82/easel/internal/prompt"
)

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.promptInput.Focused() {
		return m.handlePromptKey(msg)
	}
	if m.notesInput.Focused() {
		return m.handleNotesKey(msg)
	}
	if m.pending != chordNone {
		return m.handleChord(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.currentView = (m.currentView + 1) % 3
		return m, m.enterView()

	case key.Matches(msg, m.keys.ViewJobs):
		m.currentView = ViewJobs
		return m, nil

	case key.Matches(msg, m.keys.ViewSaved):
		m.currentView = ViewSaved
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.enterView()

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewJobs
		return m, nil
	}

	switch m.currentView {
	case ViewJobs:
		return m.handleJobsKey(msg)
	case ViewSaved:
		return m.handleSavedKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// enterView fetches view data immediately instead of waiting for a tick.
func (m Model) enterView() tea.Cmd {
	if m.currentView == ViewLogs {
		return m.fetchLogsCmd()
	}
	return nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.promptInput.Blur()
		return m, nil
	case tea.KeyEnter:
		input := strings.TrimSpace(m.promptInput.Value())
		if input == "" {
			return m, nil
		}
		m.promptInput.Reset()
		m.promptInput.Blur()
		m.selectedJob = 0
		return m, m.generateCmd(input)
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) handleNotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.notesInput.Blur()
		m.editingNote = ""
		return m, nil
	case tea.KeyEnter:
		savedID := m.editingNote
		notes := m.notesInput.Value()
		m.notesInput.Blur()
		m.editingNote = ""
		if savedID == "" || m.actions == nil {
			return m, nil
		}
		actions := m.actions
		return m, m.actionCmd("Notes updated", func(ctx context.Context) error {
			_, err := actions.UpdateNotes(ctx, savedID, notes)
			return err
		})
	}

	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

// handleChord completes "u 1-4" and "v 1-4". Anything else cancels.
func (m Model) handleChord(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pending := m.pending
	m.pending = chordNone

	choice := 0
	switch msg.String() {
	case "1", "2", "3", "4":
		choice = int(msg.String()[0] - '0')
	default:
		m.status = ""
		return m, nil
	}

	job, ok := m.selectedJobValue()
	if !ok || m.actions == nil {
		return m, nil
	}
	actions := m.actions
	jobID := job.ID

	if pending == chordUpscale {
		return m, m.actionCmd(fmt.Sprintf("Upscale %d requested", choice), func(ctx context.Context) error {
			_, err := actions.Upscale(ctx, jobID, choice)
			return err
		})
	}
	return m, m.actionCmd(fmt.Sprintf("Variation %d requested", choice), func(ctx context.Context) error {
		_, err := actions.Vary(ctx, jobID, choice)
		return err
	})
}

func (m Model) handleJobsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.EditPrompt):
		m.currentView = ViewJobs
		return m, m.promptInput.Focus()

	case key.Matches(msg, m.keys.CycleAspect):
		m.setParams(m.params.NextAspectRatio())
		return m, nil

	case key.Matches(msg, m.keys.StrengthDown):
		m.setParams(m.params.AdjustStrength(-strengthStep))
		return m, nil

	case key.Matches(msg, m.keys.StrengthUp):
		m.setParams(m.params.AdjustStrength(strengthStep))
		return m, nil

	case key.Matches(msg, m.keys.ToggleRandom):
		if !m.params.StyleReference.IsRandom() {
			m.lastStyle = m.params.StyleReference
		}
		m.setParams(toggleRandom(m.params, m.lastStyle))
		return m, nil

	case key.Matches(msg, m.keys.AdoptParams):
		if job, ok := m.selectedJobValue(); ok {
			m.setParams(job.Parameters)
			m.status = "Using parameters from selected job"
			m.statusErr = false
		}
		return m, nil

	case key.Matches(msg, m.keys.Upscale):
		if _, ok := m.selectedJobValue(); ok {
			m.pending = chordUpscale
			m.status = "Upscale which cell? 1-4"
			m.statusErr = false
		}
		return m, nil

	case key.Matches(msg, m.keys.Vary):
		if _, ok := m.selectedJobValue(); ok {
			m.pending = chordVary
			m.status = "Vary which cell? 1-4"
			m.statusErr = false
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSave):
		return m, m.toggleSaveCmd()
	}

	m.selectedJob = moveSelection(msg, m.keys, m.selectedJob, len(m.snapshot.Jobs), m.pageSize())
	return m, nil
}

func (m Model) handleSavedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.actions == nil {
			return m, nil
		}
		return m, m.refreshSavedCmd()

	case key.Matches(msg, m.keys.EditNotes):
		saved, ok := m.selectedSavedValue()
		if !ok {
			return m, nil
		}
		m.editingNote = saved.ID
		m.notesInput.SetValue(saved.Notes)
		m.notesInput.CursorEnd()
		return m, m.notesInput.Focus()

	case key.Matches(msg, m.keys.DeleteSaved):
		saved, ok := m.selectedSavedValue()
		if !ok || m.actions == nil {
			return m, nil
		}
		actions := m.actions
		savedID := saved.ID
		return m, m.actionCmd("Removed from collection", func(ctx context.Context) error {
			return actions.DeleteSaved(ctx, savedID)
		})
	}

	m.selectedSaved = moveSelection(msg, m.keys, m.selectedSaved, len(m.snapshot.Saved), m.pageSize())
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
			return m, m.fetchLogsCmd()
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.logFollow = false
		m.logViewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.logFollow = false
		m.logViewport.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.HalfViewDown()
	case key.Matches(msg, m.keys.Top):
		m.logFollow = false
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logFollow = true
		m.logViewport.GotoBottom()
	}
	return m, nil
}

func (m Model) generateCmd(input string) tea.Cmd {
	if m.actions == nil {
		return nil
	}
	actions := m.actions
	params := m.params
	return m.actionCmd("Prompt submitted", func(ctx context.Context) error {
		_, err := actions.Generate(ctx, input, params)
		return err
	})
}

func (m Model) toggleSaveCmd() tea.Cmd {
	job, ok := m.selectedJobValue()
	if !ok || m.actions == nil {
		return nil
	}
	actions := m.actions
	jobID := job.ID
	if job.Saved {
		return m.actionCmd("Removed from collection", func(ctx context.Context) error {
			return actions.Unsave(ctx, jobID)
		})
	}
	return m.actionCmd("Saved to collection", func(ctx context.Context) error {
		_, err := actions.Save(ctx, jobID)
		return err
	})
}

// setParams updates the generation controls and persists them.
func (m *Model) setParams(p prompt.Parameters) {
	m.params = p.Normalize()
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Parameters: m.params}); err != nil {
		m.status = "Preferences not saved: " + err.Error()
		m.statusErr = true
	}
}

// toggleRandom switches between a random style and last. A random last
// falls back to style 1.
func toggleRandom(p prompt.Parameters, last prompt.StyleReference) prompt.Parameters {
	if !p.StyleReference.IsRandom() {
		p.StyleReference = prompt.RandomStyle()
		return p
	}
	if last.IsRandom() {
		last, _ = prompt.FixedStyle(1)
	}
	p.StyleReference = last
	return p
}

// moveSelection applies a navigation key to a list cursor.
func moveSelection(msg tea.KeyMsg, keys keyMap, current, count, page int) int {
	if count == 0 {
		return 0
	}
	switch {
	case key.Matches(msg, keys.Up):
		current--
	case key.Matches(msg, keys.Down):
		current++
	case key.Matches(msg, keys.Top):
		current = 0
	case key.Matches(msg, keys.Bottom):
		current = count - 1
	case key.Matches(msg, keys.PageUp):
		current -= page
	case key.Matches(msg, keys.PageDown):
		current += page
	}
	return clamp(current, 0, count-1)
}
