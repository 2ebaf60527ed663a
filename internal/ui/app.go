package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/easel/internal/collection"
	"github.com/five82/easel/internal/logtail"
	"github.com/five82/easel/internal/prefs"
	"github.com/five82/easel/internal/prompt"
	"github.com/five82/easel/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewJobs View = iota
	ViewSaved
	ViewLogs
)

// Actions is the session surface the UI drives.
type Actions interface {
	Generate(ctx context.Context, input string, params prompt.Parameters) (string, error)
	Upscale(ctx context.Context, jobID string, choice int) (state.OperationKey, error)
	Vary(ctx context.Context, jobID string, choice int) (state.OperationKey, error)
	Save(ctx context.Context, jobID string) (collection.SavedJob, error)
	Unsave(ctx context.Context, jobID string) error
	DeleteSaved(ctx context.Context, savedID string) error
	UpdateNotes(ctx context.Context, savedID, notes string) (collection.SavedJob, error)
	RefreshSaved(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Actions    Actions
	Store      *state.Store
	PollTick   time.Duration
	ThemeName  string
	Parameters prompt.Parameters
	PrefsPath  string
	LogPath    string
}

const (
	actionTimeout = 3 * time.Minute
	logFetchLimit = 500
	strengthStep  = 50
)

// chord is a key waiting for its grid cell digit.
type chord int

const (
	chordNone chord = iota
	chordUpscale
	chordVary
)

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	actions   Actions
	store     *state.Store
	keys      keyMap
	prefsPath string
	logPath   string
	pollTick  time.Duration

	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	params      prompt.Parameters
	lastStyle   prompt.StyleReference
	promptInput textinput.Model
	notesInput  textinput.Model
	editingNote string
	pending     chord

	selectedJob   int
	selectedSaved int

	logViewport viewport.Model
	logEntries  []logtail.Entry
	logFollow   bool

	status    string
	statusErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	params := opts.Parameters
	if params == (prompt.Parameters{}) {
		params = prompt.Defaults()
	}

	promptInput := textinput.New()
	promptInput.Placeholder = "Describe an image..."
	promptInput.Prompt = "› "
	promptInput.CharLimit = 2000

	notesInput := textinput.New()
	notesInput.Placeholder = "Notes"
	notesInput.Prompt = "notes › "
	notesInput.CharLimit = 500

	return Model{
		ctx:         ctx,
		actions:     opts.Actions,
		store:       opts.Store,
		keys:        DefaultKeyMap(),
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		theme:       GetTheme(themeName),
		currentView: ViewJobs,
		params:      params.Normalize(),
		promptInput: promptInput,
		notesInput:  notesInput,
		logViewport: viewport.New(0, 0),
		logFollow:   true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.actions != nil {
		cmds = append(cmds, m.refreshSavedCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.promptInput.Width = max(10, m.width-6)
		m.notesInput.Width = max(10, m.width-12)
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		return m, nil

	case logBatchMsg:
		m.logEntries = msg
		m.updateLogViewport()
		return m, nil

	case actionResultMsg:
		m.status = msg.text
		m.statusErr = msg.err != nil
		if msg.err != nil {
			m.status = msg.text + ": " + msg.err.Error()
		}
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logFollow {
		cmds = append(cmds, m.fetchLogsCmd())
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderPromptBar())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSaved:
		return m.renderSaved()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderJobs()
	}
}

// selectedJobValue returns the highlighted job, if any.
func (m Model) selectedJobValue() (state.Job, bool) {
	if m.selectedJob < 0 || m.selectedJob >= len(m.snapshot.Jobs) {
		return state.Job{}, false
	}
	return m.snapshot.Jobs[m.selectedJob], true
}

// selectedSavedValue returns the highlighted saved record, if any.
func (m Model) selectedSavedValue() (collection.SavedJob, bool) {
	if m.selectedSaved < 0 || m.selectedSaved >= len(m.snapshot.Saved) {
		return collection.SavedJob{}, false
	}
	return m.snapshot.Saved[m.selectedSaved], true
}

func (m *Model) clampSelection() {
	m.selectedJob = clamp(m.selectedJob, 0, len(m.snapshot.Jobs)-1)
	m.selectedSaved = clamp(m.selectedSaved, 0, len(m.snapshot.Saved)-1)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type logBatchMsg []logtail.Entry

type actionResultMsg struct {
	text string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// actionCmd runs fn off the event loop with a bounded context and reports
// the outcome in the status line.
func (m Model) actionCmd(text string, fn func(ctx context.Context) error) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		return actionResultMsg{text: text, err: fn(ctx)}
	}
}

func (m Model) refreshSavedCmd() tea.Cmd {
	actions := m.actions
	return m.actionCmd("Collection reloaded", func(ctx context.Context) error {
		return actions.RefreshSaved(ctx)
	})
}

func (m Model) fetchLogsCmd() tea.Cmd {
	path := m.logPath
	return func() tea.Msg {
		if path == "" {
			return logBatchMsg(nil)
		}
		entries, err := logtail.Read(path, logFetchLimit)
		if err != nil {
			return actionResultMsg{text: "Log read failed", err: err}
		}
		return logBatchMsg(entries)
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
