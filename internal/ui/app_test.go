package ui

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/easel/internal/collection"
	"github.com/five82/easel/internal/prefs"
	"github.com/five82/easel/internal/prompt"
	"github.com/five82/easel/internal/state"
)

type call struct {
	method string
	id     string
	choice int
	input  string
	params prompt.Parameters
}

type fakeActions struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeActions) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeActions) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeActions) Generate(_ context.Context, input string, params prompt.Parameters) (string, error) {
	f.record(call{method: "Generate", input: input, params: params})
	return "job-1", nil
}

func (f *fakeActions) Upscale(_ context.Context, jobID string, choice int) (state.OperationKey, error) {
	f.record(call{method: "Upscale", id: jobID, choice: choice})
	return state.ModificationKey(jobID, state.KindUpscale, choice), nil
}

func (f *fakeActions) Vary(_ context.Context, jobID string, choice int) (state.OperationKey, error) {
	f.record(call{method: "Vary", id: jobID, choice: choice})
	return state.ModificationKey(jobID, state.KindVariation, choice), nil
}

func (f *fakeActions) Save(_ context.Context, jobID string) (collection.SavedJob, error) {
	f.record(call{method: "Save", id: jobID})
	return collection.SavedJob{ID: "s-1", OriginalJobID: jobID}, nil
}

func (f *fakeActions) Unsave(_ context.Context, jobID string) error {
	f.record(call{method: "Unsave", id: jobID})
	return nil
}

func (f *fakeActions) DeleteSaved(_ context.Context, savedID string) error {
	f.record(call{method: "DeleteSaved", id: savedID})
	return nil
}

func (f *fakeActions) UpdateNotes(_ context.Context, savedID, notes string) (collection.SavedJob, error) {
	f.record(call{method: "UpdateNotes", id: savedID, input: notes})
	return collection.SavedJob{ID: savedID, Notes: notes}, nil
}

func (f *fakeActions) RefreshSaved(context.Context) error {
	f.record(call{method: "RefreshSaved"})
	return nil
}

func newTestModel(t *testing.T) (Model, *fakeActions, string) {
	t.Helper()
	actions := &fakeActions{}
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{
		Context:   context.Background(),
		Actions:   actions,
		PrefsPath: prefsPath,
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, actions, prefsPath
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func withJobs(t *testing.T, m Model, jobs ...state.Job) Model {
	t.Helper()
	return update(t, m, snapshotMsg(state.Snapshot{Jobs: jobs}))
}

func doneJob(id string, saved bool) state.Job {
	return state.Job{
		ID:         id,
		Prompt:     "a cat",
		Status:     state.StatusDone,
		ImageURL:   "https://cdn.example/" + id + ".png",
		Parameters: prompt.Defaults(),
		Saved:      saved,
	}
}

// run executes cmd and feeds its message back through Update.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	msg := cmd()
	if _, ok := msg.(actionResultMsg); !ok {
		t.Fatalf("cmd() = %T, want actionResultMsg", msg)
	}
	return update(t, m, msg)
}

func TestCycleAspectRatioPersists(t *testing.T) {
	m, _, prefsPath := newTestModel(t)

	m, _ = press(t, m, "a")
	if m.params.AspectRatio != "4:3" {
		t.Fatalf("AspectRatio = %q, want 4:3", m.params.AspectRatio)
	}
	if got := prefs.Load(prefsPath).Parameters.AspectRatio; got != "4:3" {
		t.Fatalf("persisted AspectRatio = %q, want 4:3", got)
	}
}

func TestStrengthKeysClamp(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = press(t, m, "]")
	if m.params.StyleStrength != prompt.MaxStyleStrength {
		t.Fatalf("StyleStrength = %d, want %d", m.params.StyleStrength, prompt.MaxStyleStrength)
	}
	m, _ = press(t, m, "[")
	if m.params.StyleStrength != prompt.MaxStyleStrength-strengthStep {
		t.Fatalf("StyleStrength = %d, want %d", m.params.StyleStrength, prompt.MaxStyleStrength-strengthStep)
	}
}

func TestToggleRandomRestoresLastFixedStyle(t *testing.T) {
	m, _, _ := newTestModel(t)
	ref, _ := prompt.FixedStyle(17)
	m.params.StyleReference = ref

	m, _ = press(t, m, "R")
	if !m.params.StyleReference.IsRandom() {
		t.Fatalf("sref = %v, want random", m.params.StyleReference)
	}
	m, _ = press(t, m, "R")
	if code, ok := m.params.StyleReference.Code(); !ok || code != 17 {
		t.Fatalf("sref = %v, want 17", m.params.StyleReference)
	}
}

func TestAdoptParamsFromSelectedJob(t *testing.T) {
	m, _, _ := newTestModel(t)
	job := doneJob("job-1", false)
	job.Parameters.StyleReference, _ = prompt.FixedStyle(42)
	job.Parameters.AspectRatio = "1:1"
	m = withJobs(t, m, job)

	m, _ = press(t, m, "y")
	if m.params != job.Parameters {
		t.Fatalf("params = %#v, want %#v", m.params, job.Parameters)
	}
}

func TestSubmitPrompt(t *testing.T) {
	m, actions, _ := newTestModel(t)

	m, _ = press(t, m, "i")
	if !m.promptInput.Focused() {
		t.Fatalf("prompt input not focused")
	}
	// Keys go to the input while it has focus.
	m, _ = press(t, m, "a cat")
	if m.params.AspectRatio != "16:9" {
		t.Fatalf("typing changed AspectRatio to %q", m.params.AspectRatio)
	}

	m, cmd := press(t, m, "enter")
	if m.promptInput.Focused() || m.promptInput.Value() != "" {
		t.Fatalf("prompt input not reset after submit")
	}
	m = run(t, m, cmd)

	calls := actions.Calls()
	if len(calls) != 1 || calls[0].method != "Generate" || calls[0].input != "a cat" {
		t.Fatalf("calls = %#v, want Generate(a cat)", calls)
	}
	if calls[0].params != prompt.Defaults() {
		t.Fatalf("params = %#v, want defaults", calls[0].params)
	}
	if m.status != "Prompt submitted" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestBlankPromptIsIgnored(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = press(t, m, "i")
	_, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Fatalf("blank submit returned a command")
	}
}

func TestUpscaleChord(t *testing.T) {
	m, actions, _ := newTestModel(t)
	m = withJobs(t, m, doneJob("job-2", false), doneJob("job-1", false))
	m, _ = press(t, m, "j")

	m, _ = press(t, m, "u")
	if m.pending != chordUpscale {
		t.Fatalf("pending = %v, want upscale", m.pending)
	}
	m, cmd := press(t, m, "2")
	if m.pending != chordNone {
		t.Fatalf("pending not cleared")
	}
	run(t, m, cmd)

	calls := actions.Calls()
	if len(calls) != 1 || calls[0].method != "Upscale" || calls[0].id != "job-1" || calls[0].choice != 2 {
		t.Fatalf("calls = %#v, want Upscale(job-1, 2)", calls)
	}
}

func TestVaryChord(t *testing.T) {
	m, actions, _ := newTestModel(t)
	m = withJobs(t, m, doneJob("job-1", false))

	m, _ = press(t, m, "v")
	m, cmd := press(t, m, "4")
	run(t, m, cmd)

	calls := actions.Calls()
	if len(calls) != 1 || calls[0].method != "Vary" || calls[0].choice != 4 {
		t.Fatalf("calls = %#v, want Vary(job-1, 4)", calls)
	}
}

func TestChordCancelledByOtherKey(t *testing.T) {
	m, actions, _ := newTestModel(t)
	m = withJobs(t, m, doneJob("job-1", false))

	m, _ = press(t, m, "u")
	m, cmd := press(t, m, "x")
	if cmd != nil || m.pending != chordNone {
		t.Fatalf("chord not cancelled: cmd=%v pending=%v", cmd != nil, m.pending)
	}
	// The digit after a cancelled chord switches views instead.
	m, _ = press(t, m, "2")
	if m.currentView != ViewSaved {
		t.Fatalf("currentView = %v, want saved", m.currentView)
	}
	if len(actions.Calls()) != 0 {
		t.Fatalf("calls = %#v, want none", actions.Calls())
	}
}

func TestToggleSave(t *testing.T) {
	m, actions, _ := newTestModel(t)
	m = withJobs(t, m, doneJob("job-1", false))

	_, cmd := press(t, m, "s")
	run(t, m, cmd)

	m = withJobs(t, m, doneJob("job-1", true))
	_, cmd = press(t, m, "s")
	run(t, m, cmd)

	calls := actions.Calls()
	if len(calls) != 2 || calls[0].method != "Save" || calls[1].method != "Unsave" {
		t.Fatalf("calls = %#v, want Save then Unsave", calls)
	}
}

func TestEditNotes(t *testing.T) {
	m, actions, _ := newTestModel(t)
	m = update(t, m, snapshotMsg(state.Snapshot{
		SavedLoaded: true,
		Saved:       []collection.SavedJob{{ID: "s-1", Prompt: "a cat", Notes: "warm"}},
	}))
	m, _ = press(t, m, "2")

	m, _ = press(t, m, "n")
	if !m.notesInput.Focused() || m.notesInput.Value() != "warm" {
		t.Fatalf("notes input focused=%v value=%q", m.notesInput.Focused(), m.notesInput.Value())
	}
	m, _ = press(t, m, "er")
	m, cmd := press(t, m, "enter")
	run(t, m, cmd)

	calls := actions.Calls()
	if len(calls) != 1 || calls[0].method != "UpdateNotes" || calls[0].id != "s-1" || calls[0].input != "warmer" {
		t.Fatalf("calls = %#v, want UpdateNotes(s-1, warmer)", calls)
	}
}

func TestDeleteSaved(t *testing.T) {
	m, actions, _ := newTestModel(t)
	m = update(t, m, snapshotMsg(state.Snapshot{
		SavedLoaded: true,
		Saved:       []collection.SavedJob{{ID: "s-1"}, {ID: "s-2"}},
	}))
	m, _ = press(t, m, "2")
	m, _ = press(t, m, "G")

	_, cmd := press(t, m, "d")
	run(t, m, cmd)

	calls := actions.Calls()
	if len(calls) != 1 || calls[0].method != "DeleteSaved" || calls[0].id != "s-2" {
		t.Fatalf("calls = %#v, want DeleteSaved(s-2)", calls)
	}
}

func TestActionErrorShownInStatus(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(t, m, actionResultMsg{text: "Upscale 1 requested", err: state.ErrNoImage})
	if !m.statusErr || !strings.Contains(m.status, state.ErrNoImage.Error()) {
		t.Fatalf("status = %q (err=%v)", m.status, m.statusErr)
	}
}

func TestSelectionClampedOnSnapshot(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = withJobs(t, m, doneJob("a", false), doneJob("b", false), doneJob("c", false))
	m, _ = press(t, m, "G")
	if m.selectedJob != 2 {
		t.Fatalf("selectedJob = %d, want 2", m.selectedJob)
	}
	m = withJobs(t, m, doneJob("a", false))
	if m.selectedJob != 0 {
		t.Fatalf("selectedJob = %d, want 0", m.selectedJob)
	}
}

func TestViewRenders(t *testing.T) {
	m, _, _ := newTestModel(t)
	job := doneJob("job-1", true)
	job.ModifiedImages = []state.ModifiedImage{{Kind: state.KindUpscale, Choice: 2, State: state.ImagePending, Progress: 40}}
	m = withJobs(t, m, job)

	for _, k := range []string{"1", "2", "3", "?"} {
		m, _ = press(t, m, k)
		if out := m.View(); out == "" {
			t.Fatalf("View after %q is empty", k)
		}
	}
	m, _ = press(t, m, "x") // close help
	m, _ = press(t, m, "1")
	if out := m.View(); !strings.Contains(out, "easel") || !strings.Contains(out, "a cat") {
		t.Fatalf("jobs view missing header or prompt:\n%s", out)
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatalf("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("cmd() is not tea.QuitMsg")
	}
}
