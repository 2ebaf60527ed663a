package midjourney

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/five82/easel/internal/transport"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tr, err := transport.NewClient(transport.Options{BaseURL: server.URL + "/midjourney/v2"})
	if err != nil {
		t.Fatalf("transport.NewClient returned error: %v", err)
	}
	return NewClient(tr, "acct-1")
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Phase
	}{
		{"sent", PhaseRunning},
		{"waiting", PhaseRunning},
		{"progress", PhaseRunning},
		{"PROGRESS", PhaseRunning},
		{"done", PhaseDone},
		{"error", PhaseFailed},
		{"pending", PhaseUnknown},
		{"", PhaseUnknown},
		{"finished", PhaseUnknown},
	}
	for _, tt := range tests {
		if got := MapStatus(tt.in); got != tt.want {
			t.Fatalf("MapStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if PhaseUnknown.Terminal() || PhaseRunning.Terminal() {
		t.Fatalf("non-terminal phases reported terminal")
	}
}

func TestClient_SubmitSendsImagine(t *testing.T) {
	t.Parallel()

	var got ImagineRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/midjourney/v2/imagine" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(TaskResponse{Hash: "abc"})
	}))

	hash, err := c.Submit(context.Background(), "a cat --sref random --ar 16:9 --s 1000", SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if hash != "abc" {
		t.Fatalf("hash = %q, want abc", hash)
	}
	if got.Prompt != "a cat --sref random --ar 16:9 --s 1000" || got.AccountHash != "acct-1" {
		t.Fatalf("request = %#v", got)
	}
}

func TestClient_SubmitWithoutHashFails(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	_, err := c.Submit(context.Background(), "a cat", SubmitOptions{})
	if err == nil || !strings.Contains(err.Error(), "no hash") {
		t.Fatalf("Submit error = %v, want no hash error", err)
	}
}

func TestClient_SubmitRejectionIsServiceError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"banned prompt"}`))
	}))
	_, err := c.Submit(context.Background(), "a cat", SubmitOptions{})
	if transport.StatusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("Submit error = %v, want ServiceError 422", err)
	}
}

func TestClient_PollStatusBuildsSnapshot(t *testing.T) {
	t.Parallel()

	var gotHash string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHash = r.URL.Query().Get("hash")
		_, _ = w.Write([]byte(`{"hash":"abc","status":"done","progress":87,
			"result":{"url":"https://x/y.png"},"status_reason":null,"sref_random_key":"17"}`))
	}))

	snap, err := c.PollStatus(context.Background(), "abc")
	if err != nil {
		t.Fatalf("PollStatus returned error: %v", err)
	}
	if gotHash != "abc" {
		t.Fatalf("hash query = %q, want abc", gotHash)
	}
	want := StatusSnapshot{
		Phase:                PhaseDone,
		RemoteStatus:         "done",
		Progress:             100,
		ResultURL:            "https://x/y.png",
		RandomStyleReference: "17",
	}
	if snap != want {
		t.Fatalf("snapshot = %#v, want %#v", snap, want)
	}
}

func TestStatusResponse_SnapshotFailure(t *testing.T) {
	reason := " moderation "
	progress := 140
	snap := StatusResponse{Status: "error", StatusReason: &reason, Progress: &progress}.Snapshot()
	if snap.Phase != PhaseFailed || snap.FailureReason != "moderation" || snap.Progress != 100 {
		t.Fatalf("snapshot = %#v", snap)
	}
}

func TestClient_ChoiceValidatedBeforeNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	for _, choice := range []int{0, 5, -1} {
		if _, err := c.RequestUpscale(context.Background(), "abc", choice); !errors.Is(err, ErrInvalidChoice) {
			t.Fatalf("RequestUpscale(%d) error = %v, want ErrInvalidChoice", choice, err)
		}
		if _, err := c.RequestVariation(context.Background(), "abc", choice, ""); !errors.Is(err, ErrInvalidChoice) {
			t.Fatalf("RequestVariation(%d) error = %v, want ErrInvalidChoice", choice, err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("server calls = %d, want 0", calls.Load())
	}
}

func TestClient_UpscaleAndVariationReturnNewHandles(t *testing.T) {
	t.Parallel()

	var upscale UpscaleRequest
	var variation VariationRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/midjourney/v2/upscale":
			_ = json.NewDecoder(r.Body).Decode(&upscale)
			_ = json.NewEncoder(w).Encode(TaskResponse{Hash: "up-2"})
		case "/midjourney/v2/variation":
			_ = json.NewDecoder(r.Body).Decode(&variation)
			_ = json.NewEncoder(w).Encode(TaskResponse{Hash: "var-3"})
		default:
			http.NotFound(w, r)
		}
	}))

	hash, err := c.RequestUpscale(context.Background(), "abc", 2)
	if err != nil || hash != "up-2" {
		t.Fatalf("RequestUpscale = %q, %v; want up-2", hash, err)
	}
	if upscale.Hash != "abc" || upscale.Choice != 2 {
		t.Fatalf("upscale request = %#v", upscale)
	}

	hash, err = c.RequestVariation(context.Background(), "abc", 3, "a cat")
	if err != nil || hash != "var-3" {
		t.Fatalf("RequestVariation = %q, %v; want var-3", hash, err)
	}
	if variation.Hash != "abc" || variation.Choice != 3 || variation.Prompt != "a cat" {
		t.Fatalf("variation request = %#v", variation)
	}
}
