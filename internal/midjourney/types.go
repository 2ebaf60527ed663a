package midjourney

import "strings"

// Phase is the client-side reading of a remote status value.
type Phase int

const (
	// PhaseUnknown covers values the client does not recognize. It never
	// implies completion.
	PhaseUnknown Phase = iota
	PhaseRunning
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling is useful.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Remote status vocabulary.
const (
	StatusSent     = "sent"
	StatusWaiting  = "waiting"
	StatusProgress = "progress"
	StatusDone     = "done"
	StatusError    = "error"
)

// MapStatus maps the service vocabulary onto a Phase.
func MapStatus(status string) Phase {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusSent, StatusWaiting, StatusProgress:
		return PhaseRunning
	case StatusDone:
		return PhaseDone
	case StatusError:
		return PhaseFailed
	default:
		return PhaseUnknown
	}
}

// ImagineRequest mirrors POST /imagine.
type ImagineRequest struct {
	Prompt             string `json:"prompt"`
	WebhookURL         string `json:"webhook_url,omitempty"`
	WebhookType        string `json:"webhook_type,omitempty"`
	AccountHash        string `json:"account_hash,omitempty"`
	IsDisablePrefilter bool   `json:"is_disable_prefilter,omitempty"`
}

// UpscaleRequest mirrors POST /upscale.
type UpscaleRequest struct {
	Hash        string `json:"hash"`
	Choice      int    `json:"choice"`
	WebhookURL  string `json:"webhook_url,omitempty"`
	WebhookType string `json:"webhook_type,omitempty"`
}

// VariationRequest mirrors POST /variation.
type VariationRequest struct {
	Hash        string `json:"hash"`
	Choice      int    `json:"choice"`
	Prompt      string `json:"prompt,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
	WebhookType string `json:"webhook_type,omitempty"`
}

// TaskResponse is returned by every create-type call.
type TaskResponse struct {
	Hash string `json:"hash"`
}

// StatusResponse mirrors GET /status.
type StatusResponse struct {
	AccountHash   string        `json:"account_hash"`
	Hash          string        `json:"hash"`
	Status        string        `json:"status"`
	Progress      *int          `json:"progress"`
	Result        *StatusResult `json:"result"`
	StatusReason  *string       `json:"status_reason"`
	CreatedAt     string        `json:"created_at"`
	Prompt        string        `json:"prompt"`
	Type          string        `json:"type"`
	SrefRandomKey string        `json:"sref_random_key"`
}

// StatusResult describes a finished image.
type StatusResult struct {
	URL         string `json:"url"`
	ProxyURL    string `json:"proxy_url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int    `json:"size"`
}

// StatusSnapshot is one poll result in client terms.
type StatusSnapshot struct {
	Phase                Phase
	RemoteStatus         string
	Progress             int
	ResultURL            string
	FailureReason        string
	RandomStyleReference string
}

// Snapshot converts the wire payload. Progress is clamped to 0..100 and a
// done status forces 100.
func (r StatusResponse) Snapshot() StatusSnapshot {
	snap := StatusSnapshot{
		Phase:                MapStatus(r.Status),
		RemoteStatus:         r.Status,
		RandomStyleReference: strings.TrimSpace(r.SrefRandomKey),
	}
	if r.Progress != nil {
		snap.Progress = clampPercent(*r.Progress)
	}
	if snap.Phase == PhaseDone {
		snap.Progress = 100
	}
	if r.Result != nil {
		snap.ResultURL = strings.TrimSpace(r.Result.URL)
	}
	if r.StatusReason != nil {
		snap.FailureReason = strings.TrimSpace(*r.StatusReason)
	}
	return snap
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
