package midjourney

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/five82/easel/internal/transport"
)

// ErrInvalidChoice is returned for grid choices outside 1..4.
var ErrInvalidChoice = errors.New("choice must be between 1 and 4")

// StatusPoller is the read side used by the polling scheduler.
type StatusPoller interface {
	PollStatus(ctx context.Context, hash string) (StatusSnapshot, error)
}

// Generator is the full generation surface used by the session.
type Generator interface {
	StatusPoller
	Submit(ctx context.Context, prompt string, opts SubmitOptions) (string, error)
	RequestUpscale(ctx context.Context, hash string, choice int) (string, error)
	RequestVariation(ctx context.Context, hash string, choice int, prompt string) (string, error)
}

// Ensure Client implements Generator at compile time.
var _ Generator = (*Client)(nil)

// Client talks to the generation service through the shared transport.
type Client struct {
	tr          *transport.Client
	accountHash string
}

// NewClient wraps a transport. accountHash, when set, is sent with every
// submission that does not carry its own.
func NewClient(tr *transport.Client, accountHash string) *Client {
	return &Client{tr: tr, accountHash: strings.TrimSpace(accountHash)}
}

// SubmitOptions carries the optional imagine fields.
type SubmitOptions struct {
	WebhookURL       string
	WebhookType      string
	AccountHash      string
	DisablePrefilter bool
}

// Submit creates a new generation job and returns its remote handle.
func (c *Client) Submit(ctx context.Context, prompt string, opts SubmitOptions) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	req := ImagineRequest{
		Prompt:             prompt,
		WebhookURL:         opts.WebhookURL,
		WebhookType:        opts.WebhookType,
		AccountHash:        opts.AccountHash,
		IsDisablePrefilter: opts.DisablePrefilter,
	}
	if req.AccountHash == "" {
		req.AccountHash = c.accountHash
	}
	return c.create(ctx, "imagine", req)
}

// PollStatus fetches the current state of a remote handle. Safe to repeat.
func (c *Client) PollStatus(ctx context.Context, hash string) (StatusSnapshot, error) {
	if c == nil {
		return StatusSnapshot{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(hash) == "" {
		return StatusSnapshot{}, fmt.Errorf("hash is empty")
	}
	resp, err := c.tr.Do(ctx, http.MethodGet, "status", nil,
		transport.WithBudget(transport.BudgetPoll),
		transport.WithQuery(url.Values{"hash": []string{hash}}))
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("poll status %s: %w", hash, err)
	}
	var payload StatusResponse
	if err := resp.Decode(&payload); err != nil {
		return StatusSnapshot{}, fmt.Errorf("poll status %s: %w", hash, err)
	}
	return payload.Snapshot(), nil
}

// RequestUpscale asks for one grid cell at full size. The returned handle
// is a new, independently pollable operation.
func (c *Client) RequestUpscale(ctx context.Context, hash string, choice int) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if err := checkChoice(hash, choice); err != nil {
		return "", err
	}
	return c.create(ctx, "upscale", UpscaleRequest{Hash: hash, Choice: choice})
}

// RequestVariation asks for a new grid derived from one cell.
func (c *Client) RequestVariation(ctx context.Context, hash string, choice int, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if err := checkChoice(hash, choice); err != nil {
		return "", err
	}
	return c.create(ctx, "variation", VariationRequest{Hash: hash, Choice: choice, Prompt: prompt})
}

func (c *Client) create(ctx context.Context, path string, body any) (string, error) {
	resp, err := c.tr.Do(ctx, http.MethodPost, path, body, transport.WithBudget(transport.BudgetMutation))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	var payload TaskResponse
	if err := resp.Decode(&payload); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	hash := strings.TrimSpace(payload.Hash)
	if hash == "" {
		return "", fmt.Errorf("%s: response carried no hash", path)
	}
	return hash, nil
}

func checkChoice(hash string, choice int) error {
	if strings.TrimSpace(hash) == "" {
		return fmt.Errorf("hash is empty")
	}
	if choice < 1 || choice > 4 {
		return fmt.Errorf("%w: got %d", ErrInvalidChoice, choice)
	}
	return nil
}
