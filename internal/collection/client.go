// Package collection is the client for the saved-jobs service that keeps a
// user's chosen results.
package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/five82/easel/internal/prompt"
	"github.com/five82/easel/internal/transport"
)

// Store is the collection surface used by the session.
type Store interface {
	Save(ctx context.Context, req SaveRequest) (SavedJob, error)
	List(ctx context.Context) ([]SavedJob, error)
	Delete(ctx context.Context, id string) error
	UpdateNotes(ctx context.Context, id, notes string) (SavedJob, error)
}

// Ensure Client implements Store at compile time.
var _ Store = (*Client)(nil)

// ErrInvalidRequest wraps validation failures detected before any call.
var ErrInvalidRequest = errors.New("invalid saved job request")

// SavedImage is one modified image kept with a saved job.
type SavedImage struct {
	Type string `json:"type" validate:"oneof=upscale variation"`
	URL  string `json:"url" validate:"required"`
}

// SaveRequest mirrors POST /saved-jobs.
type SaveRequest struct {
	OriginalJobID  string            `json:"original_job_id" validate:"required"`
	Prompt         string            `json:"prompt" validate:"required"`
	Parameters     prompt.Parameters `json:"parameters"`
	ImageURL       string            `json:"image_url" validate:"required,url"`
	ModifiedImages []SavedImage      `json:"modified_images" validate:"dive"`
	CreatedAt      time.Time         `json:"created_at" validate:"required"`
	Notes          string            `json:"notes,omitempty"`
}

// SavedJob is a persisted record. Notes is the only mutable field.
type SavedJob struct {
	ID             string            `json:"id"`
	OriginalJobID  string            `json:"original_job_id"`
	Prompt         string            `json:"prompt"`
	Parameters     prompt.Parameters `json:"parameters"`
	ImageURL       string            `json:"image_url"`
	ModifiedImages []SavedImage      `json:"modified_images"`
	CreatedAt      time.Time         `json:"created_at"`
	SavedAt        time.Time         `json:"saved_at"`
	Notes          string            `json:"notes,omitempty"`
}

type notesPatch struct {
	Notes string `json:"notes"`
}

// Client talks to the collection service.
type Client struct {
	tr       *transport.Client
	validate *validator.Validate
}

// NewClient wraps a transport whose base URL points at the collection API.
func NewClient(tr *transport.Client) *Client {
	return &Client{tr: tr, validate: validator.New()}
}

// Save persists a job and returns the stored record.
func (c *Client) Save(ctx context.Context, req SaveRequest) (SavedJob, error) {
	if c == nil {
		return SavedJob{}, fmt.Errorf("client is nil")
	}
	if req.ModifiedImages == nil {
		req.ModifiedImages = []SavedImage{}
	}
	if err := c.validate.Struct(req); err != nil {
		return SavedJob{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	resp, err := c.tr.Do(ctx, http.MethodPost, "saved-jobs", req)
	if err != nil {
		return SavedJob{}, fmt.Errorf("save job: %w", err)
	}
	var saved SavedJob
	if err := resp.Decode(&saved); err != nil {
		return SavedJob{}, fmt.Errorf("save job: %w", err)
	}
	if saved.ID == "" {
		return SavedJob{}, fmt.Errorf("save job: response carried no id")
	}
	return saved, nil
}

// List returns every saved job, newest save first.
func (c *Client) List(ctx context.Context) ([]SavedJob, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	resp, err := c.tr.Do(ctx, http.MethodGet, "saved-jobs", nil, transport.WithBudget(transport.BudgetPoll))
	if err != nil {
		return nil, fmt.Errorf("list saved jobs: %w", err)
	}
	var jobs []SavedJob
	if err := resp.Decode(&jobs); err != nil {
		return nil, fmt.Errorf("list saved jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a saved job.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	path, err := itemPath(id)
	if err != nil {
		return err
	}
	resp, err := c.tr.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("delete saved job %s: %w", id, err)
	}
	if err := resp.Decode(nil); err != nil {
		return fmt.Errorf("delete saved job %s: %w", id, err)
	}
	return nil
}

// UpdateNotes replaces the notes of a saved job.
func (c *Client) UpdateNotes(ctx context.Context, id, notes string) (SavedJob, error) {
	if c == nil {
		return SavedJob{}, fmt.Errorf("client is nil")
	}
	path, err := itemPath(id)
	if err != nil {
		return SavedJob{}, err
	}
	resp, err := c.tr.Do(ctx, http.MethodPatch, path, notesPatch{Notes: notes})
	if err != nil {
		return SavedJob{}, fmt.Errorf("update notes %s: %w", id, err)
	}
	var saved SavedJob
	if err := resp.Decode(&saved); err != nil {
		return SavedJob{}, fmt.Errorf("update notes %s: %w", id, err)
	}
	return saved, nil
}

// Ping hits the backend's health endpoint at the host root so a cold
// backend is ready before the user submits.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	resp, err := c.tr.Do(ctx, http.MethodGet, "/health", nil, transport.WithBudget(transport.BudgetPoll))
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if err := resp.Decode(nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

func itemPath(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("%w: id is empty", ErrInvalidRequest)
	}
	return "saved-jobs/" + url.PathEscape(trimmed), nil
}
