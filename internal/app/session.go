package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/easel/internal/collection"
	"github.com/five82/easel/internal/midjourney"
	"github.com/five82/easel/internal/poller"
	"github.com/five82/easel/internal/prompt"
	"github.com/five82/easel/internal/state"
	"github.com/five82/easel/internal/transport"
)

// ErrEmptyPrompt is returned when Generate receives only whitespace.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Session turns user actions into remote calls, store mutations and polling
// lifecycles. Lifecycles are bound to the context passed to NewSession, not
// to the context of the call that started them.
type Session struct {
	ctx       context.Context
	store     *state.Store
	gen       midjourney.Generator
	coll      collection.Store
	scheduler *poller.Scheduler
	log       zerolog.Logger
}

// NewSession wires the session collaborators together.
func NewSession(ctx context.Context, store *state.Store, gen midjourney.Generator, coll collection.Store, scheduler *poller.Scheduler, logger zerolog.Logger) *Session {
	return &Session{
		ctx:       ctx,
		store:     store,
		gen:       gen,
		coll:      coll,
		scheduler: scheduler,
		log:       logger.With().Str("component", "session").Logger(),
	}
}

// Store exposes the job store the session mutates.
func (s *Session) Store() *state.Store { return s.store }

// Generate submits a prompt and starts tracking it. The job id is returned
// even when the submission fails; the job then carries the error.
func (s *Session) Generate(ctx context.Context, input string, params prompt.Parameters) (string, error) {
	if strings.TrimSpace(prompt.Strip(input)) == "" {
		return "", ErrEmptyPrompt
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	text := prompt.Build(input, params)
	jobID := s.store.CreateJob(text, params)
	log := s.log.With().Str("job", jobID).Logger()

	hash, err := s.gen.Submit(ctx, text, midjourney.SubmitOptions{})
	if err != nil {
		log.Error().Err(err).Msg("submit failed")
		_ = s.store.MarkFailed(jobID, describe(err))
		return jobID, fmt.Errorf("submit: %w", err)
	}
	if err := s.store.SetRemoteHandle(jobID, hash); err != nil {
		return jobID, err
	}
	log.Info().Str("hash", hash).Msg("job submitted")

	s.scheduler.Track(s.ctx, state.PrimaryKey(jobID), hash, s.primarySink(jobID))
	return jobID, nil
}

// Upscale requests an upscale of one grid cell and tracks it under its own
// operation key.
func (s *Session) Upscale(ctx context.Context, jobID string, choice int) (state.OperationKey, error) {
	job, key, err := s.prepareModification(jobID, state.KindUpscale, choice)
	if err != nil {
		return key, err
	}
	hash, err := s.gen.RequestUpscale(ctx, job.RemoteHandle, choice)
	if err != nil {
		s.log.Error().Err(err).Str("key", string(key)).Msg("upscale request failed")
		return key, fmt.Errorf("upscale: %w", err)
	}
	if _, err := s.store.AppendModifiedImagePlaceholder(jobID, state.KindUpscale, choice); err != nil {
		return key, err
	}
	if err := s.store.BeginUpscale(jobID); err != nil {
		return key, err
	}
	s.log.Info().Str("key", string(key)).Str("hash", hash).Msg("upscale submitted")
	s.scheduler.Track(s.ctx, key, hash, s.modificationSink(jobID, key))
	return key, nil
}

// Vary requests a variation of one grid cell and tracks it under its own
// operation key. The job's status is left alone.
func (s *Session) Vary(ctx context.Context, jobID string, choice int) (state.OperationKey, error) {
	job, key, err := s.prepareModification(jobID, state.KindVariation, choice)
	if err != nil {
		return key, err
	}
	hash, err := s.gen.RequestVariation(ctx, job.RemoteHandle, choice, job.Prompt)
	if err != nil {
		s.log.Error().Err(err).Str("key", string(key)).Msg("variation request failed")
		return key, fmt.Errorf("variation: %w", err)
	}
	if _, err := s.store.AppendModifiedImagePlaceholder(jobID, state.KindVariation, choice); err != nil {
		return key, err
	}
	s.log.Info().Str("key", string(key)).Str("hash", hash).Msg("variation submitted")
	s.scheduler.Track(s.ctx, key, hash, s.modificationSink(jobID, key))
	return key, nil
}

// prepareModification validates a modification request. A lifecycle already
// polling the same key keeps running until the new request succeeds and
// Track replaces it, so a failed re-request never strands its placeholder.
func (s *Session) prepareModification(jobID string, kind state.Kind, choice int) (state.Job, state.OperationKey, error) {
	key := state.ModificationKey(jobID, kind, choice)
	if choice < 1 || choice > 4 {
		return state.Job{}, key, fmt.Errorf("%w: got %d", midjourney.ErrInvalidChoice, choice)
	}
	job, ok := s.store.Job(jobID)
	if !ok {
		return state.Job{}, key, fmt.Errorf("%w: %s", state.ErrJobNotFound, jobID)
	}
	if !job.HasRemoteHandle() || !job.HasImage() {
		return job, key, fmt.Errorf("%w: %s", state.ErrNoImage, jobID)
	}
	if img, ok := job.ModifiedImage(key); ok && img.State == state.ImageReady {
		return job, key, fmt.Errorf("%w: %s", state.ErrAlreadyResolved, key)
	}
	return job, key, nil
}

// Save persists a finished job to the collection. The job is only marked
// saved once the service confirms.
func (s *Session) Save(ctx context.Context, jobID string) (collection.SavedJob, error) {
	job, ok := s.store.Job(jobID)
	if !ok {
		return collection.SavedJob{}, fmt.Errorf("%w: %s", state.ErrJobNotFound, jobID)
	}
	if !job.HasImage() {
		return collection.SavedJob{}, fmt.Errorf("%w: %s", state.ErrNoImage, jobID)
	}

	req := collection.SaveRequest{
		OriginalJobID: job.ID,
		Prompt:        job.Prompt,
		Parameters:    job.Parameters,
		ImageURL:      job.ImageURL,
		CreatedAt:     job.CreatedAt,
	}
	for _, img := range job.ReadyImages() {
		req.ModifiedImages = append(req.ModifiedImages, collection.SavedImage{Type: string(img.Kind), URL: img.URL})
	}

	saved, err := s.coll.Save(ctx, req)
	if err != nil {
		s.log.Error().Err(err).Str("job", jobID).Msg("save failed")
		return collection.SavedJob{}, err
	}
	if err := s.store.MarkSaved(jobID, saved.ID); err != nil {
		return saved, err
	}
	s.store.PutSaved(saved)
	s.log.Info().Str("job", jobID).Str("saved", saved.ID).Msg("job saved")
	return saved, nil
}

// Unsave removes a job's saved copy. Unsaving a job that is not saved is a
// no-op.
func (s *Session) Unsave(ctx context.Context, jobID string) error {
	job, ok := s.store.Job(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", state.ErrJobNotFound, jobID)
	}
	if !job.Saved {
		return nil
	}
	if err := s.deleteSaved(ctx, job.SavedReference); err != nil {
		return err
	}
	_ = s.store.MarkUnsaved(jobID)
	return nil
}

// DeleteSaved removes a saved record by its collection id, clearing the
// saved flag of the job it came from when that job is still listed.
func (s *Session) DeleteSaved(ctx context.Context, savedID string) error {
	if err := s.deleteSaved(ctx, savedID); err != nil {
		return err
	}
	s.store.MarkUnsavedByReference(savedID)
	return nil
}

// deleteSaved treats a 404 as confirmation that the record is gone.
func (s *Session) deleteSaved(ctx context.Context, savedID string) error {
	err := s.coll.Delete(ctx, savedID)
	if err != nil && transport.StatusCode(err) != http.StatusNotFound {
		s.log.Error().Err(err).Str("saved", savedID).Msg("unsave failed")
		return err
	}
	s.store.RemoveSaved(savedID)
	s.log.Info().Str("saved", savedID).Msg("saved job removed")
	return nil
}

// UpdateNotes replaces the notes on a saved record.
func (s *Session) UpdateNotes(ctx context.Context, savedID, notes string) (collection.SavedJob, error) {
	saved, err := s.coll.UpdateNotes(ctx, savedID, notes)
	if err != nil {
		s.log.Error().Err(err).Str("saved", savedID).Msg("notes update failed")
		return collection.SavedJob{}, err
	}
	s.store.PutSaved(saved)
	return saved, nil
}

// RefreshSaved reloads the collection mirror. On failure the previous
// listing stays visible alongside the error.
func (s *Session) RefreshSaved(ctx context.Context) error {
	saved, err := s.coll.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("collection refresh failed")
		s.store.RecordCollectionError(err)
		return err
	}
	s.store.SetSaved(saved)
	return nil
}

// Close stops every polling lifecycle.
func (s *Session) Close() {
	s.scheduler.Close()
}

func (s *Session) primarySink(jobID string) poller.Sink {
	return poller.Sink{
		Update: func(snap midjourney.StatusSnapshot) {
			if err := s.store.ApplyStatusUpdate(jobID, snap); err != nil && !errors.Is(err, state.ErrJobNotFound) {
				s.log.Warn().Err(err).Str("job", jobID).Msg("status update rejected")
			}
			if snap.Phase == midjourney.PhaseFailed {
				s.log.Warn().Str("job", jobID).Str("reason", snap.FailureReason).Msg("generation failed")
			}
		},
		Fail: func(err error) {
			_ = s.store.MarkFailed(jobID, "status check failed: "+describe(err))
		},
	}
}

func (s *Session) modificationSink(jobID string, key state.OperationKey) poller.Sink {
	return poller.Sink{
		Update: func(snap midjourney.StatusSnapshot) {
			s.store.ApplyModificationUpdate(jobID, key, snap)
		},
		Fail: func(err error) {
			s.store.FailModification(jobID, key, "status check failed: "+describe(err))
		},
	}
}

// describe renders an error for display on a job.
func describe(err error) string {
	var svcErr *transport.ServiceError
	if errors.As(err, &svcErr) && svcErr.Body != "" {
		return fmt.Sprintf("service rejected request (%d): %s", svcErr.StatusCode, svcErr.Body)
	}
	var timeoutErr *transport.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "no response from service"
	}
	return err.Error()
}
