package state

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/easel/internal/collection"
	"github.com/five82/easel/internal/midjourney"
	"github.com/five82/easel/internal/prompt"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Jobs            []Job
	Saved           []collection.SavedJob
	SavedLoaded     bool
	CollectionError error
	LastUpdated     time.Time
}

// Job returns the job with id from the snapshot.
func (s Snapshot) Job(id string) (Job, bool) {
	for _, job := range s.Jobs {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}

// Store is the single source of truth for jobs. Every mutation replaces the
// job slice with a new one in which only the targeted entry differs, so a
// reader never sees a half-applied change. The zero value is ready to use.
type Store struct {
	mu              sync.RWMutex
	jobs            []Job
	saved           []collection.SavedJob
	savedLoaded     bool
	collectionError error
	lastUpdated     time.Time

	// Now and NewID may be replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// CreateJob allocates a pending job and prepends it.
func (s *Store) CreateJob(text string, params prompt.Parameters) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{
		ID:         s.newID(),
		Prompt:     text,
		Status:     StatusPending,
		Parameters: params.Normalize(),
		CreatedAt:  s.now(),
	}
	next := make([]Job, 0, len(s.jobs)+1)
	next = append(next, job)
	next = append(next, s.jobs...)
	s.jobs = next
	s.lastUpdated = job.CreatedAt
	return job.ID
}

// SetRemoteHandle records the service handle and moves the job into
// generating. A handle is set at most once.
func (s *Store) SetRemoteHandle(jobID, hash string) error {
	return s.mutate(jobID, func(job *Job) (bool, error) {
		if job.RemoteHandle != "" {
			if job.RemoteHandle == hash {
				return false, nil
			}
			return false, fmt.Errorf("%w: job %s has %s", ErrHandleAlreadySet, jobID, job.RemoteHandle)
		}
		job.RemoteHandle = hash
		if job.Status == StatusPending {
			job.Status = StatusGenerating
			job.Progress = 0
		}
		return true, nil
	})
}

// ApplyStatusUpdate merges a primary poll result. Status only moves forward;
// once terminal only the random style reference can still be resolved.
func (s *Store) ApplyStatusUpdate(jobID string, snap midjourney.StatusSnapshot) error {
	return s.mutate(jobID, func(job *Job) (bool, error) {
		changed := resolveRandomStyle(&job.Parameters, snap.RandomStyleReference)
		if statusRank(job.Status) >= statusRank(StatusUpscaling) {
			return changed, nil
		}
		switch snap.Phase {
		case midjourney.PhaseRunning:
			job.Status = StatusGenerating
			if snap.Progress > job.Progress {
				job.Progress = snap.Progress
			}
			changed = true
		case midjourney.PhaseDone:
			job.Status = StatusDone
			job.Progress = 100
			job.Error = ""
			if snap.ResultURL != "" {
				job.ImageURL = snap.ResultURL
			}
			changed = true
		case midjourney.PhaseFailed:
			job.Status = StatusError
			job.Error = failureText(snap.FailureReason, "generation failed")
			changed = true
		}
		return changed, nil
	})
}

// MarkFailed moves a job into error unless it already completed.
func (s *Store) MarkFailed(jobID, reason string) error {
	return s.mutate(jobID, func(job *Job) (bool, error) {
		if job.Status == StatusDone {
			return false, nil
		}
		job.Status = StatusError
		job.Error = failureText(reason, "request failed")
		return true, nil
	})
}

// BeginUpscale re-opens a job with a finished grid for upscale tracking. A
// job already upscaling keeps its phase, including any failure recorded so far.
func (s *Store) BeginUpscale(jobID string) error {
	return s.mutate(jobID, func(job *Job) (bool, error) {
		if !job.HasImage() {
			return false, fmt.Errorf("%w: %s", ErrNoImage, jobID)
		}
		if job.Status == StatusUpscaling {
			return false, nil
		}
		job.Status = StatusUpscaling
		job.Progress = 0
		job.Error = ""
		return true, nil
	})
}

// AppendModifiedImagePlaceholder adds a pending entry for a modification and
// returns its key. An entry still pending under the same key is reused and a
// failed one is replaced; a resolved one is left alone and reported.
func (s *Store) AppendModifiedImagePlaceholder(jobID string, kind Kind, choice int) (OperationKey, error) {
	key := ModificationKey(jobID, kind, choice)
	err := s.mutate(jobID, func(job *Job) (bool, error) {
		placeholder := ModifiedImage{Kind: kind, Choice: choice, OperationKey: key, State: ImagePending}
		for i, img := range job.ModifiedImages {
			if img.OperationKey != key {
				continue
			}
			switch img.State {
			case ImageReady:
				return false, fmt.Errorf("%w: %s", ErrAlreadyResolved, key)
			case ImageFailed:
				job.ModifiedImages[i] = placeholder
				return true, nil
			default:
				if img.Progress == 0 {
					return false, nil
				}
				job.ModifiedImages[i].Progress = 0
				return true, nil
			}
		}
		job.ModifiedImages = append(job.ModifiedImages, placeholder)
		return true, nil
	})
	return key, err
}

// ResolveModifiedImage backfills the URL of a placeholder. It reports false
// when the job or key is unknown or the entry already has a URL.
func (s *Store) ResolveModifiedImage(jobID string, key OperationKey, url string) bool {
	changed := false
	_ = s.mutate(jobID, func(job *Job) (bool, error) {
		i := indexOfImage(job.ModifiedImages, key)
		if i < 0 || url == "" || job.ModifiedImages[i].URL != "" {
			return false, nil
		}
		resolveImage(&job.ModifiedImages[i], url)
		changed = true
		return true, nil
	})
	return changed
}

// ApplyModificationUpdate merges a poll result for an upscale or variation.
// Upscale results also drive the job through upscaling to done or error.
func (s *Store) ApplyModificationUpdate(jobID string, key OperationKey, snap midjourney.StatusSnapshot) bool {
	changed := false
	_ = s.mutate(jobID, func(job *Job) (bool, error) {
		i := indexOfImage(job.ModifiedImages, key)
		if i < 0 || job.ModifiedImages[i].State != ImagePending {
			return false, nil
		}
		img := &job.ModifiedImages[i]
		switch snap.Phase {
		case midjourney.PhaseRunning:
			if snap.Progress > img.Progress {
				img.Progress = snap.Progress
			}
			if img.Kind == KindUpscale && job.Status == StatusUpscaling && snap.Progress > job.Progress {
				job.Progress = snap.Progress
			}
		case midjourney.PhaseDone:
			if snap.ResultURL == "" {
				failImage(img, "completed without an image")
			} else {
				resolveImage(img, snap.ResultURL)
			}
			settleUpscale(job, *img)
		case midjourney.PhaseFailed:
			failImage(img, failureText(snap.FailureReason, string(img.Kind)+" failed"))
			settleUpscale(job, *img)
		default:
			return false, nil
		}
		changed = true
		return true, nil
	})
	return changed
}

// FailModification marks a pending modification failed, for example when
// its status can no longer be fetched.
func (s *Store) FailModification(jobID string, key OperationKey, reason string) bool {
	changed := false
	_ = s.mutate(jobID, func(job *Job) (bool, error) {
		i := indexOfImage(job.ModifiedImages, key)
		if i < 0 || job.ModifiedImages[i].State != ImagePending {
			return false, nil
		}
		failImage(&job.ModifiedImages[i], failureText(reason, "request failed"))
		settleUpscale(job, job.ModifiedImages[i])
		changed = true
		return true, nil
	})
	return changed
}

// MarkSaved records a confirmed save.
func (s *Store) MarkSaved(jobID, savedReference string) error {
	return s.mutate(jobID, func(job *Job) (bool, error) {
		if job.Saved && job.SavedReference == savedReference {
			return false, nil
		}
		job.Saved = true
		job.SavedReference = savedReference
		return true, nil
	})
}

// MarkUnsaved records a confirmed removal.
func (s *Store) MarkUnsaved(jobID string) error {
	return s.mutate(jobID, func(job *Job) (bool, error) {
		if !job.Saved {
			return false, nil
		}
		job.Saved = false
		job.SavedReference = ""
		return true, nil
	})
}

// MarkUnsavedByReference clears the saved flag of whichever job points at
// savedReference. It reports whether one did.
func (s *Store) MarkUnsavedByReference(savedReference string) bool {
	s.mu.RLock()
	jobID := ""
	for _, job := range s.jobs {
		if job.Saved && job.SavedReference == savedReference {
			jobID = job.ID
			break
		}
	}
	s.mu.RUnlock()
	if jobID == "" {
		return false
	}
	return s.MarkUnsaved(jobID) == nil
}

// Job returns a copy of one job.
func (s *Store) Job(jobID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(jobID)
	if i < 0 {
		return Job{}, false
	}
	return s.jobs[i].clone(), true
}

// SetSaved replaces the collection mirror with a fresh listing.
func (s *Store) SetSaved(saved []collection.SavedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = cloneSaved(saved)
	s.savedLoaded = true
	s.collectionError = nil
	s.lastUpdated = s.now()
}

// PutSaved inserts or replaces one saved record, newest first.
func (s *Store) PutSaved(saved collection.SavedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]collection.SavedJob, 0, len(s.saved)+1)
	next = append(next, saved)
	for _, existing := range s.saved {
		if existing.ID != saved.ID {
			next = append(next, existing)
		}
	}
	s.saved = next
	s.lastUpdated = s.now()
}

// RemoveSaved drops one saved record from the mirror.
func (s *Store) RemoveSaved(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]collection.SavedJob, 0, len(s.saved))
	for _, existing := range s.saved {
		if existing.ID != id {
			next = append(next, existing)
		}
	}
	s.saved = next
	s.lastUpdated = s.now()
}

// RecordCollectionError keeps the mirror but remembers why a refresh failed.
func (s *Store) RecordCollectionError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionError = err
	s.lastUpdated = s.now()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Saved:       cloneSaved(s.saved),
		SavedLoaded: s.savedLoaded,
		LastUpdated: s.lastUpdated,
	}
	if len(s.jobs) > 0 {
		snap.Jobs = make([]Job, len(s.jobs))
		for i, job := range s.jobs {
			snap.Jobs[i] = job.clone()
		}
	}
	if s.collectionError != nil {
		snap.CollectionError = fmt.Errorf("%w", s.collectionError)
	}
	return snap
}

func (s *Store) mutate(jobID string, fn func(job *Job) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(jobID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	job := s.jobs[i].clone()
	changed, err := fn(&job)
	if err != nil || !changed {
		return err
	}
	next := make([]Job, len(s.jobs))
	copy(next, s.jobs)
	next[i] = job
	s.jobs = next
	s.lastUpdated = s.now()
	return nil
}

func (s *Store) indexOf(jobID string) int {
	for i, job := range s.jobs {
		if job.ID == jobID {
			return i
		}
	}
	return -1
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// resolveRandomStyle swaps the random sentinel for the concrete code the
// service picked. It only ever fires once per job.
func resolveRandomStyle(params *prompt.Parameters, key string) bool {
	if key == "" || !params.StyleReference.IsRandom() {
		return false
	}
	code, err := strconv.Atoi(key)
	if err != nil {
		return false
	}
	ref, err := prompt.FixedStyle(code)
	if err != nil {
		return false
	}
	params.StyleReference = ref
	return true
}

// settleUpscale ends the job's upscaling phase once no upscale is pending.
// Any upscale that failed during the phase leaves the job in error, even if
// a later one succeeds; job.Error keeps the most recent failure.
func settleUpscale(job *Job, last ModifiedImage) {
	if last.Kind != KindUpscale || job.Status != StatusUpscaling {
		return
	}
	if last.State == ImageFailed {
		job.Error = last.Error
	}
	if job.PendingModifications(KindUpscale) > 0 {
		return
	}
	if job.Error != "" {
		job.Status = StatusError
		return
	}
	job.Status = StatusDone
	job.Progress = 100
}

func resolveImage(img *ModifiedImage, url string) {
	img.URL = url
	img.State = ImageReady
	img.Progress = 100
	img.Error = ""
}

func failImage(img *ModifiedImage, reason string) {
	img.State = ImageFailed
	img.Error = reason
}

func indexOfImage(images []ModifiedImage, key OperationKey) int {
	for i, img := range images {
		if img.OperationKey == key {
			return i
		}
	}
	return -1
}

func failureText(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

func cloneSaved(saved []collection.SavedJob) []collection.SavedJob {
	if len(saved) == 0 {
		return nil
	}
	dup := make([]collection.SavedJob, len(saved))
	for i, item := range saved {
		dup[i] = item
		if item.ModifiedImages != nil {
			dup[i].ModifiedImages = make([]collection.SavedImage, len(item.ModifiedImages))
			copy(dup[i].ModifiedImages, item.ModifiedImages)
		}
	}
	return dup
}
