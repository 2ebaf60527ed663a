package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/five82/easel/internal/prompt"
)

// Sentinel errors. ErrJobNotFound is the local not-found class: callers treat
// it as a no-op.
var (
	ErrJobNotFound      = errors.New("job not found")
	ErrHandleAlreadySet = errors.New("remote handle already set")
	ErrAlreadyResolved  = errors.New("modification already resolved")
	ErrNoImage          = errors.New("job has no finished image")
)

// Status is the client-side lifecycle of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusUpscaling  Status = "upscaling"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether polling for the primary operation has finished.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Kind distinguishes the two modification operations.
type Kind string

const (
	KindUpscale   Kind = "upscale"
	KindVariation Kind = "variation"
)

// OperationKey identifies one pollable lifecycle.
type OperationKey string

// PrimaryKey is the key of a job's own generation.
func PrimaryKey(jobID string) OperationKey {
	return OperationKey(jobID)
}

// ModificationKey is the key of one upscale or variation request.
func ModificationKey(jobID string, kind Kind, choice int) OperationKey {
	return OperationKey(fmt.Sprintf("%s-%s-%d", jobID, kind, choice))
}

// ImageState tracks a ModifiedImage from placeholder to result.
type ImageState string

const (
	ImagePending ImageState = "pending"
	ImageReady   ImageState = "ready"
	ImageFailed  ImageState = "failed"
)

// ModifiedImage is one upscale or variation attached to a Job. URL is empty
// until the remote operation completes and never changes afterwards.
type ModifiedImage struct {
	Kind         Kind
	Choice       int
	OperationKey OperationKey
	State        ImageState
	URL          string
	Progress     int
	Error        string
}

// Job is one prompt submission and everything derived from it.
type Job struct {
	ID             string
	Prompt         string
	Status         Status
	Progress       int
	RemoteHandle   string
	ImageURL       string
	Parameters     prompt.Parameters
	CreatedAt      time.Time
	Error          string
	ModifiedImages []ModifiedImage
	Saved          bool
	SavedReference string
}

// HasRemoteHandle reports whether the service accepted the job.
func (j Job) HasRemoteHandle() bool { return j.RemoteHandle != "" }

// HasImage reports whether the primary grid is available.
func (j Job) HasImage() bool { return j.ImageURL != "" }

// ModifiedImage looks up an entry by key.
func (j Job) ModifiedImage(key OperationKey) (ModifiedImage, bool) {
	for _, img := range j.ModifiedImages {
		if img.OperationKey == key {
			return img, true
		}
	}
	return ModifiedImage{}, false
}

// PendingModifications counts placeholders of kind still awaiting a result.
func (j Job) PendingModifications(kind Kind) int {
	n := 0
	for _, img := range j.ModifiedImages {
		if img.Kind == kind && img.State == ImagePending {
			n++
		}
	}
	return n
}

// ReadyImages returns modified images that have a URL.
func (j Job) ReadyImages() []ModifiedImage {
	var out []ModifiedImage
	for _, img := range j.ModifiedImages {
		if img.State == ImageReady {
			out = append(out, img)
		}
	}
	return out
}

func (j Job) clone() Job {
	dup := j
	if j.ModifiedImages != nil {
		dup.ModifiedImages = make([]ModifiedImage, len(j.ModifiedImages))
		copy(dup.ModifiedImages, j.ModifiedImages)
	}
	return dup
}

// statusRank orders statuses for the forward-only rule.
func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusGenerating:
		return 1
	case StatusUpscaling:
		return 2
	case StatusDone, StatusError:
		return 3
	default:
		return -1
	}
}
