// Package job provides the Job aggregate that tracks a character video through
// the generation pipeline. It includes the status state machine, the partial
// update type used by every stage, and the owner-scoped repository port.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/charactercast-api/internal/character"
	"github.com/maauso/charactercast-api/internal/job/id"
)

// Status represents the current pipeline stage of a Job.
type Status string

const (
	// StatusPending indicates the job was submitted and no stage has run.
	StatusPending Status = "pending"
	// StatusGeneratingScript indicates the script stage is running.
	StatusGeneratingScript Status = "generating_script"
	// StatusGeneratingImage indicates the script is stored and the image stage is running.
	StatusGeneratingImage Status = "generating_image"
	// StatusGeneratingAudio indicates the image is stored and the audio stage is running.
	StatusGeneratingAudio Status = "generating_audio"
	// StatusGeneratingVideo indicates image and audio are stored and the video stage is running.
	StatusGeneratingVideo Status = "generating_video"
	// StatusCompleted indicates the video is stored.
	StatusCompleted Status = "completed"
	// StatusError indicates a stage failed. ErrorMessage holds the reason.
	StatusError Status = "error"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("job: invalid state transition")

// ErrInvalidJob is returned when a job is missing a field required at creation.
var ErrInvalidJob = errors.New("job: invalid job")

// validTransitions defines which state transitions are allowed.
// Re-entering the current generating state is allowed so a stage can be
// re-triggered after its status write.
var validTransitions = map[Status][]Status{
	StatusPending:          {StatusGeneratingScript, StatusError},
	StatusGeneratingScript: {StatusGeneratingScript, StatusGeneratingImage, StatusError},
	StatusGeneratingImage:  {StatusGeneratingImage, StatusGeneratingAudio, StatusError},
	StatusGeneratingAudio:  {StatusGeneratingAudio, StatusGeneratingVideo, StatusError},
	StatusGeneratingVideo:  {StatusGeneratingVideo, StatusCompleted, StatusError},
	StatusCompleted:        {},
	StatusError:            {},
}

// CanTransition reports whether a job in status from may move to status to.
func CanTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsValid returns true if the status is part of the state machine.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Job represents one character video request and its generated artifacts.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Owner is the principal that submitted the job.
	Owner string
	// CharacterType is the persona presenting the video.
	CharacterType character.Type
	// Attributes are the persona attributes, keyed by attribute name.
	Attributes character.Attributes
	// Topic is the subject the character talks about.
	Topic string
	// Status is the current pipeline stage.
	Status Status
	// Script is the generated monologue.
	Script string
	// ImageURL references the generated character image.
	ImageURL string
	// AudioURL references the synthesized speech.
	AudioURL string
	// VideoURL references the final talking-head video.
	VideoURL string
	// ErrorMessage contains the failure reason when Status is StatusError.
	ErrorMessage string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
}

// New creates a pending Job with a generated ID.
func New(owner string, charType character.Type, attrs character.Attributes, topic string) *Job {
	return NewWithID(id.Generate(), owner, charType, attrs, topic)
}

// NewWithID creates a pending Job with the specified ID.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID, owner string, charType character.Type, attrs character.Attributes, topic string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:            jobID,
		Owner:         owner,
		CharacterType: charType,
		Attributes:    attrs.Clone(),
		Topic:         topic,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the fields that must be present when a job is created.
func (j *Job) Validate() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch {
	case j.ID == "":
		return errors.Join(ErrInvalidJob, errors.New("id is required"))
	case j.Owner == "":
		return errors.Join(ErrInvalidJob, errors.New("owner is required"))
	case !j.CharacterType.IsValid():
		return errors.Join(ErrInvalidJob, errors.New("character type is invalid"))
	case j.Topic == "":
		return errors.Join(ErrInvalidJob, errors.New("topic is required"))
	}
	return nil
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !CanTransition(j.Status, status) {
		return ErrInvalidTransition
	}
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.GetStatus().IsTerminal()
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:            j.ID,
		Owner:         j.Owner,
		CharacterType: j.CharacterType,
		Attributes:    j.Attributes.Clone(),
		Topic:         j.Topic,
		Status:        j.Status,
		Script:        j.Script,
		ImageURL:      j.ImageURL,
		AudioURL:      j.AudioURL,
		VideoURL:      j.VideoURL,
		ErrorMessage:  j.ErrorMessage,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}
