package job

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingArtifact is returned when a status change would leave the job
// without an artifact that the new status requires.
var ErrMissingArtifact = errors.New("job: required artifact missing for status")

// Update is a partial patch applied to a stored job. Nil fields are left
// unchanged. Each pipeline stage writes only the fields it owns.
type Update struct {
	Status       *Status
	Script       *string
	ImageURL     *string
	AudioURL     *string
	VideoURL     *string
	ErrorMessage *string
}

// StatusUpdate returns an Update that only changes the status.
func StatusUpdate(s Status) Update {
	return Update{Status: &s}
}

// FailureUpdate returns an Update that moves the job to StatusError with msg.
func FailureUpdate(msg string) Update {
	s := StatusError
	return Update{Status: &s, ErrorMessage: &msg}
}

// Ptr returns a pointer to v. It keeps Update literals short.
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Status == nil && u.Script == nil && u.ImageURL == nil &&
		u.AudioURL == nil && u.VideoURL == nil && u.ErrorMessage == nil
}

// Apply validates the update against the job's current state and mutates
// the job in place. The job is left untouched when an error is returned.
func (j *Job) Apply(u Update) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	next := *j.snapshotLocked()
	if u.Script != nil {
		next.Script = *u.Script
	}
	if u.ImageURL != nil {
		next.ImageURL = *u.ImageURL
	}
	if u.AudioURL != nil {
		next.AudioURL = *u.AudioURL
	}
	if u.VideoURL != nil {
		next.VideoURL = *u.VideoURL
	}
	if u.ErrorMessage != nil {
		next.ErrorMessage = *u.ErrorMessage
	}
	if u.Status != nil {
		if !CanTransition(j.Status, *u.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, *u.Status)
		}
		next.Status = *u.Status
		if err := checkArtifacts(next); err != nil {
			return err
		}
	}

	j.Status = next.Status
	j.Script = next.Script
	j.ImageURL = next.ImageURL
	j.AudioURL = next.AudioURL
	j.VideoURL = next.VideoURL
	j.ErrorMessage = next.ErrorMessage
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// fields is the subset of Job state touched by Apply.
type fields struct {
	Status       Status
	Script       string
	ImageURL     string
	AudioURL     string
	VideoURL     string
	ErrorMessage string
}

func (j *Job) snapshotLocked() *fields {
	return &fields{
		Status:       j.Status,
		Script:       j.Script,
		ImageURL:     j.ImageURL,
		AudioURL:     j.AudioURL,
		VideoURL:     j.VideoURL,
		ErrorMessage: j.ErrorMessage,
	}
}

// checkArtifacts enforces which artifacts each status requires.
func checkArtifacts(f fields) error {
	need := func(name, v string) error {
		if v == "" {
			return fmt.Errorf("%w: %s requires %s", ErrMissingArtifact, f.Status, name)
		}
		return nil
	}
	switch f.Status {
	case StatusGeneratingImage:
		return need("script", f.Script)
	case StatusGeneratingAudio:
		if err := need("script", f.Script); err != nil {
			return err
		}
		return need("image_url", f.ImageURL)
	case StatusGeneratingVideo:
		if err := need("image_url", f.ImageURL); err != nil {
			return err
		}
		return need("audio_url", f.AudioURL)
	case StatusCompleted:
		return need("video_url", f.VideoURL)
	case StatusError:
		return need("error_message", f.ErrorMessage)
	}
	return nil
}
