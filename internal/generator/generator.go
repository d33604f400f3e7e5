// Package generator provides the stage adapters that turn a job snapshot into
// a generated artifact: the script, the character image, the speech track and
// the talking-head video. Every adapter has the same shape and reports
// provider failures as *GenerationError.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maauso/charactercast-api/internal/job"
)

// Stage names one step of the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageScript Stage = "script"
	StageImage  Stage = "image"
	StageAudio  Stage = "audio"
	StageVideo  Stage = "video"
)

// ErrUnknownStage is returned when a stage name is not recognized.
var ErrUnknownStage = errors.New("generator: unknown stage")

// ErrMissingInput is returned when a job snapshot lacks an input the stage needs.
var ErrMissingInput = errors.New("generator: missing stage input")

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{StageScript, StageImage, StageAudio, StageVideo}
}

// ParseStage converts a stage name into a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StageScript, StageImage, StageAudio, StageVideo:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
}

// Status returns the job status a job holds while the stage runs.
func (s Stage) Status() job.Status {
	switch s {
	case StageScript:
		return job.StatusGeneratingScript
	case StageImage:
		return job.StatusGeneratingImage
	case StageAudio:
		return job.StatusGeneratingAudio
	case StageVideo:
		return job.StatusGeneratingVideo
	default:
		return ""
	}
}

// Output returns an Update that records value as the artifact this stage owns.
func (s Stage) Output(value string) job.Update {
	switch s {
	case StageScript:
		return job.Update{Script: &value}
	case StageImage:
		return job.Update{ImageURL: &value}
	case StageAudio:
		return job.Update{AudioURL: &value}
	case StageVideo:
		return job.Update{VideoURL: &value}
	default:
		return job.Update{}
	}
}

// Adapter generates the artifact for one stage from a job snapshot.
type Adapter interface {
	// Generate returns the script text or an artifact reference.
	Generate(ctx context.Context, j *job.Job) (string, error)
}

// GenerationError reports a failed stage and its cause.
type GenerationError struct {
	Stage Stage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// fail wraps err as a GenerationError for stage unless it already is one.
func fail(stage Stage, err error) error {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Stage: stage, Err: err}
}

// artifactName builds names such as "images/<job id>-1700000000000-baby.png".
// The job id keeps concurrent jobs from writing to the same object.
func artifactName(dir string, now time.Time, j *job.Job, ext string) string {
	return fmt.Sprintf("%s/%s-%d-%s.%s", dir, j.ID, now.UnixMilli(), j.CharacterType, ext)
}
