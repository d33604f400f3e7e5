// Package pipeline drives a job through the script, image, audio and video
// stages. The first three run in the caller's request; the video stage is
// launched as a detached task whose outcome is only visible in the job store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/charactercast-api/internal/character"
	"github.com/maauso/charactercast-api/internal/generator"
	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/worker"
)

// Adapters holds one generator per stage.
type Adapters struct {
	Script generator.Adapter
	Image  generator.Adapter
	Audio  generator.Adapter
	Video  generator.Adapter
}

func (a Adapters) forStage(s generator.Stage) generator.Adapter {
	switch s {
	case generator.StageScript:
		return a.Script
	case generator.StageImage:
		return a.Image
	case generator.StageAudio:
		return a.Audio
	case generator.StageVideo:
		return a.Video
	default:
		return nil
	}
}

// statusWriteTimeout bounds writes that record a stage outcome.
const statusWriteTimeout = 10 * time.Second

// syncStages run inside Advance, in order.
var syncStages = []generator.Stage{generator.StageScript, generator.StageImage, generator.StageAudio}

// nextStatus is the status a job moves to once stage has stored its output.
var nextStatus = map[generator.Stage]job.Status{
	generator.StageScript: job.StatusGeneratingImage,
	generator.StageImage:  job.StatusGeneratingAudio,
	generator.StageAudio:  job.StatusGeneratingVideo,
	generator.StageVideo:  job.StatusCompleted,
}

// SubmitInput is a new job request.
type SubmitInput struct {
	Owner         string            `validate:"required"`
	CharacterType string            `validate:"required"`
	Attributes    map[string]string `validate:"required"`
	Topic         string            `validate:"required,max=500"`
}

// AdvanceResult is the acknowledgement returned by Advance.
type AdvanceResult struct {
	// Job is the job as persisted when Advance returned.
	Job *job.Job
	// VideoLaunched reports whether this call started the video task.
	VideoLaunched bool
}

// Orchestrator sequences the generation stages for stored jobs.
type Orchestrator struct {
	repo      job.Repository
	adapters  Adapters
	launcher  worker.Launcher
	validator *validator.Validate
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(repo job.Repository, adapters Adapters, launcher worker.Launcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:      repo,
		adapters:  adapters,
		launcher:  launcher,
		validator: validator.New(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit validates the request and stores a new pending job.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (*job.Job, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Owner = strings.TrimSpace(in.Owner)

	if err := o.validator.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &ValidationError{Field: submitFieldName(fe.Field()), Reason: "failed " + fe.Tag() + " check"}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}

	typ, err := character.ParseType(in.CharacterType)
	if err != nil {
		return nil, &ValidationError{Field: "character_type", Reason: err.Error()}
	}

	attrs, err := character.ValidateAttributes(typ, character.Attributes(in.Attributes))
	if err != nil {
		var ve *character.ValidationError
		if errors.As(err, &ve) && len(ve.Errors) > 0 {
			fe := ve.Errors[0]
			return nil, &ValidationError{Field: "attributes." + fe.Field, Reason: fe.Message}
		}
		return nil, &ValidationError{Field: "attributes", Reason: err.Error()}
	}

	j := job.New(in.Owner, typ, attrs, in.Topic)
	if _, err := o.repo.Create(ctx, j); err != nil {
		return nil, &PersistenceError{Op: "create job", Err: err}
	}

	o.logger.Info("job submitted",
		slog.String("job_id", j.ID),
		slog.String("character_type", string(typ)),
	)
	return j.Clone(), nil
}

// GetJob returns the job if owner owns it.
func (o *Orchestrator) GetJob(ctx context.Context, id, owner string) (*job.Job, error) {
	return o.load(ctx, id, owner)
}

// Advance runs every synchronous stage that has not produced its output yet,
// then launches the video stage in the background and returns without
// waiting for it. Jobs already generating video or in a terminal state are
// returned unchanged.
func (o *Orchestrator) Advance(ctx context.Context, id, owner string) (*AdvanceResult, error) {
	j, err := o.load(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if j.IsTerminal() || j.GetStatus() == job.StatusGeneratingVideo {
		o.logger.Debug("advance is a no-op",
			slog.String("job_id", id),
			slog.String("status", string(j.GetStatus())),
		)
		return &AdvanceResult{Job: j}, nil
	}

	for _, stage := range syncStages {
		if hasOutput(j, stage) {
			continue
		}
		j, err = o.execute(ctx, j, stage)
		if err != nil {
			return nil, err
		}
	}

	if j.GetStatus() != job.StatusGeneratingVideo {
		j, err = o.update(ctx, j, job.StatusUpdate(job.StatusGeneratingVideo))
		if err != nil {
			return nil, err
		}
	}

	if err := o.launchVideo(ctx, j.ID, j.Owner); err != nil {
		o.logger.Error("video launch failed", slog.String("job_id", j.ID), slog.String("error", err.Error()))
		if _, ferr := o.repo.Update(ctx, j.ID, j.Owner, job.FailureUpdate(ErrVideoNotLaunched.Error())); ferr != nil {
			return nil, &PersistenceError{Op: "record launch failure", Err: ferr}
		}
		return nil, fmt.Errorf("%w: %w", ErrVideoNotLaunched, err)
	}

	return &AdvanceResult{Job: j, VideoLaunched: true}, nil
}

// RunStage runs one stage synchronously, video included. The job must be
// ready for the stage: its current status must allow moving to the stage's
// generating status.
func (o *Orchestrator) RunStage(ctx context.Context, id, owner string, stage generator.Stage) (*job.Job, error) {
	if o.adapters.forStage(stage) == nil {
		return nil, fmt.Errorf("%w: %q", generator.ErrUnknownStage, stage)
	}

	j, err := o.load(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if !job.CanTransition(j.GetStatus(), stage.Status()) {
		return nil, fmt.Errorf("%w: cannot run %s stage from %s", job.ErrInvalidTransition, stage, j.GetStatus())
	}
	return o.execute(ctx, j, stage)
}

// execute moves j into the stage's status, runs the adapter and stores the
// output together with the next status. Adapter failures are recorded on
// the job before being returned.
func (o *Orchestrator) execute(ctx context.Context, j *job.Job, stage generator.Stage) (*job.Job, error) {
	logger := o.logger.With(slog.String("job_id", j.ID), slog.String("stage", string(stage)))

	var err error
	if j.GetStatus() != stage.Status() {
		j, err = o.update(ctx, j, job.StatusUpdate(stage.Status()))
		if err != nil {
			return nil, err
		}
	}

	logger.Info("stage started")
	out, genErr := o.adapters.forStage(stage).Generate(ctx, j)
	if genErr != nil {
		logger.Error("stage failed", slog.String("error", genErr.Error()))
		wctx, cancel := writeContext(ctx)
		defer cancel()
		if _, err := o.update(wctx, j, job.FailureUpdate(genErr.Error())); err != nil {
			return nil, err
		}
		return nil, genErr
	}

	u := stage.Output(out)
	u.Status = job.Ptr(nextStatus[stage])
	j, err = o.update(ctx, j, u)
	if err != nil {
		return nil, err
	}
	logger.Info("stage completed", slog.String("status", string(j.GetStatus())))
	return j, nil
}

// launchVideo starts the detached video task. Only identifiers cross into
// the task; it reads the job again when it starts.
func (o *Orchestrator) launchVideo(ctx context.Context, id, owner string) error {
	return o.launcher.Go(ctx, "video:"+id, func(ctx context.Context) error {
		return o.runVideo(ctx, id, owner)
	})
}

// runVideo is the body of the detached video task. Every way out of it,
// panics included, leaves the job completed or failed unless the job is gone
// or the store keeps rejecting writes.
func (o *Orchestrator) runVideo(ctx context.Context, id, owner string) (err error) {
	logger := o.logger.With(slog.String("job_id", id), slog.String("stage", string(generator.StageVideo)))

	defer func() {
		if p := recover(); p != nil {
			logger.Error("video task panicked", slog.Any("panic", p), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("pipeline: video task panicked: %v", p)
			if ferr := o.finish(ctx, id, owner, job.FailureUpdate("video generation aborted unexpectedly"), logger); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
	}()

	j, err := o.load(ctx, id, owner)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return err
		}
		if ferr := o.finish(ctx, id, owner, job.FailureUpdate("video stage could not read job"), logger); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	if j.GetStatus() != job.StatusGeneratingVideo {
		logger.Warn("video task skipped", slog.String("status", string(j.GetStatus())))
		return nil
	}
	if j.ImageURL == "" || j.AudioURL == "" {
		msg := "video stage requires both image and audio references"
		if err := o.finish(ctx, id, owner, job.FailureUpdate(msg), logger); err != nil {
			return err
		}
		return errors.New(msg)
	}

	logger.Info("stage started")
	out, genErr := o.adapters.Video.Generate(ctx, j)
	if genErr != nil {
		if err := o.finish(ctx, id, owner, job.FailureUpdate(genErr.Error()), logger); err != nil {
			return errors.Join(genErr, err)
		}
		return genErr
	}

	u := generator.StageVideo.Output(out)
	u.Status = job.Ptr(job.StatusCompleted)
	if err := o.finish(ctx, id, owner, u, logger); err != nil {
		return err
	}
	logger.Info("stage completed", slog.String("video_url", out))
	return nil
}

// finish writes the final status of the video task, retrying once. The
// write runs on its own deadline so an expired task context cannot drop it.
func (o *Orchestrator) finish(ctx context.Context, id, owner string, u job.Update, logger *slog.Logger) error {
	wctx, cancel := writeContext(ctx)
	defer cancel()

	_, err := o.repo.Update(wctx, id, owner, u)
	if err == nil {
		return nil
	}
	if errors.Is(err, job.ErrInvalidTransition) || errors.Is(err, job.ErrJobNotFound) {
		return &PersistenceError{Op: "finish video", Err: err}
	}

	logger.Warn("final status write failed, retrying", slog.String("error", err.Error()))
	if _, err := o.repo.Update(wctx, id, owner, u); err != nil {
		return &PersistenceError{Op: "finish video", Err: err}
	}
	return nil
}

// writeContext returns a context for recording an outcome. It keeps ctx's
// values but not its cancellation.
func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

func (o *Orchestrator) load(ctx context.Context, id, owner string) (*job.Job, error) {
	j, err := o.repo.Get(ctx, id, owner)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "get job", Err: err}
	}
	return j, nil
}

func (o *Orchestrator) update(ctx context.Context, j *job.Job, u job.Update) (*job.Job, error) {
	updated, err := o.repo.Update(ctx, j.ID, j.Owner, u)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) || errors.Is(err, job.ErrInvalidTransition) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "update job", Err: err}
	}
	return updated, nil
}

// hasOutput reports whether stage already stored its artifact on j.
func hasOutput(j *job.Job, stage generator.Stage) bool {
	switch stage {
	case generator.StageScript:
		return j.Script != ""
	case generator.StageImage:
		return j.ImageURL != ""
	case generator.StageAudio:
		return j.AudioURL != ""
	case generator.StageVideo:
		return j.VideoURL != ""
	default:
		return false
	}
}

func submitFieldName(f string) string {
	switch f {
	case "CharacterType":
		return "character_type"
	case "Attributes":
		return "attributes"
	case "Topic":
		return "topic"
	case "Owner":
		return "owner"
	default:
		return f
	}
}
