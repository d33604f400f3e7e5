package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/charactercast-api/internal/cache"
	"github.com/maauso/charactercast-api/internal/character"
	"github.com/maauso/charactercast-api/internal/hedra"
	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/storage"
)

// ErrRemoteFailed is returned when the video provider reports a failed generation.
var ErrRemoteFailed = errors.New("generator: remote generation failed")

// PollPolicy bounds how long the video adapter waits for a generation.
type PollPolicy struct {
	// InitialDelay is waited once before the first status check.
	InitialDelay time.Duration
	// Interval separates status checks.
	Interval time.Duration
	// MaxAttempts is the number of status checks before falling back.
	MaxAttempts int
}

// DefaultPollPolicy waits a minute, then checks every 30 seconds, 10 times.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		InitialDelay: 60 * time.Second,
		Interval:     30 * time.Second,
		MaxAttempts:  10,
	}
}

// VideoCacheKey identifies a video by its inputs.
func VideoCacheKey(imageRef, audioRef string, t character.Type, topic string) string {
	if topic == "" {
		topic = "no-topic"
	}
	return fmt.Sprintf("%s:%s:%s:%s", imageRef, audioRef, t, topic)
}

// Compile-time check that VideoAdapter implements Adapter.
var _ Adapter = (*VideoAdapter)(nil)

// VideoAdapter composes the stored image and audio into a talking video.
type VideoAdapter struct {
	provider VideoProvider
	uploader *AssetUploader
	videos   cache.Cache
	store    storage.Storage
	policy   PollPolicy
	opts     options
}

// NewVideoAdapter creates a video adapter. videos caches finished video
// references by VideoCacheKey.
func NewVideoAdapter(provider VideoProvider, uploader *AssetUploader, videos cache.Cache, store storage.Storage, policy PollPolicy, opts ...Option) *VideoAdapter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &VideoAdapter{
		provider: provider,
		uploader: uploader,
		videos:   videos,
		store:    store,
		policy:   policy,
		opts:     buildOptions(opts),
	}
}

// Generate returns a video reference. It is normally a stored artifact; when
// the provider never confirms the output and the canonical output URL cannot
// be downloaded, that remote URL is returned instead.
func (a *VideoAdapter) Generate(ctx context.Context, j *job.Job) (string, error) {
	if j.ImageURL == "" || j.AudioURL == "" {
		return "", fail(StageVideo, fmt.Errorf("%w: image and audio references", ErrMissingInput))
	}
	logger := a.opts.logger.With(slog.String("job_id", j.ID))

	key := VideoCacheKey(j.ImageURL, j.AudioURL, j.CharacterType, j.Topic)
	if ref, ok, err := a.videos.Get(ctx, key); err != nil {
		logger.Warn("video cache read failed", slog.String("error", err.Error()))
	} else if ok && ref != "" {
		logger.Info("video cache hit", slog.String("ref", ref))
		return ref, nil
	}

	if err := a.requireStored(ctx, j.ImageURL, j.AudioURL); err != nil {
		return "", fail(StageVideo, err)
	}

	imageID, audioID, err := a.uploadInputs(ctx, j)
	if err != nil {
		return "", fail(StageVideo, err)
	}

	genID, err := a.provider.CreateGeneration(ctx, hedra.GenerationRequest{
		ImageAssetID: imageID,
		AudioAssetID: audioID,
		TextPrompt:   VideoPrompt(j.CharacterType, j.Topic),
	})
	if err != nil {
		return "", fail(StageVideo, fmt.Errorf("create generation: %w", err))
	}
	logger = logger.With(slog.String("generation_id", genID))
	logger.Info("video generation submitted")

	outputURL, confirmed, err := a.await(ctx, genID, logger)
	if err != nil {
		return "", fail(StageVideo, err)
	}

	data, err := a.provider.Download(ctx, outputURL)
	if err != nil {
		if !confirmed {
			logger.Warn("fallback output not downloadable, keeping remote URL",
				slog.String("url", outputURL),
				slog.String("error", err.Error()),
			)
			return outputURL, nil
		}
		return "", fail(StageVideo, fmt.Errorf("download video: %w", err))
	}

	name := artifactName("videos", a.opts.now(), j, "mp4")
	ref, err := a.store.Put(ctx, name, bytes.NewReader(data))
	if err != nil {
		return "", fail(StageVideo, fmt.Errorf("store video: %w", err))
	}

	if err := a.videos.Put(ctx, key, ref); err != nil {
		logger.Warn("video cache write failed", slog.String("error", err.Error()))
	}
	logger.Info("video generated", slog.String("ref", ref), slog.Bool("confirmed", confirmed))
	return ref, nil
}

// requireStored checks that every input artifact is still in storage before
// anything is sent to the provider.
func (a *VideoAdapter) requireStored(ctx context.Context, refs ...string) error {
	for _, ref := range refs {
		ok, err := a.store.Exists(ctx, ref)
		if err != nil {
			return fmt.Errorf("check artifact %q: %w", ref, err)
		}
		if !ok {
			return fmt.Errorf("%w: %w %q", ErrMissingInput, storage.ErrNotFound, ref)
		}
	}
	return nil
}

// uploadInputs reads the image and audio artifacts and uploads them concurrently.
func (a *VideoAdapter) uploadInputs(ctx context.Context, j *job.Job) (imageID, audioID string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := a.uploadRef(gctx, hedra.AssetImage, j.ImageURL)
		imageID = id
		return err
	})
	g.Go(func() error {
		id, err := a.uploadRef(gctx, hedra.AssetAudio, j.AudioURL)
		audioID = id
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return imageID, audioID, nil
}

func (a *VideoAdapter) uploadRef(ctx context.Context, t hedra.AssetType, ref string) (string, error) {
	data, err := storage.ReadAll(ctx, a.store, ref)
	if err != nil {
		return "", fmt.Errorf("read %s %q: %w", t, ref, err)
	}
	return a.uploader.Upload(ctx, t, path.Base(ref), data)
}

// await polls the generation status. It returns the output URL and whether
// the provider confirmed completion. Individual poll failures are tolerated;
// once attempts run out the canonical output URL is returned unconfirmed.
func (a *VideoAdapter) await(ctx context.Context, genID string, logger *slog.Logger) (string, bool, error) {
	if err := a.opts.sleep(ctx, a.policy.InitialDelay); err != nil {
		return "", false, err
	}

	for attempt := 1; attempt <= a.policy.MaxAttempts; attempt++ {
		raw, err := a.provider.Status(ctx, genID)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			logger.Warn("video status check failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		} else {
			res, err := hedra.ParseStatusResponse(raw)
			switch {
			case err != nil:
				logger.Warn("video status unreadable", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			case res.State == hedra.StateFailed:
				return "", false, fmt.Errorf("%w: %s", ErrRemoteFailed, res.Reason)
			case res.State == hedra.StateComplete:
				if res.URL == "" {
					return a.provider.OutputURL(genID), true, nil
				}
				return res.URL, true, nil
			default:
				logger.Debug("video still processing",
					slog.Int("attempt", attempt),
					slog.Float64("progress", res.Progress),
				)
			}
		}

		if attempt < a.policy.MaxAttempts {
			if err := a.opts.sleep(ctx, a.policy.Interval); err != nil {
				return "", false, err
			}
		}
	}

	fallback := a.provider.OutputURL(genID)
	logger.Warn("video status attempts exhausted, using canonical output URL",
		slog.Int("attempts", a.policy.MaxAttempts),
		slog.String("url", fallback),
	)
	return fallback, false, nil
}
