// Package bootstrap provides dependency initialization for the CharacterCast API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/charactercast-api/internal/auth"
	"github.com/maauso/charactercast-api/internal/cache"
	"github.com/maauso/charactercast-api/internal/config"
	"github.com/maauso/charactercast-api/internal/elevenlabs"
	"github.com/maauso/charactercast-api/internal/generator"
	"github.com/maauso/charactercast-api/internal/hedra"
	"github.com/maauso/charactercast-api/internal/httpapi"
	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/llm"
	"github.com/maauso/charactercast-api/internal/openai"
	"github.com/maauso/charactercast-api/internal/pipeline"
	"github.com/maauso/charactercast-api/internal/storage"
	"github.com/maauso/charactercast-api/internal/worker"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Orchestrator *pipeline.Orchestrator
	Runner       *worker.Runner
	Tokens       *auth.Tokens

	// StaticDir and StaticPath are set when artifacts live on local disk
	// and must be served by the API.
	StaticDir  string
	StaticPath string

	closers []func() error
}

// Close releases database handles and provider clients.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (deps *Dependencies, err error) {
	deps = &Dependencies{}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	deps.Tokens, err = auth.NewTokens(cfg.JWTSecret, auth.WithTTL(cfg.JWTTTL))
	if err != nil {
		return nil, fmt.Errorf("create token service: %w", err)
	}

	store, err := deps.initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := deps.initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	assets, videos, err := deps.initCaches(cfg, logger)
	if err != nil {
		return nil, err
	}

	adapters, err := deps.initAdapters(ctx, cfg, logger, store, assets, videos)
	if err != nil {
		return nil, err
	}

	deps.Runner = worker.NewRunner(
		worker.WithLogger(logger),
		worker.WithTimeout(cfg.VideoTaskTimeout),
	)

	deps.Orchestrator = pipeline.NewOrchestrator(repo, adapters, deps.Runner, pipeline.WithLogger(logger))
	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Prefix:          cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.ArtifactDir, cfg.PublicBasePath)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	d.StaticDir = localStore.Root()
	d.StaticPath = localStore.PublicPath()
	logger.Info("local storage configured",
		slog.String("artifact_dir", localStore.Root()),
		slog.String("public_path", localStore.PublicPath()),
	)
	return localStore, nil
}

// initRepository picks PostgreSQL when DATABASE_URL is set, memory otherwise.
func (d *Dependencies) initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Repository, error) {
	if !cfg.PostgresEnabled() {
		logger.Info("in-memory job store configured")
		return job.NewMemoryRepository(), nil
	}

	repo, err := job.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect job store: %w", err)
	}
	d.closers = append(d.closers, func() error {
		repo.Close()
		return nil
	})
	logger.Info("PostgreSQL job store configured")
	return repo, nil
}

// initCaches returns the asset cache and the video generation cache.
// The file backend only persists asset ids; generated videos are cached in
// memory.
func (d *Dependencies) initCaches(cfg *config.Config, logger *slog.Logger) (assets, videos cache.Cache, err error) {
	switch cfg.CacheBackend {
	case config.CacheSQLite:
		store, err := cache.OpenSQLite(cfg.CacheSQLiteDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		d.closers = append(d.closers, store.Close)
		logger.Info("sqlite cache configured", slog.String("dir", cfg.CacheSQLiteDir))
		return store.Namespace("assets"), store.Namespace("videos"), nil

	case config.CacheFile:
		fc, err := cache.OpenFileCache(cfg.CacheFile, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open file cache: %w", err)
		}
		logger.Info("file cache configured", slog.String("path", cfg.CacheFile))
		return fc, cache.NewMemoryCache(), nil

	default:
		logger.Info("memory cache configured")
		return cache.NewMemoryCache(), cache.NewMemoryCache(), nil
	}
}

// initAdapters creates the provider clients and the four stage adapters.
func (d *Dependencies) initAdapters(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	store storage.Storage,
	assets, videos cache.Cache,
) (pipeline.Adapters, error) {
	httpOpts := []httpapi.Option{httpapi.WithMaxRetries(cfg.ProviderMaxRetries)}
	genOpts := []generator.Option{generator.WithLogger(logger)}

	openaiClient, err := openai.NewClient(
		openai.WithAPIKey(cfg.OpenAIAPIKey),
		openai.WithChatModel(cfg.OpenAIScriptModel),
		openai.WithImageModel(cfg.OpenAIImageModel),
		openai.WithHTTPOptions(httpOpts...),
	)
	if err != nil {
		return pipeline.Adapters{}, fmt.Errorf("create OpenAI client: %w", err)
	}

	var scriptLLM llm.Client = openaiClient
	if cfg.ScriptProvider == config.ProviderGemini {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return pipeline.Adapters{}, fmt.Errorf("create Gemini client: %w", err)
		}
		d.closers = append(d.closers, gemini.Close)
		scriptLLM = gemini
	}
	logger.Info("script provider configured", slog.String("provider", cfg.ScriptProvider))

	speech, err := elevenlabs.NewClient(
		elevenlabs.WithAPIKey(cfg.ElevenLabsAPIKey),
		elevenlabs.WithModelID(cfg.ElevenLabsModelID),
		elevenlabs.WithHTTPOptions(httpOpts...),
	)
	if err != nil {
		return pipeline.Adapters{}, fmt.Errorf("create ElevenLabs client: %w", err)
	}

	video, err := hedra.NewClient(
		hedra.WithAPIKey(cfg.HedraAPIKey),
		hedra.WithModelID(cfg.HedraModelID),
		hedra.WithHTTPOptions(httpOpts...),
	)
	if err != nil {
		return pipeline.Adapters{}, fmt.Errorf("create Hedra client: %w", err)
	}

	uploader := generator.NewAssetUploader(video, assets, genOpts...)
	policy := generator.PollPolicy{
		InitialDelay: cfg.VideoInitialDelay,
		Interval:     cfg.VideoPollInterval,
		MaxAttempts:  cfg.VideoMaxPolls,
	}

	return pipeline.Adapters{
		Script: generator.NewScriptAdapter(scriptLLM, genOpts...),
		Image:  generator.NewImageAdapter(openaiClient, store, genOpts...),
		Audio:  generator.NewAudioAdapter(speech, store, genOpts...),
		Video:  generator.NewVideoAdapter(video, uploader, videos, store, policy, genOpts...),
	}, nil
}
