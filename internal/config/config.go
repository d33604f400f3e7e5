// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// Script providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrElevenLabsAPIKeyRequired is returned when ELEVENLABS_API_KEY is not set.
	ErrElevenLabsAPIKeyRequired = errors.New("config: ELEVENLABS_API_KEY is required")
	// ErrHedraAPIKeyRequired is returned when HEDRA_API_KEY is not set.
	ErrHedraAPIKeyRequired = errors.New("config: HEDRA_API_KEY is required")
	// ErrJWTSecretRequired is returned when JWT_SECRET is not set.
	ErrJWTSecretRequired = errors.New("config: JWT_SECRET is required")
	// ErrGeminiAPIKeyRequired is returned when SCRIPT_PROVIDER=gemini without GEMINI_API_KEY.
	ErrGeminiAPIKeyRequired = errors.New("config: GEMINI_API_KEY is required when SCRIPT_PROVIDER=gemini")
	// ErrInvalidCacheBackend is returned for an unknown CACHE_BACKEND.
	ErrInvalidCacheBackend = errors.New("config: CACHE_BACKEND must be memory, file or sqlite")
	// ErrInvalidScriptProvider is returned for an unknown SCRIPT_PROVIDER.
	ErrInvalidScriptProvider = errors.New("config: SCRIPT_PROVIDER must be openai or gemini")
	// ErrInvalidVideoPolicy is returned when the video polling settings cannot work.
	ErrInvalidVideoPolicy = errors.New("config: VIDEO_MAX_POLLS and VIDEO_POLL_INTERVAL must be positive")
)

// requiredVars maps the variables envconfig enforces to their domain errors.
var requiredVars = map[string]error{
	"OPENAI_API_KEY":     ErrOpenAIAPIKeyRequired,
	"ELEVENLABS_API_KEY": ErrElevenLabsAPIKeyRequired,
	"HEDRA_API_KEY":      ErrHedraAPIKeyRequired,
	"JWT_SECRET":         ErrJWTSecretRequired,
}

// Config holds all configuration for the API server.
type Config struct {
	// Server settings
	Port            int           `env:"PORT, default=8080" json:"port"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=30s" json:"shutdown_timeout"`

	// Auth settings
	JWTSecret string        `env:"JWT_SECRET, required" json:"-"` // Masked in JSON
	JWTTTL    time.Duration `env:"JWT_TTL, default=24h" json:"jwt_ttl"`

	// Artifact storage settings
	ArtifactDir    string `env:"ARTIFACT_DIR, default=./data/uploads" json:"artifact_dir"`
	PublicBasePath string `env:"PUBLIC_BASE_PATH, default=/uploads" json:"public_base_path"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Job store; empty keeps jobs in memory.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Asset and video cache settings
	CacheBackend   string `env:"CACHE_BACKEND, default=memory" json:"cache_backend"`
	CacheFile      string `env:"CACHE_FILE, default=./data/hedra-cache.json" json:"cache_file"`
	CacheSQLiteDir string `env:"CACHE_SQLITE_DIR, default=./data" json:"cache_sqlite_dir"`

	// Script provider settings
	ScriptProvider    string `env:"SCRIPT_PROVIDER, default=openai" json:"script_provider"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY, required" json:"-"` // Masked in JSON
	OpenAIScriptModel string `env:"OPENAI_SCRIPT_MODEL" json:"openai_script_model,omitempty"`
	OpenAIImageModel  string `env:"OPENAI_IMAGE_MODEL" json:"openai_image_model,omitempty"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	GeminiModel       string `env:"GEMINI_MODEL" json:"gemini_model,omitempty"`

	// Speech settings
	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY, required" json:"-"` // Masked in JSON
	ElevenLabsModelID string `env:"ELEVENLABS_MODEL_ID" json:"elevenlabs_model_id,omitempty"`

	// Video settings
	HedraAPIKey       string        `env:"HEDRA_API_KEY, required" json:"-"` // Masked in JSON
	HedraModelID      string        `env:"HEDRA_MODEL_ID" json:"hedra_model_id,omitempty"`
	VideoInitialDelay time.Duration `env:"VIDEO_INITIAL_DELAY, default=60s" json:"video_initial_delay"`
	VideoPollInterval time.Duration `env:"VIDEO_POLL_INTERVAL, default=30s" json:"video_poll_interval"`
	VideoMaxPolls     int           `env:"VIDEO_MAX_POLLS, default=10" json:"video_max_polls"`
	VideoTaskTimeout  time.Duration `env:"VIDEO_TASK_TIMEOUT, default=15m" json:"video_task_timeout"`

	// Provider HTTP settings; generation calls are not retried by default.
	ProviderMaxRetries int `env:"PROVIDER_MAX_RETRIES, default=0" json:"provider_max_retries"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if jobs should be stored in PostgreSQL.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set or values are invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		for name, domainErr := range requiredVars {
			if strings.Contains(err.Error(), name) {
				return nil, domainErr
			}
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.CacheBackend = strings.ToLower(cfg.CacheBackend)
	cfg.ScriptProvider = strings.ToLower(cfg.ScriptProvider)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and consistent.
func (c *Config) Validate() error {
	switch {
	case c.OpenAIAPIKey == "":
		return ErrOpenAIAPIKeyRequired
	case c.ElevenLabsAPIKey == "":
		return ErrElevenLabsAPIKeyRequired
	case c.HedraAPIKey == "":
		return ErrHedraAPIKeyRequired
	case c.JWTSecret == "":
		return ErrJWTSecretRequired
	}

	switch c.CacheBackend {
	case CacheMemory, CacheFile, CacheSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheBackend, c.CacheBackend)
	}

	switch c.ScriptProvider {
	case ProviderOpenAI:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return ErrGeminiAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScriptProvider, c.ScriptProvider)
	}

	if c.VideoMaxPolls <= 0 || c.VideoPollInterval <= 0 {
		return ErrInvalidVideoPolicy
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return newLogger(c.LogFormat, c.LogLevel)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ArtifactDir: %s, PublicBasePath: %s, S3Bucket: %s, S3Region: %s, Postgres: %t, CacheBackend: %s, ScriptProvider: %s, VideoInitialDelay: %s, VideoPollInterval: %s, VideoMaxPolls: %d, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ArtifactDir,
		c.PublicBasePath,
		c.S3Bucket,
		c.S3Region,
		c.PostgresEnabled(),
		c.CacheBackend,
		c.ScriptProvider,
		c.VideoInitialDelay,
		c.VideoPollInterval,
		c.VideoMaxPolls,
		c.LogFormat,
		c.LogLevel,
	)
}

// ClientConfig holds the settings of the command line client.
type ClientConfig struct {
	APIURL    string `env:"CHARACTERCAST_API_URL, default=http://localhost:8080"`
	Token     string `env:"CHARACTERCAST_TOKEN"`
	JWTSecret string `env:"JWT_SECRET"`
	LogFormat string `env:"LOG_FORMAT, default=text"`
	LogLevel  string `env:"LOG_LEVEL, default=warn"`
}

// LoadClient reads the client configuration. Nothing is required up front;
// commands check what they need.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// NewLogger creates the client logger.
func (c *ClientConfig) NewLogger() *slog.Logger {
	return newLogger(c.LogFormat, c.LogLevel)
}

func newLogger(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
