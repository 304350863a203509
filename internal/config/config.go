package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port                int    `envconfig:"PORT" default:"7000" validate:"min=1,max=65535"`
	Host                string `envconfig:"HOST" default:"0.0.0.0"`
	DeploymentType      string `envconfig:"DEPLOYMENT_TYPE" default:"blocking" validate:"oneof=blocking webhook"`
	AppEnv              string `envconfig:"APP_ENV" default:"production"`
	WithTelexExtensions bool   `envconfig:"WITH_TELEX_EXTENSIONS" default:"false"`
	LogLevel            string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	AuthJWTSecret       string `envconfig:"AUTH_JWT_SECRET"`
	RateLimitPerMinute  int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60" validate:"min=0"`

	// Sessions; empty REDIS_URL keeps them in process memory
	RedisURL   string        `envconfig:"REDIS_URL"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"0s" validate:"min=0"`

	// Engine
	EnginePath      string  `envconfig:"CHESS_ENGINE_PATH" default:"stockfish"`
	EnginePoolSize  int     `envconfig:"ENGINE_POOL_SIZE" default:"2" validate:"min=1,max=64"`
	EngineTimeLimit float64 `envconfig:"ENGINE_TIME_LIMIT" default:"0.5" validate:"gt=0,lte=30"`
	EngineSkill     int     `envconfig:"ENGINE_SKILL_LEVEL" default:"-1" validate:"min=-1,max=20"`

	// Timeouts
	PipelineTimeout time.Duration `envconfig:"PIPELINE_TIMEOUT" default:"60s" validate:"gt=0"`
	WebhookTimeout  time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s" validate:"gt=0"`

	// Board images; without an endpoint they are returned inline
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioBucket    string `envconfig:"MINIO_BUCKET_NAME" validate:"required_with=MinioEndpoint"`
	MinioAccessKey string `envconfig:"MINIO_BUCKET_ACCESS_KEY" validate:"required_with=MinioEndpoint"`
	MinioSecretKey string `envconfig:"MINIO_BUKCET_SECRET_KEY" validate:"required_with=MinioEndpoint"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"true"`
	MediaBaseURL   string `envconfig:"MEDIA_BASE_URL" default:"https://media.tifi.tv" validate:"url"`

	// Classifier; without a key only the keyword rules are used
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	// Archive; empty disables it
	ArchivePath string `envconfig:"ARCHIVE_PATH"`
}

// Webhook reports whether results are delivered by push notification.
func (c *Config) Webhook() bool {
	return c.DeploymentType == "webhook"
}

// Local reports whether the agent runs in a developer environment.
func (c *Config) Local() bool {
	return strings.EqualFold(c.AppEnv, "local")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

func (c *Config) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// EngineTimeBudget converts ENGINE_TIME_LIMIT seconds to a duration.
func (c *Config) EngineTimeBudget() time.Duration {
	return time.Duration(c.EngineTimeLimit * float64(time.Second))
}

// Validate checks field constraints and that one engine search, bounded by
// twice its budget plus a second, fits inside the pipeline deadline.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if bound := 2*c.EngineTimeBudget() + time.Second; c.PipelineTimeout <= bound {
		return fmt.Errorf("invalid config: PIPELINE_TIMEOUT %s must exceed the engine search bound %s", c.PipelineTimeout, bound)
	}
	return nil
}

// Load reads a .env file if one exists, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
