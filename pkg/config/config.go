package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	JWT    JWTConfig
	Upload UploadConfig
	Probe  ProbeConfig
	Status StatusConfig
	GCP    GCPConfig
	GCS    GCSConfig
	PubSub PubSubConfig
	Redis  RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Status.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STREAMHIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"STREAMHIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STREAMHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STREAMHIVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type JWTConfig struct {
	Secret string `envconfig:"STREAMHIVE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STREAMHIVE_JWT_ISSUER" default:"streamhive"`
}

type UploadConfig struct {
	MaxUploadMB    int    `envconfig:"STREAMHIVE_MAX_UPLOAD_MB" default:"1024"`
	AllowedFormats string `envconfig:"STREAMHIVE_ALLOWED_FORMATS" default:"mp4,mov,avi,webm"`
}

// MaxUploadBytes returns the multipart payload cap in bytes.
func (u UploadConfig) MaxUploadBytes() int64 {
	return int64(u.MaxUploadMB) * 1024 * 1024
}

// AllowedExtensions returns the lower-cased extension allowlist without dots.
func (u UploadConfig) AllowedExtensions() []string {
	parts := strings.Split(u.AllowedFormats, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
			exts = append(exts, strings.TrimPrefix(trimmed, "."))
		}
	}
	return exts
}

type ProbeConfig struct {
	FFProbePath string        `envconfig:"STREAMHIVE_FFPROBE_PATH" default:"ffprobe"`
	Timeout     time.Duration `envconfig:"STREAMHIVE_PROBE_TIMEOUT" default:"30s"`
}

type StatusConfig struct {
	Backend string        `envconfig:"STREAMHIVE_STATUS_BACKEND" default:"memory"`
	TTL     time.Duration `envconfig:"STREAMHIVE_STATUS_TTL" default:"720h"`
}

// NormalizedBackend returns the backend name lower-cased and trimmed. All
// backend checks go through this so "Redis " in the environment selects the
// same backend as "redis".
func (s StatusConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(s.Backend))
}

// IsRedis reports whether the durable Redis backend is selected.
func (s StatusConfig) IsRedis() bool {
	return s.NormalizedBackend() == StatusBackendRedis
}

func (s StatusConfig) validate(redis RedisConfig) error {
	switch s.NormalizedBackend() {
	case StatusBackendMemory:
		return nil
	case StatusBackendRedis:
		if redis.URL == "" && redis.Address == "" {
			return fmt.Errorf("status backend %q requires %s or %s", s.Backend, EnvRedisURL, EnvRedisAddr)
		}
		return nil
	default:
		return fmt.Errorf("unknown status backend %q", s.Backend)
	}
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STREAMHIVE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"STREAMHIVE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STREAMHIVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	RawBucket string `envconfig:"STREAMHIVE_GCS_RAW_BUCKET" default:"streamhive-raw-videos"`
}

type PubSubConfig struct {
	TranscodeTopic string        `envconfig:"STREAMHIVE_PUBSUB_TRANSCODE_TOPIC" default:"video-transcode-queue"`
	PublishTimeout time.Duration `envconfig:"STREAMHIVE_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STREAMHIVE_REDIS_URL"`
	Address      string        `envconfig:"STREAMHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"STREAMHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STREAMHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STREAMHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STREAMHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STREAMHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STREAMHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STREAMHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}
