// Package config loads service configuration from environment variables via
// kelseyhightower/envconfig. Load returns an error when critical variables
// (database URL, JWT secret) are missing so main can exit non-zero.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	SMTP     SMTPConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port int    `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Timezone is the IANA name used when formatting report timestamps.
	// Deadline comparisons always use UTC.
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// LogoURL points at the community logo stamped onto certificates and PDF
	// report headers. Empty renders them without a logo.
	LogoURL string `envconfig:"LOGO_URL"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" required:"true"`
}

type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// EventCacheTTL bounds how stale the public event listings may be.
	EventCacheTTL time.Duration `envconfig:"EVENT_CACHE_TTL" default:"30s"`
}

type AuthConfig struct {
	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	QRTokenTTL time.Duration `envconfig:"QR_TOKEN_TTL" default:"12h"`
}

type StorageConfig struct {
	Region    string `envconfig:"S3_REGION" default:"ap-south-1"`
	Bucket    string `envconfig:"S3_BUCKET"`
	AccessKey string `envconfig:"S3_ACCESS_KEY"`
	SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint string `envconfig:"S3_ENDPOINT"`

	// PublicBaseURL prefixes object keys in returned public URLs. Defaults to
	// the virtual-hosted bucket URL when empty.
	PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`

	PresignTTL time.Duration `envconfig:"PRESIGN_TTL" default:"15m"`

	// UploadDir is the static fallback directory used when no bucket is
	// configured (local development).
	UploadDir string `envconfig:"UPLOAD_DIR" default:"./uploads"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" default:"no-reply@pdamit.in"`
}

type WorkerConfig struct {
	Count     int `envconfig:"WORKER_COUNT" default:"4"`
	QueueSize int `envconfig:"QUEUE_SIZE" default:"256"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Location resolves the configured timezone, falling back to UTC on a bad
// name rather than failing startup.
func (c *ServerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Enabled reports whether outbound email is configured.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Username != ""
}

// Enabled reports whether object storage is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from the environment. Missing required variables
// surface as errors so startup can abort.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Redis); err != nil {
		return nil, fmt.Errorf("load redis config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Auth); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Storage); err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}
	if err := envconfig.Process("", &cfg.SMTP); err != nil {
		return nil, fmt.Errorf("load smtp config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Worker); err != nil {
		return nil, fmt.Errorf("load worker config: %w", err)
	}
	return &cfg, nil
}
