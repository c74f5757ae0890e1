package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms/media/objectkey"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Database types selected by DATABASE_URL.
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Media backend types selected by MEDIA_URL.
const (
	MediaMemory = "memory"
	MediaFS     = "fs"
	MediaS3     = "s3"
	MediaCloud  = "cloud"
)

// Auth modes.
const (
	AuthToken   = "token"
	AuthSession = "session"
)

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults, then resolves DATABASE_URL and MEDIA_URL.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		DatabaseURL:        DatabaseMemory,
		MediaURL:           "memory://",
		ObjectKeyGenerator: objectkey.GitLike,
		ImageMaxMB:         10,
		VideoMaxMB:         100,
		UploadTimeout:      10 * time.Minute,
		UploadStallTimeout: time.Minute,
		CleanupWorkers:     2,
		EnableEventLogging: true,
		SeedMemoryStore:    true,
		Auth: AuthConfig{
			Mode:       AuthToken,
			TokenTTL:   12 * time.Hour,
			SessionTTL: 24 * time.Hour,
		},
	}
}

// ServerConfig represents server configuration for the simple-cms service.
// Field tags are read by WithEnv.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration
	DatabaseURL     string `env:"DATABASE_URL" env-default:"memory"` // memory, postgres://..., sqlite://path
	DBSchema        string `env:"DB_SCHEMA"`                         // Postgres search_path
	SeedMemoryStore bool   `env:"SEED_MEMORY_STORE" env-default:"true"`
	DatabaseType    string
	DatabaseDSN     string

	// Media configuration
	MediaURL       string `env:"MEDIA_URL" env-default:"memory://"` // memory://, file:///dir, s3://bucket, cloudinary://preset@cloud
	MediaPublicURL string `env:"MEDIA_PUBLIC_URL"`
	Media          MediaConfig
	S3             S3Config
	Cloud          CloudConfig

	// Object key layout for fs and s3 media: git-like or flat
	ObjectKeyGenerator string `env:"OBJECT_KEY_GENERATOR" env-default:"git-like"`

	// Upload limits
	ImageMaxMB         int64         `env:"IMAGE_MAX_MB" env-default:"10"`
	VideoMaxMB         int64         `env:"VIDEO_MAX_MB" env-default:"100"`
	UploadTimeout      time.Duration `env:"UPLOAD_TIMEOUT" env-default:"10m"`
	UploadStallTimeout time.Duration `env:"UPLOAD_STALL_TIMEOUT" env-default:"1m"`

	Auth AuthConfig

	// Server options
	CleanupWorkers     int  `env:"CLEANUP_WORKERS" env-default:"2"`
	EnableEventLogging bool `env:"EVENT_LOGGING" env-default:"true"`
}

// MediaConfig is the backend resolved from MediaURL.
type MediaConfig struct {
	Type         string
	BaseDir      string
	Bucket       string
	Folder       string
	CloudName    string
	UploadPreset string
}

// S3Config carries the S3 settings not expressed in MEDIA_URL.
type S3Config struct {
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PublicRead      bool   `env:"AWS_S3_PUBLIC_READ" env-default:"false"`
	EnableSSE       bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm    string `env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256"`
	SSEKMSKeyID     string `env:"AWS_S3_SSE_KMS_KEY_ID"`
}

// CloudConfig carries the hosted media credentials used for deletion.
type CloudConfig struct {
	APIKey    string `env:"CLOUDINARY_API_KEY"`
	APISecret string `env:"CLOUDINARY_API_SECRET"`
	APIBase   string `env:"CLOUDINARY_API_BASE"`
}

// AuthConfig selects how admin requests are authenticated.
type AuthConfig struct {
	Mode              string        `env:"AUTH_MODE" env-default:"token"` // token or session
	AdminEmail        string        `env:"ADMIN_EMAIL"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"` // bcrypt
	JWTSecret         string        `env:"JWT_SECRET"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" env-default:"12h"`
	RedisURL          string        `env:"REDIS_URL"`
	SessionTTL        time.Duration `env:"SESSION_TTL" env-default:"24h"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.ImageMaxMB <= 0 || c.VideoMaxMB <= 0 {
		return errors.New("upload size limits must be positive")
	}
	if c.CleanupWorkers <= 0 {
		return errors.New("cleanup_workers must be positive")
	}

	switch c.Auth.Mode {
	case AuthToken:
		if c.Auth.JWTSecret == "" && c.Environment == "production" {
			return errors.New("jwt_secret is required in production")
		}
	case AuthSession:
		if c.Auth.RedisURL == "" {
			return errors.New("redis_url is required for session auth")
		}
	default:
		return fmt.Errorf("auth_mode must be '%s' or '%s', got: %s", AuthToken, AuthSession, c.Auth.Mode)
	}

	if _, err := objectkey.NewGenerator(c.ObjectKeyGenerator, ""); err != nil {
		return err
	}

	if c.Media.Type == MediaS3 && c.Media.Bucket == "" {
		return errors.New("s3 bucket is required")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

func (c *ServerConfig) resolve() error {
	dbType, dsn, err := parseDatabaseURL(c.DatabaseURL)
	if err != nil {
		return err
	}
	c.DatabaseType, c.DatabaseDSN = dbType, dsn

	media, err := parseMediaURL(c.MediaURL)
	if err != nil {
		return err
	}
	c.Media = media
	return nil
}

// parseDatabaseURL maps DATABASE_URL onto a store type and its DSN.
func parseDatabaseURL(raw string) (string, string, error) {
	switch {
	case raw == "" || raw == DatabaseMemory:
		return DatabaseMemory, "", nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DatabasePostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", errors.New("sqlite path cannot be empty in DATABASE_URL")
		}
		return DatabaseSQLite, path, nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgres://...' or 'sqlite://path')", raw)
}

// parseMediaURL maps MEDIA_URL onto a media backend.
//
//	memory://
//	file:///var/lib/cms/media
//	s3://bucket?folder=blog
//	cloudinary://preset@cloud?folder=blog
func parseMediaURL(raw string) (MediaConfig, error) {
	if raw == "" || raw == MediaMemory || raw == "memory://" {
		return MediaConfig{Type: MediaMemory}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return MediaConfig{}, fmt.Errorf("invalid MEDIA_URL: %w", err)
	}
	folder := u.Query().Get("folder")

	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return MediaConfig{}, errors.New("filesystem path cannot be empty in MEDIA_URL")
		}
		return MediaConfig{Type: MediaFS, BaseDir: u.Path}, nil
	case "s3":
		if u.Host == "" {
			return MediaConfig{}, errors.New("S3 bucket name cannot be empty in MEDIA_URL")
		}
		return MediaConfig{Type: MediaS3, Bucket: u.Host, Folder: folder}, nil
	case "cloudinary":
		preset := u.User.Username()
		if u.Host == "" || preset == "" {
			return MediaConfig{}, errors.New("MEDIA_URL must look like cloudinary://preset@cloud")
		}
		return MediaConfig{Type: MediaCloud, CloudName: u.Host, UploadPreset: preset, Folder: folder}, nil
	}
	return MediaConfig{}, fmt.Errorf("unsupported MEDIA_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'cloudinary://...')", raw)
}
