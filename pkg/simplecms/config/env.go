package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv overrides ServerConfig fields whose environment variable is set.
// The env-default tag only fills fields that are still zero.
//
// The main variables are:
//
//	PORT, ENVIRONMENT
//	DATABASE_URL  memory | postgres://... | sqlite://path
//	MEDIA_URL     memory:// | file:///dir | s3://bucket | cloudinary://preset@cloud
//	AUTH_MODE     token | session
//	ADMIN_EMAIL, ADMIN_PASSWORD_HASH, JWT_SECRET, REDIS_URL
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return nil
	}
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg ServerConfig
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
