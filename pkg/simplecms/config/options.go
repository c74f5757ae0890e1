package config

import (
	"fmt"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms/media/objectkey"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabaseURL selects the backing store: memory, postgres://... or sqlite://path
func WithDatabaseURL(url string) Option {
	return func(c *ServerConfig) error {
		if _, _, err := parseDatabaseURL(url); err != nil {
			return err
		}
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMediaURL selects the media backend
func WithMediaURL(url string) Option {
	return func(c *ServerConfig) error {
		if _, err := parseMediaURL(url); err != nil {
			return err
		}
		c.MediaURL = url
		return nil
	}
}

// WithMediaPublicURL sets the prefix media URLs are served under
func WithMediaPublicURL(prefix string) Option {
	return func(c *ServerConfig) error {
		c.MediaPublicURL = prefix
		return nil
	}
}

// WithObjectKeyGenerator sets the object key layout for fs and s3 media
func WithObjectKeyGenerator(name string) Option {
	return func(c *ServerConfig) error {
		if _, err := objectkey.NewGenerator(name, ""); err != nil {
			return err
		}
		c.ObjectKeyGenerator = name
		return nil
	}
}

// WithS3 sets the S3 options not carried by the media URL
func WithS3(s3 S3Config) Option {
	return func(c *ServerConfig) error {
		if s3.Region == "" {
			s3.Region = c.S3.Region
		}
		c.S3 = s3
		return nil
	}
}

// WithCloudCredentials enables signed deletion on the hosted media backend
func WithCloudCredentials(apiKey, apiSecret string) Option {
	return func(c *ServerConfig) error {
		c.Cloud.APIKey = apiKey
		c.Cloud.APISecret = apiSecret
		return nil
	}
}

// WithUploadLimits sets the per-kind size limits in MiB
func WithUploadLimits(imageMB, videoMB int64) Option {
	return func(c *ServerConfig) error {
		if imageMB <= 0 || videoMB <= 0 {
			return fmt.Errorf("upload limits must be positive, got image=%d video=%d", imageMB, videoMB)
		}
		c.ImageMaxMB = imageMB
		c.VideoMaxMB = videoMB
		return nil
	}
}

// WithUploadTimeouts sets the total and stall timeouts of one upload
func WithUploadTimeouts(total, stall time.Duration) Option {
	return func(c *ServerConfig) error {
		c.UploadTimeout = total
		c.UploadStallTimeout = stall
		return nil
	}
}

// WithAdmin configures the static admin credential pair
func WithAdmin(email, passwordHash string) Option {
	return func(c *ServerConfig) error {
		c.Auth.AdminEmail = email
		c.Auth.AdminPasswordHash = passwordHash
		return nil
	}
}

// WithTokenAuth authenticates admin requests with signed tokens
func WithTokenAuth(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		c.Auth.Mode = AuthToken
		c.Auth.JWTSecret = secret
		if ttl > 0 {
			c.Auth.TokenTTL = ttl
		}
		return nil
	}
}

// WithSessionAuth authenticates admin requests with Redis-backed sessions
func WithSessionAuth(redisURL string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if redisURL == "" {
			return fmt.Errorf("redis url cannot be empty")
		}
		c.Auth.Mode = AuthSession
		c.Auth.RedisURL = redisURL
		if ttl > 0 {
			c.Auth.SessionTTL = ttl
		}
		return nil
	}
}

// WithCleanupWorkers sets the number of orphan cleanup workers
func WithCleanupWorkers(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("cleanup workers must be positive, got: %d", n)
		}
		c.CleanupWorkers = n
		return nil
	}
}

// WithEventLogging toggles the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithSeedMemoryStore toggles seeding of the in-memory store
func WithSeedMemoryStore(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.SeedMemoryStore = enabled
		return nil
	}
}
