package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/cleanup"
	"github.com/tendant/simple-cms/pkg/simplecms/identity"
	cloudmedia "github.com/tendant/simple-cms/pkg/simplecms/media/cloud"
	fsmedia "github.com/tendant/simple-cms/pkg/simplecms/media/fs"
	memorymedia "github.com/tendant/simple-cms/pkg/simplecms/media/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/media/objectkey"
	s3media "github.com/tendant/simple-cms/pkg/simplecms/media/s3"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	memorystore "github.com/tendant/simple-cms/pkg/simplecms/store/memory"
	pgstore "github.com/tendant/simple-cms/pkg/simplecms/store/postgres"
	sqlitestore "github.com/tendant/simple-cms/pkg/simplecms/store/sqlite"
)

// DefaultMediaRoute is where filesystem media is served when no public URL is set.
const DefaultMediaRoute = "/media/"

// Runtime holds everything built from a ServerConfig.
type Runtime struct {
	Repository    simplecms.Repository
	Media         simplecms.MediaStore
	Gate          identity.Gate
	Authenticator identity.Authenticator // nil when no admin credentials are configured
	Transformer   *cloudmedia.Transformer
	Metrics       *metrics.Metrics

	// MediaHandler serves filesystem media under MediaRoute; nil otherwise
	MediaHandler http.Handler
	MediaRoute   string

	closers []func() error
}

// Close drains queued cleanup work and releases connections.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Repository != nil {
		errs = append(errs, r.Repository.Close(ctx))
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// Build assembles the repository and its collaborators. reg may be nil to
// leave metrics unregistered.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Metrics: metrics.New(reg)}

	store, err := c.buildStore(ctx, rt)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to build store: %w", err)
	}

	media, err := c.buildMediaStore(ctx, rt, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to build media store: %w", err)
	}
	rt.Media = media

	if err := c.buildIdentity(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to build identity: %w", err)
	}

	queue := cleanup.New(
		cleanup.WithLogger(logger),
		cleanup.WithWorkers(c.CleanupWorkers),
	)

	options := []simplecms.Option{
		simplecms.WithStore(store),
		simplecms.WithMediaStore(media),
		simplecms.WithIdentity(identity.Chain(identity.Context{}, rt.Gate)),
		simplecms.WithScheduler(queue),
		simplecms.WithLogger(logger),
		simplecms.WithMetrics(rt.Metrics),
		simplecms.WithMediaLimits(simplecms.MediaLimits{
			ImageMaxBytes: c.ImageMaxMB << 20,
			VideoMaxBytes: c.VideoMaxMB << 20,
		}),
		simplecms.WithUploadTimeouts(c.UploadTimeout, c.UploadStallTimeout),
	}
	if c.EnableEventLogging {
		options = append(options, simplecms.WithEventSink(simplecms.NewLoggingEventSink(logger)))
	}

	repo, err := simplecms.New(options...)
	if err != nil {
		_ = queue.Close(ctx)
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Repository = repo
	rt.closers = append(rt.closers, func() error { return queue.Close(context.Background()) })
	return rt, nil
}

// BuildRepository is Build for callers that only need the repository.
func (c *ServerConfig) BuildRepository(ctx context.Context) (simplecms.Repository, error) {
	rt, err := c.Build(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return rt.Repository, nil
}

func (c *ServerConfig) buildStore(ctx context.Context, rt *Runtime) (simplecms.Store, error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		if c.SeedMemoryStore {
			return memorystore.NewSeeded(), nil
		}
		return memorystore.New(), nil

	case DatabasePostgres:
		cfg, err := pgxpool.ParseConfig(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		if schema := c.DBSchema; schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		return pgstore.NewWithPool(pool), nil

	case DatabaseSQLite:
		store, err := sqlitestore.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
}

func (c *ServerConfig) buildMediaStore(ctx context.Context, rt *Runtime, logger *slog.Logger) (simplecms.MediaStore, error) {
	switch c.Media.Type {
	case MediaMemory:
		base := c.MediaPublicURL
		if base == "" {
			base = memorymedia.DefaultBaseURL
		}
		return memorymedia.New(base), nil

	case MediaFS:
		prefix := c.MediaPublicURL
		if prefix == "" {
			prefix = DefaultMediaRoute
		}
		keys, err := objectkey.NewGenerator(c.ObjectKeyGenerator, c.Media.Folder)
		if err != nil {
			return nil, err
		}
		store, err := fsmedia.New(fsmedia.Config{BaseDir: c.Media.BaseDir, URLPrefix: prefix, Generator: keys})
		if err != nil {
			return nil, err
		}
		rt.MediaHandler = store.Handler()
		rt.MediaRoute = DefaultMediaRoute
		return store, nil

	case MediaS3:
		keys, err := objectkey.NewGenerator(c.ObjectKeyGenerator, c.Media.Folder)
		if err != nil {
			return nil, err
		}
		return s3media.New(ctx, s3media.Config{
			Generator:       keys,
			Region:          c.S3.Region,
			Bucket:          c.Media.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			PublicURL:       c.MediaPublicURL,
			Folder:          c.Media.Folder,
			PublicRead:      c.S3.PublicRead,
			EnableSSE:       c.S3.EnableSSE,
			SSEAlgorithm:    c.S3.SSEAlgorithm,
			SSEKMSKeyID:     c.S3.SSEKMSKeyID,
		})

	case MediaCloud:
		rt.Transformer = cloudmedia.NewTransformer()
		return cloudmedia.New(cloudmedia.Config{
			CloudName:    c.Media.CloudName,
			UploadPreset: c.Media.UploadPreset,
			APIKey:       c.Cloud.APIKey,
			APISecret:    c.Cloud.APISecret,
			APIBase:      c.Cloud.APIBase,
			Folder:       c.Media.Folder,
		}, cloudmedia.WithLogger(logger), cloudmedia.WithHTTPClient(&http.Client{Timeout: c.UploadTimeout + time.Minute}))
	}
	return nil, fmt.Errorf("unsupported media type: %s", c.Media.Type)
}

func (c *ServerConfig) buildIdentity(ctx context.Context, rt *Runtime) error {
	if c.Auth.AdminEmail != "" {
		static, err := identity.NewStatic(c.Auth.AdminEmail, c.Auth.AdminPasswordHash)
		if err != nil {
			return err
		}
		rt.Authenticator = static
	}

	switch c.Auth.Mode {
	case AuthSession:
		opts, err := redis.ParseURL(c.Auth.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis ping failed: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Gate = identity.NewSessions(client, identity.WithSessionTTL(c.Auth.SessionTTL))
	default:
		secret := c.Auth.JWTSecret
		if secret == "" {
			secret = "development-secret"
		}
		rt.Gate = identity.NewTokens(secret, c.Auth.TokenTTL)
	}
	return nil
}
