// Package presets builds ready-to-use repositories for common setups.
//
// Presets remove the wiring boilerplate while staying customizable through
// their options.
package presets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/cleanup"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/identity"
	fsmedia "github.com/tendant/simple-cms/pkg/simplecms/media/fs"
	memorymedia "github.com/tendant/simple-cms/pkg/simplecms/media/memory"
	memorystore "github.com/tendant/simple-cms/pkg/simplecms/store/memory"
)

// NewDevelopment creates a repository configured for local development.
//
// Features:
//   - Seeded in-memory store (instant startup, no setup required)
//   - Filesystem media at ./dev-data/ served under http://localhost:8080/media/
//   - Event logging enabled
//
// The cache is already loaded. Writes need a principal on the context,
// see identity.WithPrincipal.
//
// Returns the repository, a cleanup function that drains queued media
// removals and deletes the media directory, and an error if setup fails.
//
// Example:
//
//	repo, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simplecms.Repository, func(), error) {
	cfg := &devConfig{
		storageDir: "./dev-data",
		port:       "8080",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	media, err := fsmedia.New(fsmedia.Config{
		BaseDir:   cfg.storageDir,
		URLPrefix: fmt.Sprintf("http://localhost:%s%s", cfg.port, config.DefaultMediaRoute),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem media store: %w", err)
	}

	queue := cleanup.New(cleanup.WithLogger(cfg.logger))
	repo, err := simplecms.New(
		simplecms.WithStore(memorystore.NewSeeded()),
		simplecms.WithMediaStore(media),
		simplecms.WithIdentity(identity.Context{}),
		simplecms.WithScheduler(queue),
		simplecms.WithLogger(cfg.logger),
		simplecms.WithEventSink(simplecms.NewLoggingEventSink(cfg.logger)),
	)
	if err != nil {
		_ = queue.Close(context.Background())
		return nil, nil, fmt.Errorf("failed to create repository: %w", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		_ = queue.Close(context.Background())
		return nil, nil, fmt.Errorf("failed to load content: %w", err)
	}

	cleanupFn := func() {
		_ = queue.Close(context.Background())
		os.RemoveAll(cfg.storageDir)
	}
	return repo, cleanupFn, nil
}

// NewTesting creates a repository configured for unit and integration tests.
//
// Features:
//   - Empty in-memory store, isolated per test (see WithTestFixtures)
//   - In-memory media store
//   - No event logging
//   - Queued media removals drained via t.Cleanup()
//
// The cache is already loaded. Writes need a principal on the context,
// see identity.WithPrincipal.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    repo, media := presets.NewTesting(t)
//	    ctx := identity.WithPrincipal(context.Background(), simplecms.Principal{ID: "editor"})
//	    // Use repo in test...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) (simplecms.Repository, *memorymedia.Store) {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	store := memorystore.New()
	if cfg.fixtures {
		store = memorystore.NewSeeded()
	}
	media := memorymedia.New(memorymedia.DefaultBaseURL)
	queue := cleanup.New()

	repo, err := simplecms.New(
		simplecms.WithStore(store),
		simplecms.WithMediaStore(media),
		simplecms.WithIdentity(identity.Context{}),
		simplecms.WithScheduler(queue),
	)
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("failed to load test repository: %v", err)
	}

	t.Cleanup(func() {
		_ = queue.Close(context.Background())
	})
	return repo, media
}

// NewProduction creates a runtime configured for production deployment.
//
// Configuration comes from the environment (see config.Usage). Production
// refuses the non-persistent backends.
//
// Required Environment Variables:
//   - DATABASE_URL: postgres://... or sqlite://path
//   - MEDIA_URL: file://, s3:// or cloudinary://
//   - JWT_SECRET (AUTH_MODE=token) or REDIS_URL (AUTH_MODE=session)
//
// Example:
//
//	rt, err := presets.NewProduction(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
func NewProduction(ctx context.Context, opts ...ProductionOption) (*config.Runtime, error) {
	cfg := &prodConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	configOpts := append([]config.Option{config.WithEnv(), config.WithEnvironment("production")}, cfg.configOptions...)
	serverConfig, err := config.Load(configOpts...)
	if err != nil {
		return nil, err
	}
	if err := validateProduction(serverConfig); err != nil {
		return nil, err
	}

	rt, err := serverConfig.Build(ctx, cfg.logger, cfg.registerer)
	if err != nil {
		return nil, err
	}
	if err := rt.Repository.Load(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func validateProduction(c *config.ServerConfig) error {
	if c.DatabaseType == config.DatabaseMemory {
		return errors.New("production preset requires DATABASE_URL (memory not allowed in production)")
	}
	if c.Media.Type == config.MediaMemory {
		return errors.New("production preset requires persistent media (MEDIA_URL file://, s3:// or cloudinary://)")
	}
	return nil
}

// Option types for customization

// devConfig holds development preset configuration
type devConfig struct {
	storageDir string
	port       string
	logger     *slog.Logger
}

// testConfig holds testing preset configuration
type testConfig struct {
	fixtures bool
}

// prodConfig holds production preset configuration
type prodConfig struct {
	configOptions []config.Option
	logger        *slog.Logger
	registerer    prometheus.Registerer
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the development media directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.storageDir = dir
	}
}

// WithDevPort sets the port used in media URLs
func WithDevPort(port string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.port = port
	}
}

// WithDevLogger sets the logger
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.logger = logger
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures seeds the store with the built-in articles and categories
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

// ProductionOption is a functional option for NewProduction
type ProductionOption func(*prodConfig)

// WithProdConfig applies config options after the environment
func WithProdConfig(opts ...config.Option) ProductionOption {
	return func(cfg *prodConfig) {
		cfg.configOptions = append(cfg.configOptions, opts...)
	}
}

// WithProdLogger sets the logger
func WithProdLogger(logger *slog.Logger) ProductionOption {
	return func(cfg *prodConfig) {
		cfg.logger = logger
	}
}

// WithProdMetrics registers the repository metrics with reg
func WithProdMetrics(reg prometheus.Registerer) ProductionOption {
	return func(cfg *prodConfig) {
		cfg.registerer = reg
	}
}
