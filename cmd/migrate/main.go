package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/store/postgres"
	"github.com/tendant/simple-cms/pkg/simplecms/store/sqlite"
)

const usage = `Simple CMS migrations

USAGE:
  migrate [up|down]

ENVIRONMENT VARIABLES:
  DATABASE_URL   postgres://... or sqlite://path (memory needs no migrations)
`

func main() {
	_ = godotenv.Load()

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	if err := migrate(context.Background(), cfg, direction); err != nil {
		slog.Error("Migration failed", "direction", direction, "err", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied", "direction", direction, "database", cfg.DatabaseType)
}

func migrate(ctx context.Context, cfg *config.ServerConfig, direction string) error {
	switch cfg.DatabaseType {
	case config.DatabaseMemory:
		slog.Info("In-memory database needs no migrations")
		return nil

	case config.DatabasePostgres:
		switch direction {
		case "up":
			return postgres.MigrateDSN(cfg.DatabaseDSN)
		case "down":
			db, err := postgres.OpenDB(cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.MigrateDown(db)
		}

	case config.DatabaseSQLite:
		if direction != "up" {
			return fmt.Errorf("sqlite supports only 'up'")
		}
		// Open applies pending migrations.
		store, err := sqlite.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		return store.Close()
	}
	return fmt.Errorf("unknown direction %q", direction)
}
