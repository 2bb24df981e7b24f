package migration

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
)

// Module brings the postgres schema to the latest version on startup. Other
// drivers have no schema to manage.
func Module() fx.Option {
	return fx.Invoke(registerHooks)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	cfg *config.AppConfig,
	logger *zap.Logger,
) error {
	if cfg.Database.Driver != config.DriverPostgres {
		logger.Info("Skipping schema migrations", zap.String("driver", cfg.Database.Driver))
		return nil
	}

	migrator, err := NewMigrator(&cfg.Database)
	if err != nil {
		return err
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return Sync(ctx, migrator, logger)
		},
		OnStop: func(ctx context.Context) error {
			return migrator.Close()
		},
	})
	return nil
}

// Sync moves the schema to the newest migration on disk, downgrading when
// the database is ahead of the binary.
func Sync(ctx context.Context, migrator *Migrator, logger *zap.Logger) error {
	currentVersion, err := migrator.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	latestVersion := migrator.LatestVersion()

	logger.Info("Database migration status",
		zap.Int64("current_version", currentVersion),
		zap.Int64("latest_version", latestVersion))

	switch {
	case currentVersion > latestVersion:
		logger.Info("Downgrading database schema",
			zap.Int64("from_version", currentVersion),
			zap.Int64("to_version", latestVersion))
		if err := migrator.DownTo(ctx, latestVersion); err != nil {
			return fmt.Errorf("failed to downgrade database: %w", err)
		}
	case currentVersion < latestVersion:
		logger.Info("Upgrading database schema",
			zap.Int64("from_version", currentVersion),
			zap.Int64("to_version", latestVersion))
		if err := migrator.Up(ctx); err != nil {
			return fmt.Errorf("failed to upgrade database: %w", err)
		}
	}

	return nil
}
