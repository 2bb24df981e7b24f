package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
	"github.com/elskow/authflow/internal/migration"
	"github.com/elskow/authflow/internal/server"
)

func main() {
	command := flag.String("command", "up", "migration command (up/down/status/version/reset/sync)")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum time for the command")
	flag.Parse()

	logger, err := server.NewLogger(server.LoadEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*command, *timeout, logger); err != nil {
		logger.Fatal("migration failed", zap.String("command", *command), zap.Error(err))
	}
}

func run(command string, timeout time.Duration, logger *zap.Logger) error {
	cfg, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations only apply to the postgres driver, got %q", cfg.Database.Driver)
	}

	migrator, err := migration.NewMigrator(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			return err
		}
		logger.Info("Successfully ran migrations")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			return err
		}
		logger.Info("Successfully rolled back migrations")

	case "status":
		lines, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}

	case "version":
		version, err := migrator.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		logger.Info("Current migration version",
			zap.Int64("version", version),
			zap.Int64("latest", migrator.LatestVersion()))

	case "reset":
		if err := migrator.Reset(ctx); err != nil {
			return err
		}
		logger.Info("Successfully reset migrations")

	case "sync":
		return migration.Sync(ctx, migrator, logger)

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}
