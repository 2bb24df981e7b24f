package migration

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/elskow/authflow/internal/config"
)

type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
}

func NewMigrator(config *config.DatabaseConfig) (*Migrator, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrationsDir, err := getMigrationsDir()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to get migrations directory: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(migrationsDir))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{
		db:       db,
		provider: provider,
	}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Down(ctx context.Context) error {
	if _, err := m.provider.Down(ctx); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

// DownTo migrates the database down to a specific version
func (m *Migrator) DownTo(ctx context.Context, version int64) error {
	if _, err := m.provider.DownTo(ctx, version); err != nil {
		return fmt.Errorf("failed to migrate down to version %d: %w", version, err)
	}
	return nil
}

// Reset rolls back every migration and applies them again.
func (m *Migrator) Reset(ctx context.Context) error {
	if err := m.DownTo(ctx, 0); err != nil {
		return err
	}
	return m.Up(ctx)
}

// CurrentVersion returns the version recorded in the database
func (m *Migrator) CurrentVersion(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// LatestVersion returns the latest available migration version
func (m *Migrator) LatestVersion() int64 {
	sources := m.provider.ListSources()
	if len(sources) == 0 {
		return 0
	}
	return sources[len(sources)-1].Version
}

// Status describes each known migration, oldest first.
func (m *Migrator) Status(ctx context.Context) ([]string, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		applied := "pending"
		if s.State == goose.StateApplied {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		lines = append(lines, fmt.Sprintf("%-24s %s", applied, s.Source.Path))
	}
	return lines, nil
}

func (m *Migrator) Close() error {
	return m.provider.Close()
}
