package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/migrate/migrations"
	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Status is one migration's applied state.
type Status struct {
	Version int64
	Path    string
	Applied bool
}

// Migrator runs goose migrations from an fs.FS against one database.
type Migrator struct {
	provider *goose.Provider
}

// New builds a Migrator for the given driver. A nil fsys uses the embedded migrations.
func New(db *sql.DB, driver string, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		fsys = migrations.FS
	}
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func dialectFor(driver string) (goose.Dialect, error) {
	switch driver {
	case config.DBDriverSQLite:
		return goose.DialectSQLite3, nil
	case config.DBDriverPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

// Run executes one of up, down, reset, status or version.
func (m *Migrator) Run(ctx context.Context, command string) ([]Status, error) {
	switch command {
	case "up":
		if _, err := m.provider.Up(ctx); err != nil {
			return nil, fmt.Errorf("goose up: %w", err)
		}
	case "down":
		if _, err := m.provider.Down(ctx); err != nil {
			return nil, fmt.Errorf("goose down: %w", err)
		}
	case "reset":
		if _, err := m.provider.DownTo(ctx, 0); err != nil {
			return nil, fmt.Errorf("goose reset: %w", err)
		}
	case "status", "version":
	default:
		return nil, fmt.Errorf("unsupported goose command %q", command)
	}
	return m.Status(ctx)
}

// Status lists every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	results, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(results))
	for _, r := range results {
		out = append(out, Status{
			Version: r.Source.Version,
			Path:    r.Source.Path,
			Applied: r.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return v, nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func (m *Migrator) MigrateToVersion(ctx context.Context, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if _, err := m.provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil
	default:
		if _, err := m.provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
