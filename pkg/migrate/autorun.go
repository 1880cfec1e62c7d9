package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/db"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

// MaybeAutoRun applies the embedded migrations when auto-migrate is enabled.
func MaybeAutoRun(ctx context.Context, cfg config.DBConfig, logg *logger.Logger, client *db.Client) error {
	if !cfg.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	m, err := New(sqlDB, client.Driver(), nil)
	if err != nil {
		return err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"driver": client.Driver(), "source": "embedded"})
		logg.Info(ctx, "running goose migrations (auto-run)")
	}

	if _, err := m.Run(ctx, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "goose migrations completed")
	}
	return nil
}
