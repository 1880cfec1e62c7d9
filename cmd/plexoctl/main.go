package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

type rootOptions struct {
	dbPath   string
	driver   string
	dsn      string
	jsonOut  bool
	logLevel string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "plexoctl",
		Short:         "Inspect and reset the local plexo store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db-path", "", "sqlite file (overrides "+config.EnvDBPath+")")
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "database driver: sqlite|postgres (overrides "+config.EnvDBDriver+")")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database DSN (overrides "+config.EnvDBDSN+")")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for store diagnostics")

	root.AddCommand(
		newUsersCmd(opts),
		newInventoryCmd(opts),
		newMarketCmd(opts),
		newChatsCmd(opts),
		newMessagesCmd(opts),
		newResetCmd(opts),
	)
	return root
}

// openService opens the configured store. The caller closes the service.
func (o *rootOptions) openService(ctx context.Context, cmd *cobra.Command) (*lifecycle.Service, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "plexoctl",
		Level:       logger.ParseLevel(o.logLevel),
		Format:      "console",
		Output:      cmd.ErrOrStderr(),
	})
	engine, err := store.Init(ctx, cfg.DB, logg, nil)
	if err != nil {
		return nil, err
	}
	svc, err := lifecycle.New(lifecycle.Params{
		Engine:        engine,
		Password:      cfg.Password,
		DefaultRating: cfg.Session.DefaultRating,
		Logger:        logg,
	})
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	return svc, nil
}

func (o *rootOptions) config() (*config.Config, error) {
	if o.driver != "" {
		if err := os.Setenv(config.EnvDBDriver, o.driver); err != nil {
			return nil, err
		}
	}
	if o.dbPath != "" {
		if err := os.Setenv(config.EnvDBPath, o.dbPath); err != nil {
			return nil, err
		}
	}
	if o.dsn != "" {
		if err := os.Setenv(config.EnvDBDSN, o.dsn); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// withService runs fn against an open service and closes it afterwards.
func (o *rootOptions) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *lifecycle.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := o.openService(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return fn(ctx, svc)
}
