package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/db"
	"github.com/angelmondragon/plexo-core/pkg/logger"
	"github.com/angelmondragon/plexo-core/pkg/migrate"
	"github.com/angelmondragon/plexo-core/pkg/migrate/migrations"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|reset|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory (default: embedded migrations, or "+migrate.DefaultDir+" for create)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS); with -cmd=version migrates to it")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.DB.Driver,
		"cmd":    *cmd,
		"dir":    *dir,
	})

	// Commands that do not need a database.
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if *dir != "" {
			err = migrate.ValidateDir(*dir)
		} else {
			err = migrate.ValidateFS(migrations.FS)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	client, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer client.Close()

	sqlDB, err := client.SQL()
	requireResource(ctx, logg, "sql database", err)

	var source fs.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}
	m, err := migrate.New(sqlDB, client.Driver(), source)
	requireResource(ctx, logg, "migrator", err)

	logg.Info(ctx, "migrate ready")

	if *cmd == "version" && *version != "" {
		if err := m.MigrateToVersion(ctx, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}
	}

	statuses, err := m.Run(ctx, *cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Printf("%d\t%s\t%s\n", s.Version, state, s.Path)
	}

	current, err := m.Version(ctx)
	requireResource(ctx, logg, "db version", err)
	fmt.Println("current version:", current)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
