package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

var errUsage = errors.New("usage")

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	if err := run(context.Background(), logg, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			logg.Error(context.Background(), "migrate failed", err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	cmd := fs.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := fs.String("dir", "", "goose migrations directory (empty uses the embedded set)")
	name := fs.String("name", "", "migration name (for create)")
	version := fs.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "dir": *dir})

	// create and validate work on files only.
	switch *cmd {
	case "create":
		if *name == "" {
			return fmt.Errorf("%w: missing -name for create", errUsage)
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		var err error
		if *dir == "" {
			err = migrate.ValidateEmbedded()
		} else {
			err = migrate.ValidateDir(*dir)
		}
		if err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	case "up", "down", "status":
	case "version":
		if *version == "" {
			return fmt.Errorf("%w: missing -version for version command", errUsage)
		}
	default:
		return fmt.Errorf("%w: unknown -cmd value %q", errUsage, *cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	return execute(ctx, sqlDB, *cmd, *dir, *version)
}

func execute(ctx context.Context, sqlDB *sql.DB, cmd, dir, version string) error {
	if cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, dir, version)
	}
	return migrate.Run(ctx, sqlDB, dir, cmd)
}
