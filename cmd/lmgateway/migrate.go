package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/internal/migration"
)

// =============================================================================
// 🗄️ 运行数据库迁移命令
// =============================================================================

// runMigrate handles "migrate up|down|version".
func runMigrate(ctx context.Context, args []string, w io.Writer) error {
	if len(args) < 1 {
		return errors.New("migrate: missing subcommand (up, down, version)")
	}
	sub := args[0]
	switch sub {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown migrate subcommand: %s", sub)
	}

	fs := flag.NewFlagSet("migrate "+sub, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbURL := fs.String("db-url", "", "Database connection URL (default: from config)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	dbType, err := migration.ParseDatabaseType(cfg.RunData.Driver)
	if err != nil {
		return err
	}
	url := *dbURL
	if url == "" {
		url = cfg.RunData.Database.DSN(cfg.RunData.Driver)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	m, err := migration.NewMigrator(migration.Config{DatabaseType: dbType, DatabaseURL: url}, logger)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to close migrator", zap.Error(err))
		}
	}()

	switch sub {
	case "up":
		if err := m.Up(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(w, "Migrations applied")
	case "down":
		if err := m.Down(ctx); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		fmt.Fprintln(w, "Rolled back one migration")
	case "version":
		version, dirty, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Version: %d (dirty: %t)\n", version, dirty)
	}
	return nil
}
