// Command migrate prepares the core banking database: it creates the
// database when it is missing and applies pending schema migrations. It exits
// non-zero on any failure so that orchestrators keep the API from starting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"core-banking-api/internal/config"
	"core-banking-api/internal/logger"
	"core-banking-api/internal/migrate"
)

const runTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log = log.Named("migrate")

	if err := run(cfg.Database, log); err != nil {
		log.Error("migration failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	_ = log.Sync()
}

func run(cfg config.DatabaseConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	migrator, err := migrate.New(log)
	if err != nil {
		return err
	}

	if _, err := migrator.EnsureDatabase(ctx, cfg.MaintenanceDSN(), cfg.Database); err != nil {
		return err
	}

	start := time.Now()
	applied, err := migrator.Up(ctx, cfg.DSN())
	if err != nil {
		return err
	}

	latest, err := migrate.Latest()
	if err != nil {
		return err
	}

	log.Info("database is up to date",
		zap.String("database", cfg.Database),
		zap.Strings("applied", applied),
		zap.String("version", latest),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
