package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"core-banking-api/internal/config"
	"core-banking-api/internal/events"
	"core-banking-api/internal/handler"
	"core-banking-api/internal/logger"
	"core-banking-api/internal/migrate"
	"core-banking-api/internal/observability"
	"core-banking-api/internal/repository"
	"core-banking-api/internal/service"
)

const version = "1.0.0"

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
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, db.Close())
	}()

	if cfg.Server.RequireMigrated {
		if err := checkMigrations(ctx, db, log); err != nil {
			return err
		}
	}

	publisher, redisClient := initPublisher(cfg, log)
	if redisClient != nil {
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	store := repository.NewStore(db)
	directory := service.NewDirectoryService(store, publisher, log)
	ledger := service.NewLedgerService(store, publisher, log)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	health := handler.NewHealthHandler(db, version, log)
	if redisClient != nil {
		health.WithDependency("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		Logger:             log.Named("http"),
		Metrics:            metrics,
		Customers:          handler.NewCustomerHandler(directory),
		Accounts:           handler.NewAccountHandler(directory),
		Ledger:             handler.NewLedgerHandler(ledger, metrics),
		Health:             health,
		RequestTimeout:     cfg.Server.RequestTimeout,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", server.Addr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to ping database: %w", err), db.Close())
	}

	log.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)
	return db, nil
}

// checkMigrations refuses to serve against a schema older than the one this
// binary was built with.
func checkMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	want, err := migrate.Latest()
	if err != nil {
		return err
	}

	have, err := repository.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}

	if have < want {
		return fmt.Errorf("database schema is at version %q, need %q: run the migration worker first", have, want)
	}

	log.Info("database schema is current", zap.String("migration_version", have))
	return nil
}

func initPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, *redis.Client) {
	if !cfg.EventsEnabled() {
		log.Info("ledger events disabled")
		return events.NopPublisher{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	log.Info("publishing ledger events",
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("stream", cfg.Redis.Stream),
	)
	return events.NewRedisPublisher(client, cfg.Redis.Stream), client
}
