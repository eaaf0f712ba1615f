// Package migrate creates the core banking database and applies the embedded
// schema migrations. It runs once, before the API accepts traffic.
package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// lockKey identifies the advisory lock held while migrating.
const lockKey int64 = 0x636f726562616e6b // "corebank"

const pgDuplicateDatabase = "42P04"

var fileNamePattern = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Load returns the embedded migrations ordered by version.
func Load() ([]Migration, error) {
	return loadFrom(migrationFiles, "migrations")
}

func loadFrom(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read migrations: %w", err)
	}

	seen := make(map[string]string, len(entries))
	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, fmt.Errorf("migrate: invalid migration file name %q", entry.Name())
		}
		if other, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("migrate: version %s used by both %q and %q", m[1], other, entry.Name())
		}
		seen[m[1]] = entry.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, fmt.Errorf("migrate: %s is empty", entry.Name())
		}

		migrations = append(migrations, Migration{
			Version: m[1],
			Name:    m[2],
			SQL:     string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Latest returns the newest embedded migration version.
func Latest() (string, error) {
	migrations, err := Load()
	if err != nil {
		return "", err
	}
	if len(migrations) == 0 {
		return "", errors.New("migrate: no migrations embedded")
	}
	return migrations[len(migrations)-1].Version, nil
}

// Migrator applies migrations to a PostgreSQL database.
type Migrator struct {
	logger     *zap.Logger
	migrations []Migration
}

// New creates a migrator for the embedded migrations.
func New(logger *zap.Logger) (*Migrator, error) {
	migrations, err := Load()
	if err != nil {
		return nil, err
	}
	return &Migrator{logger: logger, migrations: migrations}, nil
}

// EnsureDatabase connects to the maintenance database and creates name if it
// does not exist yet. It reports whether the database was created.
func (m *Migrator) EnsureDatabase(ctx context.Context, maintenanceDSN, name string) (created bool, err error) {
	conn, err := pgx.Connect(ctx, maintenanceDSN)
	if err != nil {
		return false, fmt.Errorf("migrate: connect maintenance database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, conn.Close(ctx))
	}()

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("migrate: check database: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := conn.Exec(ctx, `CREATE DATABASE `+pgx.Identifier{name}.Sanitize()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateDatabase {
			// Another worker created it first.
			return false, nil
		}
		return false, fmt.Errorf("migrate: create database %s: %w", name, err)
	}

	m.logger.Info("database created", zap.String("database", name))
	return true, nil
}

// Up applies every pending migration and returns the versions it applied.
// Concurrent callers are serialised by a session-level advisory lock.
func (m *Migrator) Up(ctx context.Context, dsn string) (applied []string, err error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: connect: %w", err)
	}
	defer func() {
		err = multierr.Append(err, conn.Close(ctx))
	}()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return nil, fmt.Errorf("migrate: acquire lock: %w", err)
	}
	defer func() {
		_, unlockErr := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, lockKey)
		err = multierr.Append(err, unlockErr)
	}()

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	done, err := appliedVersions(ctx, conn)
	if err != nil {
		return nil, err
	}

	for _, migration := range m.migrations {
		if done[migration.Version] {
			continue
		}
		if err := apply(ctx, conn, migration); err != nil {
			return applied, err
		}
		m.logger.Info("migration applied",
			zap.String("version", migration.Version),
			zap.String("name", migration.Name),
		)
		applied = append(applied, migration.Version)
	}

	return applied, nil
}

func appliedVersions(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: read applied versions: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("migrate: scan applied versions: %w", err)
	}

	done := make(map[string]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}
	return done, nil
}

// apply runs one migration and records it in the same transaction.
func apply(ctx context.Context, conn *pgx.Conn, migration Migration) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", migration.Version, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, migration.SQL); err != nil {
		return fmt.Errorf("migrate: apply %s_%s: %w", migration.Version, migration.Name, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		migration.Version, migration.Name,
	)
	if err != nil {
		return fmt.Errorf("migrate: record %s: %w", migration.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", migration.Version, err)
	}

	return nil
}
