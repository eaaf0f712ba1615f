package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const pqUndefinedTable = "42P01"

// MigrationVersion returns the newest applied schema version, or "" when the
// schema_migrations table does not exist yet.
func MigrationVersion(ctx context.Context, db DBTX) (string, error) {
	var version sql.NullString
	query := `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`

	err := db.QueryRowContext(ctx, query).Scan(&version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable {
			return "", nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read migration version: %w", err)
	}

	return version.String, nil
}
