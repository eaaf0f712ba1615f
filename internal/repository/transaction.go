package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"core-banking-api/internal/model"
)

// CreateTransaction appends a ledger entry
func (q *Queries) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, amount, date_utc, type)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := q.db.ExecContext(ctx, query,
		transaction.ID,
		transaction.AccountID,
		transaction.Amount,
		transaction.DateUTC,
		string(transaction.Type),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", classify(err))
	}

	return nil
}

// ListTransactions retrieves ledger entries for an account in the order they
// were written
func (q *Queries) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	query := `
		SELECT id, account_id, amount, date_utc, type
		FROM transactions
		WHERE account_id = $1
		ORDER BY date_utc ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get account transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.DateUTC, &t.Type); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.DateUTC = t.DateUTC.UTC()
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountTransactions counts ledger entries for an account
func (q *Queries) CountTransactions(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
