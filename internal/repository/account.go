package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"core-banking-api/internal/model"
)

const accountColumns = `id, account_number, balance, customer_id, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, account *model.Account) error {
	return row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.Balance,
		&account.CustomerID,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
}

// NextAccountNumber draws the next value from the account number sequence.
// Sequence values are never handed out twice, even across rolled back
// transactions.
func (q *Queries) NextAccountNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT nextval('account_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to allocate account number: %w", err)
	}
	return n, nil
}

// CreateAccount inserts a new account
func (q *Queries) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, account_number, balance, customer_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		RETURNING version, created_at, updated_at
	`

	err := q.db.QueryRowContext(ctx, query,
		account.ID,
		account.AccountNumber,
		account.Balance,
		account.CustomerID,
	).Scan(
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrMissingReference) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by its ID
func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account := &model.Account{}
	if err := scanAccount(q.db.QueryRowContext(ctx, query, id), account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", classify(err))
	}

	return account, nil
}

// GetAccountByNumber retrieves an account by its account number
func (q *Queries) GetAccountByNumber(ctx context.Context, accountNumber string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	account := &model.Account{}
	if err := scanAccount(q.db.QueryRowContext(ctx, query, accountNumber), account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by number: %w", classify(err))
	}

	return account, nil
}

// ListAccounts returns accounts ordered by account number, optionally
// restricted to one customer
func (q *Queries) ListAccounts(ctx context.Context, customerID uuid.NullUUID, limit, offset int) ([]model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1::uuid IS NULL OR customer_id = $1)
		ORDER BY account_number ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.db.QueryContext(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		if err := scanAccount(rows, &account); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// CountAccounts counts accounts, optionally restricted to one customer
func (q *Queries) CountAccounts(ctx context.Context, customerID uuid.NullUUID) (int64, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE ($1::uuid IS NULL OR customer_id = $1)`

	var count int64
	if err := q.db.QueryRowContext(ctx, query, customerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// UpdateBalance writes account.Balance if the stored version still matches
// account.Version. On success account is refreshed with the stored balance
// and the advanced version; a stale version yields ErrConcurrentUpdate.
func (q *Queries) UpdateBalance(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING balance, version, updated_at
	`

	err := q.db.QueryRowContext(ctx, query, account.Balance, account.ID, account.Version).
		Scan(&account.Balance, &account.Version, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("failed to update account balance: %w", classify(err))
	}

	return nil
}
