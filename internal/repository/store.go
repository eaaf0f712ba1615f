package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"core-banking-api/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Querier lists every persistence operation the services rely on.
type Querier interface {
	CreateCustomer(ctx context.Context, customer *model.Customer) error
	ListCustomers(ctx context.Context, limit, offset int) ([]model.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)

	NextAccountNumber(ctx context.Context) (int64, error)
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*model.Account, error)
	ListAccounts(ctx context.Context, customerID uuid.NullUUID, limit, offset int) ([]model.Account, error)
	CountAccounts(ctx context.Context, customerID uuid.NullUUID) (int64, error)
	UpdateBalance(ctx context.Context, account *model.Account) error

	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error)
	CountTransactions(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// Store is a Querier that can also run a function inside one database
// transaction. The Querier handed to fn is bound to that transaction.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// Queries implements Querier on top of a DBTX.
type Queries struct {
	db DBTX
}

// New creates queries bound to db
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// SQLStore is the PostgreSQL-backed Store.
type SQLStore struct {
	*Queries
	db *sql.DB
}

// NewStore creates a new SQL store
func NewStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		Queries: New(db),
		db:      db,
	}
}

// ExecTx runs fn inside a repeatable-read transaction. The transaction is
// committed when fn returns nil and rolled back otherwise, including when ctx
// is cancelled before the commit.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if tx.Commit() succeeds

	if err := fn(New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}
