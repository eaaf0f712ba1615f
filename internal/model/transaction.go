package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is one immutable ledger entry against an account.
type Transaction struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	DateUTC   time.Time       `json:"dateUtc" db:"date_utc"`
	Type      TransactionType `json:"type" db:"type"`
	AccountID uuid.UUID       `json:"accountId" db:"account_id"`
}

// TransactionType represents the kind of a ledger entry
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "Deposit"
	TransactionTypeWithdraw TransactionType = "Withdraw"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdraw
}

// SignedAmount is the effect of the entry on its account balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeWithdraw {
		return t.Amount.Neg()
	}
	return t.Amount
}
