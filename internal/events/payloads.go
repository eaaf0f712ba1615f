package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceChanged is the payload of deposit and withdraw events.
type BalanceChanged struct {
	AccountID     uuid.UUID       `json:"accountId"`
	AccountNumber string          `json:"accountNumber"`
	TransactionID uuid.UUID       `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	DateUTC       time.Time       `json:"dateUtc"`
}

// Transferred is the payload of transfer events.
type Transferred struct {
	SourceAccountID          uuid.UUID       `json:"sourceAccountId"`
	SourceAccountNumber      string          `json:"sourceAccountNumber"`
	DestinationAccountID     uuid.UUID       `json:"destinationAccountId"`
	DestinationAccountNumber string          `json:"destinationAccountNumber"`
	WithdrawTransactionID    uuid.UUID       `json:"withdrawTransactionId"`
	DepositTransactionID     uuid.UUID       `json:"depositTransactionId"`
	Amount                   decimal.Decimal `json:"amount"`
	DateUTC                  time.Time       `json:"dateUtc"`
}
