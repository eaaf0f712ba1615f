package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a customer's bank account. Version is incremented by
// every balance mutation and guards against lost updates.
type Account struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	AccountNumber string          `json:"accountNumber" db:"account_number"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	CustomerID    uuid.UUID       `json:"customerId" db:"customer_id"`
	Version       int64           `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// CreateAccountRequest represents the request to open an account. Balance is
// accepted for compatibility but always ignored: accounts open at zero.
type CreateAccountRequest struct {
	CustomerID uuid.UUID        `json:"customerId"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
}

// AmountRequest is the body of deposit and withdraw calls.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest is the body of a transfer call.
type TransferRequest struct {
	DestinationAccountNumber string          `json:"destinationAccountNumber" validate:"max=32"`
	Amount                   decimal.Decimal `json:"amount"`
}

// Validate validates the create account request
func (r *CreateAccountRequest) Validate() error {
	if r.CustomerID == uuid.Nil {
		return &ValidationError{
			Field:   "customerId",
			Message: "customer id cannot be empty",
		}
	}
	return nil
}

// Validate validates the transfer request
func (r *TransferRequest) Validate() error {
	if r.DestinationAccountNumber == "" {
		return &ValidationError{
			Field:   "destinationAccountNumber",
			Message: "destination account number cannot be empty",
		}
	}
	return ValidateAmount(r.Amount)
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{
			Field:   "amount",
			Message: "amount must be greater than zero",
		}
	}
	return nil
}

// FormatAccountNumber renders a sequence value as a fixed-width account
// number so that lexical and numeric ordering agree.
func FormatAccountNumber(n int64) string {
	return fmt.Sprintf("%010d", n)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
