package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer owns zero or more accounts.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CreateCustomerRequest represents the request to create a customer. ID is
// optional; a time-ordered id is generated when it is missing.
type CreateCustomerRequest struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Name    string     `json:"name" validate:"max=200"`
	Address *string    `json:"address,omitempty" validate:"omitempty,max=500"`
}

// Validate validates the create customer request
func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{
			Field:   "name",
			Message: "customer name cannot be empty",
		}
	}
	return nil
}
