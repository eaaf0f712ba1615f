package service

import (
	"errors"
	"fmt"

	"core-banking-api/internal/model"
	"core-banking-api/internal/repository"
)

// ServiceError is a classified failure the API layer can report to clients.
// Errors that are not a *ServiceError are internal.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Details returns the field-level cause of a validation failure, if any.
func (e *ServiceError) Details() []model.ValidationError {
	var ve *model.ValidationError
	if errors.As(e.Err, &ve) {
		return []model.ValidationError{*ve}
	}
	return nil
}

func newValidationError(field, message string) *ServiceError {
	return fromValidation(&model.ValidationError{Field: field, Message: message}).(*ServiceError)
}

// fromValidation wraps model validation failures. Other errors are returned
// unchanged.
func fromValidation(err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &ServiceError{
			Code:    model.ErrCodeValidation,
			Message: ve.Message,
			Err:     ve,
		}
	}
	return err
}

func newNotFoundError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:    model.ErrCodeNotFound,
		Message: message,
		Err:     err,
	}
}

func newInsufficientFundsError() *ServiceError {
	return &ServiceError{
		Code:    model.ErrCodeInsufficientFunds,
		Message: "insufficient funds",
	}
}

func newConflictError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:    model.ErrCodeConflict,
		Message: message,
		Err:     err,
	}
}

// classify turns repository failures into service errors. op names the
// operation in the message of internal errors.
func classify(op string, err error) error {
	var serviceErr *ServiceError
	switch {
	case errors.As(err, &serviceErr):
		return serviceErr
	case errors.Is(err, repository.ErrAccountNotFound):
		return newNotFoundError("account not found", err)
	case errors.Is(err, repository.ErrCustomerNotFound):
		return newNotFoundError("customer not found", err)
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return newConflictError("account was modified concurrently, retry the request", err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// IsCode reports whether err is a *ServiceError with the given code.
func IsCode(err error, code string) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Code == code
}
