package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Repository errors
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrMissingReference = errors.New("referenced row does not exist")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// PostgreSQL error codes the store reacts to.
const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// classify maps driver errors onto repository sentinels. Errors it does not
// recognise are returned unchanged.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		return errors.Join(ErrDuplicateKey, err)
	case pqForeignKeyViolation:
		return errors.Join(ErrMissingReference, err)
	case pqSerializationFailure, pqDeadlockDetected:
		return errors.Join(ErrConcurrentUpdate, err)
	}
	return err
}
