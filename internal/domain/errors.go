package domain

import (
	"errors"
	"fmt"
)

var ErrRecordNotFound = errors.New("Record not found")
var ErrDuplicateEntry = errors.New("Duplicate ledger entry")
var ErrConcurrencyConflict = errors.New("Ledger concurrency conflict")
var ErrChainCorruption = errors.New("Ledger chain corruption")

// ValidationError marks input problems that must never be retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
