package order

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

const (
	msgEmptyOrder   = "order must contain at least one item"
	msgInvalidInput = "invalid input"
)

// ValidationError reports caller-supplied data that breaks a business rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError reports a failed read or commit in the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func lineField(lineID int64) string {
	return fmt.Sprintf("quantity_%d", lineID)
}
