package storage

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks failures of the durable store itself (I/O,
// connectivity, schema) as opposed to a missing row.
var ErrStoreUnavailable = errors.New("store unavailable")

// NotFoundError is returned when a row doesn't exist in the store.
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return "not found"
	}

	return "not found: " + e.Key
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// Unavailable wraps a driver failure for op so that it matches
// ErrStoreUnavailable while keeping the underlying cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
