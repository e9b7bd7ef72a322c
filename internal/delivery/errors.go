package delivery

import (
	"errors"
	"fmt"
)

// Transient marks a delivery error as expected to self-resolve (network
// class). The notifier implementation wraps such failures at its boundary;
// the loop retries them with a fixed backoff instead of terminating.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// IsTransient reports whether err is wrapped with Transient.
func IsTransient(err error) bool {
	var e transientError
	return errors.As(err, &e)
}

type transientError struct{ err error }

func (e transientError) Error() string { return fmt.Sprintf("transient: %v", e.err) }
func (e transientError) Unwrap() error { return e.err }
