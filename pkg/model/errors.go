package model

import (
	"errors"
	"fmt"
	"strings"
)

// TransientError marks a completion failure worth retrying: rate limits,
// timeouts, 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a completion failure that terminates the run, such as
// invalid credentials or a nonexistent model.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Explicitly wrapped
// errors win; otherwise the error text is inspected for the usual rate
// limit and server error signatures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return false
	}

	msg := err.Error()
	for _, sig := range []string{
		"429", "rate limit", "overloaded",
		"500", "502", "503", "504",
		"connection reset", "timeout", "temporarily unavailable",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
