package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the terminal outcomes of a submission.
var (
	// ErrCancelled is returned when a submission is cancelled by the caller
	// or superseded by a newer submission. Never retried.
	ErrCancelled = errors.New("generation cancelled")

	// ErrTimedOut is returned when an attempt exceeds the per-attempt
	// timeout. Retryable; terminal only when the final attempt timed out.
	ErrTimedOut = errors.New("generation timed out")

	// ErrExhausted marks a submission that used up all attempts. The
	// concrete error is an *ExhaustedError wrapping the last failure.
	ErrExhausted = errors.New("generation attempts exhausted")
)

// TransientError wraps a backend failure that is safe to retry, such as the
// simulated "service overloaded" response.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient generation failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// ValidationError reports a malformed request or result. Not retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExhaustedError is returned after the final attempt fails with a
// non-timeout error. It matches ErrExhausted via errors.Is and exposes the
// last underlying failure via errors.Unwrap.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("generation attempts exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Retryable reports whether err is eligible for backoff-and-retry. Only
// timeouts and transient failures qualify.
func Retryable(err error) bool {
	if errors.Is(err, ErrTimedOut) {
		return true
	}
	var transient *TransientError
	return errors.As(err, &transient)
}
