package errors

import "errors"

// Sentinel errors shared by the repository and service layers.
// Callers classify with errors.Is; Map translates them for transports.
var (
	// ErrValidation rejects malformed input (empty message text, bad ids).
	// Never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound reports an operation on a user with no profile.
	ErrNotFound = errors.New("not found")

	// ErrConflictRetryable is an optimistic-write collision on a decision
	// or match commit. Retried internally up to the configured budget.
	ErrConflictRetryable = errors.New("write conflict")

	// ErrTransient is surfaced once the retry budget is exhausted.
	// The identical call can be safely re-issued by the caller.
	ErrTransient = errors.New("transient failure, retry later")

	// ErrUnavailable wraps store connectivity failures.
	ErrUnavailable = errors.New("store unavailable")
)
