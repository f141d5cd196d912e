package errors

import (
	"errors"
	"strings"
)

// Retryable reports whether an error is an optimistic-write collision
// worth retrying. Driver-specific conflicts are matched by message to
// avoid importing both drivers here: SQLite surfaces lock contention as
// "database is locked"/"busy", MySQL as deadlock/lock-wait errors.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflictRetryable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "deadlock found"),
		strings.Contains(msg, "lock wait timeout"):
		return true
	}
	return false
}
