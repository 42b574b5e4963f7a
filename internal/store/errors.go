package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeKeyNotSet indicates an encrypted operation was attempted before
	// the session key was derived. Operations fail closed: nothing is
	// silently read or written unencrypted.
	CodeKeyNotSet ErrorCode = "KEY_NOT_SET"

	// CodeDecryptionFailed indicates a bad key or a tampered/corrupt
	// envelope.
	CodeDecryptionFailed ErrorCode = "DECRYPTION_FAILED"

	// CodeConstraintViolation indicates a uniqueness or foreign-key breach.
	// The enclosing transaction is aborted.
	CodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"

	// CodeMigrationFailed indicates the store could not open: a migration
	// did not apply. No partial schema is left active.
	CodeMigrationFailed ErrorCode = "MIGRATION_FAILED"

	// CodeStorage covers all other persistence-engine failures.
	CodeStorage ErrorCode = "STORAGE"
)

// Error is a store failure with enough context to log and display:
// the failed operation, the collection involved, and the record id where
// one applies.
type Error struct {
	Code       ErrorCode
	Op         string
	Collection string
	ID         int64
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.Collection != "" {
		msg += fmt.Sprintf(" (collection=%s", e.Collection)
		if e.ID != 0 {
			msg += fmt.Sprintf(", id=%d", e.ID)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConstraintViolation reports whether err is a uniqueness or foreign-key
// breach. Uses errors.As to handle wrapped errors.
func IsConstraintViolation(err error) bool {
	return hasCode(err, CodeConstraintViolation)
}

// IsKeyNotSet reports whether err is a fail-closed missing-key error.
func IsKeyNotSet(err error) bool {
	return hasCode(err, CodeKeyNotSet)
}

// IsDecryptionFailed reports whether err is a decryption/authentication
// failure.
func IsDecryptionFailed(err error) bool {
	return hasCode(err, CodeDecryptionFailed)
}

// IsMigrationFailed reports whether err is a fatal migration error.
func IsMigrationFailed(err error) bool {
	return hasCode(err, CodeMigrationFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
