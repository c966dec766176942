package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyExists indicates a record with the same ID was written first.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrConflict indicates the backend rejected a write because of concurrent access
	// (SurrealDB transaction conflict, SQLITE_BUSY / database is locked).
	ErrConflict = errors.New("store conflict")

	// ErrNotFound indicates the target record does not exist.
	ErrNotFound = errors.New("record not found")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the matching sentinel.
// Returns the original error when it is not a recognised QueryError.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		}
	}

	return err
}

// isSQLiteConflictError reports SQLITE_BUSY and "database is locked" failures.
func isSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// wrapSQLiteError tags lock contention with ErrConflict.
func wrapSQLiteError(err error) error {
	if isSQLiteConflictError(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
