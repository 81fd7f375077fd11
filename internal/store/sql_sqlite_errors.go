package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrorClassification is the result type returned by [ErrorClassificator.Classify]
// and [SQLiteErrorClassifier.Classify]. It indicates whether a failed database
// operation should be retried or abandoned.
type ErrorClassification int

const (
	// NonRetryable indicates that the failed operation should not be retried.
	// This is the default classification for unrecognised errors, constraint
	// violations, corruption and full-disk conditions.
	NonRetryable ErrorClassification = iota

	// Retryable indicates that the failed operation may succeed if attempted
	// again (the other execution context held the write lock).
	Retryable
)

// ErrorClassificator inspects driver errors.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
	StorageError(err error) error
}

// SQLiteErrorClassifier implements [ErrorClassificator] for mattn/go-sqlite3.
type SQLiteErrorClassifier struct{}

// NewSQLiteErrorClassifier constructs a [SQLiteErrorClassifier] ready for use.
func NewSQLiteErrorClassifier() *SQLiteErrorClassifier {
	return &SQLiteErrorClassifier{}
}

// Classify implements [ErrorClassificator]. It attempts to unwrap err as a
// sqlite3.Error and inspects its primary result code. If err is nil or is
// not a driver error, [NonRetryable] is returned.
//
// Retryable codes:
//   - SQLITE_BUSY  : another connection holds the write lock
//   - SQLITE_LOCKED: a conflicting lock inside the same connection
func (c *SQLiteErrorClassifier) Classify(err error) ErrorClassification {
	if err == nil {
		return NonRetryable
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return Retryable
		}
	}

	// Default: treat unrecognised errors as non-retryable.
	return NonRetryable
}

// StorageError implements [ErrorClassificator]. It wraps err with the storage
// sentinel matching its result code so callers can tell the failure classes
// apart with errors.Is:
//   - SQLITE_FULL                  → [ErrStorageFull]
//   - SQLITE_CORRUPT, SQLITE_NOTADB → [ErrStorageCorrupted]
//   - anything else                → [ErrStorageUnavailable]
func (c *SQLiteErrorClassifier) StorageError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrFull:
			return fmt.Errorf("%w: %w", ErrStorageFull, err)
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %w", ErrStorageCorrupted, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
