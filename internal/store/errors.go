package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrActionNotFound is returned when a queued action lookup finds nothing.
	ErrActionNotFound = errors.New("queued action was not found")

	// ErrRecordNotFound is returned when a mirror record lookup finds nothing.
	ErrRecordNotFound = errors.New("mirror record was not found")

	// ErrVersionConflict is returned when an upsert carries a version that is
	// not newer than the stored one. The stored record wins.
	ErrVersionConflict = errors.New("mirror record version conflict occurred")

	// ErrInvalidStatusTransition is returned when a sync status change is
	// outside the allowed transitions.
	ErrInvalidStatusTransition = errors.New("invalid sync status transition")

	// ErrEntityUnavailable is returned when a stored payload cannot be
	// decoded (for example, a corrupt compressed payload).
	ErrEntityUnavailable = errors.New("stored entity is unavailable")

	// ErrDocumentNotFound is returned when no document is cached for an owner.
	ErrDocumentNotFound = errors.New("document was not found")

	// ErrCacheMiss is returned when no cache entry exists for a key.
	ErrCacheMiss = errors.New("cache entry was not found")
)

// Storage failure classes. Every driver error leaving this package is wrapped
// with exactly one of them.
var (
	// ErrStorageFull is returned when the device ran out of space.
	ErrStorageFull = errors.New("local storage is full")

	// ErrStorageCorrupted is returned when the database file is damaged.
	ErrStorageCorrupted = errors.New("local storage is corrupted")

	// ErrStorageUnavailable is returned for any other storage failure.
	ErrStorageUnavailable = errors.New("local storage is unavailable")
)

// Low-level database operation errors. These are wrapped by the storage
// sentinels above.
var (
	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrBuildingSQLQuery is returned when constructing a dynamic SQL query
	// fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")
)

var domainErrors = []error{
	ErrActionNotFound,
	ErrRecordNotFound,
	ErrVersionConflict,
	ErrInvalidStatusTransition,
	ErrEntityUnavailable,
	ErrDocumentNotFound,
	ErrCacheMiss,
	ErrStorageFull,
	ErrStorageCorrupted,
	ErrStorageUnavailable,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
