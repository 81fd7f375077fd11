package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/migrations"
)

// maxTxAttempts bounds how often a transaction is re-run after the database
// reported a retryable (busy or locked) failure.
const maxTxAttempts = 3

// DB wraps the shared *sql.DB handle together with the driver error
// classifier used by every repository.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// When the driver reports a retryable failure (the database stayed busy past
// busy_timeout) the whole transaction is re-run, up to maxTxAttempts times.
// Any remaining failure is mapped to a storage sentinel.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = db.withTx(ctx, fn)
		if err == nil || attempt == maxTxAttempts || db.classify(err) != Retryable || ctx.Err() != nil {
			break
		}

		db.logger.Warn().Err(err).
			Str("func", "DB.WithTx").
			Int("attempt", attempt).
			Msg("retrying transaction after busy database")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}

	return db.storageError(err)
}

func (db *DB) withTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
		}
	}()

	err = fn(ctx, tx)
	return err
}

func (db *DB) classify(err error) ErrorClassification {
	if db.errorClassificator == nil {
		return NonRetryable
	}
	return db.errorClassificator.Classify(err)
}

// storageError maps a driver failure onto the storage sentinels. Errors that
// already carry a sentinel of this package and context errors pass through.
func (db *DB) storageError(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if db.errorClassificator == nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return db.errorClassificator.StorageError(err)
}
