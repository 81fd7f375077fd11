package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestSQLiteErrorClassifier_Classify(t *testing.T) {
	c := NewSQLiteErrorClassifier()

	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{name: "nil", err: nil, want: NonRetryable},
		{name: "busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, want: Retryable},
		{name: "locked", err: sqlite3.Error{Code: sqlite3.ErrLocked}, want: Retryable},
		{name: "wrapped busy", err: fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), want: Retryable},
		{name: "full", err: sqlite3.Error{Code: sqlite3.ErrFull}, want: NonRetryable},
		{name: "constraint", err: sqlite3.Error{Code: sqlite3.ErrConstraint}, want: NonRetryable},
		{name: "plain error", err: errors.New("boom"), want: NonRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}
}

func TestSQLiteErrorClassifier_StorageError(t *testing.T) {
	c := NewSQLiteErrorClassifier()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "full", err: sqlite3.Error{Code: sqlite3.ErrFull}, want: ErrStorageFull},
		{name: "corrupt", err: sqlite3.Error{Code: sqlite3.ErrCorrupt}, want: ErrStorageCorrupted},
		{name: "not a db", err: sqlite3.Error{Code: sqlite3.ErrNotADB}, want: ErrStorageCorrupted},
		{name: "io", err: sqlite3.Error{Code: sqlite3.ErrIoErr}, want: ErrStorageUnavailable},
		{name: "plain error", err: errors.New("boom"), want: ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.StorageError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, c.StorageError(nil))
}
