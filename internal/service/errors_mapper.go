// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

// mapStoreError translates repository lookup errors into service errors.
// Storage failure classes pass through unchanged.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrActionNotFound):
		return fmt.Errorf("%w: %w", ErrActionNotFound, err)
	case errors.Is(err, store.ErrDocumentNotFound):
		return fmt.Errorf("%w: %w", ErrDocumentNotFound, err)
	case errors.Is(err, store.ErrCacheMiss):
		return fmt.Errorf("%w: %w", ErrCacheMiss, err)
	}
	return err
}

// Failure reduces any error produced by the sync core to the failure kind
// domain code acts on.
func Failure(err error) models.FailureKind {
	switch {
	case err == nil:
		return models.FailureNone
	case errors.Is(err, ErrNoCredential), errors.Is(err, ErrCredentialExpired):
		return models.FailureUnauthorized
	case errors.Is(err, store.ErrStorageFull),
		errors.Is(err, store.ErrStorageCorrupted),
		errors.Is(err, store.ErrStorageUnavailable),
		errors.Is(err, store.ErrEntityUnavailable):
		return models.FailureStorage
	}
	return adapter.Classify(err)
}
