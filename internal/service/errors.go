package service

import (
	"errors"

	"github.com/MKhiriev/civic-sync/internal/validators"
)

var (
	// ErrDispatchInProgress is returned by SyncNow while a pass is running.
	ErrDispatchInProgress = errors.New("replay pass is already in progress")
	// ErrOffline is returned by SyncNow while the remote is unreachable.
	ErrOffline = errors.New("remote service is unreachable")

	ErrNoCredential      = validators.ErrNoCredential
	ErrCredentialExpired = errors.New("credential is expired")

	ErrInvalidActionType = validators.ErrInvalidActionType
	ErrActionNotFound    = errors.New("queued action was not found")

	ErrCacheMiss = errors.New("response cache miss")

	ErrDocumentNotFound    = errors.New("document is not cached")
	ErrDocumentTooLarge    = errors.New("document exceeds the size limit")
	ErrDownloadInterrupted = errors.New("document download was interrupted")
)
