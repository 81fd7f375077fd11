package store

import (
	"context"
	"time"

	"github.com/MKhiriev/civic-sync/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// ActionQueueRepository is the durable, ordered queue of unconfirmed writes.
type ActionQueueRepository interface {
	// Enqueue durably persists the action before returning. An empty ID is
	// replaced with a new UUIDv7; the assigned sequence is returned.
	Enqueue(ctx context.Context, action models.QueuedAction) (models.QueuedAction, error)
	// List returns every queued action ordered by priority (descending) then
	// insertion order. Rejected actions are included.
	List(ctx context.Context) ([]models.QueuedAction, error)
	Get(ctx context.Context, id string) (models.QueuedAction, error)
	Len(ctx context.Context) (int, error)
	// Remove deletes the action. Removing a missing id is a no-op.
	Remove(ctx context.Context, id string) error
	// Claim leases the action to owner. It returns false while any unexpired
	// lease is held, including one held by owner itself.
	Claim(ctx context.Context, id, owner string, lease time.Duration) (bool, error)
	Release(ctx context.Context, id, owner string) error
	// Reject parks the action after a validation failure.
	Reject(ctx context.Context, id string) error
	// Requeue clears the park flag so replay picks the action up again.
	Requeue(ctx context.Context, id string) error
}

// MirrorRepository stores local copies of domain entities with their sync
// status.
type MirrorRepository interface {
	Upsert(ctx context.Context, rec models.MirrorRecord) (models.MirrorRecord, error)
	Get(ctx context.Context, kind models.RecordKind, id string) (models.MirrorRecord, error)
	GetByID(ctx context.Context, id string) (models.MirrorRecord, error)
	Query(ctx context.Context, filter models.MirrorFilter) ([]models.MirrorRecord, error)
	Delete(ctx context.Context, kind models.RecordKind, id string) error
	// Transition walks the record through path, skipping the steps already
	// behind it, in one transaction.
	Transition(ctx context.Context, id string, serverID *string, path ...models.SyncStatus) (models.MirrorRecord, error)
	// PurgeBefore deletes synced records last updated before cutoff.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResponseCacheRepository stores read-response payloads by request signature.
type ResponseCacheRepository interface {
	Get(ctx context.Context, key string) (models.CacheEntry, error)
	Put(ctx context.Context, entry models.CacheEntry) error
	Delete(ctx context.Context, key string) error
	// Expire deletes the entry only if it is still the one stored at
	// storedAt. It reports whether a row was deleted.
	Expire(ctx context.Context, key string, storedAt time.Time) (bool, error)
	Clear(ctx context.Context) (int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentRepository stores document blobs together with their metadata.
type DocumentRepository interface {
	// Save writes the blob and its metadata in one transaction, replacing
	// any previous document of the same owner.
	Save(ctx context.Context, doc models.Document, meta models.DocumentMetadata) (models.Document, error)
	Get(ctx context.Context, ownerID string) (models.Document, models.DocumentMetadata, error)
	Exists(ctx context.Context, ownerID string) (bool, error)
	// Delete removes both rows; it reports whether a document existed.
	Delete(ctx context.Context, ownerID string) (bool, error)
	List(ctx context.Context) (models.DocumentListing, error)
	DeleteAll(ctx context.Context) (int64, error)
	// DeleteOldest keeps the keep most recently downloaded documents.
	DeleteOldest(ctx context.Context, keep int) (int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UsageRepository reports the on-disk size of the local database.
type UsageRepository interface {
	UsedBytes(ctx context.Context) (int64, error)
}
