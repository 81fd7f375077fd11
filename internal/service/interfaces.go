package service

import (
	"context"
	"time"

	"github.com/MKhiriev/civic-sync/models"
)

// Replayer runs the replay algorithm over the durable action queue. The
// foreground dispatcher and the background worker share it.
type Replayer interface {
	// Drain replays every queued action in order. One failing action never
	// stops the pass; only a failure to read the queue or a cancelled ctx
	// does.
	Drain(ctx context.Context) (models.ReplayReport, error)

	// ReplayAction replays a single queued action through the same claim
	// and at-most-once checks as Drain.
	ReplayAction(ctx context.Context, id string) (models.ReplayReport, error)
}

// DispatchState is the state of a [SyncDispatcher].
type DispatchState int32

const (
	StateIdle DispatchState = iota
	StateDispatching
)

func (s DispatchState) String() string {
	if s == StateDispatching {
		return "dispatching"
	}
	return "idle"
}

// SyncDispatcher starts replay passes on reconnection and on request.
type SyncDispatcher interface {
	State() DispatchState
	// SyncNow runs (or delegates) one pass immediately.
	SyncNow(ctx context.Context) (models.ReplayReport, error)
	// Run dispatches on every online transition until ctx is done.
	Run(ctx context.Context) error
}

// CredentialValidator decides whether a credential may be sent.
type CredentialValidator interface {
	Validate(credential string) error
}

// ActionService is the producer-facing side of the action queue.
type ActionService interface {
	// Enqueue durably queues a write and returns its id. While online the
	// action is also replayed right away.
	Enqueue(ctx context.Context, t models.ActionType, payload []byte, credential string, localRefID *string, opts ...EnqueueOption) (string, error)
	// Discard drops a queued action. An in-flight remote call is not
	// aborted.
	Discard(ctx context.Context, id string) error
	// Resubmit re-enqueues a rejected action after the user edited it.
	Resubmit(ctx context.Context, id string) error
	Pending(ctx context.Context) ([]models.QueuedAction, error)
}

// ResponseCache is the TTL-bounded fallback for idempotent reads.
type ResponseCache interface {
	Key(method, url string, body []byte) string
	Get(ctx context.Context, key string) (models.CachedResponse, error)
	Put(ctx context.Context, key, sourceURL string, payload []byte) error
	// CachedGet performs a live read with fetch and falls back to a fresh
	// cached entry when the live read fails.
	CachedGet(ctx context.Context, key, sourceURL string, fetch func(ctx context.Context) ([]byte, error)) (models.CachedResponse, error)
	// Fetch is CachedGet for a GET of path on the remote API.
	Fetch(ctx context.Context, path, credential string) (models.CachedResponse, error)
	Clear(ctx context.Context) (int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentService downloads and keeps documents for offline reading.
type DocumentService interface {
	Download(ctx context.Context, ownerID string, meta models.DocumentMetadata, credential string, onProgress models.ProgressFunc) (models.DownloadResult, error)
	IsCached(ctx context.Context, ownerID string) (bool, error)
	Get(ctx context.Context, ownerID string) (models.Document, models.DocumentMetadata, error)
	Delete(ctx context.Context, ownerID string) error
	List(ctx context.Context) (models.DocumentListing, error)
	ClearAll(ctx context.Context) (int64, error)
	// CleanupOldDocuments keeps the keep most recently downloaded documents
	// and returns how many were evicted.
	CleanupOldDocuments(ctx context.Context, keep int) (int64, error)
}

// QuotaManager keeps local storage under its quota.
type QuotaManager interface {
	Usage(ctx context.Context) (models.StorageUsage, error)
	// Enforce purges aged synced data when usage is above the threshold.
	Enforce(ctx context.Context) (models.PurgeReport, error)
}

// SyncJob periodically asks the dispatcher for a pass so that transient
// failures are retried while the device stays online.
type SyncJob interface {
	// Start launches the job. It syncs every interval, defaulting to 5
	// minutes if interval is zero or negative. A running job is stopped
	// first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the job to exit and blocks until it has terminated.
	Stop()
}
