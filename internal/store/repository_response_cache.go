package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/models"
)

type responseCacheRepository struct {
	*DB
}

func NewResponseCacheRepository(db *DB) ResponseCacheRepository {
	return &responseCacheRepository{DB: db}
}

func (r *responseCacheRepository) Get(ctx context.Context, key string) (models.CacheEntry, error) {
	var (
		entry    models.CacheEntry
		storedAt int64
	)

	err := r.DB.QueryRowContext(ctx, getCacheEntry, key).Scan(
		&entry.Key,
		&entry.Payload,
		&entry.SourceURL,
		&storedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, ErrCacheMiss
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "responseCacheRepository.Get").
			Str("key", key).
			Msg("failed to get cache entry")
		return models.CacheEntry{}, fmt.Errorf("failed to get cache entry: %w", r.storageError(err))
	}

	entry.StoredAt = time.Unix(0, storedAt).UTC()
	return entry, nil
}

// Put replaces the whole entry stored under entry.Key.
func (r *responseCacheRepository) Put(ctx context.Context, entry models.CacheEntry) error {
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	if entry.Payload == nil {
		entry.Payload = []byte{}
	}

	_, err := r.DB.ExecContext(ctx, putCacheEntry,
		entry.Key,
		entry.Payload,
		entry.SourceURL,
		entry.StoredAt.UTC().UnixNano(),
	)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "responseCacheRepository.Put").
			Str("key", entry.Key).
			Msg("failed to put cache entry")
		return fmt.Errorf("failed to put cache entry: %w", r.storageError(err))
	}

	return nil
}

func (r *responseCacheRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.DB.ExecContext(ctx, deleteCacheEntry, key); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "responseCacheRepository.Delete").
			Str("key", key).
			Msg("failed to delete cache entry")
		return fmt.Errorf("failed to delete cache entry: %w", r.storageError(err))
	}
	return nil
}

func (r *responseCacheRepository) Expire(ctx context.Context, key string, storedAt time.Time) (bool, error) {
	deleted, err := r.exec(ctx, "responseCacheRepository.Expire", expireCacheEntry, key, storedAt.UnixNano())
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

func (r *responseCacheRepository) Clear(ctx context.Context) (int64, error) {
	return r.exec(ctx, "responseCacheRepository.Clear", clearCache)
}

func (r *responseCacheRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec(ctx, "responseCacheRepository.PurgeBefore", purgeCache, cutoff.UnixNano())
}

func (r *responseCacheRepository) exec(ctx context.Context, funcName, query string, args ...any) (int64, error) {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", funcName).
			Msg("failed to delete cache entries")
		return 0, fmt.Errorf("failed to delete cache entries: %w", r.storageError(err))
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", r.storageError(err))
	}

	return deleted, nil
}
