package service

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zeebo/blake3"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

type responseCache struct {
	repo   store.ResponseCacheRepository
	server adapter.ServerAdapter
	maxAge time.Duration
	now    func() time.Time

	logger *logger.Logger
}

// NewResponseCache builds the read fallback cache. Entries older than maxAge
// are misses.
func NewResponseCache(repo store.ResponseCacheRepository, server adapter.ServerAdapter, maxAge time.Duration, logger *logger.Logger) ResponseCache {
	return &responseCache{
		repo:   repo,
		server: server,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger,
	}
}

// Key hashes the request signature. Fields are length-prefixed so that no
// two distinct requests share a signature.
func (c *responseCache) Key(method, url string, body []byte) string {
	h := blake3.New()
	for _, part := range [][]byte{[]byte(method), []byte(url), body} {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(part)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get implements [ResponseCache]. An expired entry is a miss and is reaped,
// unless a newer Put replaced it in the meantime.
func (c *responseCache) Get(ctx context.Context, key string) (models.CachedResponse, error) {
	entry, err := c.repo.Get(ctx, key)
	if err != nil {
		return models.CachedResponse{}, mapStoreError(err)
	}

	if c.now().Sub(entry.StoredAt) >= c.maxAge {
		if _, delErr := c.repo.Expire(ctx, key, entry.StoredAt); delErr != nil {
			logger.FromContext(ctx).Warn().Err(delErr).
				Str("func", "responseCache.Get").
				Str("key", key).
				Msg("failed to reap expired entry")
		}
		return models.CachedResponse{}, fmt.Errorf("%w: entry expired", ErrCacheMiss)
	}

	return models.CachedResponse{
		Payload:   entry.Payload,
		FromCache: true,
		StoredAt:  entry.StoredAt,
	}, nil
}

func (c *responseCache) Put(ctx context.Context, key, sourceURL string, payload []byte) error {
	err := c.repo.Put(ctx, models.CacheEntry{
		Key:       key,
		StoredAt:  c.now(),
		Payload:   payload,
		SourceURL: sourceURL,
	})
	if err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

// CachedGet implements [ResponseCache]. A successful live read refreshes the
// cache; failing to store it does not fail the read.
func (c *responseCache) CachedGet(ctx context.Context, key, sourceURL string, fetch func(ctx context.Context) ([]byte, error)) (models.CachedResponse, error) {
	log := logger.FromContext(ctx)

	payload, liveErr := fetch(ctx)
	if liveErr == nil {
		if err := c.Put(ctx, key, sourceURL, payload); err != nil {
			log.Warn().Err(err).Str("func", "responseCache.CachedGet").Str("key", key).Msg("failed to cache live response")
		}
		return models.CachedResponse{Payload: payload, StoredAt: c.now()}, nil
	}

	cached, err := c.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Str("func", "responseCache.CachedGet").Str("key", key).Msg("cache unavailable")
		}
		return models.CachedResponse{}, fmt.Errorf("live read failed and no cached response: %w", liveErr)
	}

	log.Debug().Err(liveErr).
		Str("func", "responseCache.CachedGet").
		Str("key", key).
		Time("stored_at", cached.StoredAt).
		Msg("serving cached response")
	return cached, nil
}

func (c *responseCache) Fetch(ctx context.Context, path, credential string) (models.CachedResponse, error) {
	key := c.Key(http.MethodGet, path, nil)
	return c.CachedGet(ctx, key, path, func(ctx context.Context) ([]byte, error) {
		return c.server.Fetch(ctx, path, credential)
	})
}

func (c *responseCache) Clear(ctx context.Context) (int64, error) {
	n, err := c.repo.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear response cache: %w", err)
	}
	return n, nil
}

func (c *responseCache) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := c.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge response cache: %w", err)
	}
	return n, nil
}
