package models

import "time"

// CacheEntry is a stored read-response payload keyed by request signature.
type CacheEntry struct {
	Key       string    `json:"key"`
	StoredAt  time.Time `json:"stored_at"`
	Payload   []byte    `json:"payload"`
	SourceURL string    `json:"source_url"`
}

// CachedResponse is the result of a read that may have been served from the
// response cache. FromCache distinguishes a cached read from a live one.
type CachedResponse struct {
	Payload   []byte
	FromCache bool
	StoredAt  time.Time
}
