package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// Hasher provides keyed HMAC-SHA256 signing for replayed payloads.
// Each Hasher owns a sync.Pool of hash instances configured with its key.
//
// Purpose:
//   - Avoid repeated allocations of new hash.Hash instances
//   - Reduce GC pressure when a replay pass signs many actions
type Hasher struct {
	pool sync.Pool
}

// NewHasher returns a Hasher for hashKey.
//
// Example usage:
//
//	h := utils.NewHasher("my-secret-key")
//	signature := h.HashHex(payload)
func NewHasher(hashKey string) *Hasher {
	key := []byte(hashKey)
	return &Hasher{
		pool: sync.Pool{
			New: func() any {
				return hmac.New(sha256.New, key)
			},
		},
	}
}

// Hash computes an HMAC-SHA256 signature over the given byte slice
// using a hasher pulled from the pool.
//
// Behavior:
//   - Retrieves a hash.Hash instance from sync.Pool
//   - Resets it, writes the data, computes the sum
//   - Resets again and returns it to the pool
func (h *Hasher) Hash(data []byte) []byte {
	hs := h.pool.Get().(hash.Hash)
	hs.Reset()

	hs.Write(data)
	sum := hs.Sum(nil)

	hs.Reset()
	h.pool.Put(hs)

	return sum
}

// HashHex is Hash encoded as a lowercase hex string, the form sent in the
// HashSHA256 request header.
func (h *Hasher) HashHex(data []byte) string {
	return hex.EncodeToString(h.Hash(data))
}
