// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
)

const testHashKey = "test-secret-key"

func TestHasher_Hash(t *testing.T) {
	h := NewHasher(testHashKey)
	data := []byte("test-data")

	sum1 := h.Hash(data)
	sum2 := h.Hash(data)

	if len(sum1) == 0 {
		t.Fatal("hash result is empty")
	}

	if !bytes.Equal(sum1, sum2) {
		t.Fatal("hash must be deterministic for the same input")
	}

	// verify against direct HMAC computation
	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write(data)
	expected := mac.Sum(nil)

	if !bytes.Equal(sum1, expected) {
		t.Fatalf("unexpected hash value\nwant: %x\ngot:  %x", expected, sum1)
	}
}

func TestHasher_DifferentPayloads(t *testing.T) {
	h := NewHasher(testHashKey)

	a := h.Hash([]byte(`{"title":"pothole on 5th"}`))
	b := h.Hash([]byte(`{"title":"pothole on 6th"}`))

	if bytes.Equal(a, b) {
		t.Fatal("different payloads must produce different hashes")
	}
}

func TestHasher_DifferentKeys(t *testing.T) {
	data := []byte("same-data")

	a := NewHasher("key-a").Hash(data)
	b := NewHasher("key-b").Hash(data)

	if bytes.Equal(a, b) {
		t.Fatal("different keys must produce different hashes")
	}
}

func TestHasher_HashHex(t *testing.T) {
	h := NewHasher(testHashKey)
	data := []byte("payload")

	got := h.HashHex(data)
	want := hex.EncodeToString(h.Hash(data))

	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
	if len(got) != sha256.Size*2 {
		t.Fatalf("expected %d hex chars, got %d", sha256.Size*2, len(got))
	}
}

func TestHasher_EmptyInput(t *testing.T) {
	h := NewHasher(testHashKey)

	if len(h.Hash(nil)) != sha256.Size {
		t.Fatal("empty input must still produce a full digest")
	}
}

func TestHasher_ConcurrentUse(t *testing.T) {
	h := NewHasher(testHashKey)
	data := []byte("concurrent")
	want := h.Hash(data)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !bytes.Equal(h.Hash(data), want) {
				t.Error("pooled hashers must not leak state between uses")
			}
		}()
	}
	wg.Wait()
}
