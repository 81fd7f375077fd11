// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
)

const saltSize = 16

var (
	// ErrSealedTooShort is returned by Open when the blob cannot hold a salt
	// and a nonce.
	ErrSealedTooShort = errors.New("sealed credential too short")

	// ErrOpenFailed is returned by Open when AES-GCM authentication fails.
	ErrOpenFailed = errors.New("failed to open sealed credential")
)

// sealer is the private implementation of [CredentialSealer].
type sealer struct {
	secret []byte

	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target (e.g. mobile vs. desktop).
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32

	// salt is generated once per sealer; every blob sealed by this
	// instance carries it.
	salt []byte

	mu   sync.Mutex
	keys map[string][]byte
}

// NewSealer constructs a [CredentialSealer] keyed by secret, with the
// Argon2id parameters recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewSealer(secret string) (CredentialSealer, error) {
	return newSealer(secret, 1, 64*1024, 4)
}

func newSealer(secret string, argonTime, argonMemory uint32, argonThreads uint8) (*sealer, error) {
	if secret == "" {
		return nil, errors.New("empty sealing secret")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}

	return &sealer{
		secret:       []byte(secret),
		argonTime:    argonTime,
		argonMemory:  argonMemory,
		argonThreads: argonThreads,
		argonKeyLen:  32, // 256 bits
		salt:         salt,
		keys:         make(map[string][]byte),
	}, nil
}

// Seal implements [CredentialSealer]. A random 12-byte nonce is placed after
// the salt so that Open can split both out: blob = salt ‖ nonce ‖ ciphertext.
func (s *sealer) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := s.gcm(s.salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, s.salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Open implements [CredentialSealer].
func (s *sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize {
		return nil, ErrSealedTooShort
	}

	salt := sealed[:saltSize]
	gcm, err := s.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < saltSize+nonceSize {
		return nil, ErrSealedTooShort
	}

	nonce, ciphertext := sealed[saltSize:saltSize+nonceSize], sealed[saltSize+nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	return plaintext, nil
}

func (s *sealer) gcm(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key(salt))
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// key derives (once per salt) the AES key with Argon2id.
func (s *sealer) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[string(salt)]; ok {
		return k
	}

	k := argon2.IDKey(s.secret, salt, s.argonTime, s.argonMemory, s.argonThreads, s.argonKeyLen)
	s.keys[string(salt)] = k
	return k
}
