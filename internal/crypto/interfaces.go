package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/sealer_mock.go -package=mock

// CredentialSealer protects opaque credentials that sit in the durable action
// queue until replay. It knows nothing about the queue or the network.
//
// Blob layout produced by Seal:
//
//	salt (16 bytes) || nonce (12 bytes) || AES-GCM ciphertext
type CredentialSealer interface {
	// Seal encrypts plaintext with a key derived from the configured secret
	// through Argon2id. The derivation salt travels with the blob, so a
	// worker process started with the same secret can open it.
	Seal(plaintext []byte) ([]byte, error)

	// Open reverses Seal. Returns ErrSealedTooShort for truncated input and
	// ErrOpenFailed when authentication fails (wrong secret or corruption).
	Open(sealed []byte) ([]byte, error)
}
