package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap Argon2id parameters keep the suite fast
func testSealer(t *testing.T, secret string) *sealer {
	t.Helper()
	s, err := newSealer(secret, 1, 1024, 1)
	require.NoError(t, err)
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := testSealer(t, "device-secret")

	sealed, err := s.Seal([]byte("bearer-token"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "bearer-token")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", string(plain))
}

func TestSealer_NonceRandomness(t *testing.T) {
	s := testSealer(t, "device-secret")

	a, err := s.Seal([]byte("token"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("token"))
	require.NoError(t, err)

	assert.False(t, bytes.Equal(a, b), "two seals of the same plaintext must differ")
}

func TestSealer_OpenAcrossInstancesWithSameSecret(t *testing.T) {
	foreground := testSealer(t, "shared-secret")
	worker := testSealer(t, "shared-secret")

	sealed, err := foreground.Seal([]byte("token"))
	require.NoError(t, err)

	plain, err := worker.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", string(plain))
}

func TestSealer_WrongSecret(t *testing.T) {
	sealed, err := testSealer(t, "right").Seal([]byte("token"))
	require.NoError(t, err)

	_, err = testSealer(t, "wrong").Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestSealer_Tampered(t *testing.T) {
	s := testSealer(t, "secret")
	sealed, err := s.Seal([]byte("token"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF

	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestSealer_TooShort(t *testing.T) {
	s := testSealer(t, "secret")

	_, err := s.Open([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrSealedTooShort)

	_, err = s.Open(make([]byte, saltSize+4))
	assert.ErrorIs(t, err, ErrSealedTooShort)
}

func TestSealer_EmptyPlaintext(t *testing.T) {
	s := testSealer(t, "secret")

	sealed, err := s.Seal(nil)
	require.NoError(t, err)

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestNewSealer_EmptySecret(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}
