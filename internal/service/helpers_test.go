package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

// plainSealer keeps credentials readable; sealing has its own tests.
type plainSealer struct{}

func (plainSealer) Seal(p []byte) ([]byte, error) { return append([]byte(nil), p...), nil }
func (plainSealer) Open(s []byte) ([]byte, error) { return append([]byte(nil), s...), nil }

// signedCredential issues a session JWT expiring ttl from now.
func signedCredential(t *testing.T, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Issuer:    "civic-api",
		Subject:   "citizen-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte("key"))
	require.NoError(t, err)
	return signed
}

func testDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "civic.db")
}

// openStorages opens a storage set over dsn, the way each execution context
// does on its own.
func openStorages(t *testing.T, dsn string) *store.ClientStorages {
	t.Helper()
	st, err := store.NewClientStorages(context.Background(), config.ClientStorage{
		DB:                config.ClientDB{DSN: dsn},
		CompressThreshold: config.DefaultCompressThreshold,
	}, plainSealer{}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestStorages(t *testing.T) *store.ClientStorages {
	t.Helper()
	return openStorages(t, testDSN(t))
}

// fakeServer is a remote API that answers by payload. Submit blocks on gate
// when it is set.
type fakeServer struct {
	mu      sync.Mutex
	submits []string
	fail    map[string]error

	gate    chan struct{}
	entered chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{fail: make(map[string]error)}
}

func (f *fakeServer) Submit(ctx context.Context, action models.QueuedAction) (string, error) {
	f.mu.Lock()
	f.submits = append(f.submits, string(action.Payload))
	err := f.fail[string(action.Payload)]
	f.mu.Unlock()

	if f.gate != nil {
		f.entered <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err != nil {
		return "", err
	}
	return "srv-" + string(action.Payload), nil
}

func (f *fakeServer) Fetch(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("fetch is not used")
}

func (f *fakeServer) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submits...)
}

// queueIssue creates a pending issue record and queues its submission.
func queueIssue(t *testing.T, st *store.ClientStorages, payload string) (models.QueuedAction, models.MirrorRecord) {
	t.Helper()
	ctx := context.Background()

	rec, err := st.Mirror.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte(payload)})
	require.NoError(t, err)

	id := rec.ID
	action, err := st.ActionQueue.Enqueue(ctx, models.QueuedAction{
		Type:       models.ActionSubmitIssue,
		Payload:    []byte(payload),
		Credential: "token",
		LocalRefID: &id,
	})
	require.NoError(t, err)

	return action, rec
}

func recordStatus(t *testing.T, st *store.ClientStorages, id string) models.SyncStatus {
	t.Helper()
	rec, err := st.Mirror.GetByID(context.Background(), id)
	require.NoError(t, err)
	return rec.Status
}

func drainOutcomes(ch <-chan models.Outcome) []models.Outcome {
	var out []models.Outcome
	for {
		select {
		case o := <-ch:
			out = append(out, o)
		default:
			return out
		}
	}
}
