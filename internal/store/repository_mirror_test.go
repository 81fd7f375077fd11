// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/civic-sync/models"
)

func newTestMirror(t *testing.T) (*mirrorRepository, *DB) {
	t.Helper()
	db := newTestDB(t)
	return NewMirrorRepository(db, 64).(*mirrorRepository), db
}

func strPtr(s string) *string { return &s }

func TestMirror_UpsertNewRecord(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte(`{"t":"lamp"}`)})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, models.StatusPending, rec.Status)

	got, err := m.Get(ctx, models.KindIssue, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, []byte(`{"t":"lamp"}`), got.Payload)
	assert.Nil(t, got.ServerID)
}

func TestMirror_GetWrongKind(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("x")})
	require.NoError(t, err)

	_, err = m.Get(ctx, models.KindDraft, rec.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = m.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMirror_UpsertVersionRules(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindDraft, Payload: []byte("v1")})
	require.NoError(t, err)

	// zero version bumps
	rec, err = m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindDraft, Payload: []byte("v2")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)

	// higher version is written as is
	rec, err = m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindDraft, Payload: []byte("v7"), Version: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Version)

	// stale version loses and the stored record is returned
	stored, err := m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindDraft, Payload: []byte("stale"), Version: 5})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(7), stored.Version)
	assert.Equal(t, []byte("v7"), stored.Payload)

	// equal version loses too
	_, err = m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindDraft, Payload: []byte("same"), Version: 7})
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v7"), got.Payload)
}

func TestMirror_UpsertKnownIDCreatesRecord(t *testing.T) {
	m, _ := newTestMirror(t)

	rec, err := m.Upsert(context.Background(), models.MirrorRecord{
		ID:       "server-side-42",
		ServerID: strPtr("42"),
		Kind:     models.KindResource,
		Payload:  []byte("r"),
		Status:   models.StatusSynced,
		Version:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Version)
	assert.Equal(t, models.StatusSynced, rec.Status)
}

func TestMirror_UpsertRejectsInvalidStatusChange(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("x")})
	require.NoError(t, err)

	_, err = m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindIssue, Payload: []byte("x"), Status: models.StatusSynced})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindIssue, Payload: []byte("x"), Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestMirror_VersionNeverDecreases(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindPreference, Payload: []byte("p")})
	require.NoError(t, err)

	last := rec.Version
	for _, v := range []int64{0, 5, 3, 0, 5, 9, 1, 0} {
		got, _ := m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindPreference, Payload: []byte("p"), Version: v})
		assert.GreaterOrEqual(t, got.Version, last)
		last = got.Version
	}

	stored, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Version)
}

func TestMirror_ConcurrentBumpsConverge(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindDraft, Payload: []byte("d")})
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Upsert(ctx, models.MirrorRecord{ID: rec.ID, Kind: models.KindDraft, Payload: []byte("d")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1+writers), got.Version)
}

func TestMirror_TransitionToSynced(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("x")})
	require.NoError(t, err)

	got, err := m.Transition(ctx, rec.ID, strPtr("srv-9"), models.StatusSent, models.StatusSynced)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	require.NotNil(t, got.ServerID)
	assert.Equal(t, "srv-9", *got.ServerID)
	assert.Equal(t, rec.Version+2, got.Version)

	// already at target is a no-op
	again, err := m.Transition(ctx, rec.ID, strPtr("srv-9"), models.StatusSent, models.StatusSynced)
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)

	stored, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, stored.Status)
	assert.Equal(t, "srv-9", *stored.ServerID)
	assert.Equal(t, got.Version, stored.Version)
}

func TestMirror_TransitionSkipsStepsBehind(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("x")})
	require.NoError(t, err)

	_, err = m.Transition(ctx, rec.ID, nil, models.StatusSent)
	require.NoError(t, err)

	got, err := m.Transition(ctx, rec.ID, strPtr("srv"), models.StatusSent, models.StatusSynced)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, rec.Version+2, got.Version)
}

func TestMirror_TransitionFailedAndResubmitted(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindOutgoingMessage, Payload: []byte("x")})
	require.NoError(t, err)

	got, err := m.Transition(ctx, rec.ID, nil, models.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)

	_, err = m.Transition(ctx, rec.ID, nil, models.StatusSent)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	got, err = m.Transition(ctx, rec.ID, nil, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestMirror_TransitionErrors(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	_, err := m.Transition(ctx, "missing", nil, models.StatusSent)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("x")})
	require.NoError(t, err)

	_, err = m.Transition(ctx, rec.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = m.Transition(ctx, rec.ID, nil, models.StatusSynced)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	stored, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, rec.Version, stored.Version)
}

func TestMirror_QueryFilters(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	issue, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("i")})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("i2")})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, models.MirrorRecord{Kind: models.KindDraft, Payload: []byte("d")})
	require.NoError(t, err)
	_, err = m.Transition(ctx, issue.ID, strPtr("s1"), models.StatusSent, models.StatusSynced)
	require.NoError(t, err)

	issues, err := m.Query(ctx, models.MirrorFilter{Kind: models.KindIssue})
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	synced, err := m.Query(ctx, models.MirrorFilter{Kind: models.KindIssue, Statuses: []models.SyncStatus{models.StatusSynced}})
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, issue.ID, synced[0].ID)

	all, err := m.Query(ctx, models.MirrorFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := m.Query(ctx, models.MirrorFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	future := time.Now().Add(time.Hour)
	before, err := m.Query(ctx, models.MirrorFilter{UpdatedBefore: &future})
	require.NoError(t, err)
	assert.Len(t, before, 3)

	past := time.Now().Add(-time.Hour)
	none, err := m.Query(ctx, models.MirrorFilter{UpdatedBefore: &past})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMirror_FullTextSearch(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	parking, err := m.Upsert(ctx, models.MirrorRecord{
		Kind:       models.KindPolicy,
		Payload:    []byte(`{"id":1}`),
		SearchText: "Residential parking permits for downtown",
	})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, models.MirrorRecord{
		Kind:       models.KindPolicy,
		Payload:    []byte(`{"id":2}`),
		SearchText: "Recycling collection schedule",
	})
	require.NoError(t, err)
	// non text-bearing kinds are not indexed
	_, err = m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("parking lot lamp")})
	require.NoError(t, err)

	found, err := m.Query(ctx, models.MirrorFilter{Text: "parking"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, parking.ID, found[0].ID)

	// reindexed on update
	_, err = m.Upsert(ctx, models.MirrorRecord{
		ID:         parking.ID,
		Kind:       models.KindPolicy,
		Payload:    []byte(`{"id":1}`),
		SearchText: "Street cleaning rules",
	})
	require.NoError(t, err)

	found, err = m.Query(ctx, models.MirrorFilter{Text: "parking"})
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = m.Query(ctx, models.MirrorFilter{Text: "cleaning"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	// deleting the row deletes its index entry
	require.NoError(t, m.Delete(ctx, models.KindPolicy, parking.ID))

	var indexed int
	require.NoError(t, m.DB.QueryRow(`SELECT COUNT(*) FROM mirror_fts WHERE record_id = ?`, parking.ID).Scan(&indexed))
	assert.Zero(t, indexed)
}

func TestMirror_CompressedPayloadRoundTrip(t *testing.T) {
	m, db := newTestMirror(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("long policy text "), 100)
	rec, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindResource, Payload: payload})
	require.NoError(t, err)

	var compressed bool
	require.NoError(t, db.QueryRow(`SELECT compressed FROM mirror_records WHERE id = ?`, rec.ID).Scan(&compressed))
	assert.True(t, compressed)

	got, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
}

func TestMirror_CorruptPayloadIsUnavailable(t *testing.T) {
	m, db := newTestMirror(t)
	ctx := context.Background()

	bad, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("ok")})
	require.NoError(t, err)
	good, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("ok")})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE mirror_records SET payload = x'1f8b00', compressed = 1 WHERE id = ?`, bad.ID)
	require.NoError(t, err)

	_, err = m.GetByID(ctx, bad.ID)
	assert.ErrorIs(t, err, ErrEntityUnavailable)

	records, err := m.Query(ctx, models.MirrorFilter{Kind: models.KindIssue})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, good.ID, records[0].ID)
}

func TestMirror_DeleteMissingIsNoop(t *testing.T) {
	m, _ := newTestMirror(t)
	assert.NoError(t, m.Delete(context.Background(), models.KindIssue, "missing"))
}

func TestMirror_PurgeBeforeKeepsUnsynced(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	old := time.Now().Add(-100 * 24 * time.Hour)
	m.now = func() time.Time { return old }

	oldSynced, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindPolicy, Payload: []byte("a"), SearchText: "old policy"})
	require.NoError(t, err)
	_, err = m.Transition(ctx, oldSynced.ID, strPtr("1"), models.StatusSent, models.StatusSynced)
	require.NoError(t, err)

	oldPending, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("b")})
	require.NoError(t, err)

	oldFailed, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("c")})
	require.NoError(t, err)
	_, err = m.Transition(ctx, oldFailed.ID, nil, models.StatusFailed)
	require.NoError(t, err)

	m.now = time.Now
	fresh, err := m.Upsert(ctx, models.MirrorRecord{Kind: models.KindIssue, Payload: []byte("d")})
	require.NoError(t, err)
	_, err = m.Transition(ctx, fresh.ID, strPtr("2"), models.StatusSent, models.StatusSynced)
	require.NoError(t, err)

	purged, err := m.PurgeBefore(ctx, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = m.GetByID(ctx, oldSynced.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	for _, id := range []string{oldPending.ID, oldFailed.ID, fresh.ID} {
		_, err = m.GetByID(ctx, id)
		assert.NoError(t, err)
	}

	found, err := m.Query(ctx, models.MirrorFilter{Text: "policy"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBuildMirrorQuery(t *testing.T) {
	before := time.Unix(0, 1000)

	query, args, err := buildMirrorQuery(models.MirrorFilter{
		Kind:          models.KindPolicy,
		Statuses:      []models.SyncStatus{models.StatusPending, models.StatusFailed},
		UpdatedBefore: &before,
		Text:          "parking",
		Limit:         5,
	})
	require.NoError(t, err)

	assert.Contains(t, query, "kind = ?")
	assert.Contains(t, query, "status IN (?,?)")
	assert.Contains(t, query, "updated_at < ?")
	assert.Contains(t, query, "MATCH ?")
	assert.Contains(t, query, "LIMIT 5")
	assert.Equal(t, []any{"policy", "pending", "failed", int64(1000), "parking"}, args)
}
