// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/mock"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

func newReplayer(st *store.ClientStorages, server adapter.ServerAdapter, publisher notify.Publisher, source models.OutcomeSource) Replayer {
	return NewReplayer(st, server, NewCredentialValidator(), publisher, ReplayerConfig{Source: source}, logger.Nop())
}

// ── Scenarios over a real store ──────────────────────────────────────────────

func TestReplayer_AcceptedAndRejectedActions(t *testing.T) {
	st := newTestStorages(t)
	ctx := context.Background()

	// A, B, C enqueued offline; the remote rejects B
	actionA, recA := queueIssue(t, st, "A")
	actionB, recB := queueIssue(t, st, "B")
	actionC, recC := queueIssue(t, st, "C")

	server := newFakeServer()
	server.fail["B"] = fmt.Errorf("%w: http 422: title is required", adapter.ErrValidation)

	bus := notify.NewBus(logger.Nop())
	outcomes, cancel := bus.Subscribe()
	defer cancel()

	report, err := newReplayer(st, server, bus, models.SourceForeground).Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.ReplayReport{Attempted: 3, Succeeded: 2, Failed: 1}, report)
	assert.Equal(t, []string{"A", "B", "C"}, server.Submitted())

	queued, err := st.ActionQueue.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, actionB.ID, queued[0].ID)
	assert.True(t, queued[0].Rejected)

	assert.Equal(t, models.StatusSynced, recordStatus(t, st, recA.ID))
	assert.Equal(t, models.StatusFailed, recordStatus(t, st, recB.ID))
	assert.Equal(t, models.StatusSynced, recordStatus(t, st, recC.ID))

	synced, err := st.Mirror.GetByID(ctx, recA.ID)
	require.NoError(t, err)
	require.NotNil(t, synced.ServerID)
	assert.Equal(t, "srv-A", *synced.ServerID)

	got := drainOutcomes(outcomes)
	require.Len(t, got, 3)
	byAction := map[string]models.Outcome{}
	for _, o := range got {
		byAction[o.ActionID] = o
		assert.Equal(t, models.SourceForeground, o.Source)
	}
	assert.Equal(t, models.OutcomeSuccess, byAction[actionA.ID].Result)
	assert.Equal(t, models.OutcomeSuccess, byAction[actionC.ID].Result)
	assert.Equal(t, models.OutcomeFailure, byAction[actionB.ID].Result)
	assert.Equal(t, models.FailureValidation, byAction[actionB.ID].Failure)

	// a parked action is not retried by the next pass
	report, err = newReplayer(st, server, notify.Discard, models.SourceForeground).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReplayReport{Skipped: 1}, report)
	assert.Len(t, server.Submitted(), 3)
}

func TestReplayer_SuccessfulPassEmptiesQueue(t *testing.T) {
	st := newTestStorages(t)
	ctx := context.Background()

	var records []models.MirrorRecord
	for _, p := range []string{"one", "two", "three", "four"} {
		_, rec := queueIssue(t, st, p)
		records = append(records, rec)
	}
	// an action with no mirror record
	_, err := st.ActionQueue.Enqueue(ctx, models.QueuedAction{
		Type:       models.ActionUpdatePreferences,
		Payload:    []byte("prefs"),
		Credential: "token",
		Priority:   5,
	})
	require.NoError(t, err)

	server := newFakeServer()
	report, err := newReplayer(st, server, notify.Discard, models.SourceForeground).Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Succeeded)
	assert.Equal(t, []string{"prefs", "one", "two", "three", "four"}, server.Submitted(), "priority first, then insertion order")

	n, err := st.ActionQueue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, rec := range records {
		assert.Equal(t, models.StatusSynced, recordStatus(t, st, rec.ID))
	}
}

func TestReplayer_ForegroundBackgroundRaceSubmitsOnce(t *testing.T) {
	dsn := testDSN(t)
	foreground := openStorages(t, dsn)
	background := openStorages(t, dsn)
	ctx := context.Background()

	_, rec := queueIssue(t, foreground, "race")

	server := newFakeServer()
	server.gate = make(chan struct{})
	server.entered = make(chan struct{}, 1)

	fg := newReplayer(foreground, server, notify.Discard, models.SourceForeground)
	bg := newReplayer(background, server, notify.Discard, models.SourceBackground)

	fgDone := make(chan models.ReplayReport, 1)
	go func() {
		report, err := fg.Drain(ctx)
		assert.NoError(t, err)
		fgDone <- report
	}()

	// the foreground pass is inside the remote call and holds the claim
	<-server.entered

	report, err := bg.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReplayReport{Skipped: 1}, report)

	close(server.gate)
	assert.Equal(t, 1, (<-fgDone).Succeeded)

	// the worker's next pass finds nothing left
	report, err = bg.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReplayReport{}, report)

	assert.Equal(t, []string{"race"}, server.Submitted())
	assert.Equal(t, models.StatusSynced, recordStatus(t, background, rec.ID))
}

func TestReplayer_ImmediateReplayAndPassSubmitOnce(t *testing.T) {
	st := newTestStorages(t)
	ctx := context.Background()

	action, rec := queueIssue(t, st, "immediate")

	server := newFakeServer()
	server.gate = make(chan struct{})
	server.entered = make(chan struct{}, 1)

	// one replayer serves both the immediate replay and the dispatcher's pass
	r := newReplayer(st, server, notify.Discard, models.SourceForeground)

	done := make(chan models.ReplayReport, 1)
	go func() {
		report, err := r.ReplayAction(ctx, action.ID)
		assert.NoError(t, err)
		done <- report
	}()

	<-server.entered

	report, err := r.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReplayReport{Skipped: 1}, report)

	close(server.gate)
	assert.Equal(t, 1, (<-done).Succeeded)

	assert.Equal(t, []string{"immediate"}, server.Submitted())
	assert.Equal(t, models.StatusSynced, recordStatus(t, st, rec.ID))
}

func TestReplayer_ConfirmedRecordIsNotResubmitted(t *testing.T) {
	st := newTestStorages(t)
	ctx := context.Background()

	_, rec := queueIssue(t, st, "confirmed")
	serverID := "srv-earlier"
	_, err := st.Mirror.Transition(ctx, rec.ID, &serverID, models.StatusSent, models.StatusSynced)
	require.NoError(t, err)

	server := newFakeServer()
	report, err := newReplayer(st, server, notify.Discard, models.SourceBackground).Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.ReplayReport{Skipped: 1}, report)
	assert.Empty(t, server.Submitted())

	n, err := st.ActionQueue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplayer_ReplayAction(t *testing.T) {
	st := newTestStorages(t)
	ctx := context.Background()

	action, rec := queueIssue(t, st, "single")
	queueIssue(t, st, "other")

	server := newFakeServer()
	r := newReplayer(st, server, notify.Discard, models.SourceForeground)

	report, err := r.ReplayAction(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []string{"single"}, server.Submitted())
	assert.Equal(t, models.StatusSynced, recordStatus(t, st, rec.ID))

	// already gone
	report, err = r.ReplayAction(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReplayReport{Skipped: 1}, report)
}

func TestReplayer_LateSuccessForDiscardedAction(t *testing.T) {
	st := newTestStorages(t)
	ctx := context.Background()

	action, rec := queueIssue(t, st, "late")

	server := newFakeServer()
	server.gate = make(chan struct{})
	server.entered = make(chan struct{}, 1)

	done := make(chan models.ReplayReport, 1)
	go func() {
		report, err := newReplayer(st, server, notify.Discard, models.SourceForeground).Drain(ctx)
		assert.NoError(t, err)
		done <- report
	}()

	<-server.entered
	// the user discards while the call is in flight
	require.NoError(t, st.ActionQueue.Remove(ctx, action.ID))
	close(server.gate)

	assert.Equal(t, 1, (<-done).Succeeded)
	assert.Equal(t, models.StatusSynced, recordStatus(t, st, rec.ID))
}

// ── Failure taxonomy with mocks ──────────────────────────────────────────────

type replayerMocks struct {
	queue     *mock.MockActionQueueRepository
	mirror    *mock.MockMirrorRepository
	server    *mock.MockServerAdapter
	publisher *mock.MockPublisher
}

func newMockReplayer(t *testing.T, cfg ReplayerConfig) (*replayer, replayerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := replayerMocks{
		queue:     mock.NewMockActionQueueRepository(ctrl),
		mirror:    mock.NewMockMirrorRepository(ctrl),
		server:    mock.NewMockServerAdapter(ctrl),
		publisher: mock.NewMockPublisher(ctrl),
	}
	storages := &store.ClientStorages{
		ActionQueue: m.queue,
		Mirror:      m.mirror,
	}

	r := NewReplayer(storages, m.server, NewCredentialValidator(), m.publisher, cfg, logger.Nop()).(*replayer)
	return r, m
}

func expectOutcome(m replayerMocks, result models.OutcomeResult, kind models.FailureKind) {
	m.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, o models.Outcome) error {
			if o.Result != result || o.Failure != kind {
				return fmt.Errorf("unexpected outcome %s/%s", o.Result, o.Failure)
			}
			return nil
		})
}

func TestReplayer_FailureKinds(t *testing.T) {
	ref := "rec-1"
	action := models.QueuedAction{ID: "act-1", Type: models.ActionSendMessage, Credential: "token", LocalRefID: &ref}

	tests := []struct {
		name      string
		submitErr error
		kind      models.FailureKind
	}{
		{name: "network", submitErr: fmt.Errorf("%w: POST /api/messages: connection refused", adapter.ErrTransient), kind: models.FailureTransient},
		{name: "server error", submitErr: fmt.Errorf("%w: http 503", adapter.ErrTransient), kind: models.FailureTransient},
		{name: "unauthorized", submitErr: fmt.Errorf("%w: http 401", adapter.ErrUnauthorized), kind: models.FailureUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := newMockReplayer(t, ReplayerConfig{Owner: "fg"})

			m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{action}, nil)
			m.queue.EXPECT().Claim(gomock.Any(), "act-1", "fg", defaultClaimLease).Return(true, nil)
			m.mirror.EXPECT().GetByID(gomock.Any(), ref).Return(models.MirrorRecord{ID: ref, Status: models.StatusPending}, nil)
			m.server.EXPECT().Submit(gomock.Any(), action).Return("", tt.submitErr)
			m.queue.EXPECT().Release(gomock.Any(), "act-1", "fg").Return(nil)
			expectOutcome(m, models.OutcomeFailure, tt.kind)
			// left queued, record untouched: no Remove, Reject or Transition

			report, err := r.Drain(context.Background())
			require.NoError(t, err)
			assert.Equal(t, models.ReplayReport{Attempted: 1, Failed: 1}, report)
		})
	}
}

func TestReplayer_ExpiredCredentialIsNotSent(t *testing.T) {
	token := signedCredential(t, -time.Minute)

	r, m := newMockReplayer(t, ReplayerConfig{Owner: "fg"})
	action := models.QueuedAction{ID: "act-1", Type: models.ActionSubmitIssue, Credential: token}

	m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{action}, nil)
	m.queue.EXPECT().Claim(gomock.Any(), "act-1", "fg", gomock.Any()).Return(true, nil)
	m.queue.EXPECT().Release(gomock.Any(), "act-1", "fg").Return(nil)
	expectOutcome(m, models.OutcomeFailure, models.FailureUnauthorized)

	report, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
}

func TestReplayer_StuckCallTimesOutAndPassContinues(t *testing.T) {
	r, m := newMockReplayer(t, ReplayerConfig{Owner: "fg", ItemTimeout: 20 * time.Millisecond})
	stuck := models.QueuedAction{ID: "stuck", Type: models.ActionSubmitIssue, Credential: "token"}
	next := models.QueuedAction{ID: "next", Type: models.ActionSubmitIssue, Credential: "token"}

	m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{stuck, next}, nil)
	m.queue.EXPECT().Claim(gomock.Any(), gomock.Any(), "fg", gomock.Any()).Return(true, nil).Times(2)
	m.queue.EXPECT().Release(gomock.Any(), gomock.Any(), "fg").Return(nil).Times(2)

	m.server.EXPECT().Submit(gomock.Any(), stuck).DoAndReturn(func(ctx context.Context, _ models.QueuedAction) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("%w: %w", adapter.ErrTransient, ctx.Err())
	})
	m.server.EXPECT().Submit(gomock.Any(), next).Return("srv-next", nil)
	m.queue.EXPECT().Remove(gomock.Any(), "next").Return(nil)

	gomock.InOrder(
		m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil),
		m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil),
	)

	start := time.Now()
	report, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.ReplayReport{Attempted: 2, Succeeded: 1, Failed: 1}, report)
}

func TestReplayer_ClaimedElsewhereIsSkipped(t *testing.T) {
	r, m := newMockReplayer(t, ReplayerConfig{Owner: "bg"})
	action := models.QueuedAction{ID: "act-1", Credential: "token"}

	m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{action}, nil)
	m.queue.EXPECT().Claim(gomock.Any(), "act-1", "bg", gomock.Any()).Return(false, nil)

	report, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ReplayReport{Skipped: 1}, report)
}

func TestReplayer_StorageFailures(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		r, m := newMockReplayer(t, ReplayerConfig{})
		m.queue.EXPECT().List(gomock.Any()).Return(nil, store.ErrStorageCorrupted)

		_, err := r.Drain(context.Background())
		assert.ErrorIs(t, err, store.ErrStorageCorrupted)
	})

	t.Run("claim", func(t *testing.T) {
		r, m := newMockReplayer(t, ReplayerConfig{Owner: "fg"})
		m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{{ID: "a"}}, nil)
		m.queue.EXPECT().Claim(gomock.Any(), "a", "fg", gomock.Any()).Return(false, store.ErrStorageUnavailable)
		expectOutcome(m, models.OutcomeFailure, models.FailureStorage)

		report, err := r.Drain(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("remove after success", func(t *testing.T) {
		r, m := newMockReplayer(t, ReplayerConfig{Owner: "fg"})
		ref := "rec-1"
		action := models.QueuedAction{ID: "a", Credential: "token", LocalRefID: &ref}
		serverID := "srv-1"

		m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{action}, nil)
		m.queue.EXPECT().Claim(gomock.Any(), "a", "fg", gomock.Any()).Return(true, nil)
		m.mirror.EXPECT().GetByID(gomock.Any(), ref).Return(models.MirrorRecord{Status: models.StatusPending}, nil)
		m.server.EXPECT().Submit(gomock.Any(), action).Return(serverID, nil)
		// the record is marked before the action is removed
		gomock.InOrder(
			m.mirror.EXPECT().Transition(gomock.Any(), ref, &serverID, models.StatusSent, models.StatusSynced).
				Return(models.MirrorRecord{Status: models.StatusSynced}, nil),
			m.queue.EXPECT().Remove(gomock.Any(), "a").Return(store.ErrStorageFull),
		)
		m.queue.EXPECT().Release(gomock.Any(), "a", "fg").Return(nil)
		expectOutcome(m, models.OutcomeSuccess, models.FailureNone)

		report, err := r.Drain(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded)
	})
}

func TestReplayer_CancelledPassStops(t *testing.T) {
	r, m := newMockReplayer(t, ReplayerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.queue.EXPECT().List(gomock.Any()).Return([]models.QueuedAction{{ID: "a"}}, nil)

	_, err := r.Drain(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReplayer_DefaultsAndOwner(t *testing.T) {
	st := &store.ClientStorages{}
	a := NewReplayer(st, nil, nil, nil, ReplayerConfig{Source: models.SourceBackground}, logger.Nop()).(*replayer)
	b := NewReplayer(st, nil, nil, nil, ReplayerConfig{Source: models.SourceBackground}, logger.Nop()).(*replayer)

	assert.NotEqual(t, a.owner, b.owner)
	assert.Contains(t, a.owner, "background-")
	assert.Equal(t, defaultClaimLease, a.lease)
	assert.Equal(t, defaultItemTimeout, a.itemTimeout)
	assert.Equal(t, notify.Discard, a.publisher)
}
