package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/service"
	"github.com/MKhiriev/civic-sync/models"
)

// ─────────────────────────────────────────────
// Stubs
// ─────────────────────────────────────────────

// stubActions implements the part of service.ActionService the handler uses.
type stubActions struct {
	service.ActionService
	pending []models.QueuedAction
	err     error
}

func (s *stubActions) Pending(context.Context) ([]models.QueuedAction, error) {
	return s.pending, s.err
}

type stubDispatcher struct {
	state  service.DispatchState
	report models.ReplayReport
	err    error
}

func (s *stubDispatcher) State() service.DispatchState { return s.state }

func (s *stubDispatcher) SyncNow(context.Context) (models.ReplayReport, error) {
	return s.report, s.err
}

func (s *stubDispatcher) Run(context.Context) error { return nil }

func newClientHandler(t *testing.T, actions *stubActions, dispatcher *stubDispatcher, outcomes notify.Publisher) (*Handler, *connectivity.Monitor) {
	t.Helper()
	monitor := connectivity.NewMonitor(logger.Nop())
	services := &service.ClientServices{Actions: actions, Dispatcher: dispatcher}
	build := models.NewAppBuildInfo("1.4.0", "2026-10-01", "abc123")
	return NewHandler(services, monitor, outcomes, build, logger.Nop()), monitor
}

// ─────────────────────────────────────────────
// NewHandler
// ─────────────────────────────────────────────

func TestNewHandler_StoresDependencies(t *testing.T) {
	services := &service.ClientServices{}
	monitor := connectivity.NewMonitor(logger.Nop())
	log := logger.Nop()

	h := NewHandler(services, monitor, notify.Discard, models.AppBuildInfo{}, log)

	require.NotNil(t, h)
	assert.Same(t, services, h.services)
	assert.Same(t, monitor, h.monitor)
	assert.Equal(t, log, h.logger)
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func TestHealth(t *testing.T) {
	h, _ := newClientHandler(t, &stubActions{}, &stubDispatcher{}, notify.Discard)

	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatus(t *testing.T) {
	actions := &stubActions{pending: []models.QueuedAction{
		{ID: "a"},
		{ID: "b", Rejected: true},
		{ID: "c"},
	}}
	h, monitor := newClientHandler(t, actions, &stubDispatcher{state: service.StateDispatching}, notify.Discard)
	monitor.Set(true)

	rec := httptest.NewRecorder()
	h.status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"online":true,"dispatch":"dispatching","queued":3,"rejected":1}`, rec.Body.String())
}

func TestStatus_QueueUnavailable(t *testing.T) {
	h, _ := newClientHandler(t, &stubActions{err: assert.AnError}, &stubDispatcher{}, notify.Discard)

	rec := httptest.NewRecorder()
	h.status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSyncNow(t *testing.T) {
	tests := []struct {
		name       string
		dispatcher *stubDispatcher
		wantStatus int
		wantBody   string
	}{
		{
			name:       "pass ran",
			dispatcher: &stubDispatcher{report: models.ReplayReport{Attempted: 2, Succeeded: 1, Failed: 1}},
			wantStatus: http.StatusOK,
			wantBody:   `{"attempted":2,"succeeded":1,"failed":1,"skipped":0,"delegated":false}`,
		},
		{
			name:       "offline",
			dispatcher: &stubDispatcher{err: service.ErrOffline},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "already dispatching",
			dispatcher: &stubDispatcher{err: service.ErrDispatchInProgress},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "failure",
			dispatcher: &stubDispatcher{err: assert.AnError},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"sync failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newClientHandler(t, &stubActions{}, tt.dispatcher, notify.Discard)

			rec := httptest.NewRecorder()
			h.syncNow(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	h, _ := newClientHandler(t, &stubActions{}, &stubDispatcher{}, notify.Discard)

	rec := httptest.NewRecorder()
	h.getVersion(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"version":"1.4.0","date":"2026-10-01","commit":"abc123"}`, rec.Body.String())
}
