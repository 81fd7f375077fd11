package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/civic-sync/internal/app"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/service"
	"github.com/MKhiriev/civic-sync/internal/utils"
)

type statusResponse struct {
	Online   bool   `json:"online"`
	Dispatch string `json:"dispatch"`
	Queued   int    `json:"queued"`
	Rejected int    `json:"rejected"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	pending, err := h.services.Actions.Pending(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.status").Msg("failed to read queue")
		utils.WriteError(w, app.MsgQueueUnavailable, http.StatusInternalServerError)
		return
	}

	resp := statusResponse{
		Online:   h.monitor.Online(),
		Dispatch: h.services.Dispatcher.State().String(),
		Queued:   len(pending),
	}
	for _, action := range pending {
		if action.Rejected {
			resp.Rejected++
		}
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) syncNow(w http.ResponseWriter, r *http.Request) {
	report, err := h.services.Dispatcher.SyncNow(r.Context())
	switch {
	case err == nil:
		utils.WriteJSON(w, report, http.StatusOK)
	case errors.Is(err, service.ErrOffline):
		utils.WriteError(w, app.MsgOffline, http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrDispatchInProgress):
		utils.WriteError(w, app.MsgSyncInProgress, http.StatusConflict)
	default:
		logger.FromRequest(r).Err(err).Str("func", "*Handler.syncNow").Msg("manual sync failed")
		utils.WriteError(w, app.MsgSyncFailed, http.StatusInternalServerError)
	}
}
