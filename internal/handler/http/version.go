package http

import (
	"net/http"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
)

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.WriteJSON(w, h.build, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.getVersion").Msg("failed to write version")
	}
}
