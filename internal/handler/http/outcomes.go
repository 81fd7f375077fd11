// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"nhooyr.io/websocket"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
)

// receiveOutcomes upgrades to a websocket and forwards every outcome the
// worker sends until it disconnects.
func (h *Handler) receiveOutcomes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Err(err).Str("func", "*Handler.receiveOutcomes").Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	log.Info().Str("func", "*Handler.receiveOutcomes").Msg("background worker connected")

	if err = notify.Receive(r.Context(), conn, h.outcomes); err != nil {
		log.Warn().Err(err).Str("func", "*Handler.receiveOutcomes").Msg("outcome stream ended")
		return
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
