package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MKhiriev/civic-sync/internal/notify"
)

// traceIDHeader is shared with the publisher side, so every outcome a
// worker connection delivers is logged under that connection's id.
const traceIDHeader = notify.TraceIDHeader

func (h *Handler) withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = h.ids.Generate()
		}

		l := h.logger.GetChildLogger()
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			c = c.Str("trace_id", traceID)
			if isUpgrade(r) {
				c = c.Bool("outcome_channel", true)
			}
			return c
		})

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

// isUpgrade reports whether r opens a websocket.
func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != ""
}
