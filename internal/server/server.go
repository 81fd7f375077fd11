package server

import (
	"net/http"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
)

// NewServer builds the outcome listener on cfg.ListenAddress.
func NewServer(handler http.Handler, cfg config.ClientNotify, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if cfg.ListenAddress == "" {
		return nil, errNoListenAddress
	}

	return newHTTPServer(handler, cfg.ListenAddress, logger), nil
}
