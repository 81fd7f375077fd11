package http

import (
	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/service"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

type Handler struct {
	services *service.ClientServices
	monitor  *connectivity.Monitor
	outcomes notify.Publisher
	build    models.AppBuildInfo
	ids      *utils.UUIDGenerator

	logger *logger.Logger
}

// NewHandler builds the handler. Outcomes received from the background
// worker are forwarded to outcomes.
func NewHandler(services *service.ClientServices, monitor *connectivity.Monitor, outcomes notify.Publisher, build models.AppBuildInfo, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		monitor:  monitor,
		outcomes: outcomes,
		build:    build,
		ids:      utils.NewUUIDGenerator(),
		logger:   logger,
	}
}
