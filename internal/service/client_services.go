package service

import (
	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/platform"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

// ClientServices is the sync core as seen by the foreground session.
type ClientServices struct {
	Replayer    Replayer
	Dispatcher  SyncDispatcher
	Actions     ActionService
	Cache       ResponseCache
	Documents   DocumentService
	Quota       QuotaManager
	SyncJob     SyncJob
	Credentials CredentialValidator
}

// ClientDeps are the collaborators the services run on. Host may be nil.
type ClientDeps struct {
	Storages  *store.ClientStorages
	Server    adapter.ServerAdapter
	Source    adapter.DocumentSource
	Monitor   *connectivity.Monitor
	Host      platform.BackgroundHost
	Publisher notify.Publisher
}

func NewClientServices(deps ClientDeps, cfg *config.ClientConfig, logger *logger.Logger) *ClientServices {
	credentials := NewCredentialValidator()
	replayer := NewReplayer(deps.Storages, deps.Server, credentials, deps.Publisher, ReplayerConfig{
		Lease:       cfg.Workers.ClaimLease,
		ItemTimeout: cfg.Adapter.RequestTimeout,
		Source:      models.SourceForeground,
	}, logger)

	dispatcher := NewSyncDispatcher(deps.Storages.ActionQueue, replayer, deps.Monitor, deps.Host, credentials, logger)

	return &ClientServices{
		Replayer:    replayer,
		Dispatcher:  dispatcher,
		Actions:     NewActionService(deps.Storages, replayer, deps.Monitor, logger),
		Cache:       NewResponseCache(deps.Storages.ResponseCache, deps.Server, cfg.Cache.MaxAge, logger),
		Documents:   NewDocumentService(deps.Storages.Documents, deps.Source, cfg.Storage.Documents.MaxBytes, logger),
		Quota:       NewQuotaManager(deps.Storages, cfg.Storage.Quota, logger),
		SyncJob:     NewSyncJob(dispatcher, logger),
		Credentials: credentials,
	}
}
