package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/crypto"
	handler "github.com/MKhiriev/civic-sync/internal/handler/http"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/platform"
	"github.com/MKhiriev/civic-sync/internal/server"
	"github.com/MKhiriev/civic-sync/internal/service"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/internal/workers"
	"github.com/MKhiriev/civic-sync/models"
)

// App is the foreground session: the sync core as the application sees it,
// plus the listener that receives outcomes from the background worker.
type App struct {
	cfg      *config.ClientConfig
	services *service.ClientServices
	monitor  *connectivity.Monitor
	outcomes *notify.Bus
	workers  *workers.Workers

	closers []func() error
	logger  *logger.Logger
}

// NewApp opens the local store and wires every component of the foreground
// session. Nothing runs until [App.Run] is called.
//
// With cfg.Workers.Background set, the replay worker is hosted in-process on
// its own store connection and the dispatcher delegates drains to it.
func NewApp(ctx context.Context, cfg *config.ClientConfig, build models.AppBuildInfo, logger *logger.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		monitor:  connectivity.NewMonitor(logger),
		outcomes: notify.NewBus(logger),
		logger:   logger,
	}

	if err := a.init(ctx, build); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context, build models.AppBuildInfo) error {
	sealer, err := crypto.NewSealer(a.cfg.App.CredentialKey)
	if err != nil {
		return fmt.Errorf("create credential sealer: %w", err)
	}

	storages, err := store.NewClientStorages(ctx, a.cfg.Storage, sealer, a.logger)
	if err != nil {
		return fmt.Errorf("create local storage: %w", err)
	}
	a.closers = append(a.closers, storages.Close)

	serverAdapter, err := adapter.NewHTTPServerAdapter(a.cfg.Adapter, a.cfg.App, a.logger)
	if err != nil {
		return fmt.Errorf("create server adapter: %w", err)
	}

	source, err := adapter.NewDocumentSource(ctx, a.cfg.Storage.Documents, a.cfg.Adapter, a.logger)
	if err != nil {
		return fmt.Errorf("create document source: %w", err)
	}

	deps := service.ClientDeps{
		Storages:  storages,
		Server:    serverAdapter,
		Source:    source,
		Monitor:   a.monitor,
		Publisher: a.outcomes,
	}

	var background []workers.Worker
	if a.cfg.Workers.Background {
		host := platform.NewProcessHost(a.logger)

		// a second connection so both contexts contend through the store
		// exactly as two processes would
		bgStorages, err := store.NewClientStorages(ctx, a.cfg.Storage, sealer, a.logger)
		if err != nil {
			return fmt.Errorf("create background storage: %w", err)
		}
		a.closers = append(a.closers, bgStorages.Close)

		replayer := service.NewReplayer(bgStorages, serverAdapter, service.NewCredentialValidator(), a.outcomes, service.ReplayerConfig{
			Lease:       a.cfg.Workers.ClaimLease,
			ItemTimeout: a.cfg.Adapter.RequestTimeout,
			Source:      models.SourceBackground,
		}, a.logger)

		replayWorker, err := workers.NewReplayWorker(host, replayer, a.cfg.Workers.DrainInterval, a.logger)
		if err != nil {
			return fmt.Errorf("create replay worker: %w", err)
		}

		deps.Host = host
		background = append(background, host, replayWorker)
	}

	a.services = service.NewClientServices(deps, a.cfg, a.logger)

	h := handler.NewHandler(a.services, a.monitor, a.outcomes, build, a.logger)
	listener, err := server.NewServer(h.Init(), a.cfg.Notify, a.logger)
	if err != nil {
		return fmt.Errorf("create outcome listener: %w", err)
	}

	signal := newSignal(a.cfg, a.logger)
	run := []workers.Worker{
		workers.Func(func(ctx context.Context) error { return a.monitor.Run(ctx, signal) }),
		a.services.Dispatcher,
		listener,
		workers.NewQuotaWorker(a.services.Quota, a.services.Documents, a.cfg.Storage.Documents.Keep, a.cfg.Workers.QuotaInterval, a.logger),
		workers.Func(a.logOutcomes),
	}
	a.workers = workers.NewWorkers(append(run, background...)...)

	return nil
}

// Services exposes the sync core to the embedding application.
func (a *App) Services() *service.ClientServices {
	return a.services
}

// Monitor exposes the connectivity state.
func (a *App) Monitor() *connectivity.Monitor {
	return a.monitor
}

// Outcomes subscribes to replay outcomes from both execution contexts.
func (a *App) Outcomes() (<-chan models.Outcome, func()) {
	return a.outcomes.Subscribe()
}

// Run starts every component and blocks until ctx is done or one of them
// fails. The local store is closed on return.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.logger.Info().Str("func", "App.Run").Msg("client session started")
	defer a.logger.Info().Str("func", "App.Run").Msg("client session stopped")

	a.services.SyncJob.Start(ctx, a.cfg.Workers.DrainInterval)
	defer a.services.SyncJob.Stop()

	if err := a.workers.Run(ctx); err != nil {
		return fmt.Errorf("client session: %w", err)
	}
	return nil
}

func (a *App) logOutcomes(ctx context.Context) error {
	ch, cancel := a.outcomes.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case o, ok := <-ch:
			if !ok {
				return nil
			}
			a.logger.Info().
				Str("func", "App.logOutcomes").
				Str("action_id", o.ActionID).
				Str("outcome", string(o.Result)).
				Str("failure", string(o.Failure)).
				Str("source", string(o.Source)).
				Msg("replay outcome")
		}
	}
}

func (a *App) close() {
	a.outcomes.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	if err := errors.Join(errs...); err != nil {
		a.logger.Err(err).Str("func", "App.close").Msg("failed to close local storage")
	}
}

// newSignal watches the host reachability file when one is configured and
// probes the remote health endpoint otherwise.
func newSignal(cfg *config.ClientConfig, logger *logger.Logger) connectivity.Signal {
	if cfg.Workers.ReachabilityFile != "" {
		return connectivity.NewFileSignal(cfg.Workers.ReachabilityFile, logger)
	}
	return connectivity.NewHTTPProbe(cfg.Adapter.HTTPAddress, cfg.Adapter.HealthPath, cfg.Workers.ProbeInterval, cfg.Adapter.RequestTimeout, logger)
}
