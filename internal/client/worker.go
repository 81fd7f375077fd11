// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/crypto"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/platform"
	"github.com/MKhiriev/civic-sync/internal/service"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/internal/workers"
	"github.com/MKhiriev/civic-sync/models"
)

// ReplayProcess is the background execution context run as its own process.
// It shares only the local store with the foreground session and reports
// outcomes to it over the session's websocket listener.
type ReplayProcess struct {
	storages  *store.ClientStorages
	publisher *notify.WSPublisher
	workers   *workers.Workers

	logger *logger.Logger
}

// NewReplayProcess opens the store and wires the replay worker. Drains run
// on reconnect and every cfg.Workers.DrainInterval.
func NewReplayProcess(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger) (*ReplayProcess, error) {
	sealer, err := crypto.NewSealer(cfg.App.CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("create credential sealer: %w", err)
	}

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, cfg.App, logger)
	if err != nil {
		return nil, fmt.Errorf("create server adapter: %w", err)
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, sealer, logger)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	p := &ReplayProcess{
		storages:  storages,
		publisher: notify.NewWSPublisher(cfg.Notify.SessionURL, logger),
		logger:    logger,
	}

	replayer := service.NewReplayer(storages, serverAdapter, service.NewCredentialValidator(), p.publisher, service.ReplayerConfig{
		Lease:       cfg.Workers.ClaimLease,
		ItemTimeout: cfg.Adapter.RequestTimeout,
		Source:      models.SourceBackground,
	}, logger)

	host := platform.NewProcessHost(logger)
	replayWorker, err := workers.NewReplayWorker(host, replayer, cfg.Workers.DrainInterval, logger)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create replay worker: %w", err)
	}

	monitor := connectivity.NewMonitor(logger)
	host.TriggerOnReconnect(monitor, service.DrainName)
	signal := newSignal(cfg, logger)

	p.workers = workers.NewWorkers(
		workers.Func(func(ctx context.Context) error { return monitor.Run(ctx, signal) }),
		host,
		replayWorker,
	)

	return p, nil
}

// Run blocks until ctx is done or a component fails.
func (p *ReplayProcess) Run(ctx context.Context) error {
	defer p.close()

	p.logger.Info().Str("func", "ReplayProcess.Run").Msg("replay worker started")
	defer p.logger.Info().Str("func", "ReplayProcess.Run").Msg("replay worker stopped")

	if err := p.workers.Run(ctx); err != nil {
		return fmt.Errorf("replay worker: %w", err)
	}
	return nil
}

func (p *ReplayProcess) close() {
	if err := errors.Join(p.publisher.Close(), p.storages.Close()); err != nil {
		p.logger.Err(err).Str("func", "ReplayProcess.close").Msg("failed to close replay worker")
	}
}
