// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/platform"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

// DrainName is the name the replay drain is registered under with the
// background host.
const DrainName = "replay"

type syncDispatcher struct {
	queue       store.ActionQueueRepository
	replayer    Replayer
	monitor     *connectivity.Monitor
	host        platform.BackgroundHost
	credentials CredentialValidator

	state atomic.Int32
	wg    sync.WaitGroup

	logger *logger.Logger
}

// NewSyncDispatcher builds the dispatcher. host may be nil when the platform
// offers no background execution; passes then always run in-process.
func NewSyncDispatcher(queue store.ActionQueueRepository, replayer Replayer, monitor *connectivity.Monitor, host platform.BackgroundHost, credentials CredentialValidator, logger *logger.Logger) SyncDispatcher {
	return &syncDispatcher{
		queue:       queue,
		replayer:    replayer,
		monitor:     monitor,
		host:        host,
		credentials: credentials,
		logger:      logger,
	}
}

func (d *syncDispatcher) State() DispatchState {
	return DispatchState(d.state.Load())
}

func (d *syncDispatcher) SyncNow(ctx context.Context) (models.ReplayReport, error) {
	if !d.monitor.Online() {
		return models.ReplayReport{}, ErrOffline
	}
	return d.dispatch(ctx)
}

// Run dispatches on online transitions. Each pass runs on its own goroutine
// so that a transition arriving mid-pass is seen, and ignored, while the
// dispatcher is busy.
func (d *syncDispatcher) Run(ctx context.Context) error {
	transitions, cancel := d.monitor.Subscribe()
	defer cancel()
	defer d.wg.Wait()

	d.logger.Info().Str("func", "syncDispatcher.Run").Msg("sync dispatcher started")

	if d.monitor.Online() {
		d.goDispatch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Str("func", "syncDispatcher.Run").Msg("sync dispatcher stopped")
			return nil
		case t, ok := <-transitions:
			if !ok {
				return nil
			}
			if t.Online {
				d.goDispatch(ctx)
			}
		}
	}
}

func (d *syncDispatcher) goDispatch(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		_, err := d.dispatch(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrDispatchInProgress):
			d.logger.Debug().Str("func", "syncDispatcher.Run").Msg("online transition ignored, pass in progress")
		default:
			d.logger.Err(err).Str("func", "syncDispatcher.Run").Msg("replay pass failed")
		}
	}()
}

func (d *syncDispatcher) dispatch(ctx context.Context) (models.ReplayReport, error) {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateDispatching)) {
		return models.ReplayReport{}, ErrDispatchInProgress
	}
	defer d.state.Store(int32(StateIdle))

	ready, err := d.ready(ctx)
	if err != nil {
		return models.ReplayReport{}, err
	}
	if !ready {
		d.logger.Debug().Str("func", "syncDispatcher.dispatch").Msg("nothing replayable, staying idle")
		return models.ReplayReport{}, nil
	}

	if d.host != nil && d.host.Available() {
		err = d.host.Trigger(ctx, DrainName)
		if err == nil {
			d.logger.Info().Str("func", "syncDispatcher.dispatch").Msg("replay delegated to background host")
			return models.ReplayReport{Delegated: true}, nil
		}
		d.logger.Warn().Err(err).Str("func", "syncDispatcher.dispatch").Msg("background host refused, replaying in-process")
	}

	report, err := d.replayer.Drain(ctx)
	if err != nil {
		return report, fmt.Errorf("in-process replay failed: %w", err)
	}
	return report, nil
}

// ready reports whether the queue holds an action that can be sent: not
// parked and carrying a usable credential.
func (d *syncDispatcher) ready(ctx context.Context) (bool, error) {
	actions, err := d.queue.List(ctx)
	if err != nil {
		d.logger.Err(err).Str("func", "syncDispatcher.ready").Msg("failed to list queued actions")
		return false, fmt.Errorf("failed to list queued actions: %w", err)
	}

	for _, action := range actions {
		if action.Rejected {
			continue
		}
		if d.credentials.Validate(action.Credential) == nil {
			return true, nil
		}
	}

	return false, nil
}
