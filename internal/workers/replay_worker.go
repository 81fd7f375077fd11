// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/platform"
	"github.com/MKhiriev/civic-sync/internal/service"
)

const availablePoll = 20 * time.Millisecond

// ReplayWorker is the background half of the sync core. It registers the
// replay drain with the host and triggers it every interval, so queued
// actions are retried even without a connectivity transition.
type ReplayWorker struct {
	host     platform.BackgroundHost
	replayer service.Replayer
	interval time.Duration

	logger *logger.Logger
}

// NewReplayWorker registers the drain under [service.DrainName]. The
// replayer must use its own store connection and claim owner.
func NewReplayWorker(host platform.BackgroundHost, replayer service.Replayer, interval time.Duration, logger *logger.Logger) (*ReplayWorker, error) {
	w := &ReplayWorker{
		host:     host,
		replayer: replayer,
		interval: interval,
		logger:   logger,
	}

	if err := host.Register(service.DrainName, w.Drain); err != nil {
		return nil, fmt.Errorf("failed to register replay drain: %w", err)
	}

	return w, nil
}

// Drain is the [platform.DrainFunc] the host runs.
func (w *ReplayWorker) Drain(ctx context.Context) error {
	report, err := w.replayer.Drain(ctx)
	if err != nil {
		return fmt.Errorf("background replay failed: %w", err)
	}

	w.logger.Info().
		Str("func", "ReplayWorker.Drain").
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("background drain finished")
	return nil
}

// Run triggers a drain once the host is serving and then every interval.
func (w *ReplayWorker) Run(ctx context.Context) error {
	if !w.waitAvailable(ctx) {
		return nil
	}
	w.trigger(ctx)

	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.trigger(ctx)
		}
	}
}

// waitAvailable blocks until the host serves triggers. The host is usually
// started next to this worker, so it may not be running yet.
func (w *ReplayWorker) waitAvailable(ctx context.Context) bool {
	t := time.NewTicker(availablePoll)
	defer t.Stop()

	for !w.host.Available() {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
	return true
}

func (w *ReplayWorker) trigger(ctx context.Context) {
	err := w.host.Trigger(ctx, service.DrainName)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrHostUnavailable):
		w.logger.Debug().Err(err).Str("func", "ReplayWorker.trigger").Msg("host not serving yet")
	default:
		w.logger.Err(err).Str("func", "ReplayWorker.trigger").Msg("failed to trigger drain")
	}
}
