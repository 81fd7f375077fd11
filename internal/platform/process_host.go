// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
)

const defaultShutdownGrace = 30 * time.Second

type registration struct {
	name    string
	drain   DrainFunc
	pending chan struct{}
}

type reconnectHook struct {
	monitor *connectivity.Monitor
	name    string
}

// ProcessHost is a [BackgroundHost] backed by goroutines of the current
// process. Each registered drain has one runner, so runs of the same drain
// never overlap. Drains run under a context detached from whoever triggered
// them; on shutdown an in-flight run gets a grace period before it is
// cancelled.
type ProcessHost struct {
	mu      sync.Mutex
	drains  map[string]*registration
	hooks   []reconnectHook
	running bool

	grace  time.Duration
	logger *logger.Logger
}

func NewProcessHost(logger *logger.Logger) *ProcessHost {
	return &ProcessHost{
		drains: make(map[string]*registration),
		grace:  defaultShutdownGrace,
		logger: logger,
	}
}

// Register implements [BackgroundHost]. Drains must be registered before Run.
func (h *ProcessHost) Register(name string, drain DrainFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.drains[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	h.drains[name] = &registration{
		name:    name,
		drain:   drain,
		pending: make(chan struct{}, 1),
	}
	return nil
}

// TriggerOnReconnect makes the host trigger name on every online
// transition of monitor, with no session involved.
func (h *ProcessHost) TriggerOnReconnect(monitor *connectivity.Monitor, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, reconnectHook{monitor: monitor, name: name})
}

// Available implements [BackgroundHost].
func (h *ProcessHost) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Trigger implements [BackgroundHost].
func (h *ProcessHost) Trigger(ctx context.Context, name string) error {
	h.mu.Lock()
	reg, ok := h.drains[name]
	running := h.running
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	if !running {
		return ErrHostUnavailable
	}

	select {
	case reg.pending <- struct{}{}:
		logger.FromContext(ctx).Debug().
			Str("func", "ProcessHost.Trigger").
			Str("drain", name).
			Msg("drain scheduled")
	default:
		// a run is already pending
	}
	return nil
}

// Run serves triggers until ctx is done and then waits for in-flight drains.
func (h *ProcessHost) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return fmt.Errorf("background host is already running")
	}
	h.running = true
	regs := make([]*registration, 0, len(h.drains))
	for _, reg := range h.drains {
		regs = append(regs, reg)
	}
	hooks := append([]reconnectHook(nil), h.hooks...)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	drainCtx, cancelDrains := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDrains()

	var wg sync.WaitGroup
	for _, reg := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.runner(ctx, drainCtx, reg)
		}()
	}
	for _, hook := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.watch(ctx, hook)
		}()
	}

	h.logger.Info().Str("func", "ProcessHost.Run").Int("drains", len(regs)).Msg("background host started")

	<-ctx.Done()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(h.grace):
		h.logger.Warn().Str("func", "ProcessHost.Run").Msg("grace period elapsed, cancelling drains")
		cancelDrains()
		<-stopped
	}

	h.logger.Info().Str("func", "ProcessHost.Run").Msg("background host stopped")
	return nil
}

func (h *ProcessHost) runner(ctx, drainCtx context.Context, reg *registration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reg.pending:
		}

		start := time.Now()
		if err := reg.drain(drainCtx); err != nil {
			h.logger.Err(err).
				Str("func", "ProcessHost.runner").
				Str("drain", reg.name).
				Msg("drain failed")
			continue
		}

		h.logger.Debug().
			Str("func", "ProcessHost.runner").
			Str("drain", reg.name).
			Dur("duration", time.Since(start)).
			Msg("drain finished")
	}
}

func (h *ProcessHost) watch(ctx context.Context, hook reconnectHook) {
	transitions, cancel := hook.monitor.Subscribe()
	defer cancel()

	if hook.monitor.Online() {
		_ = h.Trigger(ctx, hook.name)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			if !t.Online {
				continue
			}
			if err := h.Trigger(ctx, hook.name); err != nil {
				h.logger.Warn().Err(err).
					Str("func", "ProcessHost.watch").
					Str("drain", hook.name).
					Msg("failed to trigger drain on reconnect")
			}
		}
	}
}
