// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package connectivity tracks whether the remote service is reachable and
// notifies subscribers of online/offline transitions.
//
// A [Monitor] is fed by a platform [Signal]: [HTTPProbe] polls the API's
// health endpoint, [FileSignal] follows a status file written by the host
// network hook.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
)

// Transition is one change of reachability.
type Transition struct {
	Online bool
	At     time.Time
}

// Signal delivers reachability observations until ctx is done. Observations
// may repeat; the monitor collapses them into transitions.
type Signal interface {
	Watch(ctx context.Context, observe func(online bool)) error
}

// Monitor holds the current reachability state. The zero state is offline.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan Transition
	nextID int

	logger *logger.Logger
	now    func() time.Time
}

func NewMonitor(logger *logger.Logger) *Monitor {
	return &Monitor{
		subs:   make(map[int]chan Transition),
		logger: logger,
		now:    time.Now,
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe returns a channel of transitions and a function that ends the
// subscription. The channel holds at most one undelivered transition: a
// newer one replaces it, so a slow subscriber always sees the latest state
// and never blocks the monitor.
func (m *Monitor) Subscribe() (<-chan Transition, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan Transition, 1)
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

// Set applies an observation. It reports whether the state changed; only a
// change is published.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return false
	}
	m.online = online

	t := Transition{Online: online, At: m.now()}
	for _, ch := range m.subs {
		publish(ch, t)
	}

	m.logger.Info().
		Str("func", "Monitor.Set").
		Bool("online", online).
		Msg("connectivity changed")

	return true
}

// publish replaces an undelivered transition with t.
func publish(ch chan Transition, t Transition) {
	for {
		select {
		case ch <- t:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Run feeds the monitor from signal until ctx is done.
func (m *Monitor) Run(ctx context.Context, signal Signal) error {
	m.logger.Info().Str("func", "Monitor.Run").Msg("connectivity monitor started")
	defer m.logger.Info().Str("func", "Monitor.Run").Msg("connectivity monitor stopped")

	err := signal.Watch(ctx, func(online bool) { m.Set(online) })
	if ctx.Err() != nil {
		return nil
	}
	return err
}
