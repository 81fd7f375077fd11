package platform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
)

// startHost runs h until the test ends and waits until it accepts triggers.
func startHost(t *testing.T, h *ProcessHost) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, h.Available, 2*time.Second, 5*time.Millisecond)
}

func TestProcessHost_Register(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	noop := func(context.Context) error { return nil }

	require.NoError(t, h.Register("replay", noop))
	assert.ErrorIs(t, h.Register("replay", noop), ErrAlreadyRegistered)
}

func TestProcessHost_TriggerBeforeRun(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	require.NoError(t, h.Register("replay", func(context.Context) error { return nil }))

	assert.False(t, h.Available())
	assert.ErrorIs(t, h.Trigger(context.Background(), "replay"), ErrHostUnavailable)
	assert.ErrorIs(t, h.Trigger(context.Background(), "missing"), ErrNotRegistered)
}

func TestProcessHost_RunsTriggeredDrain(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	var runs atomic.Int32
	require.NoError(t, h.Register("replay", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	startHost(t, h)

	require.NoError(t, h.Trigger(context.Background(), "replay"))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestProcessHost_CoalescesTriggers(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	var runs atomic.Int32
	require.NoError(t, h.Register("replay", func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}))
	startHost(t, h)

	require.NoError(t, h.Trigger(context.Background(), "replay"))
	<-started

	// while the first run is in flight, any number of triggers leave exactly
	// one pending run
	for range 5 {
		require.NoError(t, h.Trigger(context.Background(), "replay"))
	}
	close(release)

	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
}

func TestProcessHost_DrainDetachedFromTrigger(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	result := make(chan error, 1)
	require.NoError(t, h.Register("replay", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		result <- ctx.Err()
		return nil
	}))
	startHost(t, h)

	triggerCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.Trigger(triggerCtx, "replay"))
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err, "cancelling the trigger context must not cancel the drain")
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not run")
	}
}

func TestProcessHost_FailingDrainKeepsServing(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	var runs atomic.Int32
	require.NoError(t, h.Register("replay", func(context.Context) error {
		runs.Add(1)
		return errors.New("remote down")
	}))
	startHost(t, h)

	require.NoError(t, h.Trigger(context.Background(), "replay"))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.Trigger(context.Background(), "replay"))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestProcessHost_TriggerOnReconnect(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	var runs atomic.Int32
	require.NoError(t, h.Register("replay", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	monitor := connectivity.NewMonitor(logger.Nop())
	h.TriggerOnReconnect(monitor, "replay")
	startHost(t, h)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, runs.Load(), "offline host must not drain")

	monitor.Set(true)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	monitor.Set(false)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestProcessHost_ShutdownGraceCancelsDrain(t *testing.T) {
	h := NewProcessHost(logger.Nop())
	h.grace = 20 * time.Millisecond
	started := make(chan struct{})
	require.NoError(t, h.Register("replay", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	require.Eventually(t, h.Available, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.Trigger(context.Background(), "replay"))
	<-started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("host did not stop after the grace period")
	}
	assert.False(t, h.Available())
}
