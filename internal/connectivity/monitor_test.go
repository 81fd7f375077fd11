package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/civic-sync/internal/logger"
)

func receive(t *testing.T, ch <-chan Transition) Transition {
	t.Helper()
	select {
	case tr := <-ch:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("no transition received")
		return Transition{}
	}
}

func assertNoTransition(t *testing.T, ch <-chan Transition) {
	t.Helper()
	select {
	case tr := <-ch:
		t.Fatalf("unexpected transition %+v", tr)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMonitor_StartsOffline(t *testing.T) {
	m := NewMonitor(logger.Nop())
	assert.False(t, m.Online())
}

func TestMonitor_EmitsOnlyOnChange(t *testing.T) {
	m := NewMonitor(logger.Nop())
	ch, cancel := m.Subscribe()
	defer cancel()

	assert.True(t, m.Set(true))
	assert.True(t, receive(t, ch).Online)

	assert.False(t, m.Set(true), "repeated online is not a transition")
	assertNoTransition(t, ch)

	assert.True(t, m.Set(false))
	assert.False(t, receive(t, ch).Online)
	assert.False(t, m.Online())
}

func TestMonitor_SlowSubscriberGetsLatestState(t *testing.T) {
	m := NewMonitor(logger.Nop())
	ch, cancel := m.Subscribe()
	defer cancel()

	m.Set(true)
	m.Set(false)
	m.Set(true)

	assert.True(t, receive(t, ch).Online)
	assertNoTransition(t, ch)
}

func TestMonitor_FanOutAndUnsubscribe(t *testing.T) {
	m := NewMonitor(logger.Nop())
	a, cancelA := m.Subscribe()
	b, cancelB := m.Subscribe()
	defer cancelB()

	cancelA()
	cancelA()

	m.Set(true)

	assert.True(t, receive(t, b).Online)
	_, open := <-a
	assert.False(t, open)
}

func TestMonitor_ConcurrentSet(t *testing.T) {
	m := NewMonitor(logger.Nop())
	ch, cancel := m.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Set(true)
		}()
	}
	wg.Wait()

	assert.True(t, receive(t, ch).Online)
	assertNoTransition(t, ch)
}

type scriptedSignal struct {
	observations []bool
	err          error
}

func (s scriptedSignal) Watch(ctx context.Context, observe func(bool)) error {
	for _, o := range s.observations {
		observe(o)
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestMonitor_Run(t *testing.T) {
	m := NewMonitor(logger.Nop())
	ch, cancel := m.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, scriptedSignal{observations: []bool{true, true}}) }()

	assert.True(t, receive(t, ch).Online)

	stop()
	require.NoError(t, <-done)
}

func TestMonitor_RunSignalError(t *testing.T) {
	m := NewMonitor(logger.Nop())
	boom := errors.New("watcher died")

	err := m.Run(context.Background(), scriptedSignal{err: boom})
	assert.ErrorIs(t, err, boom)
}
