package notify

import (
	"context"
	"sync"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/models"
)

// subscriberBuffer is the number of outcomes a subscriber may fall behind by
// before further outcomes are dropped for it.
const subscriberBuffer = 64

// Bus fans outcomes out to in-process subscribers without blocking the
// publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan models.Outcome
	nextID int
	closed bool

	logger *logger.Logger
}

func NewBus(logger *logger.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan models.Outcome),
		logger: logger,
	}
}

// Subscribe registers a receiver. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan models.Outcome, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Outcome, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
}

// Publish implements [Publisher]. A subscriber whose buffer is full misses
// the outcome.
func (b *Bus) Publish(ctx context.Context, outcome models.Outcome) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- outcome:
		default:
			logger.FromContext(ctx).Warn().
				Str("func", "Bus.Publish").
				Int("subscriber", id).
				Str("action_id", outcome.ActionID).
				Msg("subscriber is full, outcome dropped")
		}
	}

	return nil
}

// Close closes every subscriber channel. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Multi publishes to every publisher in order and returns the first error.
func Multi(publishers ...Publisher) Publisher {
	return multi(publishers)
}

type multi []Publisher

func (m multi) Publish(ctx context.Context, outcome models.Outcome) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, outcome); err != nil && first == nil {
			first = err
		}
	}
	return first
}
