package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
)

const defaultSyncInterval = 5 * time.Minute

type syncJob struct {
	dispatcher SyncDispatcher

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

// NewSyncJob creates a syncJob that calls dispatcher.SyncNow on a ticker.
// The job is idle until Start is called.
func NewSyncJob(dispatcher SyncDispatcher, logger *logger.Logger) SyncJob {
	return &syncJob{dispatcher: dispatcher, logger: logger}
}

// Start implements SyncJob. The goroutine exits when ctx is cancelled or
// Stop is called.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			}
		}
	}()
}

func (j *syncJob) tick(ctx context.Context) {
	_, err := j.dispatcher.SyncNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrOffline), errors.Is(err, ErrDispatchInProgress):
		j.logger.Debug().Err(err).Str("func", "syncJob.tick").Msg("periodic sync skipped")
	default:
		j.logger.Err(err).Str("func", "syncJob.tick").Msg("periodic sync failed")
	}
}

// Stop implements SyncJob. Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
