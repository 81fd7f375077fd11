package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/service"
)

// QuotaWorker enforces the storage quota and the document retention limit
// on a ticker.
type QuotaWorker struct {
	quota     service.QuotaManager
	documents service.DocumentService
	keep      int
	interval  time.Duration

	logger *logger.Logger
}

func NewQuotaWorker(quota service.QuotaManager, documents service.DocumentService, keep int, interval time.Duration, logger *logger.Logger) *QuotaWorker {
	return &QuotaWorker{
		quota:     quota,
		documents: documents,
		keep:      keep,
		interval:  interval,
		logger:    logger,
	}
}

// Run enforces once on start and then every interval. Failures are logged
// and retried on the next tick.
func (w *QuotaWorker) Run(ctx context.Context) error {
	w.enforce(ctx)

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
			w.enforce(ctx)
		}
	}
}

func (w *QuotaWorker) enforce(ctx context.Context) {
	report, err := w.quota.Enforce(ctx)
	if err != nil {
		w.logger.Err(err).Str("func", "QuotaWorker.enforce").Msg("quota enforcement failed")
	} else if report.Triggered {
		w.logger.Info().
			Str("func", "QuotaWorker.enforce").
			Int64("purged", report.Total()).
			Msg("storage quota enforced")
	}

	if w.keep <= 0 {
		return
	}
	n, err := w.documents.CleanupOldDocuments(ctx, w.keep)
	if err != nil {
		w.logger.Err(err).Str("func", "QuotaWorker.enforce").Msg("document cleanup failed")
		return
	}
	if n > 0 {
		w.logger.Info().Str("func", "QuotaWorker.enforce").Int64("evicted", n).Msg("old documents evicted")
	}
}
