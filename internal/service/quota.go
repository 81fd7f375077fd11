package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/models"
)

type quotaManager struct {
	usage     store.UsageRepository
	mirror    store.MirrorRepository
	documents store.DocumentRepository
	cache     store.ResponseCacheRepository

	quotaBytes int64
	threshold  float64
	maxAge     time.Duration
	now        func() time.Time

	logger *logger.Logger
}

func NewQuotaManager(storages *store.ClientStorages, cfg config.ClientQuota, logger *logger.Logger) QuotaManager {
	m := &quotaManager{
		usage:      storages.Usage,
		mirror:     storages.Mirror,
		documents:  storages.Documents,
		cache:      storages.ResponseCache,
		quotaBytes: cfg.Bytes,
		threshold:  cfg.Threshold,
		maxAge:     cfg.MaxAge,
		now:        time.Now,
		logger:     logger,
	}
	if m.threshold <= 0 {
		m.threshold = config.DefaultQuotaThreshold
	}
	if m.maxAge <= 0 {
		m.maxAge = config.DefaultQuotaMaxAge
	}
	return m
}

func (m *quotaManager) Usage(ctx context.Context) (models.StorageUsage, error) {
	used, err := m.usage.UsedBytes(ctx)
	if err != nil {
		return models.StorageUsage{}, fmt.Errorf("failed to measure storage: %w", err)
	}
	return models.StorageUsage{UsedBytes: used, QuotaBytes: m.quotaBytes}, nil
}

// Enforce implements [QuotaManager]. Only synced mirror records, documents
// and cache entries older than the max age are eligible; pending and failed
// records are never purged. Each store is purged even if another fails.
func (m *quotaManager) Enforce(ctx context.Context) (models.PurgeReport, error) {
	log := logger.FromContext(ctx)

	usage, err := m.Usage(ctx)
	if err != nil {
		return models.PurgeReport{}, err
	}

	report := models.PurgeReport{Usage: usage}
	if usage.QuotaBytes <= 0 || usage.Ratio() <= m.threshold {
		log.Debug().
			Str("func", "quotaManager.Enforce").
			Float64("ratio", usage.Ratio()).
			Msg("storage below threshold")
		return report, nil
	}
	report.Triggered = true

	cutoff := m.now().Add(-m.maxAge)
	var errs []error

	if report.MirrorRecords, err = m.mirror.PurgeBefore(ctx, cutoff); err != nil {
		errs = append(errs, fmt.Errorf("failed to purge mirror records: %w", err))
	}
	if report.Documents, err = m.documents.PurgeBefore(ctx, cutoff); err != nil {
		errs = append(errs, fmt.Errorf("failed to purge documents: %w", err))
	}
	if report.CacheEntries, err = m.cache.PurgeBefore(ctx, cutoff); err != nil {
		errs = append(errs, fmt.Errorf("failed to purge cache entries: %w", err))
	}

	log.Info().
		Str("func", "quotaManager.Enforce").
		Float64("ratio", usage.Ratio()).
		Int64("mirror_records", report.MirrorRecords).
		Int64("documents", report.Documents).
		Int64("cache_entries", report.CacheEntries).
		Msg("quota enforced")

	return report, errors.Join(errs...)
}
