package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/civic-sync/internal/logger"
)

type usageRepository struct {
	*DB
}

func NewUsageRepository(db *DB) UsageRepository {
	return &usageRepository{DB: db}
}

// UsedBytes returns the size of the database file as page_count * page_size.
func (r *usageRepository) UsedBytes(ctx context.Context) (int64, error) {
	var pages, size int64

	if err := r.DB.QueryRowContext(ctx, pageCount).Scan(&pages); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "usageRepository.UsedBytes").
			Msg("failed to read page count")
		return 0, fmt.Errorf("failed to read page count: %w", r.storageError(err))
	}

	if err := r.DB.QueryRowContext(ctx, pageSize).Scan(&size); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "usageRepository.UsedBytes").
			Msg("failed to read page size")
		return 0, fmt.Errorf("failed to read page size: %w", r.storageError(err))
	}

	return pages * size, nil
}
