package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/crypto"
	"github.com/MKhiriev/civic-sync/internal/logger"
)

// ClientStorages groups every repository backed by the local SQLite file.
// The foreground session and the background worker each build their own
// value over the same DSN; they share the file, never the handle.
type ClientStorages struct {
	ActionQueue   ActionQueueRepository
	Mirror        MirrorRepository
	ResponseCache ResponseCacheRepository
	Documents     DocumentRepository
	Usage         UsageRepository

	db *DB
}

// NewClientStorages initialises the client storage layer:
//  1. Opens an SQLite connection to cfg.DB.DSN, creating the file if needed.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs every repository over that connection.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, sealer crypto.CredentialSealer, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return newClientStorages(db, cfg, sealer), nil
}

func newClientStorages(db *DB, cfg config.ClientStorage, sealer crypto.CredentialSealer) *ClientStorages {
	return &ClientStorages{
		ActionQueue:   NewActionQueueRepository(db, sealer),
		Mirror:        NewMirrorRepository(db, cfg.CompressThreshold),
		ResponseCache: NewResponseCacheRepository(db),
		Documents:     NewDocumentRepository(db),
		Usage:         NewUsageRepository(db),
		db:            db,
	}
}

// Close closes the underlying database handle.
func (s *ClientStorages) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
