// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

type documentRepository struct {
	*DB
	ids *utils.UUIDGenerator
	now func() time.Time
}

func NewDocumentRepository(db *DB) DocumentRepository {
	return &documentRepository{
		DB:  db,
		ids: utils.NewUUIDGenerator(),
		now: time.Now,
	}
}

func (r *documentRepository) Save(ctx context.Context, doc models.Document, meta models.DocumentMetadata) (models.Document, error) {
	log := logger.FromContext(ctx)

	if doc.ID == "" {
		doc.ID = r.ids.Generate()
	}
	if doc.DownloadedAt.IsZero() {
		doc.DownloadedAt = r.now()
	}
	doc.DownloadedAt = doc.DownloadedAt.UTC()
	if doc.Blob == nil {
		doc.Blob = []byte{}
	}
	doc.SizeBytes = int64(len(doc.Blob))
	meta.OwnerEntityID = doc.OwnerEntityID

	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, upsertDocument,
			doc.ID,
			doc.OwnerEntityID,
			doc.Blob,
			doc.MimeType,
			doc.SizeBytes,
			doc.FileName,
			doc.DownloadedAt.UnixNano(),
		); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, upsertDocumentMetadata,
			meta.OwnerEntityID,
			meta.Title,
			meta.SourceURL,
			meta.ObjectKey,
			meta.MimeType,
			meta.FileName,
			meta.ExpectedSize,
		)
		return err
	})
	if err != nil {
		log.Err(err).
			Str("func", "documentRepository.Save").
			Str("owner_entity_id", doc.OwnerEntityID).
			Msg("failed to save document")
		return models.Document{}, fmt.Errorf("failed to save document (owner=%s): %w", doc.OwnerEntityID, err)
	}

	log.Debug().
		Str("func", "documentRepository.Save").
		Str("owner_entity_id", doc.OwnerEntityID).
		Int64("size_bytes", doc.SizeBytes).
		Msg("document saved")

	return doc, nil
}

func (r *documentRepository) Get(ctx context.Context, ownerID string) (models.Document, models.DocumentMetadata, error) {
	var (
		doc          models.Document
		meta         models.DocumentMetadata
		downloadedAt int64
	)

	err := r.DB.QueryRowContext(ctx, getDocument, ownerID).Scan(
		&doc.ID,
		&doc.OwnerEntityID,
		&doc.Blob,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.FileName,
		&downloadedAt,
		&meta.Title,
		&meta.SourceURL,
		&meta.ObjectKey,
		&meta.MimeType,
		&meta.FileName,
		&meta.ExpectedSize,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, models.DocumentMetadata{}, ErrDocumentNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "documentRepository.Get").
			Str("owner_entity_id", ownerID).
			Msg("failed to get document")
		return models.Document{}, models.DocumentMetadata{}, fmt.Errorf("failed to get document (owner=%s): %w", ownerID, r.storageError(err))
	}

	doc.DownloadedAt = time.Unix(0, downloadedAt).UTC()
	meta.OwnerEntityID = doc.OwnerEntityID

	return doc, meta, nil
}

func (r *documentRepository) Exists(ctx context.Context, ownerID string) (bool, error) {
	var exists bool
	if err := r.DB.QueryRowContext(ctx, documentExists, ownerID).Scan(&exists); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "documentRepository.Exists").
			Str("owner_entity_id", ownerID).
			Msg("failed to check document existence")
		return false, fmt.Errorf("failed to check document (owner=%s): %w", ownerID, r.storageError(err))
	}
	return exists, nil
}

func (r *documentRepository) Delete(ctx context.Context, ownerID string) (bool, error) {
	var deleted bool
	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		n, err := deleteOwners(ctx, tx, []string{ownerID})
		deleted = n > 0
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "documentRepository.Delete").
			Str("owner_entity_id", ownerID).
			Msg("failed to delete document")
		return false, fmt.Errorf("failed to delete document (owner=%s): %w", ownerID, err)
	}
	return deleted, nil
}

func (r *documentRepository) List(ctx context.Context) (models.DocumentListing, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listDocuments)
	if err != nil {
		log.Err(err).
			Str("func", "documentRepository.List").
			Msg("failed to list documents")
		return models.DocumentListing{}, fmt.Errorf("failed to list documents: %w", r.storageError(err))
	}
	defer rows.Close()

	listing := models.DocumentListing{Items: []models.DocumentSummary{}}
	for rows.Next() {
		var (
			item         models.DocumentSummary
			downloadedAt int64
		)
		if err = rows.Scan(
			&item.OwnerEntityID,
			&item.Title,
			&item.FileName,
			&item.MimeType,
			&item.SizeBytes,
			&downloadedAt,
		); err != nil {
			log.Err(err).
				Str("func", "documentRepository.List").
				Msg("failed to scan document row")
			return models.DocumentListing{}, fmt.Errorf("failed to scan document row: %w", r.storageError(err))
		}
		item.DownloadedAt = time.Unix(0, downloadedAt).UTC()

		listing.Items = append(listing.Items, item)
		listing.Count++
		listing.TotalBytes += item.SizeBytes
	}

	if err = rows.Err(); err != nil {
		log.Err(err).
			Str("func", "documentRepository.List").
			Msg("error occurred during rows iteration")
		return models.DocumentListing{}, fmt.Errorf("error iterating document rows: %w", r.storageError(err))
	}

	return listing, nil
}

func (r *documentRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		result, err := tx.ExecContext(ctx, deleteAllDocuments)
		if err != nil {
			return err
		}
		if deleted, err = result.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, deleteAllDocumentMetadata)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "documentRepository.DeleteAll").
			Msg("failed to delete all documents")
		return 0, fmt.Errorf("failed to delete all documents: %w", err)
	}
	return deleted, nil
}

// DeleteOldest evicts every document except the keep most recently
// downloaded ones and returns how many were evicted.
func (r *documentRepository) DeleteOldest(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	return r.deleteSelected(ctx, "documentRepository.DeleteOldest", oldestDocumentOwners, keep)
}

func (r *documentRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteSelected(ctx, "documentRepository.PurgeBefore", documentOwnersBefore, cutoff.UnixNano())
}

// deleteSelected deletes, in one transaction, the documents whose owners are
// returned by selectQuery.
func (r *documentRepository) deleteSelected(ctx context.Context, funcName, selectQuery string, args ...any) (int64, error) {
	var deleted int64
	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		owners, err := selectOwners(ctx, tx, selectQuery, args...)
		if err != nil {
			return err
		}
		deleted, err = deleteOwners(ctx, tx, owners)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", funcName).
			Msg("failed to delete documents")
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}

	if deleted > 0 {
		logger.FromContext(ctx).Info().
			Str("func", funcName).
			Int64("deleted", deleted).
			Msg("documents evicted")
	}

	return deleted, nil
}

func selectOwners(ctx context.Context, tx DBTX, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err = rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}

// deleteOwners removes the document and metadata rows of every owner.
func deleteOwners(ctx context.Context, tx DBTX, owners []string) (int64, error) {
	var deleted int64
	for _, owner := range owners {
		result, err := tx.ExecContext(ctx, deleteDocument, owner)
		if err != nil {
			return 0, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += n

		if _, err = tx.ExecContext(ctx, deleteDocumentMetadata, owner); err != nil {
			return 0, err
		}
	}
	return deleted, nil
}
