// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/internal/validators"
	"github.com/MKhiriev/civic-sync/models"
)

const downloadChunk = 32 << 10

type documentService struct {
	repo     store.DocumentRepository
	source   adapter.DocumentSource
	maxBytes int64

	validator validators.Validator
	logger    *logger.Logger
}

// NewDocumentService builds the document blob store. Downloads larger than
// maxBytes are refused; zero means no limit.
func NewDocumentService(repo store.DocumentRepository, source adapter.DocumentSource, maxBytes int64, logger *logger.Logger) DocumentService {
	return &documentService{
		repo:     repo,
		source:   source,
		maxBytes: maxBytes,

		validator: validators.NewSyncValidator(),
		logger:    logger,
	}
}

// Download implements [DocumentService]. The body is buffered in memory and
// persisted only once it has been read completely, so an interrupted
// download leaves no blob and no metadata behind.
func (s *documentService) Download(ctx context.Context, ownerID string, meta models.DocumentMetadata, credential string, onProgress models.ProgressFunc) (models.DownloadResult, error) {
	log := logger.FromContext(ctx)
	meta.OwnerEntityID = ownerID
	if err := s.validator.Validate(ctx, meta); err != nil {
		return models.DownloadResult{}, fmt.Errorf("invalid document metadata: %w", err)
	}

	stream, err := s.source.Open(ctx, meta, credential)
	if err != nil {
		log.Err(err).Str("func", "documentService.Download").Str("owner_id", ownerID).Msg("failed to open document")
		return models.DownloadResult{}, fmt.Errorf("failed to open document: %w", err)
	}
	defer stream.Body.Close()

	total := stream.Size
	if total <= 0 {
		total = meta.ExpectedSize
	}
	if s.maxBytes > 0 && total > s.maxBytes {
		return models.DownloadResult{}, fmt.Errorf("%w: %d > %d bytes", ErrDocumentTooLarge, total, s.maxBytes)
	}

	blob, err := s.read(ctx, stream.Body, total, onProgress)
	if err != nil {
		log.Err(err).Str("func", "documentService.Download").Str("owner_id", ownerID).Msg("document download failed")
		return models.DownloadResult{}, err
	}

	doc := models.Document{
		OwnerEntityID: ownerID,
		Blob:          blob,
		MimeType:      stream.MimeType,
		FileName:      fileName(meta),
	}
	if doc.MimeType == "" {
		doc.MimeType = meta.MimeType
	}

	saved, err := s.repo.Save(ctx, doc, meta)
	if err != nil {
		log.Err(err).Str("func", "documentService.Download").Str("owner_id", ownerID).Msg("failed to store document")
		return models.DownloadResult{}, fmt.Errorf("failed to store document: %w", err)
	}

	log.Info().
		Str("func", "documentService.Download").
		Str("owner_id", ownerID).
		Int64("size", saved.SizeBytes).
		Msg("document downloaded")

	return models.DownloadResult{Size: saved.SizeBytes, FileName: saved.FileName}, nil
}

// read drains body reporting progress after every chunk. total <= 0 means
// unknown; a body shorter than a known total is an interruption.
func (s *documentService) read(ctx context.Context, body io.Reader, total int64, onProgress models.ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}

	chunk := make([]byte, downloadChunk)
	var received int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDownloadInterrupted, err)
		}

		n, err := body.Read(chunk)
		if n > 0 {
			received += int64(n)
			if s.maxBytes > 0 && received > s.maxBytes {
				return nil, fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, s.maxBytes)
			}
			buf.Write(chunk[:n])
			report(onProgress, received, total)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDownloadInterrupted, err)
		}
	}

	if total > 0 && received != total {
		return nil, fmt.Errorf("%w: received %d of %d bytes", ErrDownloadInterrupted, received, total)
	}

	return buf.Bytes(), nil
}

func report(onProgress models.ProgressFunc, received, total int64) {
	if onProgress == nil {
		return
	}

	p := models.Progress{Received: received, Total: total}
	if total > 0 {
		p.HasPercent = true
		p.Percent = float64(received) * 100 / float64(total)
	}
	onProgress(p)
}

// fileName picks the name shown to the user.
func fileName(meta models.DocumentMetadata) string {
	if meta.FileName != "" {
		return meta.FileName
	}
	for _, loc := range []string{meta.ObjectKey, meta.SourceURL} {
		if loc == "" {
			continue
		}
		loc, _, _ = strings.Cut(loc, "?")
		if base := path.Base(loc); base != "." && base != "/" {
			return base
		}
	}
	return meta.OwnerEntityID
}

func (s *documentService) IsCached(ctx context.Context, ownerID string) (bool, error) {
	ok, err := s.repo.Exists(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}
	return ok, nil
}

func (s *documentService) Get(ctx context.Context, ownerID string) (models.Document, models.DocumentMetadata, error) {
	doc, meta, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return models.Document{}, models.DocumentMetadata{}, mapStoreError(err)
	}
	return doc, meta, nil
}

// Delete implements [DocumentService]. Deleting a document that is not
// cached is not an error.
func (s *documentService) Delete(ctx context.Context, ownerID string) error {
	if _, err := s.repo.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *documentService) List(ctx context.Context) (models.DocumentListing, error) {
	listing, err := s.repo.List(ctx)
	if err != nil {
		return models.DocumentListing{}, fmt.Errorf("failed to list documents: %w", err)
	}
	return listing, nil
}

func (s *documentService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear documents: %w", err)
	}
	return n, nil
}

func (s *documentService) CleanupOldDocuments(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	n, err := s.repo.DeleteOldest(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up documents: %w", err)
	}
	return n, nil
}
