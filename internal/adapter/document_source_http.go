package adapter

import (
	"context"
	"fmt"
	"io"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

// maxErrorBody bounds how much of a failed download response is kept for the
// error message.
const maxErrorBody = 4 << 10

type httpDocumentSource struct {
	client *utils.HTTPClient
	logger *logger.Logger
}

// NewHTTPDocumentSource returns a [DocumentSource] that streams
// meta.SourceURL. Relative URLs resolve against baseURL. The client carries
// no overall timeout: a large download is bounded by the caller's context
// only.
func NewHTTPDocumentSource(baseURL string, logger *logger.Logger) (DocumentSource, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document source address: %w", err)
	}

	client := utils.NewHTTPClient()
	client.SetBaseURL(normalized)

	return &httpDocumentSource{client: client, logger: logger}, nil
}

func (s *httpDocumentSource) Open(ctx context.Context, meta models.DocumentMetadata, credential string) (*DocumentStream, error) {
	if meta.SourceURL == "" {
		return nil, fmt.Errorf("%w: document %s has no source url", ErrNotFound, meta.OwnerEntityID)
	}

	req := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if token := bearerToken(credential); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}

	resp, err := req.Get(meta.SourceURL)
	if err != nil {
		return nil, mapRequestError("document request", err)
	}

	raw := resp.RawResponse
	if raw == nil || raw.Body == nil {
		return nil, fmt.Errorf("%w: empty document response", ErrTransient)
	}

	if code := raw.StatusCode; code < 200 || code >= 300 {
		body, _ := io.ReadAll(io.LimitReader(raw.Body, maxErrorBody))
		_ = raw.Body.Close()
		return nil, mapStatus(code, body)
	}

	mimeType := raw.Header.Get("Content-Type")
	if meta.MimeType != "" {
		mimeType = meta.MimeType
	}

	logger.FromContext(ctx).Debug().
		Str("func", "httpDocumentSource.Open").
		Str("owner_entity_id", meta.OwnerEntityID).
		Int64("content_length", raw.ContentLength).
		Msg("document stream opened")

	return &DocumentStream{
		Body:     raw.Body,
		Size:     raw.ContentLength,
		MimeType: mimeType,
	}, nil
}
