// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer abstractions for communicating with
// the remote civic API.
//
// [ServerAdapter] replays queued actions and performs plain reads;
// [DocumentSource] streams document bodies from either the HTTP API or an S3
// bucket.
//
// Errors are mapped from HTTP status codes by mapHTTPError onto the failure
// classes in errors.go, so callers branch with [errors.Is] or [Classify].
package adapter

import (
	"context"
	"io"

	"github.com/MKhiriev/civic-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines communication with the remote civic API.
type ServerAdapter interface {
	// Submit replays one queued action. The route is selected by the action
	// type, the credential is sent as a bearer token and the action id as the
	// Idempotency-Key header. It returns the server-assigned id of the created
	// or updated entity, or an empty string when the service reports none.
	Submit(ctx context.Context, action models.QueuedAction) (serverID string, err error)

	// Fetch performs an authenticated GET of path and returns the raw body.
	// An empty credential sends the request anonymously.
	Fetch(ctx context.Context, path, credential string) ([]byte, error)
}

// DocumentStream is an open document body. Size is -1 when the source did
// not announce a length. The caller must close Body.
type DocumentStream struct {
	Body     io.ReadCloser
	Size     int64
	MimeType string
}

// DocumentSource opens document bodies for download.
type DocumentSource interface {
	Open(ctx context.Context, meta models.DocumentMetadata, credential string) (*DocumentStream, error)
}
