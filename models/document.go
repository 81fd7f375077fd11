// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Document is a downloaded binary artifact. It is always persisted and
// deleted together with its [DocumentMetadata].
type Document struct {
	ID            string    `json:"id"`
	OwnerEntityID string    `json:"owner_entity_id"`
	Blob          []byte    `json:"-"`
	MimeType      string    `json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	DownloadedAt  time.Time `json:"downloaded_at"`
	FileName      string    `json:"file_name"`
}

// DocumentMetadata describes where a document comes from. It is keyed by the
// owning entity id, 1:1 with [Document].
type DocumentMetadata struct {
	// OwnerEntityID is the id of the entity (policy, resource, issue) the
	// document belongs to.
	OwnerEntityID string `json:"owner_entity_id"`

	// Title is a human-readable title shown in listings.
	Title string `json:"title"`

	// SourceURL is the HTTP location of the document, used by the HTTP source.
	SourceURL string `json:"source_url,omitempty"`

	// ObjectKey is the bucket key of the document, used by the S3 source.
	ObjectKey string `json:"object_key,omitempty"`

	// MimeType is the expected content type. The source's reported type wins
	// when this is empty.
	MimeType string `json:"mime_type,omitempty"`

	// FileName is the name to present to the user.
	FileName string `json:"file_name,omitempty"`

	// ExpectedSize is the size announced by the catalog, if known.
	ExpectedSize int64 `json:"expected_size,omitempty"`
}

// DocumentSummary is the per-item entry of a document listing. It never
// carries the blob itself.
type DocumentSummary struct {
	OwnerEntityID string    `json:"owner_entity_id"`
	Title         string    `json:"title"`
	FileName      string    `json:"file_name"`
	MimeType      string    `json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// DocumentListing aggregates the stored documents.
type DocumentListing struct {
	Count      int               `json:"count"`
	TotalBytes int64             `json:"total_bytes"`
	Items      []DocumentSummary `json:"items"`
}

// DownloadResult is returned by a completed document download.
type DownloadResult struct {
	Size     int64  `json:"size"`
	FileName string `json:"file_name"`
}

// Progress reports a download in flight. Percent is meaningful only when
// HasPercent is true, which requires a known total.
type Progress struct {
	Received   int64
	Total      int64
	Percent    float64
	HasPercent bool
}

// ProgressFunc receives download progress updates.
type ProgressFunc func(Progress)
