// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// RecordKind names the domain entity a [MirrorRecord] mirrors.
type RecordKind string

const (
	KindIssue           RecordKind = "issue"
	KindOutgoingMessage RecordKind = "outgoing_message"
	KindDraft           RecordKind = "draft"
	KindPreference      RecordKind = "preference"
	KindPollResponse    RecordKind = "poll_response"
	KindPolicy          RecordKind = "policy"
	KindResource        RecordKind = "resource"
)

// TextBearing reports whether records of this kind are kept in the
// full-text index.
func (k RecordKind) TextBearing() bool {
	return k == KindPolicy
}

// SyncStatus is the local synchronization state of a [MirrorRecord].
type SyncStatus string

const (
	// StatusPending means the write exists only locally.
	StatusPending SyncStatus = "pending"

	// StatusSent means the remote service accepted the write.
	StatusSent SyncStatus = "sent"

	// StatusFailed means the remote service rejected the write; the user has
	// to edit and resubmit it.
	StatusFailed SyncStatus = "failed"

	// StatusSynced means the remote service confirmed the write and assigned
	// a server id.
	StatusSynced SyncStatus = "synced"
)

// CanTransition reports whether a record in status s may move to next.
//
// Allowed transitions:
//   - pending -> sent, pending -> failed
//   - sent    -> synced
//   - failed  -> pending (explicit re-enqueue only)
func (s SyncStatus) CanTransition(next SyncStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusSent || next == StatusFailed
	case StatusSent:
		return next == StatusSynced
	case StatusFailed:
		return next == StatusPending
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusSynced:
		return true
	}
	return false
}

// MirrorRecord is a local, possibly optimistic copy of a domain entity with
// its own sync status, independent of the remote copy.
type MirrorRecord struct {
	// ID is assigned locally before any server id exists.
	ID string `json:"id"`

	// ServerID is set once the remote service confirms the entity.
	ServerID *string `json:"server_id,omitempty"`

	// Kind is the mirrored entity kind.
	Kind RecordKind `json:"kind"`

	// Payload is the serialized entity. Large payloads are compressed at rest
	// and decompressed transparently on read.
	Payload []byte `json:"payload"`

	// SearchText is the text indexed for text-bearing kinds. When empty the
	// payload itself is indexed.
	SearchText string `json:"search_text,omitempty"`

	// Status is the current sync status.
	Status SyncStatus `json:"status"`

	// Version is bumped on every mutation and never decreases. Concurrent
	// writers converge on the highest version.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MirrorFilter selects mirror records in [MirrorRepository.Query].
// Zero-valued fields do not constrain the result.
type MirrorFilter struct {
	Kind          RecordKind
	Statuses      []SyncStatus
	UpdatedBefore *time.Time
	// Text is a full-text match expression evaluated against the index of
	// text-bearing kinds.
	Text  string
	Limit uint64
}
