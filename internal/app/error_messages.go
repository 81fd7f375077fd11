// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// local session API handlers.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies or log entries to describe the outcome of an operation.
// Keeping them in one place ensures consistent wording throughout the API.
package app

const (
	// MsgQueueUnavailable is returned when the action queue cannot be read.
	MsgQueueUnavailable = "queue unavailable"

	// MsgSyncFailed is returned when a manual sync pass fails for a reason
	// other than connectivity or a concurrent pass.
	MsgSyncFailed = "sync failed"

	// MsgOffline is returned when a manual sync is requested while the
	// remote service is unreachable.
	MsgOffline = "remote service is unreachable"

	// MsgSyncInProgress is returned when a manual sync is requested while a
	// replay pass is already running.
	MsgSyncInProgress = "replay pass is already in progress"
)
