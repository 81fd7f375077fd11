// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client defines the minimal lifecycle contract for runnable client
// processes.
type Client interface {
	// Run starts the process and blocks until ctx is done or it fails.
	Run(ctx context.Context) error
}

var (
	_ Client = (*App)(nil)
	_ Client = (*ReplayProcess)(nil)
)
