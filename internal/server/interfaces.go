package server

import "context"

// Server defines the lifecycle contract for transport servers managed by
// this package.
type Server interface {
	// Run starts serving requests and blocks until ctx is cancelled and the
	// server has shut down, or until it fails.
	Run(ctx context.Context) error
}
