// Package server runs the foreground session's local HTTP listener.
//
// It owns the listener lifecycle: startup, and graceful shutdown once the
// run context is cancelled.
package server
