// Package http implements the local HTTP surface of the foreground session.
//
// It accepts outcome streams from the background replay worker over a
// websocket, and exposes health, status, version and a manual sync trigger.
// Request tracing and access logging are handled in this package before
// requests reach the sync core.
package http
