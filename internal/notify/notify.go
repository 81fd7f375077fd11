// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package notify carries replay outcomes from whichever execution context
// ran a pass to the live foreground session.
//
// The foreground session and the background replay worker share no memory.
// Outcomes travel either through an in-process [Bus] or, across processes,
// over a local websocket ([WSPublisher] dials the endpoint the foreground
// session serves). Delivery is best effort: the durable stores already
// reflect every outcome, so a session that is not running loses nothing.
package notify

import (
	"context"

	"github.com/MKhiriev/civic-sync/models"
)

//go:generate mockgen -source=notify.go -destination=../mock/notify_mock.go -package=mock

// Publisher delivers one replay outcome. Implementations never block the
// replay pass for a slow or absent receiver.
type Publisher interface {
	Publish(ctx context.Context, outcome models.Outcome) error
}

// Discard is a [Publisher] that drops every outcome.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, models.Outcome) error { return nil }
