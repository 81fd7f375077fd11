// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// ActionType is the closed set of write operations a producer may queue.
// The remote route for each value is selected by an exhaustive switch in the
// adapter package; adding a value here without a route fails the adapter
// tests.
type ActionType int

const (
	// ActionSubmitIssue reports a new civic issue.
	ActionSubmitIssue ActionType = iota + 1

	// ActionCastPollResponse records the user's answer to a poll.
	ActionCastPollResponse

	// ActionPostForumReply publishes a reply in a forum thread.
	ActionPostForumReply

	// ActionSendMessage sends a direct message to an official or office.
	ActionSendMessage

	// ActionUpdatePreferences stores changed notification or profile preferences.
	ActionUpdatePreferences
)

// ActionTypes returns every defined [ActionType] in declaration order.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionSubmitIssue,
		ActionCastPollResponse,
		ActionPostForumReply,
		ActionSendMessage,
		ActionUpdatePreferences,
	}
}

// Valid reports whether t is one of the defined action types.
func (t ActionType) Valid() bool {
	return t >= ActionSubmitIssue && t <= ActionUpdatePreferences
}

// String implements [fmt.Stringer].
func (t ActionType) String() string {
	switch t {
	case ActionSubmitIssue:
		return "issue"
	case ActionCastPollResponse:
		return "poll_response"
	case ActionPostForumReply:
		return "forum_reply"
	case ActionSendMessage:
		return "message"
	case ActionUpdatePreferences:
		return "preferences"
	default:
		return fmt.Sprintf("action_type(%d)", int(t))
	}
}

// QueuedAction is a durable record of an unconfirmed write awaiting network
// availability. It is removed from the queue only on server confirmation or
// explicit discard.
type QueuedAction struct {
	// ID is the globally unique action identifier (UUIDv7). It doubles as the
	// idempotency key sent to the remote service.
	ID string `json:"id"`

	// Seq is the monotonically increasing insertion sequence assigned by the
	// queue. It is never reused and defines FIFO order among equal priorities.
	Seq int64 `json:"seq"`

	// Type selects the remote operation used to replay the action.
	Type ActionType `json:"type"`

	// Payload is the opaque serialized request body produced by the domain
	// producer. The queue never inspects it.
	Payload []byte `json:"payload"`

	// Credential is the opaque bearer token attached at enqueue time.
	// It is sealed at rest and only held in clear text in memory.
	Credential string `json:"-"`

	// Priority orders draining: higher values replay first.
	Priority int `json:"priority"`

	// LocalRefID optionally references the [MirrorRecord] created
	// optimistically for this write.
	LocalRefID *string `json:"local_ref_id,omitempty"`

	// EnqueuedAt is the time the action was durably accepted.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Rejected marks an action the remote service refused with a validation
	// error. Rejected actions stay visible but are skipped by replay until
	// they are explicitly re-enqueued.
	Rejected bool `json:"rejected"`
}
