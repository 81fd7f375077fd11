package models

import "time"

// OutcomeResult is the result of replaying one queued action.
type OutcomeResult string

const (
	OutcomeSuccess OutcomeResult = "success"
	OutcomeFailure OutcomeResult = "failure"
)

// FailureKind is the high-level failure category that crosses into domain
// code. Low-level transport and storage errors are translated into one of
// these before they leave the sync core.
type FailureKind string

const (
	FailureNone FailureKind = ""
	// FailureTransient is retried on the next pass; the user only sees a
	// "queued" indicator.
	FailureTransient FailureKind = "transient"
	// FailureUnauthorized stays queued and will not self-heal without a
	// fresh credential.
	FailureUnauthorized FailureKind = "unauthorized"
	// FailureValidation marks the record failed; the user has to edit and
	// resubmit.
	FailureValidation FailureKind = "validation"
	// FailureStorage means the local stores could not record the outcome.
	FailureStorage FailureKind = "storage"
)

// OutcomeSource names the execution context that produced an outcome.
type OutcomeSource string

const (
	SourceForeground OutcomeSource = "foreground"
	SourceBackground OutcomeSource = "background"
)

// Outcome is the message sent from a replay pass to any live foreground
// session.
type Outcome struct {
	ActionID   string        `json:"action_id"`
	LocalRefID *string       `json:"local_ref_id,omitempty"`
	Result     OutcomeResult `json:"outcome"`
	Failure    FailureKind   `json:"failure,omitempty"`
	ServerID   *string       `json:"server_id,omitempty"`
	Source     OutcomeSource `json:"source"`
	At         time.Time     `json:"at"`
}

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	// Attempted counts actions this pass claimed and resolved.
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts rejected actions, actions leased by another pass and
	// actions found already confirmed.
	Skipped int `json:"skipped"`
	// Delegated is set when the pass was handed to the background host and
	// the counters are therefore unknown.
	Delegated bool `json:"delegated"`
}

// Add accumulates other into r.
func (r *ReplayReport) Add(other ReplayReport) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Delegated = r.Delegated || other.Delegated
}
