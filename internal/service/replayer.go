// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MKhiriev/civic-sync/internal/adapter"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/notify"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

const (
	defaultItemTimeout = 30 * time.Second
	defaultClaimLease  = 2 * time.Minute
)

// ReplayerConfig tunes a [Replayer].
type ReplayerConfig struct {
	// Owner identifies this replayer in claim leases. Two replayers sharing a
	// queue must use different owners; empty means a fresh random owner.
	Owner string
	// Lease is how long a claimed action stays exclusive.
	Lease time.Duration
	// ItemTimeout bounds each remote call.
	ItemTimeout time.Duration
	// Source tags the outcomes this replayer publishes.
	Source models.OutcomeSource
}

type replayer struct {
	queue  store.ActionQueueRepository
	mirror store.MirrorRepository
	server adapter.ServerAdapter

	credentials CredentialValidator
	publisher   notify.Publisher
	ids         *utils.UUIDGenerator

	owner       string
	lease       time.Duration
	itemTimeout time.Duration
	source      models.OutcomeSource
	now         func() time.Time

	logger *logger.Logger
}

// NewReplayer builds the replay algorithm over storages. Outcomes of every
// resolved action are sent to publisher.
func NewReplayer(storages *store.ClientStorages, server adapter.ServerAdapter, credentials CredentialValidator, publisher notify.Publisher, cfg ReplayerConfig, logger *logger.Logger) Replayer {
	ids := utils.NewUUIDGenerator()

	r := &replayer{
		queue:       storages.ActionQueue,
		mirror:      storages.Mirror,
		server:      server,
		credentials: credentials,
		publisher:   publisher,
		ids:         ids,
		owner:       cfg.Owner,
		lease:       cfg.Lease,
		itemTimeout: cfg.ItemTimeout,
		source:      cfg.Source,
		now:         time.Now,
		logger:      logger,
	}

	if r.owner == "" {
		r.owner = string(r.source) + "-" + ids.Generate()
	}
	if r.lease <= 0 {
		r.lease = defaultClaimLease
	}
	if r.itemTimeout <= 0 {
		r.itemTimeout = defaultItemTimeout
	}
	if r.publisher == nil {
		r.publisher = notify.Discard
	}

	return r
}

// itemResult is how one action was resolved.
type itemResult int

const (
	itemSkipped itemResult = iota
	itemSucceeded
	itemFailed
)

func (r *replayer) Drain(ctx context.Context) (models.ReplayReport, error) {
	ctx = r.passContext(ctx)
	log := logger.FromContext(ctx)

	var report models.ReplayReport

	actions, err := r.queue.List(ctx)
	if err != nil {
		log.Err(err).Str("func", "replayer.Drain").Msg("failed to list queued actions")
		return report, fmt.Errorf("failed to list queued actions: %w", err)
	}

	log.Info().Str("func", "replayer.Drain").Int("queued", len(actions)).Msg("replay pass started")

	for _, action := range actions {
		if err = ctx.Err(); err != nil {
			log.Warn().Err(err).Str("func", "replayer.Drain").Msg("replay pass cancelled")
			return report, err
		}
		r.count(&report, r.replay(ctx, action))
	}

	log.Info().
		Str("func", "replayer.Drain").
		Int("attempted", report.Attempted).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("replay pass finished")

	return report, nil
}

func (r *replayer) ReplayAction(ctx context.Context, id string) (models.ReplayReport, error) {
	ctx = r.passContext(ctx)

	var report models.ReplayReport

	action, err := r.queue.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrActionNotFound) {
			// already confirmed or discarded
			report.Skipped++
			return report, nil
		}
		return report, fmt.Errorf("failed to load queued action: %w", err)
	}

	r.count(&report, r.replay(ctx, action))
	return report, nil
}

func (r *replayer) count(report *models.ReplayReport, result itemResult) {
	switch result {
	case itemSucceeded:
		report.Attempted++
		report.Succeeded++
	case itemFailed:
		report.Attempted++
		report.Failed++
	default:
		report.Skipped++
	}
}

// passContext attaches a pass id and a logger carrying it.
func (r *replayer) passContext(ctx context.Context) context.Context {
	passID := r.ids.Generate()
	l := r.logger.GetChildLogger()
	l.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("pass_id", passID).Str("source", string(r.source))
	})
	return l.WithContext(utils.WithPassID(ctx, passID))
}

// replay resolves one action. It never returns an error: every failure is
// classified, reported and left for the next pass.
func (r *replayer) replay(ctx context.Context, action models.QueuedAction) itemResult {
	log := logger.FromContext(ctx).With().Str("action_id", action.ID).Logger()

	if action.Rejected {
		return itemSkipped
	}

	claimed, err := r.queue.Claim(ctx, action.ID, r.owner, r.lease)
	if err != nil {
		log.Err(err).Str("func", "replayer.replay").Msg("failed to claim action")
		r.publish(ctx, action, models.OutcomeFailure, models.FailureStorage, nil)
		return itemFailed
	}
	if !claimed {
		log.Debug().Str("func", "replayer.replay").Msg("action is leased by another pass or gone")
		return itemSkipped
	}
	defer func() {
		if relErr := r.queue.Release(context.WithoutCancel(ctx), action.ID, r.owner); relErr != nil {
			log.Warn().Err(relErr).Str("func", "replayer.replay").Msg("failed to release claim")
		}
	}()

	confirmed, err := r.alreadyConfirmed(ctx, action)
	if err != nil {
		log.Err(err).Str("func", "replayer.replay").Msg("failed to read mirror record")
		r.publish(ctx, action, models.OutcomeFailure, models.FailureStorage, nil)
		return itemFailed
	}
	if confirmed {
		// confirmed by an earlier pass that could not remove the action
		if err = r.queue.Remove(ctx, action.ID); err != nil {
			log.Warn().Err(err).Str("func", "replayer.replay").Msg("failed to remove confirmed action")
		}
		log.Info().Str("func", "replayer.replay").Msg("action already confirmed, not resubmitted")
		return itemSkipped
	}

	if err = r.credentials.Validate(action.Credential); err != nil {
		log.Warn().Err(err).Str("func", "replayer.replay").Msg("credential rejected locally, action stays queued")
		r.publish(ctx, action, models.OutcomeFailure, models.FailureUnauthorized, nil)
		return itemFailed
	}

	callCtx, cancel := context.WithTimeout(ctx, r.itemTimeout)
	serverID, err := r.server.Submit(callCtx, action)
	cancel()

	if err != nil {
		return r.fail(ctx, action, err)
	}
	return r.succeed(ctx, action, serverID)
}

func (r *replayer) alreadyConfirmed(ctx context.Context, action models.QueuedAction) (bool, error) {
	if action.LocalRefID == nil {
		return false, nil
	}

	rec, err := r.mirror.GetByID(ctx, *action.LocalRefID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return rec.Status == models.StatusSynced, nil
}

func (r *replayer) succeed(ctx context.Context, action models.QueuedAction, serverID string) itemResult {
	log := logger.FromContext(ctx).With().Str("action_id", action.ID).Logger()

	var sid *string
	if serverID != "" {
		sid = &serverID
	}

	// the record goes first: if removing the action fails afterwards, the
	// next pass finds the record synced and does not resubmit
	if action.LocalRefID != nil {
		_, err := r.mirror.Transition(ctx, *action.LocalRefID, sid, models.StatusSent, models.StatusSynced)
		switch {
		case err == nil, errors.Is(err, store.ErrRecordNotFound):
		default:
			log.Err(err).
				Str("func", "replayer.succeed").
				Str("record_id", *action.LocalRefID).
				Msg("failed to mark record synced")
		}
	}

	// a discarded action is already gone; removing it again is a no-op
	if err := r.queue.Remove(ctx, action.ID); err != nil {
		log.Err(err).Str("func", "replayer.succeed").Msg("failed to remove replayed action")
	}

	log.Info().
		Str("func", "replayer.succeed").
		Str("type", action.Type.String()).
		Str("server_id", serverID).
		Msg("action replayed")

	r.publish(ctx, action, models.OutcomeSuccess, models.FailureNone, sid)
	return itemSucceeded
}

func (r *replayer) fail(ctx context.Context, action models.QueuedAction, cause error) itemResult {
	log := logger.FromContext(ctx).With().Str("action_id", action.ID).Logger()
	kind := adapter.Classify(cause)

	log.Warn().Err(cause).
		Str("func", "replayer.fail").
		Str("type", action.Type.String()).
		Str("failure", string(kind)).
		Msg("action replay failed")

	if kind == models.FailureValidation {
		if err := r.queue.Reject(ctx, action.ID); err != nil && !errors.Is(err, store.ErrActionNotFound) {
			log.Err(err).Str("func", "replayer.fail").Msg("failed to park rejected action")
		}
		if action.LocalRefID != nil {
			_, err := r.mirror.Transition(ctx, *action.LocalRefID, nil, models.StatusFailed)
			switch {
			case err == nil, errors.Is(err, store.ErrRecordNotFound):
			default:
				log.Err(err).
					Str("func", "replayer.fail").
					Str("record_id", *action.LocalRefID).
					Msg("failed to mark record failed")
			}
		}
	}

	r.publish(ctx, action, models.OutcomeFailure, kind, nil)
	return itemFailed
}

func (r *replayer) publish(ctx context.Context, action models.QueuedAction, result models.OutcomeResult, kind models.FailureKind, serverID *string) {
	outcome := models.Outcome{
		ActionID:   action.ID,
		LocalRefID: action.LocalRefID,
		Result:     result,
		Failure:    kind,
		ServerID:   serverID,
		Source:     r.source,
		At:         r.now().UTC(),
	}

	if err := r.publisher.Publish(ctx, outcome); err != nil {
		logger.FromContext(ctx).Debug().Err(err).
			Str("func", "replayer.publish").
			Str("action_id", action.ID).
			Msg("failed to publish outcome")
	}
}
