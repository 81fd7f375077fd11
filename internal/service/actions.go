package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/civic-sync/internal/connectivity"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/store"
	"github.com/MKhiriev/civic-sync/internal/validators"
	"github.com/MKhiriev/civic-sync/models"
)

// EnqueueOption adjusts an action before it is queued.
type EnqueueOption func(*models.QueuedAction)

// WithPriority makes the action drain ahead of lower priorities.
func WithPriority(priority int) EnqueueOption {
	return func(a *models.QueuedAction) {
		a.Priority = priority
	}
}

type actionService struct {
	queue    store.ActionQueueRepository
	mirror   store.MirrorRepository
	replayer Replayer
	monitor  *connectivity.Monitor

	validator validators.Validator
	logger    *logger.Logger
}

func NewActionService(storages *store.ClientStorages, replayer Replayer, monitor *connectivity.Monitor, logger *logger.Logger) ActionService {
	return &actionService{
		queue:    storages.ActionQueue,
		mirror:   storages.Mirror,
		replayer: replayer,
		monitor:  monitor,

		validator: validators.NewSyncValidator(),
		logger:    logger,
	}
}

// Enqueue implements [ActionService]. The action is durable before anything
// is sent. A failed immediate replay is not an error: the action simply
// waits for the next pass.
func (s *actionService) Enqueue(ctx context.Context, t models.ActionType, payload []byte, credential string, localRefID *string, opts ...EnqueueOption) (string, error) {
	action := models.QueuedAction{
		Type:       t,
		Payload:    payload,
		Credential: credential,
		LocalRefID: localRefID,
	}
	for _, opt := range opts {
		opt(&action)
	}

	if err := s.validator.Validate(ctx, action); err != nil {
		return "", fmt.Errorf("invalid %s action: %w", t, err)
	}

	queued, err := s.queue.Enqueue(ctx, action)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "actionService.Enqueue").
			Str("type", t.String()).
			Msg("failed to enqueue action")
		return "", fmt.Errorf("failed to enqueue action: %w", err)
	}

	s.replayIfOnline(ctx, queued.ID)
	return queued.ID, nil
}

func (s *actionService) replayIfOnline(ctx context.Context, id string) {
	if !s.monitor.Online() {
		return
	}

	if _, err := s.replayer.ReplayAction(ctx, id); err != nil {
		logger.FromContext(ctx).Warn().Err(err).
			Str("func", "actionService.replayIfOnline").
			Str("action_id", id).
			Msg("immediate replay failed, action stays queued")
	}
}

func (s *actionService) Discard(ctx context.Context, id string) error {
	if err := s.queue.Remove(ctx, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "actionService.Discard").
			Str("action_id", id).
			Msg("failed to discard action")
		return fmt.Errorf("failed to discard action: %w", err)
	}
	return nil
}

// Resubmit implements [ActionService]: the action is unparked and its
// record moves failed -> pending.
func (s *actionService) Resubmit(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	action, err := s.queue.Get(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}

	// the record goes first: a live action whose record is still failed
	// could not reach synced. A repeated call skips the step already taken.
	if action.LocalRefID != nil {
		_, err = s.mirror.Transition(ctx, *action.LocalRefID, nil, models.StatusPending)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			log.Err(err).
				Str("func", "actionService.Resubmit").
				Str("record_id", *action.LocalRefID).
				Msg("failed to reset record status")
			return fmt.Errorf("failed to reset record status: %w", err)
		}
	}

	if err = s.queue.Requeue(ctx, id); err != nil {
		log.Err(err).Str("func", "actionService.Resubmit").Str("action_id", id).Msg("failed to requeue action")
		return fmt.Errorf("failed to requeue action: %w", mapStoreError(err))
	}

	s.replayIfOnline(ctx, id)
	return nil
}

func (s *actionService) Pending(ctx context.Context) ([]models.QueuedAction, error) {
	actions, err := s.queue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending actions: %w", err)
	}
	return actions, nil
}
