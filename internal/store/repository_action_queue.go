package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/civic-sync/internal/crypto"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

type actionQueueRepository struct {
	*DB
	sealer crypto.CredentialSealer
	ids    *utils.UUIDGenerator
	now    func() time.Time
}

func NewActionQueueRepository(db *DB, sealer crypto.CredentialSealer) ActionQueueRepository {
	return &actionQueueRepository{
		DB:     db,
		sealer: sealer,
		ids:    utils.NewUUIDGenerator(),
		now:    time.Now,
	}
}

func (r *actionQueueRepository) Enqueue(ctx context.Context, action models.QueuedAction) (models.QueuedAction, error) {
	log := logger.FromContext(ctx)

	if action.ID == "" {
		action.ID = r.ids.Generate()
	}
	if action.EnqueuedAt.IsZero() {
		action.EnqueuedAt = r.now()
	}
	action.EnqueuedAt = action.EnqueuedAt.UTC()
	action.Rejected = false
	if action.Payload == nil {
		action.Payload = []byte{}
	}

	sealed, err := r.sealer.Seal([]byte(action.Credential))
	if err != nil {
		log.Err(err).
			Str("func", "actionQueueRepository.Enqueue").
			Str("action_id", action.ID).
			Msg("failed to seal credential")
		return models.QueuedAction{}, fmt.Errorf("%w: failed to seal credential: %w", ErrStorageUnavailable, err)
	}

	result, err := r.DB.ExecContext(ctx, enqueueAction,
		action.ID,
		int(action.Type),
		action.Payload,
		sealed,
		action.Priority,
		action.LocalRefID,
		action.EnqueuedAt.UnixNano(),
	)
	if err != nil {
		log.Err(err).
			Str("func", "actionQueueRepository.Enqueue").
			Str("action_id", action.ID).
			Msg("failed to insert queued action")
		return models.QueuedAction{}, fmt.Errorf("failed to enqueue action (id=%s): %w", action.ID, r.storageError(err))
	}

	seq, err := result.LastInsertId()
	if err != nil {
		log.Err(err).
			Str("func", "actionQueueRepository.Enqueue").
			Str("action_id", action.ID).
			Msg("failed to read assigned sequence")
		return models.QueuedAction{}, fmt.Errorf("failed to read action sequence: %w", r.storageError(err))
	}
	action.Seq = seq

	log.Debug().
		Str("func", "actionQueueRepository.Enqueue").
		Str("action_id", action.ID).
		Int64("seq", seq).
		Str("type", action.Type.String()).
		Msg("action enqueued")

	return action, nil
}

func (r *actionQueueRepository) List(ctx context.Context) ([]models.QueuedAction, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listActions)
	if err != nil {
		log.Err(err).
			Str("func", "actionQueueRepository.List").
			Msg("failed to query queued actions")
		return nil, fmt.Errorf("failed to list queued actions: %w", r.storageError(err))
	}
	defer rows.Close()

	var actions []models.QueuedAction
	for rows.Next() {
		action, scanErr := r.scanAction(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "actionQueueRepository.List").
				Msg("failed to scan queued action row")
			return nil, fmt.Errorf("failed to scan queued action row: %w", scanErr)
		}
		actions = append(actions, action)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "actionQueueRepository.List").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating queued action rows: %w", r.storageError(rowsErr))
	}

	return actions, nil
}

func (r *actionQueueRepository) Get(ctx context.Context, id string) (models.QueuedAction, error) {
	log := logger.FromContext(ctx)

	action, err := r.scanAction(r.DB.QueryRowContext(ctx, getAction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueuedAction{}, ErrActionNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "actionQueueRepository.Get").
			Str("action_id", id).
			Msg("failed to get queued action")
		return models.QueuedAction{}, fmt.Errorf("failed to get queued action (id=%s): %w", id, err)
	}

	return action, nil
}

func (r *actionQueueRepository) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, countActions).Scan(&n); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "actionQueueRepository.Len").
			Msg("failed to count queued actions")
		return 0, fmt.Errorf("failed to count queued actions: %w", r.storageError(err))
	}
	return n, nil
}

func (r *actionQueueRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, removeAction, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "actionQueueRepository.Remove").
			Str("action_id", id).
			Msg("failed to remove queued action")
		return fmt.Errorf("failed to remove queued action (id=%s): %w", id, r.storageError(err))
	}
	return nil
}

func (r *actionQueueRepository) Claim(ctx context.Context, id, owner string, lease time.Duration) (bool, error) {
	now := r.now()
	result, err := r.DB.ExecContext(ctx, claimAction,
		owner,
		now.Add(lease).UnixNano(),
		id,
		now.UnixNano(),
	)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "actionQueueRepository.Claim").
			Str("action_id", id).
			Str("owner", owner).
			Msg("failed to claim queued action")
		return false, fmt.Errorf("failed to claim queued action (id=%s): %w", id, r.storageError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", r.storageError(err))
	}

	return affected == 1, nil
}

func (r *actionQueueRepository) Release(ctx context.Context, id, owner string) error {
	if _, err := r.DB.ExecContext(ctx, releaseAction, id, owner); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "actionQueueRepository.Release").
			Str("action_id", id).
			Msg("failed to release queued action")
		return fmt.Errorf("failed to release queued action (id=%s): %w", id, r.storageError(err))
	}
	return nil
}

func (r *actionQueueRepository) Reject(ctx context.Context, id string) error {
	return r.setRejected(ctx, "actionQueueRepository.Reject", rejectAction, id)
}

func (r *actionQueueRepository) Requeue(ctx context.Context, id string) error {
	return r.setRejected(ctx, "actionQueueRepository.Requeue", requeueAction, id)
}

func (r *actionQueueRepository) setRejected(ctx context.Context, funcName, query, id string) error {
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", funcName).
			Str("action_id", id).
			Msg("failed to update queued action")
		return fmt.Errorf("failed to update queued action (id=%s): %w", id, r.storageError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", r.storageError(err))
	}
	if affected == 0 {
		return ErrActionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *actionQueueRepository) scanAction(row rowScanner) (models.QueuedAction, error) {
	var (
		action     models.QueuedAction
		actionType int
		sealed     []byte
		localRefID sql.NullString
		enqueuedAt int64
	)

	err := row.Scan(
		&action.Seq,
		&action.ID,
		&actionType,
		&action.Payload,
		&sealed,
		&action.Priority,
		&localRefID,
		&enqueuedAt,
		&action.Rejected,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueuedAction{}, err
		}
		return models.QueuedAction{}, r.storageError(err)
	}

	credential, err := r.sealer.Open(sealed)
	if err != nil {
		return models.QueuedAction{}, fmt.Errorf("%w: failed to open credential of action %s: %w", ErrEntityUnavailable, action.ID, err)
	}

	action.Type = models.ActionType(actionType)
	action.Credential = string(credential)
	action.EnqueuedAt = time.Unix(0, enqueuedAt).UTC()
	if localRefID.Valid {
		ref := localRefID.String
		action.LocalRefID = &ref
	}

	return action, nil
}
