// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

type mirrorRepository struct {
	*DB
	codec payloadCodec
	locks *keyedLock
	ids   *utils.UUIDGenerator
	now   func() time.Time
}

// NewMirrorRepository returns a [MirrorRepository] that compresses payloads
// larger than compressThreshold bytes.
func NewMirrorRepository(db *DB, compressThreshold int) MirrorRepository {
	return &mirrorRepository{
		DB:    db,
		codec: payloadCodec{threshold: compressThreshold},
		locks: newKeyedLock(),
		ids:   utils.NewUUIDGenerator(),
		now:   time.Now,
	}
}

// Upsert creates or replaces a record.
//
// Versioning rules for an existing id:
//   - rec.Version == 0 bumps the stored version by one
//   - rec.Version greater than the stored version is written as is
//   - anything else fails with ErrVersionConflict and returns the stored
//     record, which wins
//
// An empty id creates a new local record at version 1 with status pending.
func (r *mirrorRepository) Upsert(ctx context.Context, rec models.MirrorRecord) (models.MirrorRecord, error) {
	log := logger.FromContext(ctx)

	if rec.ID == "" {
		rec.ID = r.ids.Generate()
		rec.Version = 1
		rec.Status = models.StatusPending
	}
	if rec.Status != "" && !rec.Status.Valid() {
		return models.MirrorRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, rec.Status)
	}

	unlock := r.locks.Lock(rec.ID)
	defer unlock()

	var stored models.MirrorRecord
	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		current, err := r.getRecord(ctx, tx, rec.ID)
		switch {
		case errors.Is(err, ErrRecordNotFound):
			stored, err = r.insert(ctx, tx, rec)
			return err
		case err != nil:
			return err
		}

		stored, err = r.update(ctx, tx, current, rec)
		return err
	})
	if errors.Is(err, ErrVersionConflict) {
		log.Debug().
			Str("func", "mirrorRepository.Upsert").
			Str("record_id", rec.ID).
			Int64("stored_version", stored.Version).
			Int64("incoming_version", rec.Version).
			Msg("stale write rejected, stored record wins")
		return stored, err
	}
	if err != nil {
		log.Err(err).
			Str("func", "mirrorRepository.Upsert").
			Str("record_id", rec.ID).
			Msg("failed to upsert mirror record")
		return models.MirrorRecord{}, fmt.Errorf("failed to upsert mirror record (id=%s): %w", rec.ID, err)
	}

	return stored, nil
}

func (r *mirrorRepository) insert(ctx context.Context, tx DBTX, rec models.MirrorRecord) (models.MirrorRecord, error) {
	now := r.now().UTC()
	if rec.Version < 1 {
		rec.Version = 1
	}
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	payload, compressed, err := r.codec.encode(rec.Payload)
	if err != nil {
		return models.MirrorRecord{}, err
	}

	if _, err = tx.ExecContext(ctx, insertMirrorRecord,
		rec.ID,
		rec.ServerID,
		string(rec.Kind),
		payload,
		compressed,
		rec.SearchText,
		string(rec.Status),
		rec.Version,
		rec.CreatedAt.UnixNano(),
		rec.UpdatedAt.UnixNano(),
	); err != nil {
		return models.MirrorRecord{}, err
	}

	if err = r.index(ctx, tx, rec); err != nil {
		return models.MirrorRecord{}, err
	}

	return rec, nil
}

func (r *mirrorRepository) update(ctx context.Context, tx DBTX, current, rec models.MirrorRecord) (models.MirrorRecord, error) {
	newVersion := rec.Version
	if newVersion == 0 {
		newVersion = current.Version + 1
	}
	if newVersion <= current.Version {
		return current, ErrVersionConflict
	}

	status := current.Status
	if rec.Status != "" && rec.Status != current.Status {
		if !current.Status.CanTransition(rec.Status) {
			return models.MirrorRecord{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, rec.Status)
		}
		status = rec.Status
	}

	serverID := current.ServerID
	if rec.ServerID != nil {
		serverID = rec.ServerID
	}
	kind := current.Kind

	payload, compressed, err := r.codec.encode(rec.Payload)
	if err != nil {
		return models.MirrorRecord{}, err
	}

	updatedAt := r.now().UTC()
	result, err := tx.ExecContext(ctx, updateMirrorRecord,
		serverID,
		payload,
		compressed,
		rec.SearchText,
		string(status),
		newVersion,
		updatedAt.UnixNano(),
		current.ID,
		newVersion,
	)
	if err != nil {
		return models.MirrorRecord{}, err
	}
	if affected, err := result.RowsAffected(); err != nil {
		return models.MirrorRecord{}, err
	} else if affected == 0 {
		return current, ErrVersionConflict
	}

	updated := models.MirrorRecord{
		ID:         current.ID,
		ServerID:   serverID,
		Kind:       kind,
		Payload:    rec.Payload,
		SearchText: rec.SearchText,
		Status:     status,
		Version:    newVersion,
		CreatedAt:  current.CreatedAt,
		UpdatedAt:  updatedAt,
	}

	if err = r.index(ctx, tx, updated); err != nil {
		return models.MirrorRecord{}, err
	}

	return updated, nil
}

// index replaces the full-text entry of a text-bearing record.
func (r *mirrorRepository) index(ctx context.Context, tx DBTX, rec models.MirrorRecord) error {
	if !rec.Kind.TextBearing() {
		return nil
	}

	if _, err := tx.ExecContext(ctx, deleteMirrorFTS, rec.ID); err != nil {
		return err
	}

	body := rec.SearchText
	if body == "" {
		body = string(rec.Payload)
	}

	_, err := tx.ExecContext(ctx, insertMirrorFTS, rec.ID, body)
	return err
}

func (r *mirrorRepository) Get(ctx context.Context, kind models.RecordKind, id string) (models.MirrorRecord, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return models.MirrorRecord{}, err
	}
	if rec.Kind != kind {
		return models.MirrorRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *mirrorRepository) GetByID(ctx context.Context, id string) (models.MirrorRecord, error) {
	rec, err := r.getRecord(ctx, r.DB, id)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		logger.FromContext(ctx).Err(err).
			Str("func", "mirrorRepository.GetByID").
			Str("record_id", id).
			Msg("failed to get mirror record")
		return models.MirrorRecord{}, fmt.Errorf("failed to get mirror record (id=%s): %w", id, err)
	}
	return rec, err
}

func (r *mirrorRepository) getRecord(ctx context.Context, q DBTX, id string) (models.MirrorRecord, error) {
	rec, err := r.scanRecord(q.QueryRowContext(ctx, getMirrorRecord, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MirrorRecord{}, ErrRecordNotFound
	}
	return rec, err
}

// Query returns records matching filter, most recently updated first.
// Records whose payload cannot be decoded are skipped and logged.
func (r *mirrorRepository) Query(ctx context.Context, filter models.MirrorFilter) ([]models.MirrorRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildMirrorQuery(filter)
	if err != nil {
		log.Err(err).Str("func", "mirrorRepository.Query").Msg("failed to build mirror query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "mirrorRepository.Query").
			Msg("failed to query mirror records")
		return nil, fmt.Errorf("failed to query mirror records: %w", r.storageError(err))
	}
	defer rows.Close()

	var records []models.MirrorRecord
	for rows.Next() {
		rec, scanErr := r.scanRecord(rows)
		if errors.Is(scanErr, ErrEntityUnavailable) {
			log.Warn().Err(scanErr).
				Str("func", "mirrorRepository.Query").
				Msg("skipping undecodable mirror record")
			continue
		}
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "mirrorRepository.Query").
				Msg("failed to scan mirror record row")
			return nil, fmt.Errorf("failed to scan mirror record row: %w", scanErr)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "mirrorRepository.Query").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating mirror record rows: %w", r.storageError(rowsErr))
	}

	return records, nil
}

func buildMirrorQuery(filter models.MirrorFilter) (string, []any, error) {
	q := sq.Select(
		"id", "server_id", "kind", "payload", "compressed", "search_text",
		"status", "version", "created_at", "updated_at",
	).From("mirror_records")

	if filter.Kind != "" {
		q = q.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	if filter.UpdatedBefore != nil {
		q = q.Where(sq.Lt{"updated_at": filter.UpdatedBefore.UnixNano()})
	}
	if filter.Text != "" {
		q = q.Where("id IN (SELECT record_id FROM mirror_fts WHERE mirror_fts MATCH ?)", filter.Text)
	}

	q = q.OrderBy("updated_at DESC", "id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	return q.PlaceholderFormat(sq.Question).ToSql()
}

// Delete removes the record and its index entry. Deleting a missing record
// is a no-op.
func (r *mirrorRepository) Delete(ctx context.Context, kind models.RecordKind, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		result, err := tx.ExecContext(ctx, deleteMirrorRecord, id, string(kind))
		if err != nil {
			return err
		}
		if affected, err := result.RowsAffected(); err != nil || affected == 0 {
			return err
		}
		_, err = tx.ExecContext(ctx, deleteMirrorFTS, id)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "mirrorRepository.Delete").
			Str("record_id", id).
			Msg("failed to delete mirror record")
		return fmt.Errorf("failed to delete mirror record (id=%s): %w", id, err)
	}

	return nil
}

// Transition advances the record along path. Steps already behind the
// current status are skipped; a record already at the final status is left
// untouched. Every applied step bumps the version.
func (r *mirrorRepository) Transition(ctx context.Context, id string, serverID *string, path ...models.SyncStatus) (models.MirrorRecord, error) {
	if len(path) == 0 {
		return models.MirrorRecord{}, fmt.Errorf("%w: empty path", ErrInvalidStatusTransition)
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	var result models.MirrorRecord
	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		current, err := r.getRecord(ctx, tx, id)
		if err != nil {
			return err
		}

		steps := remainingSteps(current.Status, path)
		now := r.now().UTC()
		for _, next := range steps {
			if !current.Status.CanTransition(next) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, next)
			}

			res, err := tx.ExecContext(ctx, updateMirrorStatus,
				string(next),
				serverID,
				now.UnixNano(),
				id,
				string(current.Status),
			)
			if err != nil {
				return err
			}
			if affected, err := res.RowsAffected(); err != nil {
				return err
			} else if affected == 0 {
				return ErrRecordNotFound
			}

			current.Status = next
			current.Version++
			current.UpdatedAt = now
			if serverID != nil {
				current.ServerID = serverID
			}
		}

		result = current
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "mirrorRepository.Transition").
			Str("record_id", id).
			Msg("failed to transition mirror record")
		return models.MirrorRecord{}, fmt.Errorf("failed to transition mirror record (id=%s): %w", id, err)
	}

	return result, nil
}

// remainingSteps returns the part of path after the current status; when
// the current status is not on the path the whole path applies.
func remainingSteps(current models.SyncStatus, path []models.SyncStatus) []models.SyncStatus {
	if path[len(path)-1] == current {
		return nil
	}
	if i := slices.Index(path, current); i >= 0 {
		return path[i+1:]
	}
	return path
}

// PurgeBefore deletes synced records last updated before cutoff; pending and
// failed records are never purged.
func (r *mirrorRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := r.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, purgeMirrorFTS, cutoff.UnixNano()); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, purgeMirrorRecords, cutoff.UnixNano())
		if err != nil {
			return err
		}

		purged, err = result.RowsAffected()
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "mirrorRepository.PurgeBefore").
			Time("cutoff", cutoff).
			Msg("failed to purge mirror records")
		return 0, fmt.Errorf("failed to purge mirror records: %w", err)
	}

	return purged, nil
}

func (r *mirrorRepository) scanRecord(row rowScanner) (models.MirrorRecord, error) {
	var (
		rec        models.MirrorRecord
		serverID   sql.NullString
		kind       string
		stored     []byte
		compressed bool
		status     string
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(
		&rec.ID,
		&serverID,
		&kind,
		&stored,
		&compressed,
		&rec.SearchText,
		&status,
		&rec.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MirrorRecord{}, err
		}
		return models.MirrorRecord{}, r.storageError(err)
	}

	payload, err := r.codec.decode(stored, compressed)
	if err != nil {
		return models.MirrorRecord{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	rec.Kind = models.RecordKind(kind)
	rec.Status = models.SyncStatus(status)
	rec.Payload = payload
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if serverID.Valid {
		id := serverID.String
		rec.ServerID = &id
	}

	return rec, nil
}
