// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	enqueueAction = `
		INSERT INTO action_queue (
			id,
			type,
			payload,
			credential,
			priority,
			local_ref_id,
			enqueued_at
		) VALUES (?, ?, ?, ?, ?, ?, ?);`

	actionColumns = `
			seq,
			id,
			type,
			payload,
			credential,
			priority,
			local_ref_id,
			enqueued_at,
			rejected`

	listActions = `
		SELECT` + actionColumns + `
		FROM action_queue
		ORDER BY priority DESC, seq ASC;`

	getAction = `
		SELECT` + actionColumns + `
		FROM action_queue
		WHERE id = ?;`

	countActions = `SELECT COUNT(*) FROM action_queue;`

	removeAction = `DELETE FROM action_queue WHERE id = ?;`

	claimAction = `
		UPDATE action_queue
		SET claimed_by = ?, claimed_until = ?
		WHERE id = ?
		  AND (claimed_by IS NULL OR claimed_until < ?);`

	releaseAction = `
		UPDATE action_queue
		SET claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND claimed_by = ?;`

	rejectAction = `
		UPDATE action_queue
		SET rejected = 1, claimed_by = NULL, claimed_until = NULL
		WHERE id = ?;`

	requeueAction = `
		UPDATE action_queue
		SET rejected = 0
		WHERE id = ?;`
)

const (
	mirrorColumns = `
			id,
			server_id,
			kind,
			payload,
			compressed,
			search_text,
			status,
			version,
			created_at,
			updated_at`

	getMirrorRecord = `
		SELECT` + mirrorColumns + `
		FROM mirror_records
		WHERE id = ?;`

	insertMirrorRecord = `
		INSERT INTO mirror_records (` + mirrorColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	// the version guard keeps a slower writer from overwriting a newer row
	updateMirrorRecord = `
		UPDATE mirror_records
		SET server_id = ?,
			payload = ?,
			compressed = ?,
			search_text = ?,
			status = ?,
			version = ?,
			updated_at = ?
		WHERE id = ? AND version < ?;`

	updateMirrorStatus = `
		UPDATE mirror_records
		SET status = ?,
			server_id = COALESCE(?, server_id),
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND status = ?;`

	deleteMirrorRecord = `DELETE FROM mirror_records WHERE id = ? AND kind = ?;`

	insertMirrorFTS = `INSERT INTO mirror_fts (record_id, body) VALUES (?, ?);`

	deleteMirrorFTS = `DELETE FROM mirror_fts WHERE record_id = ?;`

	purgeMirrorFTS = `
		DELETE FROM mirror_fts
		WHERE record_id IN (
			SELECT id FROM mirror_records WHERE status = 'synced' AND updated_at < ?
		);`

	purgeMirrorRecords = `DELETE FROM mirror_records WHERE status = 'synced' AND updated_at < ?;`
)

const (
	getCacheEntry = `
		SELECT key, payload, source_url, stored_at
		FROM response_cache
		WHERE key = ?;`

	putCacheEntry = `
		INSERT INTO response_cache (key, payload, source_url, stored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			source_url = excluded.source_url,
			stored_at = excluded.stored_at;`

	deleteCacheEntry = `DELETE FROM response_cache WHERE key = ?;`

	expireCacheEntry = `DELETE FROM response_cache WHERE key = ? AND stored_at = ?;`

	clearCache = `DELETE FROM response_cache;`

	purgeCache = `DELETE FROM response_cache WHERE stored_at < ?;`
)

const (
	upsertDocument = `
		INSERT INTO documents (id, owner_entity_id, blob, mime_type, size_bytes, file_name, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_entity_id) DO UPDATE SET
			blob = excluded.blob,
			mime_type = excluded.mime_type,
			size_bytes = excluded.size_bytes,
			file_name = excluded.file_name,
			downloaded_at = excluded.downloaded_at;`

	upsertDocumentMetadata = `
		INSERT INTO document_metadata (owner_entity_id, title, source_url, object_key, mime_type, file_name, expected_size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_entity_id) DO UPDATE SET
			title = excluded.title,
			source_url = excluded.source_url,
			object_key = excluded.object_key,
			mime_type = excluded.mime_type,
			file_name = excluded.file_name,
			expected_size = excluded.expected_size;`

	getDocument = `
		SELECT d.id, d.owner_entity_id, d.blob, d.mime_type, d.size_bytes, d.file_name, d.downloaded_at,
			COALESCE(m.title, ''), COALESCE(m.source_url, ''), COALESCE(m.object_key, ''),
			COALESCE(m.mime_type, ''), COALESCE(m.file_name, ''), COALESCE(m.expected_size, 0)
		FROM documents d
		LEFT JOIN document_metadata m ON m.owner_entity_id = d.owner_entity_id
		WHERE d.owner_entity_id = ?;`

	documentExists = `SELECT EXISTS (SELECT 1 FROM documents WHERE owner_entity_id = ?);`

	listDocuments = `
		SELECT d.owner_entity_id, COALESCE(m.title, ''), d.file_name, d.mime_type, d.size_bytes, d.downloaded_at
		FROM documents d
		LEFT JOIN document_metadata m ON m.owner_entity_id = d.owner_entity_id
		ORDER BY d.downloaded_at DESC;`

	deleteDocument = `DELETE FROM documents WHERE owner_entity_id = ?;`

	deleteDocumentMetadata = `DELETE FROM document_metadata WHERE owner_entity_id = ?;`

	deleteAllDocuments = `DELETE FROM documents;`

	deleteAllDocumentMetadata = `DELETE FROM document_metadata;`

	// rank 0 is the most recent download; ties are broken by id so the
	// selection is deterministic
	oldestDocumentOwners = `
		SELECT owner_entity_id
		FROM documents
		ORDER BY downloaded_at DESC, id DESC
		LIMIT -1 OFFSET ?;`

	documentOwnersBefore = `SELECT owner_entity_id FROM documents WHERE downloaded_at < ?;`
)

const (
	pageCount = `PRAGMA page_count;`
	pageSize  = `PRAGMA page_size;`
)
