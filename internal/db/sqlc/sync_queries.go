package sqlc

import (
	"context"

	"github.com/google/uuid"
)

// GetSyncCheckpoints loads every (type -> ack/updateId) pair recorded
// for a session, used to seed the per-type scan cursors.
func (q *Queries) GetSyncCheckpoints(ctx context.Context, sessionID uuid.UUID) (map[string]SessionSyncCheckpoint, error) {
	rows, err := q.db.Query(ctx, `
		SELECT "sessionId", type, ack, "updateId", "updatedAt" FROM session_sync_checkpoints
		WHERE "sessionId" = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]SessionSyncCheckpoint{}
	for rows.Next() {
		var c SessionSyncCheckpoint
		if err := rows.Scan(&c.SessionID, &c.Type, &c.Ack, &c.UpdateID, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out[c.Type] = c
	}
	return out, rows.Err()
}

// UpsertSyncCheckpoint records the last acked watermark for one
// (session, type) pair; last write wins within a batch.
func (q *Queries) UpsertSyncCheckpoint(ctx context.Context, sessionID uuid.UUID, entityType, updateID string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO session_sync_checkpoints ("sessionId", type, ack, "updateId", "updatedAt")
		VALUES ($1, $2, $3, $3, NOW())
		ON CONFLICT ("sessionId", type) DO UPDATE
		SET ack = EXCLUDED.ack, "updateId" = EXCLUDED."updateId", "updatedAt" = NOW()`,
		sessionID, entityType, updateID)
	return err
}

// ClearSyncCheckpoints deletes every checkpoint for a session, used by
// both the reset protocol and ack-ingestion of SyncResetV1.
func (q *Queries) ClearSyncCheckpoints(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM session_sync_checkpoints WHERE "sessionId" = $1`, sessionID)
	return err
}

// --- per-type scans ----------------------------------------------------
//
// Two families: "simple upsert" over a table with an
// updateId column, and "audit delete" over an append-only *_audit
// table keyed by its own monotonic id. Every row returned here carries
// its own raw watermark string so the sync writer can track the high
// watermark and ack cursor without re-deriving it.

const syncPageSize = 1000

type SyncRow struct {
	Watermark string
	Payload   any
}

// ScanAssetsUpsert returns active/trashed (but not yet deleted) assets
// owned by ownerID with updateId beyond since, oldest first.
func (q *Queries) ScanAssetsUpsert(ctx context.Context, ownerID uuid.UUID, since string) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND "updateId" > $2 AND status != 'deleted'
		ORDER BY "updateId" ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) ScanAssetsAuditDelete(ctx context.Context, ownerID uuid.UUID, since string) ([]AuditRow, error) {
	return q.scanAudit(ctx, "asset_audit", ownerID, since)
}

func (q *Queries) ScanAssetExifsUpsert(ctx context.Context, ownerID uuid.UUID, since string) ([]AssetExif, error) {
	rows, err := q.db.Query(ctx, `
		SELECT ae.* FROM (SELECT `+assetExifColumns+` FROM asset_exif) ae
		JOIN assets a ON a.id = ae."assetId"
		WHERE a."ownerId" = $1 AND ae."updateId" > $2 AND a.status != 'deleted'
		ORDER BY ae."updateId" ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssetExif
	for rows.Next() {
		e, err := scanAssetExif(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) ScanAlbumsUpsert(ctx context.Context, userID uuid.UUID, since string) ([]Album, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+albumColumns+` FROM albums a
		WHERE ("ownerId" = $1 OR EXISTS (SELECT 1 FROM album_users au WHERE au."albumId" = a.id AND au."userId" = $1))
		  AND "updateId" > $2
		ORDER BY "updateId" ASC LIMIT $3`, userID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) ScanAlbumsAuditDelete(ctx context.Context, userID uuid.UUID, since string) ([]AuditRow, error) {
	return q.scanAudit(ctx, "album_audit", userID, since)
}

type AlbumAssetRow struct {
	AlbumID  uuid.UUID
	AssetID  uuid.UUID
	UpdateID string
}

// ScanAlbumAssetsUpsert reports membership rows whose watermark (the
// owning album's updateId is used as a proxy, since membership rows
// have no updateId of their own in the source schema) is beyond since.
func (q *Queries) ScanAlbumAssetsUpsert(ctx context.Context, userID uuid.UUID, since string) ([]AlbumAssetRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT aa."albumId", aa."assetId", a."updateId"
		FROM album_assets aa
		JOIN albums a ON a.id = aa."albumId"
		WHERE (a."ownerId" = $1 OR EXISTS (SELECT 1 FROM album_users au WHERE au."albumId" = a.id AND au."userId" = $1))
		  AND a."updateId" > $2
		ORDER BY a."updateId" ASC LIMIT $3`, userID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AlbumAssetRow
	for rows.Next() {
		var r AlbumAssetRow
		if err := rows.Scan(&r.AlbumID, &r.AssetID, &r.UpdateID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type AlbumUserRow struct {
	AlbumID  uuid.UUID
	UserID   uuid.UUID
	Role     AlbumUserRole
	UpdateID string
}

func (q *Queries) ScanAlbumUsersUpsert(ctx context.Context, userID uuid.UUID, since string) ([]AlbumUserRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT au."albumId", au."userId", au.role, a."updateId"
		FROM album_users au
		JOIN albums a ON a.id = au."albumId"
		WHERE (a."ownerId" = $1 OR au."userId" = $1) AND a."updateId" > $2
		ORDER BY a."updateId" ASC LIMIT $3`, userID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AlbumUserRow
	for rows.Next() {
		var r AlbumUserRow
		if err := rows.Scan(&r.AlbumID, &r.UserID, &r.Role, &r.UpdateID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) ScanMemoriesUpsert(ctx context.Context, ownerID uuid.UUID, since string) ([]Memory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE "ownerId" = $1 AND "updateId" > $2
		ORDER BY "updateId" ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type MemoryAssetRow struct {
	MemoryID uuid.UUID
	AssetID  uuid.UUID
	UpdateID string
}

func (q *Queries) ScanMemoryAssetsUpsert(ctx context.Context, ownerID uuid.UUID, since string) ([]MemoryAssetRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT ma."memoriesId", ma."assetId", m."updateId"
		FROM memory_assets ma
		JOIN memories m ON m.id = ma."memoriesId"
		WHERE m."ownerId" = $1 AND m."updateId" > $2
		ORDER BY m."updateId" ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemoryAssetRow
	for rows.Next() {
		var r MemoryAssetRow
		if err := rows.Scan(&r.MemoryID, &r.AssetID, &r.UpdateID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) ScanPartnersUpsert(ctx context.Context, userID uuid.UUID, since string) ([]Partner, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+partnerColumns+` FROM partners
		WHERE ("sharedById" = $1 OR "sharedWithId" = $1) AND "updateId" > $2
		ORDER BY "updateId" ASC LIMIT $3`, userID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) ScanStacksUpsert(ctx context.Context, ownerID uuid.UUID, since string) ([]Stack, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+stackColumns+` FROM stacks
		WHERE "ownerId" = $1 AND "updateId" > $2
		ORDER BY "updateId" ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stack
	for rows.Next() {
		s, err := scanStack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) ScanUsersUpsert(ctx context.Context, userID uuid.UUID, since string) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = $1 AND "updateId" > $2 AND "deletedAt" IS NULL
		ORDER BY "updateId" ASC LIMIT $3`, userID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ScanAssetMetadataUpsert returns asset_metadata rows owned by ownerID
// whose updatedAt is beyond the time encoded in since (RFC3339Nano),
// oldest first. asset_metadata has no updateId column, so its
// watermark is the row's own updatedAt timestamp rather than an
// idgen-style id.
func (q *Queries) ScanAssetMetadataUpsert(ctx context.Context, ownerID uuid.UUID, since string) ([]AssetMetadataEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT m."assetId", m.key, m.value, m."updatedAt"
		FROM asset_metadata m
		JOIN assets a ON a.id = m."assetId"
		WHERE a."ownerId" = $1 AND m."updatedAt" > $2::timestamptz AND a.status != 'deleted'
		ORDER BY m."updatedAt" ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssetMetadataEntry
	for rows.Next() {
		var m AssetMetadataEntry
		if err := rows.Scan(&m.AssetID, &m.Key, &m.Value, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetSessionSyncResetState reports whether the session has a pending
// forced reset.
func (q *Queries) GetSessionSyncResetState(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var pending bool
	err := q.db.QueryRow(ctx, `SELECT "isPendingSyncReset" FROM sessions WHERE id = $1`, sessionID).Scan(&pending)
	return pending, err
}

// scanAudit is the shared implementation of every "<entity>_audit"
// delete scan: rows are keyed by their own monotonic id rather than
// an updateId.
func (q *Queries) scanAudit(ctx context.Context, table string, ownerID uuid.UUID, since string) ([]AuditRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, "ownerId", "entityId", "deletedAt" FROM `+table+`
		WHERE "ownerId" = $1 AND id > $2
		ORDER BY id ASC LIMIT $3`, ownerID, since, syncPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var a AuditRow
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.EntityID, &a.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAuditRow appends a tombstone row to the given entity's audit
// table; callers do this at the point of hard/soft removal so the
// sync engine's delete scans have something to emit.
func (q *Queries) InsertAuditRow(ctx context.Context, table string, id string, ownerID, entityID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO `+table+` (id, "ownerId", "entityId", "deletedAt") VALUES ($1, $2, $3, NOW())`,
		id, ownerID, entityID)
	return err
}
