package sqlc

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListAssetsForFullSync backs the legacy `POST /sync/full-sync`
// endpoint: pages by primary key rather than updateId,
// since the legacy protocol has no watermark concept of its own.
func (q *Queries) ListAssetsForFullSync(ctx context.Context, ownerID uuid.UUID, afterID uuid.UUID, updatedUntil time.Time, limit int32) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND id > $2 AND "updatedAt" <= $3 AND status != 'deleted'
		ORDER BY id ASC LIMIT $4`, ownerID, afterID, updatedUntil, limit)
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

// ListAssetsForDeltaSync returns assets owned by any of ownerIDs
// updated after updatedAfter, filtered to visibility='timeline' for
// rows not owned by the caller's own id (the legacy protocol's
// partner-sharing rule). limit+1 rows are requested so the
// caller can detect truncation.
func (q *Queries) ListAssetsForDeltaSync(ctx context.Context, callerID uuid.UUID, ownerIDs []uuid.UUID, updatedAfter time.Time, limit int32) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = ANY($1) AND "updatedAt" > $2 AND status != 'deleted'
		  AND ("ownerId" = $3 OR visibility = 'timeline')
		ORDER BY "updatedAt" ASC LIMIT $4`, ownerIDs, updatedAfter, callerID, limit)
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

// ListDeletedAssetIDsForDeltaSync returns ids from asset_audit for the
// given owners deleted after deletedAfter, for the legacy delta-sync
// endpoint's `deleted` array.
func (q *Queries) ListDeletedAssetIDsForDeltaSync(ctx context.Context, ownerIDs []uuid.UUID, deletedAfter time.Time) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		SELECT "entityId" FROM asset_audit WHERE "ownerId" = ANY($1) AND "deletedAt" > $2`,
		ownerIDs, deletedAfter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
