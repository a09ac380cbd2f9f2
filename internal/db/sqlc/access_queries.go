package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// filterUUIDs runs a query of the shape "SELECT <uuid col> FROM ...
// WHERE col = ANY($1) AND ..." and returns the surviving ids. It
// backs every AccessGuard membership predicate in this file: each
// predicate is a single chunked query over a caller-supplied id set
// (internal/access does the >500 chunking; this layer just answers
// one chunk).
func (q *Queries) filterUUIDs(ctx context.Context, query string, ids []uuid.UUID, extraArgs ...any) ([]uuid.UUID, error) {
	args := append([]any{ids}, extraArgs...)
	rows, err := q.db.Query(ctx, query, args...)
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

// FilterAssetsOwnedBy returns the subset of ids owned by userID,
// excluding hard-deleted rows. Backs every owner-only asset
// permission (update/delete/share/replace/copy).
func (q *Queries) FilterAssetsOwnedBy(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `
		SELECT id FROM assets WHERE id = ANY($1) AND "ownerId" = $2 AND status != 'deleted'`,
		ids, userID)
}

// FilterAssetsReadable implements the asset.read/view/download union
// predicate: ownership, album membership (owned or
// shared with the user), or partner visibility. Trashed assets
// (deletedAt set) only satisfy the predicate through the owner
// clause, and only when includeTrashed is true (asset.read); every
// cross-user clause excludes them unconditionally, and locked-
// visibility assets require an elevated (PIN-unlocked) session.
func (q *Queries) FilterAssetsReadable(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, includeTrashed, elevated bool) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `
		SELECT a.id FROM assets a
		WHERE a.id = ANY($1)
		  AND a.status != 'deleted'
		  AND (a.visibility != 'locked' OR (a."ownerId" = $2 AND $3))
		  AND (
			(a."ownerId" = $2 AND (a."deletedAt" IS NULL OR $4))
			OR (a."deletedAt" IS NULL AND EXISTS (
				SELECT 1 FROM album_assets aa
				JOIN albums al ON al.id = aa."albumId"
				LEFT JOIN album_users au ON au."albumId" = al.id AND au."userId" = $2
				WHERE aa."assetId" = a.id AND (al."ownerId" = $2 OR au."userId" = $2)
			))
			OR (a."deletedAt" IS NULL AND a.visibility IN ('timeline', 'hidden') AND EXISTS (
				SELECT 1 FROM partners p
				WHERE p."sharedById" = a."ownerId" AND p."sharedWithId" = $2
			))
		  )`,
		ids, userID, elevated, includeTrashed)
}

// FilterAssetsViaSharedLink returns the subset of ids a shared link
// grants read access to: directly listed assets, or (when the link
// targets an album) assets in that album.
func (q *Queries) FilterAssetsViaSharedLink(ctx context.Context, sharedLinkID uuid.UUID, albumID pgtype.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `
		SELECT a.id FROM assets a
		WHERE a.id = ANY($1) AND a.status != 'deleted' AND a."deletedAt" IS NULL
		  AND (
			EXISTS (SELECT 1 FROM shared_link_assets sla WHERE sla."sharedLinkId" = $2 AND sla."assetId" = a.id)
			OR ($3::uuid IS NOT NULL AND EXISTS (
				SELECT 1 FROM album_assets aa WHERE aa."albumId" = $3 AND aa."assetId" = a.id
			))
		  )`,
		ids, sharedLinkID, albumID)
}

// FilterAlbumsOwnedBy returns the subset of ids owned by userID.
// Backs album.update/delete/share.
func (q *Queries) FilterAlbumsOwnedBy(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `SELECT id FROM albums WHERE id = ANY($1) AND "ownerId" = $2`, ids, userID)
}

// FilterAlbumsReadable returns the subset of ids userID owns or is a
// member of (editor or viewer). Backs album.read.
func (q *Queries) FilterAlbumsReadable(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `
		SELECT a.id FROM albums a
		WHERE a.id = ANY($1)
		  AND (a."ownerId" = $2 OR EXISTS (SELECT 1 FROM album_users au WHERE au."albumId" = a.id AND au."userId" = $2))`,
		ids, userID)
}

// FilterActivityCreatableAlbums returns the subset of ids that have
// activities enabled and userID either owns or is a member of. Backs
// activity.create.
func (q *Queries) FilterActivityCreatableAlbums(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `
		SELECT a.id FROM albums a
		WHERE a.id = ANY($1) AND a."isActivityEnabled"
		  AND (a."ownerId" = $2 OR EXISTS (SELECT 1 FROM album_users au WHERE au."albumId" = a.id AND au."userId" = $2))`,
		ids, userID)
}

// FilterPartnersUpdatableBy returns the subset of sharedByIDs for
// which sharedWithID is the partner's sharedWithId -- the only
// principal allowed to call partner.update.
func (q *Queries) FilterPartnersUpdatableBy(ctx context.Context, sharedWithID uuid.UUID, sharedByIDs []uuid.UUID) ([]uuid.UUID, error) {
	return q.filterUUIDs(ctx, `
		SELECT "sharedById" FROM partners WHERE "sharedById" = ANY($1) AND "sharedWithId" = $2`,
		sharedByIDs, sharedWithID)
}
