package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var activityColumns = `id, "userId", "albumId", "assetId", "isLiked", comment, "createdAt"`

func scanActivity(row pgxRowScanner) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.UserID, &a.AlbumID, &a.AssetID, &a.IsLiked, &a.Comment, &a.CreatedAt)
	return a, err
}

type CreateActivityParams struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	AlbumID uuid.UUID
	AssetID pgtype.UUID
	IsLiked bool
	Comment pgtype.Text
}

func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) (Activity, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO activities (id, "userId", "albumId", "assetId", "isLiked", comment, "createdAt")
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING `+activityColumns, arg.ID, arg.UserID, arg.AlbumID, arg.AssetID, arg.IsLiked, arg.Comment)
	return scanActivity(row)
}

func (q *Queries) ListActivitiesForAlbum(ctx context.Context, albumID uuid.UUID) ([]Activity, error) {
	rows, err := q.db.Query(ctx, `SELECT `+activityColumns+` FROM activities WHERE "albumId" = $1 ORDER BY "createdAt"`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	return err
}

func (q *Queries) GetActivityByID(ctx context.Context, id uuid.UUID) (Activity, error) {
	row := q.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	return scanActivity(row)
}

// GetLikeActivity finds an existing like by the given user on an album
// or, when assetID is valid, a specific asset within it — used to
// toggle likes idempotently instead of accumulating duplicates.
func (q *Queries) GetLikeActivity(ctx context.Context, albumID, userID uuid.UUID, assetID pgtype.UUID) (Activity, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE "albumId" = $1 AND "userId" = $2 AND "isLiked" = true
		  AND "assetId" IS NOT DISTINCT FROM $3`, albumID, userID, assetID)
	return scanActivity(row)
}

func (q *Queries) CountActivitiesForAlbum(ctx context.Context, albumID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE "albumId" = $1`, albumID).Scan(&n)
	return n, err
}

// SystemMetadata is the process-wide singleton key/value store for
// server configuration and onboarding state.

func (q *Queries) GetSystemMetadata(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := q.db.QueryRow(ctx, `SELECT value FROM system_metadata WHERE key = $1`, key).Scan(&v)
	return v, err
}

func (q *Queries) UpsertSystemMetadata(ctx context.Context, key string, value []byte) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO system_metadata (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

func (q *Queries) ListSystemMetadata(ctx context.Context) ([]SystemMetadataEntry, error) {
	rows, err := q.db.Query(ctx, `SELECT key, value FROM system_metadata ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SystemMetadataEntry
	for rows.Next() {
		var e SystemMetadataEntry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
