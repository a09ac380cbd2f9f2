package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Queries over the shared_links table (id, userId, key, slug,
// expiresAt, password, showExif, allowUpload, allowDownload,
// albumId | assetIds), in the same idiom as the rest of this
// package: raw pgx, db-tagged structs, double-quoted camelCase
// columns.

var sharedLinkColumns = `id, "userId", key, slug, "expiresAt", password, "showExif",
	"allowUpload", "allowDownload", "albumId", "createdAt", "updatedAt"`

func scanSharedLink(row pgxRowScanner) (SharedLink, error) {
	var l SharedLink
	err := row.Scan(&l.ID, &l.UserID, &l.Key, &l.Slug, &l.ExpiresAt, &l.Password,
		&l.ShowExif, &l.AllowUpload, &l.AllowDownload, &l.AlbumID, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

type CreateSharedLinkParams struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Key           []byte
	Slug          pgtype.Text
	ExpiresAt     pgtype.Timestamptz
	Password      pgtype.Text
	ShowExif      bool
	AllowUpload   bool
	AllowDownload bool
	AlbumID       pgtype.UUID
}

// CreateSharedLink inserts a shared link. Exactly one of AlbumID or a
// subsequent AddAssetToSharedLink batch should be populated, per
// invariant 7; callers enforce that before calling this.
func (q *Queries) CreateSharedLink(ctx context.Context, arg CreateSharedLinkParams) (SharedLink, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO shared_links (
			id, "userId", key, slug, "expiresAt", password,
			"showExif", "allowUpload", "allowDownload", "albumId", "createdAt", "updatedAt"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING `+sharedLinkColumns,
		arg.ID, arg.UserID, arg.Key, arg.Slug, arg.ExpiresAt, arg.Password,
		arg.ShowExif, arg.AllowUpload, arg.AllowDownload, arg.AlbumID)
	return scanSharedLink(row)
}

func (q *Queries) GetSharedLink(ctx context.Context, id uuid.UUID) (SharedLink, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sharedLinkColumns+` FROM shared_links WHERE id = $1`, id)
	return scanSharedLink(row)
}

// GetSharedLinkByKey looks a link up by its raw 50-byte key, compared
// exactly by the database; callers use the matched row as is.
func (q *Queries) GetSharedLinkByKey(ctx context.Context, key []byte) (SharedLink, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sharedLinkColumns+` FROM shared_links WHERE key = $1`, key)
	return scanSharedLink(row)
}

func (q *Queries) GetSharedLinkBySlug(ctx context.Context, slug string) (SharedLink, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sharedLinkColumns+` FROM shared_links WHERE slug = $1`, slug)
	return scanSharedLink(row)
}

func (q *Queries) ListSharedLinksForUser(ctx context.Context, userID uuid.UUID) ([]SharedLink, error) {
	rows, err := q.db.Query(ctx, `SELECT `+sharedLinkColumns+` FROM shared_links WHERE "userId" = $1 ORDER BY "createdAt" DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SharedLink
	for rows.Next() {
		l, err := scanSharedLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type UpdateSharedLinkParams struct {
	ID            uuid.UUID
	ExpiresAt     pgtype.Timestamptz
	Password      pgtype.Text
	ShowExif      bool
	AllowUpload   bool
	AllowDownload bool
}

func (q *Queries) UpdateSharedLink(ctx context.Context, arg UpdateSharedLinkParams) (SharedLink, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE shared_links
		SET "expiresAt" = $2, password = $3, "showExif" = $4, "allowUpload" = $5,
		    "allowDownload" = $6, "updatedAt" = NOW()
		WHERE id = $1
		RETURNING `+sharedLinkColumns,
		arg.ID, arg.ExpiresAt, arg.Password, arg.ShowExif, arg.AllowUpload, arg.AllowDownload)
	return scanSharedLink(row)
}

func (q *Queries) DeleteSharedLink(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM shared_links WHERE id = $1`, id)
	return err
}

func (q *Queries) AddAssetToSharedLink(ctx context.Context, sharedLinkID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO shared_link_assets ("sharedLinkId", "assetId") VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, sharedLinkID, assetID)
	return err
}

func (q *Queries) RemoveAssetFromSharedLink(ctx context.Context, sharedLinkID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM shared_link_assets WHERE "sharedLinkId" = $1 AND "assetId" = $2`, sharedLinkID, assetID)
	return err
}

func (q *Queries) GetSharedLinkAssetIDs(ctx context.Context, sharedLinkID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT "assetId" FROM shared_link_assets WHERE "sharedLinkId" = $1`, sharedLinkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
