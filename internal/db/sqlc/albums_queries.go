package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var albumColumns = `id, "ownerId", "albumName", description, "albumThumbnailAssetId", "order",
	"isActivityEnabled", "createdAt", "updatedAt", "updateId"`

func scanAlbum(row pgxRowScanner) (Album, error) {
	var a Album
	err := row.Scan(&a.ID, &a.OwnerID, &a.AlbumName, &a.Description, &a.AlbumThumbnailAssetID,
		&a.Order, &a.IsActivityEnabled, &a.CreatedAt, &a.UpdatedAt, &a.UpdateID)
	return a, err
}

type CreateAlbumParams struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	AlbumName string
	Description string
	UpdateID  uuid.UUID
}

func (q *Queries) CreateAlbum(ctx context.Context, arg CreateAlbumParams) (Album, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO albums (id, "ownerId", "albumName", description, "order", "isActivityEnabled", "createdAt", "updatedAt", "updateId")
		VALUES ($1, $2, $3, $4, 'desc', true, NOW(), NOW(), $5)
		RETURNING `+albumColumns, arg.ID, arg.OwnerID, arg.AlbumName, arg.Description, arg.UpdateID)
	return scanAlbum(row)
}

func (q *Queries) GetAlbumByID(ctx context.Context, id uuid.UUID) (Album, error) {
	row := q.db.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = $1`, id)
	return scanAlbum(row)
}

func (q *Queries) ListAlbumsOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]Album, error) {
	rows, err := q.db.Query(ctx, `SELECT `+albumColumns+` FROM albums WHERE "ownerId" = $1 ORDER BY "createdAt" DESC`, ownerID)
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

// ListAlbumsVisibleTo includes albums owned by the user and albums
// shared with them as an album-user member.
func (q *Queries) ListAlbumsVisibleTo(ctx context.Context, userID uuid.UUID) ([]Album, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+albumColumns+` FROM albums a
		WHERE a."ownerId" = $1
		   OR EXISTS (SELECT 1 FROM album_users au WHERE au."albumId" = a.id AND au."userId" = $1)
		ORDER BY a."createdAt" DESC`, userID)
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

func (q *Queries) SetAlbumThumbnail(ctx context.Context, albumID uuid.UUID, assetID pgtype.UUID, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE albums SET "albumThumbnailAssetId" = $2, "updatedAt" = NOW(), "updateId" = $3 WHERE id = $1`,
		albumID, assetID, updateID)
	return err
}

// UpdateAlbum updates name/description and, when thumbnailAssetID is
// valid, the thumbnail in one statement.
func (q *Queries) UpdateAlbum(ctx context.Context, id uuid.UUID, name, description string, thumbnailAssetID pgtype.UUID, updateID uuid.UUID) (Album, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE albums SET "albumName" = $2, description = $3,
			"albumThumbnailAssetId" = COALESCE($4, "albumThumbnailAssetId"),
			"updatedAt" = NOW(), "updateId" = $5
		WHERE id = $1
		RETURNING `+albumColumns, id, name, description, thumbnailAssetID, updateID)
	return scanAlbum(row)
}

// GetAlbumSharedUsers returns the users an album has been shared with
// and their role.
type AlbumSharedUser struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   AlbumUserRole
}

func (q *Queries) GetAlbumSharedUsers(ctx context.Context, albumID uuid.UUID) ([]AlbumSharedUser, error) {
	rows, err := q.db.Query(ctx, `
		SELECT u.id, u.email, u.name, au.role
		FROM album_users au JOIN users u ON u.id = au."userId"
		WHERE au."albumId" = $1`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AlbumSharedUser
	for rows.Next() {
		var su AlbumSharedUser
		if err := rows.Scan(&su.UserID, &su.Email, &su.Name, &su.Role); err != nil {
			return nil, err
		}
		out = append(out, su)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteAlbum(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	return err
}

func (q *Queries) AddAssetToAlbum(ctx context.Context, albumID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `INSERT INTO album_assets ("albumId", "assetId") VALUES ($1, $2) ON CONFLICT DO NOTHING`, albumID, assetID)
	return err
}

func (q *Queries) RemoveAssetFromAlbum(ctx context.Context, albumID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM album_assets WHERE "albumId" = $1 AND "assetId" = $2`, albumID, assetID)
	return err
}

func (q *Queries) ListAlbumAssetIDs(ctx context.Context, albumID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT "assetId" FROM album_assets WHERE "albumId" = $1`, albumID)
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

func (q *Queries) AddAlbumUser(ctx context.Context, albumID, userID uuid.UUID, role AlbumUserRole) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO album_users ("albumId", "userId", role) VALUES ($1, $2, $3)
		ON CONFLICT ("albumId", "userId") DO UPDATE SET role = EXCLUDED.role`, albumID, userID, role)
	return err
}

func (q *Queries) RemoveAlbumUser(ctx context.Context, albumID, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM album_users WHERE "albumId" = $1 AND "userId" = $2`, albumID, userID)
	return err
}

func (q *Queries) GetAlbumUserRole(ctx context.Context, albumID, userID uuid.UUID) (AlbumUserRole, error) {
	var role AlbumUserRole
	err := q.db.QueryRow(ctx, `SELECT role FROM album_users WHERE "albumId" = $1 AND "userId" = $2`, albumID, userID).Scan(&role)
	return role, err
}
