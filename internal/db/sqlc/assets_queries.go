package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var assetColumns = `id, "ownerId", "libraryId", checksum, "originalPath", "originalFileName",
	type, visibility, "isFavorite", "deviceAssetId", "deviceId", "fileCreatedAt",
	"fileModifiedAt", "localDateTime", duration, "livePhotoVideoId", "stackId",
	status, "deletedAt", "updatedAt", "updateId", width, height, thumbhash,
	"fileSizeInByte", "createdAt"`

func scanAsset(row pgxRowScanner) (Asset, error) {
	var a Asset
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.LibraryID, &a.Checksum, &a.OriginalPath, &a.OriginalFileName,
		&a.Type, &a.Visibility, &a.IsFavorite, &a.DeviceAssetID, &a.DeviceID, &a.FileCreatedAt,
		&a.FileModifiedAt, &a.LocalDateTime, &a.Duration, &a.LivePhotoVideoID, &a.StackID,
		&a.Status, &a.DeletedAt, &a.UpdatedAt, &a.UpdateID, &a.Width, &a.Height, &a.Thumbhash,
		&a.FileSizeInByte, &a.CreatedAt,
	)
	return a, err
}

// GetAssetByChecksum implements the (ownerId, libraryId, checksum)
// uniqueness lookup used for upload dedup.
func (q *Queries) GetAssetByChecksum(ctx context.Context, ownerID uuid.UUID, libraryID pgtype.UUID, checksum []byte) (Asset, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND "libraryId" IS NOT DISTINCT FROM $2 AND checksum = $3
		  AND status != 'deleted'`,
		ownerID, libraryID, checksum)
	return scanAsset(row)
}

type CreateAssetParams struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	LibraryID        pgtype.UUID
	Checksum         []byte
	OriginalPath     string
	OriginalFileName string
	Type             AssetType
	Visibility       AssetVisibility
	IsFavorite       bool
	DeviceAssetID    string
	DeviceID         string
	FileCreatedAt    pgtype.Timestamptz
	FileModifiedAt   pgtype.Timestamptz
	LocalDateTime    pgtype.Timestamptz
	Duration         pgtype.Text
	FileSizeInByte   int64
	UpdateID         uuid.UUID
}

// CreateAsset inserts a fresh Asset row. The caller is expected to
// catch a unique_violation on (ownerId, libraryId, checksum) and
// treat it as a duplicate race.
func (q *Queries) CreateAsset(ctx context.Context, arg CreateAssetParams) (Asset, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO assets (
			id, "ownerId", "libraryId", checksum, "originalPath", "originalFileName",
			type, visibility, "isFavorite", "deviceAssetId", "deviceId", "fileCreatedAt",
			"fileModifiedAt", "localDateTime", duration, status, "updatedAt", "updateId",
			"fileSizeInByte", "createdAt"
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			'active', NOW(), $16, $17, NOW()
		) RETURNING `+assetColumns,
		arg.ID, arg.OwnerID, arg.LibraryID, arg.Checksum, arg.OriginalPath, arg.OriginalFileName,
		arg.Type, arg.Visibility, arg.IsFavorite, arg.DeviceAssetID, arg.DeviceID, arg.FileCreatedAt,
		arg.FileModifiedAt, arg.LocalDateTime, arg.Duration, arg.UpdateID, arg.FileSizeInByte)
	return scanAsset(row)
}

func (q *Queries) GetAssetByID(ctx context.Context, id uuid.UUID) (Asset, error) {
	row := q.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	return scanAsset(row)
}

type ReplaceAssetParams struct {
	ID               uuid.UUID
	Checksum         []byte
	OriginalPath     string
	OriginalFileName string
	Type             AssetType
	FileSizeInByte   int64
	UpdateID         uuid.UUID
}

// ReplaceAsset overwrites the blob reference, checksum, and type,
// clears live-photo pairing, and bumps the watermark. Quota deltas
// are the caller's responsibility.
func (q *Queries) ReplaceAsset(ctx context.Context, arg ReplaceAssetParams) (Asset, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE assets
		SET checksum = $2, "originalPath" = $3, "originalFileName" = $4, type = $5,
		    "fileSizeInByte" = $6, "livePhotoVideoId" = NULL, "updatedAt" = NOW(), "updateId" = $7
		WHERE id = $1
		RETURNING `+assetColumns,
		arg.ID, arg.Checksum, arg.OriginalPath, arg.OriginalFileName, arg.Type, arg.FileSizeInByte, arg.UpdateID)
	return scanAsset(row)
}

func (q *Queries) UpdateAssetDimensions(ctx context.Context, id uuid.UUID, width, height pgtype.Int4, thumbhash []byte) error {
	_, err := q.db.Exec(ctx, `
		UPDATE assets SET width = $2, height = $3, thumbhash = $4 WHERE id = $1`,
		id, width, height, thumbhash)
	return err
}

func (q *Queries) SoftDeleteAsset(ctx context.Context, id uuid.UUID, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE assets SET status = 'trashed', "deletedAt" = NOW(), "updatedAt" = NOW(), "updateId" = $2
		WHERE id = $1`, id, updateID)
	return err
}

func (q *Queries) RestoreAsset(ctx context.Context, id uuid.UUID, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE assets SET status = 'active', "deletedAt" = NULL, "updatedAt" = NOW(), "updateId" = $2
		WHERE id = $1 AND status = 'trashed'`, id, updateID)
	return err
}

func (q *Queries) ListTrashedAssets(ctx context.Context, ownerID uuid.UUID) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND status = 'trashed' ORDER BY "deletedAt" DESC`, ownerID)
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

// HardDeleteAsset removes the row for good. A stack led by the asset
// is dissolved first so the primary-asset reference cannot block the
// delete.
func (q *Queries) HardDeleteAsset(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.Exec(ctx, `
		UPDATE assets SET "stackId" = NULL
		WHERE "stackId" IN (SELECT s.id FROM stacks s WHERE s."primaryAssetId" = $1)`, id); err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx, `DELETE FROM stacks WHERE "primaryAssetId" = $1`, id); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	return err
}

// ExistingDeviceAssetIDs implements POST /assets/exist: of the given
// deviceAssetIds for a deviceId, return those already present.
func (q *Queries) ExistingDeviceAssetIDs(ctx context.Context, ownerID uuid.UUID, deviceID string, deviceAssetIDs []string) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		SELECT "deviceAssetId" FROM assets
		WHERE "ownerId" = $1 AND "deviceId" = $2 AND "deviceAssetId" = ANY($3) AND status != 'deleted'`,
		ownerID, deviceID, deviceAssetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AssetByChecksumBrief is the minimal projection bulk-upload-check needs.
type AssetByChecksumBrief struct {
	ID        uuid.UUID
	IsTrashed bool
}

func (q *Queries) BulkFindByChecksum(ctx context.Context, ownerID uuid.UUID, checksum []byte) (AssetByChecksumBrief, error) {
	var b AssetByChecksumBrief
	var status AssetStatus
	err := q.db.QueryRow(ctx, `
		SELECT id, status FROM assets WHERE "ownerId" = $1 AND checksum = $2 AND status != 'deleted'`,
		ownerID, checksum).Scan(&b.ID, &status)
	b.IsTrashed = status == AssetStatusTrashed
	return b, err
}

func (q *Queries) SetAssetStackID(ctx context.Context, id uuid.UUID, stackID pgtype.UUID, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE assets SET "stackId" = $2, "updatedAt" = NOW(), "updateId" = $3 WHERE id = $1`, id, stackID, updateID)
	return err
}

// ShiftLocalDateTime applies a bulk relative time shift to a batch of
// assets.
func (q *Queries) ShiftLocalDateTime(ctx context.Context, ids []uuid.UUID, minutes int, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE assets
		SET "localDateTime" = "localDateTime" + make_interval(mins => $2), "updatedAt" = NOW(), "updateId" = $3
		WHERE id = ANY($1)`, ids, minutes, updateID)
	return err
}

type UpdateAssetParams struct {
	ID         uuid.UUID
	IsFavorite pgtype.Bool
	Visibility pgtype.Text
	UpdateID   uuid.UUID
}

// UpdateAsset writes the caller-supplied asset columns, leaving null
// params untouched, and bumps the watermark.
func (q *Queries) UpdateAsset(ctx context.Context, arg UpdateAssetParams) (Asset, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE assets
		SET "isFavorite" = COALESCE($2, "isFavorite"),
		    visibility = COALESCE($3, visibility),
		    "updatedAt" = NOW(), "updateId" = $4
		WHERE id = $1
		RETURNING `+assetColumns,
		arg.ID, arg.IsFavorite, arg.Visibility, arg.UpdateID)
	return scanAsset(row)
}

// AssetStatistics counts an owner's non-deleted assets by type.
func (q *Queries) AssetStatistics(ctx context.Context, ownerID uuid.UUID) (images, videos, total int64, err error) {
	err = q.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE type = 'IMAGE'),
			COUNT(*) FILTER (WHERE type = 'VIDEO'),
			COUNT(*)
		FROM assets
		WHERE "ownerId" = $1 AND status = 'active'`, ownerID).Scan(&images, &videos, &total)
	return images, videos, total, err
}

// RandomAssets implements getRandom: up to count non-hidden, non-deleted
// assets owned by any of visibleOwnerIDs, database-side random order.
func (q *Queries) RandomAssets(ctx context.Context, visibleOwnerIDs []uuid.UUID, count int32) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = ANY($1) AND status = 'active' AND visibility != 'hidden'
		ORDER BY random() LIMIT $2`, visibleOwnerIDs, count)
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

// SearchAssets is a plain substring match against originalFileName,
// scoped to the owner. Deliberately not a full-text engine.
func (q *Queries) SearchAssets(ctx context.Context, ownerID uuid.UUID, query string, limit, offset int32) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND status != 'deleted' AND "originalFileName" ILIKE '%' || $2 || '%'
		ORDER BY "fileCreatedAt" DESC
		LIMIT $3 OFFSET $4`, ownerID, query, limit, offset)
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

func (q *Queries) AssetsByDevice(ctx context.Context, ownerID uuid.UUID, deviceID string) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND "deviceId" = $2 AND status != 'deleted'
		ORDER BY "fileCreatedAt" DESC`, ownerID, deviceID)
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
