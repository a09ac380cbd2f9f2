package sqlc

import (
	"context"

	"github.com/google/uuid"
)

var assetFileColumns = `id, "assetId", type, path, "isEdited"`

func scanAssetFile(row pgxRowScanner) (AssetFile, error) {
	var f AssetFile
	err := row.Scan(&f.ID, &f.AssetID, &f.Type, &f.Path, &f.IsEdited)
	return f, err
}

type UpsertAssetFileParams struct {
	ID       uuid.UUID
	AssetID  uuid.UUID
	Type     AssetFileType
	Path     string
	IsEdited bool
}

// UpsertAssetFile inserts or replaces the path for (assetId, type,
// isEdited), respecting the table's unique constraint.
func (q *Queries) UpsertAssetFile(ctx context.Context, arg UpsertAssetFileParams) (AssetFile, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO asset_files (id, "assetId", type, path, "isEdited")
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ("assetId", type, "isEdited") DO UPDATE SET path = EXCLUDED.path
		RETURNING `+assetFileColumns,
		arg.ID, arg.AssetID, arg.Type, arg.Path, arg.IsEdited)
	return scanAssetFile(row)
}

func (q *Queries) GetAssetFile(ctx context.Context, assetID uuid.UUID, fileType AssetFileType, isEdited bool) (AssetFile, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+assetFileColumns+` FROM asset_files
		WHERE "assetId" = $1 AND type = $2 AND "isEdited" = $3`, assetID, fileType, isEdited)
	return scanAssetFile(row)
}

func (q *Queries) ListAssetFiles(ctx context.Context, assetID uuid.UUID) ([]AssetFile, error) {
	rows, err := q.db.Query(ctx, `SELECT `+assetFileColumns+` FROM asset_files WHERE "assetId" = $1`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssetFile
	for rows.Next() {
		f, err := scanAssetFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteAssetFiles(ctx context.Context, assetID uuid.UUID) ([]AssetFile, error) {
	files, err := q.ListAssetFiles(ctx, assetID)
	if err != nil {
		return nil, err
	}
	_, err = q.db.Exec(ctx, `DELETE FROM asset_files WHERE "assetId" = $1`, assetID)
	return files, err
}
