package sqlc

import (
	"context"

	"github.com/google/uuid"
)

func (q *Queries) UpsertAssetMetadata(ctx context.Context, assetID uuid.UUID, key string, value []byte) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO asset_metadata ("assetId", key, value, "updatedAt")
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT ("assetId", key) DO UPDATE SET value = EXCLUDED.value, "updatedAt" = NOW()`,
		assetID, key, value)
	return err
}

func (q *Queries) DeleteAssetMetadata(ctx context.Context, assetID uuid.UUID, key string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM asset_metadata WHERE "assetId" = $1 AND key = $2`, assetID, key)
	return err
}

func (q *Queries) GetAssetMetadata(ctx context.Context, assetID uuid.UUID, key string) ([]byte, error) {
	var v []byte
	err := q.db.QueryRow(ctx, `SELECT value FROM asset_metadata WHERE "assetId" = $1 AND key = $2`, assetID, key).Scan(&v)
	return v, err
}

func (q *Queries) ListAssetMetadata(ctx context.Context, assetID uuid.UUID) ([]AssetMetadataEntry, error) {
	rows, err := q.db.Query(ctx, `SELECT "assetId", key, value, "updatedAt" FROM asset_metadata WHERE "assetId" = $1`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssetMetadataEntry
	for rows.Next() {
		var e AssetMetadataEntry
		if err := rows.Scan(&e.AssetID, &e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
