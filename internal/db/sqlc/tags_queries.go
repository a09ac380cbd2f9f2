package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func scanTag(row pgxRowScanner) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.UserID, &t.Value, &t.Color, &t.ParentID)
	return t, err
}

var tagColumns = `id, "userId", value, color, "parentId"`

func (q *Queries) CreateTag(ctx context.Context, id, userID uuid.UUID, value string, parentID pgtype.UUID) (Tag, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tags (id, "userId", value, "parentId") VALUES ($1, $2, $3, $4)
		RETURNING `+tagColumns, id, userID, value, parentID)
	return scanTag(row)
}

func (q *Queries) ListTagsForUser(ctx context.Context, userID uuid.UUID) ([]Tag, error) {
	rows, err := q.db.Query(ctx, `SELECT `+tagColumns+` FROM tags WHERE "userId" = $1 ORDER BY value`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteTag(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	return err
}

func (q *Queries) GetTagByID(ctx context.Context, id uuid.UUID) (Tag, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id)
	return scanTag(row)
}

func (q *Queries) UpdateTag(ctx context.Context, id uuid.UUID, value string, color pgtype.Text) (Tag, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tags SET value = $2, color = $3 WHERE id = $1
		RETURNING `+tagColumns, id, value, color)
	return scanTag(row)
}

func (q *Queries) TagAsset(ctx context.Context, tagID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `INSERT INTO tag_assets ("tagId", "assetId") VALUES ($1, $2) ON CONFLICT DO NOTHING`, tagID, assetID)
	return err
}

func (q *Queries) UntagAsset(ctx context.Context, tagID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM tag_assets WHERE "tagId" = $1 AND "assetId" = $2`, tagID, assetID)
	return err
}

func (q *Queries) ListAssetIDsForTag(ctx context.Context, tagID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT "assetId" FROM tag_assets WHERE "tagId" = $1`, tagID)
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
