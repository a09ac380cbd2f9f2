package sqlc

import (
	"context"

	"github.com/google/uuid"
)

var memoryColumns = `id, "ownerId", type, data, "isSaved", "memoryAt", "seenAt", "updateId"`

func scanMemory(row pgxRowScanner) (Memory, error) {
	var m Memory
	err := row.Scan(&m.ID, &m.OwnerID, &m.Type, &m.Data, &m.IsSaved, &m.MemoryAt, &m.SeenAt, &m.UpdateID)
	return m, err
}

type CreateMemoryParams struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Type     string
	Data     []byte
	UpdateID uuid.UUID
}

func (q *Queries) CreateMemory(ctx context.Context, arg CreateMemoryParams) (Memory, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO memories (id, "ownerId", type, data, "isSaved", "memoryAt", "updateId")
		VALUES ($1, $2, $3, $4, false, NOW(), $5)
		RETURNING `+memoryColumns, arg.ID, arg.OwnerID, arg.Type, arg.Data, arg.UpdateID)
	return scanMemory(row)
}

func (q *Queries) ListMemoriesForOwner(ctx context.Context, ownerID uuid.UUID) ([]Memory, error) {
	rows, err := q.db.Query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE "ownerId" = $1 ORDER BY "memoryAt" DESC`, ownerID)
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

func (q *Queries) MarkMemorySeen(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE memories SET "seenAt" = NOW() WHERE id = $1`, id)
	return err
}

func (q *Queries) GetMemoryByID(ctx context.Context, id uuid.UUID) (Memory, error) {
	row := q.db.QueryRow(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id)
	return scanMemory(row)
}

func (q *Queries) SetMemorySaved(ctx context.Context, id uuid.UUID, isSaved bool) error {
	_, err := q.db.Exec(ctx, `UPDATE memories SET "isSaved" = $2 WHERE id = $1`, id, isSaved)
	return err
}

func (q *Queries) UpdateMemoryData(ctx context.Context, id uuid.UUID, data []byte) (Memory, error) {
	row := q.db.QueryRow(ctx, `UPDATE memories SET data = $2 WHERE id = $1 RETURNING `+memoryColumns, id, data)
	return scanMemory(row)
}

func (q *Queries) RemoveAssetFromMemory(ctx context.Context, memoryID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM memory_assets WHERE "memoriesId" = $1 AND "assetId" = $2`, memoryID, assetID)
	return err
}

func (q *Queries) DeleteMemory(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	return err
}

func (q *Queries) AddAssetToMemory(ctx context.Context, memoryID, assetID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `INSERT INTO memory_assets ("memoriesId", "assetId") VALUES ($1, $2) ON CONFLICT DO NOTHING`, memoryID, assetID)
	return err
}

func (q *Queries) ListAssetIDsForMemory(ctx context.Context, memoryID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT "assetId" FROM memory_assets WHERE "memoriesId" = $1`, memoryID)
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
