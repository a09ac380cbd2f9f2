package sqlc

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrStackPrimacy is returned when an operation would remove a stack's
// primary asset from the stack, violating spec invariant 6.
var ErrStackPrimacy = errors.New("sqlc: cannot remove a stack's primary asset from the stack")

var stackColumns = `id, "ownerId", "primaryAssetId", "updateId"`

func scanStack(row pgxRowScanner) (Stack, error) {
	var s Stack
	err := row.Scan(&s.ID, &s.OwnerID, &s.PrimaryAssetID, &s.UpdateID)
	return s, err
}

func (q *Queries) CreateStack(ctx context.Context, id, ownerID, primaryAssetID uuid.UUID, assetIDs []uuid.UUID, updateID uuid.UUID) (Stack, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO stacks (id, "ownerId", "primaryAssetId", "updateId") VALUES ($1, $2, $3, $4)
		RETURNING `+stackColumns, id, ownerID, primaryAssetID, updateID)
	stack, err := scanStack(row)
	if err != nil {
		return stack, err
	}
	_, err = q.db.Exec(ctx, `UPDATE assets SET "stackId" = $1 WHERE id = ANY($2)`, id, assetIDs)
	return stack, err
}

func (q *Queries) GetStack(ctx context.Context, id uuid.UUID) (Stack, error) {
	row := q.db.QueryRow(ctx, `SELECT `+stackColumns+` FROM stacks WHERE id = $1`, id)
	return scanStack(row)
}

// RemoveAssetFromStack clears asset.stackId after verifying it is not
// the stack's primary asset.
func (q *Queries) RemoveAssetFromStack(ctx context.Context, stackID, assetID uuid.UUID) error {
	stack, err := q.GetStack(ctx, stackID)
	if err != nil {
		return err
	}
	if stack.PrimaryAssetID == assetID {
		return ErrStackPrimacy
	}
	_, err = q.db.Exec(ctx, `UPDATE assets SET "stackId" = NULL WHERE id = $1`, assetID)
	return err
}

func (q *Queries) DeleteStack(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE assets SET "stackId" = NULL WHERE "stackId" = $1`, id)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, `DELETE FROM stacks WHERE id = $1`, id)
	return err
}

func (q *Queries) ListStackAssetIDs(ctx context.Context, stackID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT id FROM assets WHERE "stackId" = $1`, stackID)
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

// UpdateStackPrimaryAsset reassigns which member asset is primary. The
// new primary must already be a member of the stack.
func (q *Queries) UpdateStackPrimaryAsset(ctx context.Context, stackID, primaryAssetID uuid.UUID) (Stack, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE stacks SET "primaryAssetId" = $2
		WHERE id = $1 AND EXISTS (SELECT 1 FROM assets WHERE id = $2 AND "stackId" = $1)
		RETURNING `+stackColumns, stackID, primaryAssetID)
	return scanStack(row)
}

// DeleteStacks removes multiple stacks, unlinking their member assets first.
func (q *Queries) DeleteStacks(ctx context.Context, ids []uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE assets SET "stackId" = NULL WHERE "stackId" = ANY($1)`, ids)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, `DELETE FROM stacks WHERE id = ANY($1)`, ids)
	return err
}

// StackWithCount is a Stack row annotated with its live member count.
type StackWithCount struct {
	Stack
	AssetCount int32
}

func scanStackWithCount(row pgxRowScanner) (StackWithCount, error) {
	var s StackWithCount
	err := row.Scan(&s.ID, &s.OwnerID, &s.PrimaryAssetID, &s.UpdateID, &s.AssetCount)
	return s, err
}

// ListStacksForOwner paginates a user's stacks, optionally filtered to a
// given primary asset, each annotated with its member count.
func (q *Queries) ListStacksForOwner(ctx context.Context, ownerID uuid.UUID, primaryAssetID uuid.UUID, filterByPrimaryAsset bool, limit, offset int32) ([]StackWithCount, error) {
	rows, err := q.db.Query(ctx, `
		SELECT s.id, s."ownerId", s."primaryAssetId", s."updateId",
			(SELECT COUNT(*) FROM assets a WHERE a."stackId" = s.id)
		FROM stacks s
		WHERE s."ownerId" = $1 AND ($4 = false OR s."primaryAssetId" = $2)
		ORDER BY s.id
		LIMIT $3 OFFSET $5`, ownerID, primaryAssetID, limit, filterByPrimaryAsset, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StackWithCount
	for rows.Next() {
		s, err := scanStackWithCount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
