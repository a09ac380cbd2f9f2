package sqlc

import (
	"context"

	"github.com/google/uuid"
)

var apiKeyColumns = `id, "userId", name, "keyHash", permissions, "createdAt", "updatedAt"`

func scanApiKey(row pgxRowScanner) (ApiKey, error) {
	var k ApiKey
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.Permissions, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

type CreateApiKeyParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	KeyHash     string
	Permissions []string
}

func (q *Queries) CreateApiKey(ctx context.Context, arg CreateApiKeyParams) (ApiKey, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO api_keys (id, "userId", name, "keyHash", permissions, "createdAt", "updatedAt")
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+apiKeyColumns,
		arg.ID, arg.UserID, arg.Name, arg.KeyHash, arg.Permissions)
	return scanApiKey(row)
}

func (q *Queries) GetApiKeyByHash(ctx context.Context, keyHash string) (ApiKey, error) {
	row := q.db.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE "keyHash" = $1`, keyHash)
	return scanApiKey(row)
}

func (q *Queries) ListApiKeysForUser(ctx context.Context, userID uuid.UUID) ([]ApiKey, error) {
	rows, err := q.db.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE "userId" = $1 ORDER BY "createdAt" DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApiKey
	for rows.Next() {
		k, err := scanApiKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteApiKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND "userId" = $2`, id, userID)
	return err
}

func (q *Queries) GetApiKeyByID(ctx context.Context, id uuid.UUID) (ApiKey, error) {
	row := q.db.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	return scanApiKey(row)
}

func (q *Queries) UpdateApiKey(ctx context.Context, id uuid.UUID, name string, permissions []string) (ApiKey, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE api_keys SET name = $2, permissions = $3, "updatedAt" = NOW()
		WHERE id = $1 RETURNING `+apiKeyColumns, id, name, permissions)
	return scanApiKey(row)
}
