package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var sessionColumns = `id, "userId", "tokenHash", "expiresAt", "updatedAt", "pinExpiresAt",
	"deviceOS", "deviceType", "appVersion", "isPendingSyncReset", "parentId",
	"hasElevatedPermission", "createdAt"`

func scanSession(row pgxRowScanner) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.UpdatedAt, &s.PinExpiresAt,
		&s.DeviceOS, &s.DeviceType, &s.AppVersion, &s.IsPendingSyncReset, &s.ParentID,
		&s.HasElevatedPermission, &s.CreatedAt,
	)
	return s, err
}

type CreateSessionParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	ExpiresAt  pgtype.Timestamptz
	DeviceOS   string
	DeviceType string
	AppVersion pgtype.Text
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO sessions (id, "userId", "tokenHash", "expiresAt", "updatedAt", "deviceOS",
			"deviceType", "appVersion", "isPendingSyncReset", "hasElevatedPermission", "createdAt")
		VALUES ($1, $2, $3, $4, NOW(), $5, $6, $7, false, false, NOW())
		RETURNING `+sessionColumns,
		arg.ID, arg.UserID, arg.TokenHash, arg.ExpiresAt, arg.DeviceOS, arg.DeviceType, arg.AppVersion)
	return scanSession(row)
}

func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE "tokenHash" = $1`, tokenHash)
	return scanSession(row)
}

func (q *Queries) GetSessionByID(ctx context.Context, id uuid.UUID) (Session, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// TouchSession freshens updatedAt and appVersion; callers treat errors
// as fire-and-forget per the concurrency model's "read-mostly" note.
func (q *Queries) TouchSession(ctx context.Context, id uuid.UUID, appVersion pgtype.Text) error {
	_, err := q.db.Exec(ctx, `UPDATE sessions SET "updatedAt" = NOW(), "appVersion" = $2 WHERE id = $1`, id, appVersion)
	return err
}

// ExtendPinIfNearExpiry extends pinExpiresAt by 5 minutes when it is
// within 5 minutes of expiring, per the concurrency model's pin-unlock
// auto-extension rule. Fire-and-forget.
func (q *Queries) ExtendPinIfNearExpiry(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE sessions
		SET "pinExpiresAt" = "pinExpiresAt" + INTERVAL '5 minutes'
		WHERE id = $1 AND "pinExpiresAt" IS NOT NULL
		  AND "pinExpiresAt" > NOW() AND "pinExpiresAt" < NOW() + INTERVAL '5 minutes'`, id)
	return err
}

// SetSessionElevated marks id as carrying an unexpired PIN unlock,
// gating access to assets with visibility='locked'.
func (q *Queries) SetSessionElevated(ctx context.Context, id uuid.UUID, pinExpiresAt pgtype.Timestamptz) error {
	_, err := q.db.Exec(ctx, `UPDATE sessions SET "hasElevatedPermission" = true, "pinExpiresAt" = $2 WHERE id = $1`, id, pinExpiresAt)
	return err
}

func (q *Queries) SetSessionPendingSyncReset(ctx context.Context, id uuid.UUID, pending bool) error {
	_, err := q.db.Exec(ctx, `UPDATE sessions SET "isPendingSyncReset" = $2 WHERE id = $1`, id, pending)
	return err
}

func (q *Queries) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (q *Queries) ListSessionsForUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	rows, err := q.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE "userId" = $1 ORDER BY "createdAt" DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
