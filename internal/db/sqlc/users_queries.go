package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

var userColumns = `id, email, "passwordHash", name, "isAdmin", status, "storageLabel",
	"quotaSizeInBytes", "quotaUsageInBytes", "profileImagePath", "pinCode", "updateId",
	"deletedAt", "createdAt", "updatedAt"`

func scanUser(row pgxRowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.IsAdmin, &u.Status, &u.StorageLabel,
		&u.QuotaSizeInBytes, &u.QuotaUsageInBytes, &u.ProfileImagePath, &u.PinCode, &u.UpdateID,
		&u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// pgxRowScanner is satisfied by both pgx.Row and pgx.Rows.
type pgxRowScanner interface {
	Scan(dest ...any) error
}

type CreateUserParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	IsAdmin      bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (id, email, "passwordHash", name, "isAdmin", status, "quotaUsageInBytes", "updateId", "createdAt", "updatedAt")
		VALUES ($1, lower($2), $3, $4, $5, 'active', 0, $6, NOW(), NOW())
		RETURNING `+userColumns,
		arg.ID, arg.Email, arg.PasswordHash, arg.Name, arg.IsAdmin, idgen.NewUUID())
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND "deletedAt" IS NULL`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1) AND "deletedAt" IS NULL`, email)
	return scanUser(row)
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// IncrementQuotaUsage atomically adjusts quotaUsageInBytes by delta
// (which may be negative, e.g. after a permanent delete). Never lets
// usage go below zero.
func (q *Queries) IncrementQuotaUsage(ctx context.Context, userID uuid.UUID, delta int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE users SET "quotaUsageInBytes" = GREATEST(0, "quotaUsageInBytes" + $2), "updatedAt" = NOW(), "updateId" = $3
		WHERE id = $1`, userID, delta, idgen.NewUUID())
	return err
}

func (q *Queries) GetUserQuota(ctx context.Context, userID uuid.UUID) (quotaSize pgtype.Int8, quotaUsage int64, err error) {
	err = q.db.QueryRow(ctx, `SELECT "quotaSizeInBytes", "quotaUsageInBytes" FROM users WHERE id = $1`, userID).
		Scan(&quotaSize, &quotaUsage)
	return
}

func (q *Queries) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET "deletedAt" = NOW(), status = 'removing', "updatedAt" = NOW(), "updateId" = $2 WHERE id = $1`, id, idgen.NewUUID())
	return err
}

// UpdateUserPasswordHash replaces a user's bcrypt password hash, used
// by the auth service's change-password flow.
func (q *Queries) UpdateUserPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET "passwordHash" = $2, "updatedAt" = NOW(), "updateId" = $3 WHERE id = $1`, id, passwordHash, idgen.NewUUID())
	return err
}

func (q *Queries) UpdatePinCode(ctx context.Context, userID uuid.UUID, pinHash string) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET "pinCode" = $2, "updatedAt" = NOW(), "updateId" = $3 WHERE id = $1`, userID, pinHash, idgen.NewUUID())
	return err
}

// ListUsersParams paginates the admin user listing. IncludeDeleted
// widens the scan to rows with deletedAt set.
type ListUsersParams struct {
	Limit          int32
	Offset         int32
	IncludeDeleted bool
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !arg.IncludeDeleted {
		query += ` WHERE "deletedAt" IS NULL`
	}
	query += ` ORDER BY "createdAt" ASC LIMIT $1 OFFSET $2`

	rows, err := q.db.Query(ctx, query, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type UpdateUserParams struct {
	ID               uuid.UUID
	Name             pgtype.Text
	Email            pgtype.Text
	ProfileImagePath pgtype.Text
	QuotaSizeInBytes pgtype.Int8
	StorageLabel     pgtype.Text
}

// UpdateUser applies a partial update, COALESCEing each column so an
// invalid/unset field leaves the existing value untouched.
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE(lower($3), email),
			"profileImagePath" = COALESCE($4, "profileImagePath"),
			"quotaSizeInBytes" = CASE WHEN $5 THEN $6 ELSE "quotaSizeInBytes" END,
			"storageLabel" = COALESCE($7, "storageLabel"),
			"updatedAt" = NOW(), "updateId" = $8
		WHERE id = $1
		RETURNING `+userColumns,
		arg.ID, nullIfInvalidText(arg.Name), nullIfInvalidText(arg.Email),
		nullIfInvalidText(arg.ProfileImagePath), arg.QuotaSizeInBytes.Valid, arg.QuotaSizeInBytes.Int64,
		nullIfInvalidText(arg.StorageLabel), idgen.NewUUID())
	return scanUser(row)
}

func nullIfInvalidText(t pgtype.Text) pgtype.Text {
	if !t.Valid {
		return pgtype.Text{}
	}
	return t
}

func (q *Queries) UpdateUserAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET "isAdmin" = $2, "updatedAt" = NOW(), "updateId" = $3
		WHERE id = $1 RETURNING `+userColumns, id, isAdmin, idgen.NewUUID())
	return scanUser(row)
}

func (q *Queries) RestoreUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET "deletedAt" = NULL, status = 'active', "updatedAt" = NOW(), "updateId" = $2
		WHERE id = $1 RETURNING `+userColumns, id, idgen.NewUUID())
	return scanUser(row)
}

// HardDeleteUser permanently removes the row; callers are expected
// to have already purged owned assets and blobs.
func (q *Queries) HardDeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (q *Queries) ListPartnerVisibleUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		SELECT $1::uuid
		UNION
		SELECT "sharedById" FROM partners WHERE "sharedWithId" = $1`, userID)
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
