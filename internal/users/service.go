// Package users implements thin admin-facing CRUD over the User
// entity. It stays pure database echo; the non-trivial user-facing
// logic (auth, quota, visibility) lives in internal/auth,
// internal/assets, and internal/access.
package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("users")

// Service handles user management operations.
type Service struct {
	db     *sqlc.Queries
	config *config.Config

	operationCounter  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewService creates a new user management service.
func NewService(queries *sqlc.Queries, cfg *config.Config) (*Service, error) {
	meter := telemetry.GetMeter()

	operationCounter, err := meter.Int64Counter(
		"user_operations_total",
		metric.WithDescription("Total number of user operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram(
		"user_operation_duration_seconds",
		metric.WithDescription("Time spent on user operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	return &Service{
		db:                queries,
		config:            cfg,
		operationCounter:  operationCounter,
		operationDuration: operationDuration,
	}, nil
}

func (s *Service) record(ctx context.Context, op string, start time.Time) {
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("operation", op)))
	s.operationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// GetUser retrieves a non-deleted user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	ctx, span := tracer.Start(ctx, "users.get_user", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_user", start)

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, NewUserNotFoundError("user not found")
	}
	return dbUserToUserInfo(user), nil
}

// GetUserByEmail retrieves a non-deleted user by email address.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*UserInfo, error) {
	ctx, span := tracer.Start(ctx, "users.get_user_by_email", trace.WithAttributes(attribute.String("email", email)))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_user_by_email", start)

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, NewUserNotFoundError("user not found")
	}
	return dbUserToUserInfo(user), nil
}

// ListUsers retrieves users with offset pagination, clamping limit
// to [1, 100].
func (s *Service) ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	ctx, span := tracer.Start(ctx, "users.list_users",
		trace.WithAttributes(attribute.Int("limit", req.Limit), attribute.Int("offset", req.Offset)))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "list_users", start)

	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	dbUsers, err := s.db.ListUsers(ctx, sqlc.ListUsersParams{
		Limit:          int32(limit),
		Offset:         int32(offset),
		IncludeDeleted: req.IncludeDeleted,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	total, err := s.db.CountUsers(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	users := make([]*UserInfo, 0, len(dbUsers))
	for _, dbUser := range dbUsers {
		users = append(users, dbUserToUserInfo(dbUser))
	}

	return &ListUsersResponse{Users: users, Total: int(total), Limit: limit, Offset: offset}, nil
}

// UpdateUser applies a partial profile update.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, req UpdateUserRequest) (*UserInfo, error) {
	ctx, span := tracer.Start(ctx, "users.update_user", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "update_user", start)

	params := sqlc.UpdateUserParams{ID: userID}
	if req.Name != nil {
		params.Name = pgtype.Text{String: *req.Name, Valid: true}
	}
	if req.Email != nil {
		params.Email = pgtype.Text{String: *req.Email, Valid: true}
	}
	if req.ProfileImagePath != nil {
		params.ProfileImagePath = pgtype.Text{String: *req.ProfileImagePath, Valid: true}
	}
	if req.QuotaSizeInBytes != nil {
		params.QuotaSizeInBytes = pgtype.Int8{Int64: *req.QuotaSizeInBytes, Valid: true}
	}
	if req.StorageLabel != nil {
		params.StorageLabel = pgtype.Text{String: *req.StorageLabel, Valid: true}
	}

	user, err := s.db.UpdateUser(ctx, params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return dbUserToUserInfo(user), nil
}

// UpdateUserPassword updates a user's password (admin function),
// bcrypt-hashing it the same way signup does.
func (s *Service) UpdateUserPassword(ctx context.Context, userID uuid.UUID, req UpdatePasswordRequest) error {
	ctx, span := tracer.Start(ctx, "users.update_user_password", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "update_user_password", start)

	if len(req.NewPassword) < 8 {
		return &UserError{Type: ErrInvalidPassword, Message: "password must be at least 8 characters long"}
	}

	hash, err := crypto.BcryptHash(req.NewPassword)
	if err != nil {
		span.RecordError(err)
		return &UserError{Type: ErrPasswordHashing, Message: "failed to hash password", Err: err}
	}

	if err := s.db.UpdateUserPasswordHash(ctx, userID, hash); err != nil {
		span.RecordError(err)
		return &UserError{Type: ErrDatabaseError, Message: "failed to update password", Err: err}
	}
	return nil
}

// UpdateUserAdmin updates a user's admin flag.
func (s *Service) UpdateUserAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) (*UserInfo, error) {
	ctx, span := tracer.Start(ctx, "users.update_user_admin",
		trace.WithAttributes(attribute.String("user_id", userID.String()), attribute.Bool("is_admin", isAdmin)))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "update_user_admin", start)

	user, err := s.db.UpdateUserAdmin(ctx, userID, isAdmin)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update user admin status: %w", err)
	}
	return dbUserToUserInfo(user), nil
}

// DeleteUser soft-deletes a user, or hard-deletes when requested.
// Cascading to owned entities is the caller's responsibility, e.g.
// trash.Empty purging assets first.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID, hardDelete bool) error {
	ctx, span := tracer.Start(ctx, "users.delete_user",
		trace.WithAttributes(attribute.String("user_id", userID.String()), attribute.Bool("hard_delete", hardDelete)))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "delete_user", start)

	var err error
	if hardDelete {
		err = s.db.HardDeleteUser(ctx, userID)
	} else {
		err = s.db.SoftDeleteUser(ctx, userID)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// RestoreUser restores a soft-deleted user.
func (s *Service) RestoreUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	ctx, span := tracer.Start(ctx, "users.restore_user", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "restore_user", start)

	user, err := s.db.RestoreUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}
	return dbUserToUserInfo(user), nil
}

func dbUserToUserInfo(user sqlc.User) *UserInfo {
	info := &UserInfo{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		IsAdmin:           user.IsAdmin,
		Status:            string(user.Status),
		CreatedAt:         user.CreatedAt.Time,
		UpdatedAt:         user.UpdatedAt.Time,
		QuotaUsageInBytes: user.QuotaUsageInBytes,
	}

	if user.ProfileImagePath.Valid {
		info.ProfileImagePath = &user.ProfileImagePath.String
	}
	if user.StorageLabel.Valid {
		info.StorageLabel = &user.StorageLabel.String
	}
	if user.QuotaSizeInBytes.Valid {
		info.QuotaSizeInBytes = &user.QuotaSizeInBytes.Int64
	}
	if user.DeletedAt.Valid {
		info.DeletedAt = &user.DeletedAt.Time
	}

	return info
}
