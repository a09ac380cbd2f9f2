// Package sessions implements session listing, revocation, and PIN
// unlock. Elevated permission gates visibility='locked' assets and is
// granted by PIN, not by login.
package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/immich-go-backend/internal/auth"
	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// pinUnlockDuration is how long a PIN unlock grants elevated
// permission before it must be re-entered.
const pinUnlockDuration = 30 * time.Minute

type Service struct {
	queries *sqlc.Queries
	logger  *logrus.Logger
}

func NewService(queries *sqlc.Queries, logger *logrus.Logger) *Service {
	return &Service{queries: queries, logger: logger}
}

// ListSessions returns every session belonging to userID, most recent
// first.
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]sqlc.Session, error) {
	return s.queries.ListSessionsForUser(ctx, userID)
}

// GetSession fetches a single session by id.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (sqlc.Session, error) {
	return s.queries.GetSessionByID(ctx, id)
}

// DeleteSession revokes a session outright (used for both "sign out
// this device" and admin-forced revocation).
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.queries.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("session_id", id).Info("session revoked")
	return nil
}

// DeleteOtherSessions revokes every session belonging to userID except
// keepID (the caller's current session).
func (s *Service) DeleteOtherSessions(ctx context.Context, userID, keepID uuid.UUID) error {
	all, err := s.queries.ListSessionsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range all {
		if sess.ID == keepID {
			continue
		}
		if err := s.queries.DeleteSession(ctx, sess.ID); err != nil {
			return err
		}
	}
	return nil
}

// UnlockWithPin verifies pin against the user's stored pinCode and,
// on success, grants the session elevated permission for
// pinUnlockDuration.
func (s *Service) UnlockWithPin(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, pin string) error {
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.PinCode.Valid || !crypto.BcryptCompare(user.PinCode.String, pin) {
		return auth.NewInvalidCredentialsError("incorrect PIN")
	}

	expiresAt := pgtype.Timestamptz{Time: time.Now().Add(pinUnlockDuration), Valid: true}
	return s.queries.SetSessionElevated(ctx, sessionID, expiresAt)
}

// SetPin sets or replaces a user's PIN (bcrypt-hashed at rest, same as
// the account password).
func (s *Service) SetPin(ctx context.Context, userID uuid.UUID, pin string) error {
	hash, err := crypto.BcryptHash(pin)
	if err != nil {
		return err
	}
	return s.queries.UpdatePinCode(ctx, userID, hash)
}
