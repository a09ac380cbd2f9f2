package auth

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

var tracer = otel.Tracer("immich-go-backend/auth")

// sessionTokenBytes is the raw entropy of a session token before
// base64 encoding; the encoded form is what the client carries and the
// SHA-256 hex digest of it is what's stored.
const sessionTokenBytes = 32

// Service implements the login/session half of the auth surface.
// Credential resolution for requests already
// carrying a token/key lives in middleware.go; this type owns
// issuing and retiring sessions and owns password lifecycle.
type Service struct {
	config  config.AuthConfig
	queries *sqlc.Queries
}

func NewService(config config.AuthConfig, queries *sqlc.Queries) *Service {
	return &Service{
		config:  config,
		queries: queries,
	}
}

// Claims is the resolved identity stamped onto a request's context by
// the auth middleware, regardless of which credential family it came
// through. UserID/Email/IsAdmin describe the acting user; SessionID is
// set only when the credential was a session token.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	SessionID string `json:"session_id,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminSignUpRequest creates the server's first (and only
// self-service) admin account.
type AdminSignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// AuthResponse is returned by Login and AdminSignUp. AccessToken is
// the raw, unhashed session token; only its SHA-256 digest is ever
// persisted.
type AuthResponse struct {
	AccessToken string   `json:"accessToken"`
	UserID      string   `json:"userId"`
	UserEmail   string   `json:"userEmail"`
	Name        string   `json:"name"`
	IsAdmin     bool     `json:"isAdmin"`
	User        UserInfo `json:"-"`
}

// UserInfo represents user information
type UserInfo struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	Password    string `json:"password" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// DeviceInfo describes the client issuing a login, carried into the
// new session row.
type DeviceInfo struct {
	DeviceOS   string
	DeviceType string
	AppVersion string
}

func userInfoOf(u sqlc.User) UserInfo {
	return UserInfo{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Time,
		UpdatedAt: u.UpdatedAt.Time,
	}
}

// AdminSignUp creates the first user account as an admin. It
// succeeds exactly once: any call once a user already exists is
// rejected.
func (s *Service) AdminSignUp(ctx context.Context, req AdminSignUpRequest) (*UserInfo, error) {
	ctx, span := tracer.Start(ctx, "auth.AdminSignUp",
		trace.WithAttributes(attribute.String("auth.email", req.Email)))
	defer span.End()

	count, err := s.queries.CountUsers(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, NewAuthError(ErrUserCreation, "failed to check existing users", err)
	}
	if count > 0 {
		return nil, NewAuthError(ErrRegistrationDisabled, "the server already has an admin account", nil)
	}

	if err := s.validatePassword(req.Password); err != nil {
		span.RecordError(err)
		return nil, NewAuthError(ErrInvalidPassword, err.Error(), err)
	}

	hash, err := crypto.BcryptHash(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, NewAuthError(ErrPasswordHashing, "failed to hash password", err)
	}

	user, err := s.queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		IsAdmin:      true,
	})
	if err != nil {
		span.RecordError(err)
		return nil, NewAuthError(ErrUserCreation, "failed to create admin account", err)
	}

	info := userInfoOf(user)
	return &info, nil
}

// Login authenticates a user by password and issues a new session
// token. The returned AccessToken is shown to the caller
// exactly once; only its hash is stored.
func (s *Service) Login(ctx context.Context, req LoginRequest, device DeviceInfo) (*AuthResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.Login",
		trace.WithAttributes(attribute.String("auth.email", req.Email)))
	defer span.End()

	if err := s.validatePassword(req.Password); err != nil {
		span.RecordError(err)
		return nil, NewInvalidCredentialsError("invalid email or password")
	}

	user, err := s.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, NewInvalidCredentialsError("invalid email or password")
	}

	if !crypto.BcryptCompare(user.PasswordHash, req.Password) {
		return nil, NewInvalidCredentialsError("invalid email or password")
	}

	token, _, err := s.issueSession(ctx, user, device)
	if err != nil {
		span.RecordError(err)
		return nil, NewAuthError(ErrTokenGeneration, "failed to create session", err)
	}

	return &AuthResponse{
		AccessToken: token,
		UserID:      user.ID.String(),
		UserEmail:   user.Email,
		Name:        user.Name,
		IsAdmin:     user.IsAdmin,
		User:        userInfoOf(user),
	}, nil
}

// issueSession mints a random opaque token, persists its SHA-256 hash
// as a new Session row, and returns the raw token to hand back to the
// caller.
func (s *Service) issueSession(ctx context.Context, user sqlc.User, device DeviceInfo) (string, sqlc.Session, error) {
	token, err := crypto.RandomToken(sessionTokenBytes)
	if err != nil {
		return "", sqlc.Session{}, err
	}
	tokenHash := crypto.SHA256HexString(token)

	expiresAt, err := timeToTimestamptz(time.Now().Add(s.config.SessionTimeout))
	if err != nil {
		return "", sqlc.Session{}, err
	}

	session, err := s.queries.CreateSession(ctx, sqlc.CreateSessionParams{
		ID:         idgen.NewUUID(),
		UserID:     user.ID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		DeviceOS:   device.DeviceOS,
		DeviceType: device.DeviceType,
		AppVersion: pgtypeText(device.AppVersion),
	})
	if err != nil {
		return "", sqlc.Session{}, err
	}

	return token, session, nil
}

// ValidateSessionToken looks a raw bearer token up by its SHA-256
// hash and returns the owning user's claims, or an error if the token
// is unknown or its session has expired.
func (s *Service) ValidateSessionToken(ctx context.Context, token string) (*Claims, error) {
	ctx, span := tracer.Start(ctx, "auth.ValidateSessionToken")
	defer span.End()

	hash := crypto.SHA256HexString(token)
	session, err := s.queries.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		span.RecordError(err)
		return nil, NewInvalidTokenError("session not found", err)
	}

	if session.ExpiresAt.Valid && session.ExpiresAt.Time.Before(time.Now()) {
		return nil, NewTokenExpiredError()
	}

	user, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, NewUserNotFoundError()
	}
	if user.DeletedAt.Valid {
		return nil, NewAuthError(ErrUserDeleted, "user account has been deleted", nil)
	}

	go func() {
		_ = s.queries.ExtendPinIfNearExpiry(context.Background(), session.ID)
	}()

	return &Claims{
		UserID:    user.ID.String(),
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		SessionID: session.ID.String(),
	}, nil
}

// Logout deletes the session identified by the raw bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer span.End()

	hash := crypto.SHA256HexString(token)
	session, err := s.queries.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		// Already gone; logout is idempotent.
		return nil
	}

	if err := s.queries.DeleteSession(ctx, session.ID); err != nil {
		span.RecordError(err)
		return NewAuthError(ErrTokenDeletion, "failed to delete session", err)
	}
	return nil
}

// ChangePassword changes a user's password and revokes every session
// belonging to them, including the one that made the request.
func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	ctx, span := tracer.Start(ctx, "auth.ChangePassword",
		trace.WithAttributes(attribute.String("auth.user_id", userID)))
	defer span.End()

	uid, err := parseUUID(userID)
	if err != nil {
		return NewInvalidCredentialsError("invalid user id")
	}

	user, err := s.queries.GetUserByID(ctx, uid)
	if err != nil {
		span.RecordError(err)
		return NewUserNotFoundError()
	}

	if !crypto.BcryptCompare(user.PasswordHash, req.Password) {
		return NewInvalidCredentialsError("current password is incorrect")
	}

	if err := s.validatePassword(req.NewPassword); err != nil {
		span.RecordError(err)
		return NewAuthError(ErrInvalidPassword, err.Error(), err)
	}

	hash, err := crypto.BcryptHash(req.NewPassword)
	if err != nil {
		span.RecordError(err)
		return NewAuthError(ErrPasswordHashing, "failed to hash new password", err)
	}

	if err := s.queries.UpdateUserPasswordHash(ctx, uid, hash); err != nil {
		span.RecordError(err)
		return NewAuthError(ErrPasswordUpdate, "failed to update password", err)
	}

	sessions, err := s.queries.ListSessionsForUser(ctx, uid)
	if err != nil {
		span.RecordError(err)
		return nil
	}
	for _, sess := range sessions {
		_ = s.queries.DeleteSession(ctx, sess.ID)
	}

	return nil
}

// validatePassword validates password complexity requirements
func (s *Service) validatePassword(password string) error {
	if len(password) < s.config.PasswordMinLength {
		return NewAuthError(ErrInvalidPassword, fmt.Sprintf("password must be at least %d characters long", s.config.PasswordMinLength), nil)
	}
	if s.config.PasswordRequireUppercase && !containsRune(password, isUpper) {
		return NewAuthError(ErrInvalidPassword, "password must contain an uppercase letter", nil)
	}
	if s.config.PasswordRequireLowercase && !containsRune(password, isLower) {
		return NewAuthError(ErrInvalidPassword, "password must contain a lowercase letter", nil)
	}
	if s.config.PasswordRequireNumbers && !containsRune(password, isDigit) {
		return NewAuthError(ErrInvalidPassword, "password must contain a number", nil)
	}
	if s.config.PasswordRequireSymbols && !containsRune(password, isSymbol) {
		return NewAuthError(ErrInvalidPassword, "password must contain a symbol", nil)
	}
	return nil
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isSymbol(r rune) bool {
	for _, s := range "!@#$%^&*()_+-=[]{}|;:,.<>?" {
		if r == s {
			return true
		}
	}
	return false
}

func containsRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if pred(r) {
			return true
		}
	}
	return false
}
