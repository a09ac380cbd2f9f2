package auth

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"

	"github.com/denysvitali/immich-go-backend/internal/access"
	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// ContextKey represents a context key for authentication
type ContextKey string

const (
	// UserContextKey is the context key for the authenticated user
	UserContextKey ContextKey = "user"
	// ClaimsContextKey is the context key for resolved auth claims
	ClaimsContextKey ContextKey = "claims"
	// PrincipalContextKey is the context key for the resolved
	// access.Principal.
	PrincipalContextKey ContextKey = "principal"
)

// sharedLinkKeyLen is the raw byte length of a shared-link key.
const sharedLinkKeyLen = 50

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func timeToTimestamptz(t time.Time) (pgtype.Timestamptz, error) {
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

func pgtypeText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// decodeShareKey accepts either 100-char hex or base64-url encodings
// of the raw 50-byte shared-link key.
func decodeShareKey(s string) ([]byte, bool) {
	if len(s) == sharedLinkKeyLen*2 {
		if b, err := hex.DecodeString(s); err == nil && len(b) == sharedLinkKeyLen {
			return b, true
		}
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil && len(b) == sharedLinkKeyLen {
		return b, true
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil && len(b) == sharedLinkKeyLen {
		return b, true
	}
	return nil, false
}

// bearerSessionToken extracts the session token from each header,
// query, and cookie surface clients present it on, in priority order.
func bearerSessionToken(c *gin.Context) string {
	if t := c.GetHeader("x-immich-user-token"); t != "" {
		return t
	}
	if t := c.GetHeader("x-immich-session-token"); t != "" {
		return t
	}
	if t := c.Query("sessionKey"); t != "" {
		return t
	}
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie("immich_access_token"); err == nil && cookie != "" {
		return cookie
	}
	return ""
}

// resolvePrincipal resolves credentials in priority order: shared-link
// key, shared-link slug, session token, API key. It returns the first
// credential family present, resolved against RelDB; a nil principal
// with a nil error means no credential was presented at all (as opposed
// to a credential that failed to resolve, which is an error).
func (s *Service) resolvePrincipal(ctx context.Context, c *gin.Context) (*access.Principal, *Claims, error) {
	if key := firstNonEmpty(c.GetHeader("x-immich-share-key"), c.Query("key")); key != "" {
		raw, ok := decodeShareKey(key)
		if !ok {
			return nil, nil, NewInvalidTokenError("malformed shared-link key", nil)
		}
		link, err := s.queries.GetSharedLinkByKey(ctx, raw)
		if err != nil {
			return nil, nil, NewInvalidTokenError("shared link not found", err)
		}
		return s.sharedLinkPrincipal(ctx, link)
	}

	if slug := firstNonEmpty(c.GetHeader("x-immich-share-slug"), c.Query("slug")); slug != "" {
		link, err := s.queries.GetSharedLinkBySlug(ctx, slug)
		if err != nil {
			return nil, nil, NewInvalidTokenError("shared link not found", err)
		}
		return s.sharedLinkPrincipal(ctx, link)
	}

	if token := bearerSessionToken(c); token != "" {
		claims, err := s.ValidateSessionToken(ctx, token)
		if err != nil {
			return nil, nil, err
		}
		userID, err := parseUUID(claims.UserID)
		if err != nil {
			return nil, nil, NewInvalidTokenError("invalid user id in session", err)
		}
		hasElevated, err := s.sessionHasElevatedPermission(ctx, claims.SessionID)
		if err != nil {
			return nil, nil, err
		}
		// Session freshening is fire-and-forget: a failed touch never
		// blocks the request.
		if sessionID, err := parseUUID(claims.SessionID); err == nil {
			appVersion := pgtype.Text{}
			if v := c.GetHeader("x-immich-app-version"); v != "" {
				appVersion = pgtype.Text{String: v, Valid: true}
			}
			_ = s.queries.TouchSession(ctx, sessionID, appVersion)
		}
		return &access.Principal{
			Kind:                  access.KindUser,
			UserID:                userID,
			HasElevatedPermission: hasElevated,
		}, claims, nil
	}

	if apiKey := firstNonEmpty(c.GetHeader("x-api-key"), c.Query("apiKey")); apiKey != "" {
		hash := crypto.SHA256HexString(apiKey)
		key, err := s.queries.GetApiKeyByHash(ctx, hash)
		if err != nil {
			return nil, nil, NewInvalidTokenError("API key not found", err)
		}
		user, err := s.queries.GetUserByID(ctx, key.UserID)
		if err != nil {
			return nil, nil, NewUserNotFoundError()
		}
		return &access.Principal{
				Kind:              access.KindAPIKey,
				UserID:            key.UserID,
				APIKeyPermissions: key.Permissions,
			}, &Claims{
				UserID:  user.ID.String(),
				Email:   user.Email,
				IsAdmin: user.IsAdmin,
			}, nil
	}

	return nil, nil, nil
}

func (s *Service) sharedLinkPrincipal(ctx context.Context, link sqlc.SharedLink) (*access.Principal, *Claims, error) {
	if link.ExpiresAt.Valid && link.ExpiresAt.Time.Before(time.Now()) {
		return nil, nil, NewTokenExpiredError()
	}
	user, err := s.queries.GetUserByID(ctx, link.UserID)
	if err != nil {
		return nil, nil, NewUserNotFoundError()
	}
	return &access.Principal{
			Kind:       access.KindSharedLink,
			UserID:     link.UserID,
			SharedLink: &link,
		}, &Claims{
			UserID:  user.ID.String(),
			Email:   user.Email,
			IsAdmin: user.IsAdmin,
		}, nil
}

// sessionHasElevatedPermission reports whether sessionID carries an
// unexpired PIN unlock. It only reads the session; the 5-minute
// auto-extension is applied by ValidateSessionToken.
func (s *Service) sessionHasElevatedPermission(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	id, err := parseUUID(sessionID)
	if err != nil {
		return false, nil
	}
	session, err := s.queries.GetSessionByID(ctx, id)
	if err != nil {
		return false, nil
	}
	if !session.HasElevatedPermission {
		return false, nil
	}
	if session.PinExpiresAt.Valid && session.PinExpiresAt.Time.Before(time.Now()) {
		return false, nil
	}
	return true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// AuthMiddleware resolves the request's credential and rejects the
// request if none is present or resolution fails.
func (s *Service) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "auth.middleware")
		defer span.End()

		principal, claims, err := s.resolvePrincipal(ctx, c)
		if err != nil {
			span.RecordError(err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "type": string(GetAuthErrorType(err))})
			c.Abort()
			return
		}
		if principal == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "type": string(ErrUnauthorized)})
			c.Abort()
			return
		}

		s.stampContext(c, principal, claims)
		span.SetAttributes(
			attribute.String("auth.user_id", claims.UserID),
			attribute.Bool("auth.is_admin", claims.IsAdmin),
		)
		c.Next()
	}
}

// AdminMiddleware requires the resolved principal to be the admin
// user; it must run after AuthMiddleware.
func (s *Service) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "type": string(ErrUnauthorized)})
			c.Abort()
			return
		}
		if !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin privileges required", "type": string(ErrInsufficientPermissions)})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware resolves a credential if one is present but
// never rejects the request when one is absent or invalid.
func (s *Service) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "auth.optional_middleware")
		defer span.End()

		principal, claims, err := s.resolvePrincipal(ctx, c)
		if err != nil || principal == nil {
			c.Next()
			return
		}
		s.stampContext(c, principal, claims)
		c.Next()
	}
}

// stampContext stores the resolved identity on both the gin context
// (for handlers reached via *gin.Context) and the request's
// std context.Context (for service-layer code that only sees a plain
// context, e.g. internal/sessions).
func (s *Service) stampContext(c *gin.Context, principal *access.Principal, claims *Claims) {
	userInfo := UserInfo{ID: claims.UserID, Email: claims.Email, IsAdmin: claims.IsAdmin}

	c.Set(string(UserContextKey), userInfo)
	c.Set(string(ClaimsContextKey), claims)
	c.Set(string(PrincipalContextKey), principal)

	ctx := WithUser(c.Request.Context(), userInfo)
	ctx = WithClaims(ctx, claims)
	ctx = context.WithValue(ctx, PrincipalContextKey, principal)
	if uid, err := parseUUID(claims.UserID); err == nil {
		ctx = SetUserIDInContext(ctx, uid)
	}
	c.Request = c.Request.WithContext(ctx)
}

// GetUserFromContext extracts user information from Gin context
func GetUserFromContext(c *gin.Context) (*UserInfo, bool) {
	userInterface, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil, false
	}
	user, ok := userInterface.(UserInfo)
	if !ok {
		return nil, false
	}
	return &user, true
}

// GetClaimsFromContext extracts auth claims from Gin context
func GetClaimsFromContext(c *gin.Context) (*Claims, bool) {
	claimsInterface, exists := c.Get(string(ClaimsContextKey))
	if !exists {
		return nil, false
	}
	claims, ok := claimsInterface.(*Claims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// GetPrincipalFromContext extracts the resolved access.Principal from
// Gin context, for handlers that need to call access.Guard directly.
func GetPrincipalFromContext(c *gin.Context) (*access.Principal, bool) {
	v, exists := c.Get(string(PrincipalContextKey))
	if !exists {
		return nil, false
	}
	p, ok := v.(*access.Principal)
	return p, ok
}

// GetUserFromStdContext extracts user information from standard context
func GetUserFromStdContext(ctx context.Context) (*UserInfo, bool) {
	userInterface := ctx.Value(UserContextKey)
	if userInterface == nil {
		return nil, false
	}
	user, ok := userInterface.(UserInfo)
	if !ok {
		return nil, false
	}
	return &user, true
}

// GetClaimsFromStdContext extracts auth claims from standard context
func GetClaimsFromStdContext(ctx context.Context) (*Claims, bool) {
	claimsInterface := ctx.Value(ClaimsContextKey)
	if claimsInterface == nil {
		return nil, false
	}
	claims, ok := claimsInterface.(*Claims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// WithUser adds user information to context
func WithUser(ctx context.Context, user UserInfo) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// WithClaims adds auth claims to context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// RequireUser ensures a user is present in the context
func RequireUser(ctx context.Context) (*UserInfo, error) {
	user, ok := GetUserFromStdContext(ctx)
	if !ok {
		return nil, NewUnauthorizedError("User authentication required")
	}
	return user, nil
}

// RequireAdmin ensures an admin user is present in the context
func RequireAdmin(ctx context.Context) (*UserInfo, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, NewInsufficientPermissionsError("Admin privileges required")
	}
	return user, nil
}
