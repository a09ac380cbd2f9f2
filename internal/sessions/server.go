package sessions

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/auth"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// Server adapts Service to gin's HTTP surface.
type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceType string    `json:"deviceType"`
	DeviceOS   string    `json:"deviceOS"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Current    bool      `json:"current"`
}

func toSessionResponse(sess sqlc.Session, currentID uuid.UUID) sessionResponse {
	return sessionResponse{
		ID:         sess.ID.String(),
		DeviceType: sess.DeviceType,
		DeviceOS:   sess.DeviceOS,
		CreatedAt:  sess.CreatedAt.Time,
		UpdatedAt:  sess.UpdatedAt.Time,
		Current:    sess.ID == currentID,
	}
}

func currentUser(c *gin.Context) (uuid.UUID, *auth.Claims, bool) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return uuid.UUID{}, nil, false
	}
	claims, _ := auth.GetClaimsFromContext(c)
	if claims == nil {
		claims = &auth.Claims{UserID: user.ID}
	}
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return uuid.UUID{}, nil, false
	}
	return userID, claims, true
}

// ListSessions implements `GET /api/sessions`.
func (s *Server) ListSessions(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	currentID, _ := uuid.Parse(claims.SessionID)

	sessions, err := s.service.ListSessions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]sessionResponse, len(sessions))
	for i, sess := range sessions {
		out[i] = toSessionResponse(sess, currentID)
	}
	c.JSON(http.StatusOK, out)
}

// DeleteSession implements `DELETE /api/sessions/:id`: a user may only
// revoke their own sessions.
func (s *Server) DeleteSession(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	session, err := s.service.GetSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if session.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another user"})
		return
	}

	if err := s.service.DeleteSession(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteOtherSessions implements `DELETE /api/sessions` (bulk), revoking
// every session but the caller's current one.
func (s *Server) DeleteOtherSessions(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	currentID, _ := uuid.Parse(claims.SessionID)

	if err := s.service.DeleteOtherSessions(c.Request.Context(), userID, currentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type unlockRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// UnlockWithPin implements `POST /api/sessions/me/unlock`: elevated
// permission for visibility='locked' assets.
func (s *Server) UnlockWithPin(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no session associated with this credential"})
		return
	}

	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.service.UnlockWithPin(c.Request.Context(), userID, sessionID, req.Pin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type setPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// SetPin implements `POST /api/sessions/me/pin`.
func (s *Server) SetPin(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var req setPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.service.SetPin(c.Request.Context(), userID, req.Pin); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
