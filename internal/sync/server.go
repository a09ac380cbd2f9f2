package sync

import (
	"bufio"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/auth"
)

// parseTimeOrNow parses an RFC3339 timestamp, defaulting to the
// current time when s is empty.
func parseTimeOrNow(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, s)
}

// Server adapts Service to gin's HTTP surface.
type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

// effectiveSessionID resolves the per-device sync session identity.
// Requests authenticated by session token carry the session's id in
// Claims.SessionID. Other credentials (API key, shared link) carry none
// and fall back to a single deterministic per-user session, which loses
// multi-device isolation but keeps the checkpoint protocol well defined.
func effectiveSessionID(claims *auth.Claims, userID uuid.UUID) uuid.UUID {
	if sid, err := uuid.Parse(claims.SessionID); err == nil {
		return sid
	}
	return uuid.NewSHA1(uuid.Nil, []byte(userID.String()))
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

type streamRequest struct {
	Types []SyncEntityType `json:"types"`
	Reset bool             `json:"reset"`
}

// Stream implements `POST /api/sync/stream`: an ndjson response, one
// Line per json-encoded row, flushed as it's produced.
func (s *Server) Stream(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID := effectiveSessionID(claims, userID)

	var req streamRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	bw := bufio.NewWriter(c.Writer)
	enc := json.NewEncoder(bw)
	flusher, canFlush := c.Writer.(http.Flusher)

	writeLine := func(l Line) error {
		if err := enc.Encode(l); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	}

	if err := s.service.Stream(c.Request.Context(), sessionID, userID, req.Types, req.Reset, writeLine); err != nil {
		// A partial ndjson body may already be on the wire; the client
		// simply resumes from its last acked watermark next time.
		return
	}
}

// ListAck implements `GET /api/sync/ack`.
func (s *Server) ListAck(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID := effectiveSessionID(claims, userID)

	checkpoints, err := s.service.ListAcks(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(checkpoints))
	for t, cp := range checkpoints {
		out = append(out, gin.H{"type": t, "updateId": cp.UpdateID})
	}
	c.JSON(http.StatusOK, out)
}

// SetAck implements `POST /api/sync/ack`.
func (s *Server) SetAck(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID := effectiveSessionID(claims, userID)

	var acks []Ack
	if err := c.ShouldBindJSON(&acks); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.service.AckBatch(c.Request.Context(), sessionID, acks); err != nil {
		if err == ErrUnknownAckType {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAck implements `DELETE /api/sync/ack`.
func (s *Server) DeleteAck(c *gin.Context) {
	userID, claims, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID := effectiveSessionID(claims, userID)

	if err := s.service.ResetAcks(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type fullSyncRequest struct {
	LastID       uuid.UUID `json:"lastId"`
	UpdatedUntil string    `json:"updatedUntil"`
	Limit        int       `json:"limit"`
}

// FullSync implements the legacy `POST /sync/full-sync`.
func (s *Server) FullSync(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var req fullSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	until, err := parseTimeOrNow(req.UpdatedUntil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := s.service.FullSync(c.Request.Context(), userID, req.LastID, until, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assetIds": page.AssetIDs, "hasMore": page.HasMore})
}

type deltaSyncRequest struct {
	UserIDs      []uuid.UUID `json:"userIds"`
	UpdatedAfter string      `json:"updatedAfter"`
}

// DeltaSync implements the legacy `POST /sync/delta-sync`.
func (s *Server) DeltaSync(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var req deltaSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	after, err := parseTimeOrNow(req.UpdatedAfter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownerIDs := req.UserIDs
	if len(ownerIDs) == 0 {
		ownerIDs = []uuid.UUID{userID}
	}

	result, err := s.service.DeltaSync(c.Request.Context(), userID, ownerIDs, after)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"needsFullSync": result.NeedsFullSync,
		"upserted":      result.Upserted,
		"deleted":       result.Deleted,
	})
}
