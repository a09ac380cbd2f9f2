package assets

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/access"
	"github.com/denysvitali/immich-go-backend/internal/auth"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/timeline"
	"github.com/denysvitali/immich-go-backend/internal/trash"
	"github.com/denysvitali/immich-go-backend/internal/view"
)

// Server adapts the asset, trash, timeline, and view services to the
// HTTP surface, with every operation gated by the access guard.
type Server struct {
	assets   *Service
	trash    *trash.Service
	timeline *timeline.Service
	view     *view.Service
	guard    *access.Guard
}

func NewServer(assetService *Service, trashService *trash.Service, timelineService *timeline.Service, viewService *view.Service, guard *access.Guard) *Server {
	return &Server{
		assets:   assetService,
		trash:    trashService,
		timeline: timelineService,
		view:     viewService,
		guard:    guard,
	}
}

// RegisterRoutes mounts the asset-related endpoints onto the
// authenticated API group.
func (s *Server) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/assets", s.Upload)
	api.GET("/assets/:id", s.GetAsset)
	api.PUT("/assets/:id", s.UpdateAsset)
	api.PUT("/assets", s.BulkUpdate)
	api.DELETE("/assets", s.DeleteAssets)
	api.PUT("/assets/:id/original", s.Replace)
	api.GET("/assets/:id/original", s.DownloadOriginal)
	api.GET("/assets/:id/thumbnail", s.Thumbnail)
	api.GET("/assets/:id/video/playback", s.VideoPlayback)
	api.POST("/assets/exist", s.Exist)
	api.POST("/assets/bulk-upload-check", s.BulkUploadCheck)
	api.GET("/assets/statistics", s.Statistics)
	api.GET("/assets/random", s.Random)
	api.GET("/assets/device/:deviceId", s.ByDevice)

	api.POST("/trash/empty", s.EmptyTrash)
	api.POST("/trash/restore", s.RestoreAll)
	api.POST("/trash/restore/assets", s.RestoreAssets)

	api.GET("/timeline/buckets", s.TimeBuckets)
	api.GET("/timeline/bucket", s.TimeBucket)

	api.GET("/view/folder/unique-paths", s.UniquePaths)
	api.GET("/view/folder", s.FolderAssets)
}

func (s *Server) principal(c *gin.Context) (*access.Principal, bool) {
	p, ok := auth.GetPrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, false
	}
	return p, true
}

// requireOne runs the guard over a single id and 403s on denial.
func (s *Server) requireOne(c *gin.Context, p *access.Principal, perm access.Permission, id uuid.UUID) bool {
	if err := s.guard.RequireAccess(c.Request.Context(), *p, perm, []uuid.UUID{id}); err != nil {
		var forbidden *access.ErrForbidden
		if errors.As(err, &forbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.UUID{}, false
	}
	return id, true
}

// Upload implements POST /assets (multipart).
func (s *Server) Upload(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	if allowed, err := s.guard.CheckAccess(c.Request.Context(), *p, access.PermissionAssetUpload, []uuid.UUID{p.UserID}); err != nil || len(allowed) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	file, header, err := c.Request.FormFile("assetData")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetData part is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	req := UploadRequest{
		OwnerID:          p.UserID,
		DeviceAssetID:    c.PostForm("deviceAssetId"),
		DeviceID:         c.PostForm("deviceId"),
		OriginalFileName: header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		IsFavorite:       c.PostForm("isFavorite") == "true",
		Duration:         c.PostForm("duration"),
		Data:             data,
	}
	if v := c.PostForm("visibility"); v != "" {
		req.Visibility = sqlc.AssetVisibility(v)
	}
	if t, err := time.Parse(time.RFC3339, c.PostForm("fileCreatedAt")); err == nil {
		req.FileCreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, c.PostForm("fileModifiedAt")); err == nil {
		req.FileModifiedAt = t
	}
	if t, err := time.Parse(time.RFC3339, c.PostForm("localDateTime")); err == nil {
		req.LocalDateTime = t
	}
	if hint := c.GetHeader("x-immich-checksum"); hint != "" {
		if decoded, err := decodeChecksum(hint); err == nil {
			req.ChecksumHint = decoded
		}
	}
	if sidecar, _, err := c.Request.FormFile("sidecarData"); err == nil {
		defer sidecar.Close()
		if sidecarData, err := io.ReadAll(sidecar); err == nil {
			req.Sidecar = sidecarData
		}
	}

	result, err := s.assets.Upload(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "quota exceeded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if result.Status == UploadStatusDuplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"id": result.ID, "status": result.Status})
}

// GetAsset implements GET /assets/:id.
func (s *Server) GetAsset(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !s.requireOne(c, p, access.PermissionAssetRead, id) {
		return
	}

	asset, err := s.assets.GetAsset(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, asset)
}

type updateAssetBody struct {
	IsFavorite       *bool    `json:"isFavorite"`
	Visibility       *string  `json:"visibility"`
	DateTimeOriginal *string  `json:"dateTimeOriginal"`
	TimeZone         *string  `json:"timeZone"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Rating           *int32   `json:"rating"`
	Description      *string  `json:"description"`
}

func (b updateAssetBody) toRequest() (UpdateAssetRequest, error) {
	req := UpdateAssetRequest{
		IsFavorite:  b.IsFavorite,
		TimeZone:    b.TimeZone,
		Latitude:    b.Latitude,
		Longitude:   b.Longitude,
		Rating:      b.Rating,
		Description: b.Description,
	}
	if b.Visibility != nil {
		v := sqlc.AssetVisibility(*b.Visibility)
		req.Visibility = &v
	}
	if b.DateTimeOriginal != nil {
		t, err := time.Parse(time.RFC3339, *b.DateTimeOriginal)
		if err != nil {
			return req, fmt.Errorf("invalid dateTimeOriginal: %w", err)
		}
		req.DateTimeOriginal = &t
	}
	return req, nil
}

// UpdateAsset implements PUT /assets/:id.
func (s *Server) UpdateAsset(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !s.requireOne(c, p, access.PermissionAssetUpdate, id) {
		return
	}

	var body updateAssetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.toRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := s.assets.UpdateAsset(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, asset)
}

type bulkUpdateBody struct {
	IDs              []uuid.UUID `json:"ids"`
	IsFavorite       *bool       `json:"isFavorite"`
	Visibility       *string     `json:"visibility"`
	DateTimeRelative *int        `json:"dateTimeRelative"`
	TimeZone         *string     `json:"timeZone"`
}

// BulkUpdate implements PUT /assets.
func (s *Server) BulkUpdate(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	var body bulkUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.guard.RequireAccess(c.Request.Context(), *p, access.PermissionAssetUpdate, body.IDs); err != nil {
		var forbidden *access.ErrForbidden
		if errors.As(err, &forbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	req := BulkUpdateRequest{
		IDs:              body.IDs,
		IsFavorite:       body.IsFavorite,
		DateTimeRelative: body.DateTimeRelative,
		TimeZone:         body.TimeZone,
	}
	if body.Visibility != nil {
		v := sqlc.AssetVisibility(*body.Visibility)
		req.Visibility = &v
	}

	if err := s.assets.BulkUpdate(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type deleteAssetsBody struct {
	IDs []uuid.UUID `json:"ids"`
}

// DeleteAssets implements DELETE /assets (bulk soft delete).
func (s *Server) DeleteAssets(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	var body deleteAssetsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.guard.RequireAccess(c.Request.Context(), *p, access.PermissionAssetDelete, body.IDs); err != nil {
		var forbidden *access.ErrForbidden
		if errors.As(err, &forbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if err := s.assets.SoftDeleteAssets(c.Request.Context(), p.UserID, body.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Replace implements PUT /assets/:id/original.
func (s *Server) Replace(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !s.requireOne(c, p, access.PermissionAssetReplace, id) {
		return
	}

	file, header, err := c.Request.FormFile("assetData")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetData part is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	req := ReplaceRequest{
		AssetID:          id,
		OriginalFileName: header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		Data:             data,
	}
	if t, err := time.Parse(time.RFC3339, c.PostForm("fileCreatedAt")); err == nil {
		req.FileCreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, c.PostForm("fileModifiedAt")); err == nil {
		req.FileModifiedAt = t
	}

	asset, err := s.assets.Replace(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, asset)
}

// DownloadOriginal implements GET /assets/:id/original.
func (s *Server) DownloadOriginal(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !s.requireOne(c, p, access.PermissionAssetDownload, id) {
		return
	}

	// Shared-link viewers always get the edited rendition when one
	// exists.
	edited := c.Query("edited") == "true" || p.Kind == access.KindSharedLink

	stream, err := s.assets.ServeOriginal(c.Request.Context(), id, edited)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer stream.Body.Close()

	c.Header("Content-Disposition", stream.ContentDisposition)
	c.Header("Cache-Control", stream.CacheControl)
	c.DataFromReader(http.StatusOK, -1, stream.ContentType, stream.Body, nil)
}

// Thumbnail implements GET /assets/:id/thumbnail?size=...&edited=...
func (s *Server) Thumbnail(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !s.requireOne(c, p, access.PermissionAssetView, id) {
		return
	}

	size := ThumbnailSize(c.DefaultQuery("size", string(ThumbnailSizeThumbnail)))
	if size == "original" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size=original is not served here"})
		return
	}
	edited := c.Query("edited") == "true"

	outcome, err := s.assets.Thumbnail(c.Request.Context(), id, size, edited)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch outcome.Kind {
	case ThumbnailRedirectOriginal:
		c.Redirect(http.StatusFound, redirectPreservingQuery(c, "/original", ""))
	case ThumbnailRedirectPreview:
		c.Redirect(http.StatusFound, redirectPreservingQuery(c, "/thumbnail", string(ThumbnailSizePreview)))
	default:
		defer outcome.Body.Close()
		c.Header("Cache-Control", outcome.CacheControl)
		c.DataFromReader(http.StatusOK, -1, outcome.ContentType, outcome.Body, nil)
	}
}

// redirectPreservingQuery rebuilds the asset route with the original
// query string, dropping or rewriting the size parameter.
func redirectPreservingQuery(c *gin.Context, suffix, newSize string) string {
	q := c.Request.URL.Query()
	q.Del("size")
	if newSize != "" {
		q.Set("size", newSize)
	}
	target := "/api/assets/" + c.Param("id") + suffix
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

// VideoPlayback implements GET /assets/:id/video/playback with Range
// support.
func (s *Server) VideoPlayback(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !s.requireOne(c, p, access.PermissionAssetView, id) {
		return
	}

	result, err := s.assets.VideoPlayback(c.Request.Context(), id, c.GetHeader("Range"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(err, ErrInvalidRange):
			c.Status(http.StatusRequestedRangeNotSatisfiable)
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	defer result.Body.Close()

	c.Header("Accept-Ranges", "bytes")
	length := result.End - result.Start + 1
	if result.Partial {
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", result.Start, result.End, result.Total))
		c.DataFromReader(http.StatusPartialContent, length, result.ContentType, result.Body, nil)
		return
	}
	c.DataFromReader(http.StatusOK, length, result.ContentType, result.Body, nil)
}

type existBody struct {
	DeviceID       string   `json:"deviceId"`
	DeviceAssetIDs []string `json:"deviceAssetIds"`
}

// Exist implements POST /assets/exist.
func (s *Server) Exist(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	var body existBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := s.assets.Exist(c.Request.Context(), p.UserID, body.DeviceID, body.DeviceAssetIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"existingIds": existing})
}

type bulkUploadCheckBody struct {
	Assets []BulkUploadCheckInput `json:"assets"`
}

// BulkUploadCheck implements POST /assets/bulk-upload-check.
func (s *Server) BulkUploadCheck(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	var body bulkUploadCheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := s.assets.BulkUploadCheck(c.Request.Context(), p.UserID, body.Assets)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Statistics implements GET /assets/statistics.
func (s *Server) Statistics(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	stats, err := s.assets.Statistics(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Random implements GET /assets/random?count=...
func (s *Server) Random(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	count := int32(1)
	if v := c.Query("count"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &count); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count"})
			return
		}
	}
	out, err := s.assets.Random(c.Request.Context(), p.UserID, count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// ByDevice implements GET /assets/device/:deviceId.
func (s *Server) ByDevice(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	ids, err := s.assets.ByDevice(c.Request.Context(), p.UserID, c.Param("deviceId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ids)
}

// EmptyTrash implements POST /trash/empty.
func (s *Server) EmptyTrash(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	count, err := s.trash.Empty(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// RestoreAll implements POST /trash/restore.
func (s *Server) RestoreAll(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	count, err := s.trash.RestoreAll(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

type restoreAssetsBody struct {
	IDs []uuid.UUID `json:"ids"`
}

// RestoreAssets implements POST /trash/restore/assets.
func (s *Server) RestoreAssets(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	var body restoreAssetsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := s.trash.Restore(c.Request.Context(), p.UserID, body.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func timeBucketsRequest(c *gin.Context, userID uuid.UUID) timeline.TimeBucketsRequest {
	req := timeline.TimeBucketsRequest{
		UserID:    userID,
		Ascending: c.Query("order") == "asc",
	}
	if v := c.Query("visibility"); v != "" {
		req.Visibilities = []sqlc.AssetVisibility{sqlc.AssetVisibility(v)}
	}
	if v := c.Query("isFavorite"); v != "" {
		fav := v == "true"
		req.IsFavorite = &fav
	}
	if v := c.Query("albumId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			req.AlbumID = &id
		}
	}
	if v := c.Query("tagId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			req.TagID = &id
		}
	}
	return req
}

// TimeBuckets implements GET /timeline/buckets.
func (s *Server) TimeBuckets(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	buckets, err := s.timeline.GetTimeBuckets(c.Request.Context(), timeBucketsRequest(c, p.UserID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// TimeBucket implements GET /timeline/bucket?timeBucket=...
func (s *Server) TimeBucket(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	bucket := c.Query("timeBucket")
	if bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeBucket is required"})
		return
	}
	resp, err := s.timeline.GetTimeBucket(c.Request.Context(), timeBucketsRequest(c, p.UserID), bucket)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UniquePaths implements GET /view/folder/unique-paths.
func (s *Server) UniquePaths(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	paths, err := s.view.GetUniqueOriginalPaths(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, paths)
}

// FolderAssets implements GET /view/folder?path=...
func (s *Server) FolderAssets(c *gin.Context) {
	p, ok := s.principal(c)
	if !ok {
		return
	}
	folderPath := c.Query("path")
	if folderPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	out, err := s.view.GetAssetsByOriginalPath(c.Request.Context(), p.UserID, folderPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
