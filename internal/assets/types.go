package assets

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// UploadStatus is the outcome of an upload attempt. Duplicate content
// is a success, not an error: the caller gets the id of the row that
// already owns those bytes.
type UploadStatus string

const (
	UploadStatusCreated   UploadStatus = "created"
	UploadStatusDuplicate UploadStatus = "duplicate"
)

// ErrQuotaExceeded is returned when an upload would push the owner's
// usage past their configured quota.
var ErrQuotaExceeded = errors.New("assets: quota exceeded")

// ErrNotFound is returned when an asset id resolves to nothing.
var ErrNotFound = errors.New("assets: not found")

// UploadRequest carries one multipart upload, already parsed by the
// HTTP layer.
type UploadRequest struct {
	OwnerID          uuid.UUID
	DeviceAssetID    string
	DeviceID         string
	OriginalFileName string
	ContentType      string

	FileCreatedAt  time.Time
	FileModifiedAt time.Time
	LocalDateTime  time.Time

	IsFavorite bool
	Visibility sqlc.AssetVisibility // empty defaults to timeline
	Duration   string

	// ChecksumHint is the client-declared SHA-1, when the request
	// carried one. It lets the duplicate pre-check answer before hashing,
	// the quota check and storage; the HTTP handler has already read the
	// whole body into Data by then.
	ChecksumHint []byte

	Data    []byte
	Sidecar []byte // optional .xmp payload
}

// UploadResult is the service-level answer to an upload: the asset id
// and whether it was freshly created or already present.
type UploadResult struct {
	ID     uuid.UUID
	Status UploadStatus
}

// ReplaceRequest overwrites an existing asset's original bytes.
type ReplaceRequest struct {
	AssetID          uuid.UUID
	OriginalFileName string
	ContentType      string
	FileCreatedAt    time.Time
	FileModifiedAt   time.Time
	Data             []byte
}

// BulkUploadCheckInput is one entry of POST /assets/bulk-upload-check.
// Checksum accepts hex or base64 encodings.
type BulkUploadCheckInput struct {
	ID       string
	Checksum string
}

// BulkUploadCheckAction says whether the client should bother
// uploading the content.
type BulkUploadCheckAction string

const (
	BulkUploadCheckAccept BulkUploadCheckAction = "accept"
	BulkUploadCheckReject BulkUploadCheckAction = "reject"
)

// BulkUploadCheckResult is the per-input verdict.
type BulkUploadCheckResult struct {
	ID        string                `json:"id"`
	Action    BulkUploadCheckAction `json:"action"`
	Reason    string                `json:"reason,omitempty"`
	AssetID   *uuid.UUID            `json:"assetId,omitempty"`
	IsTrashed bool                  `json:"isTrashed,omitempty"`
}

// UpdateAssetRequest is the single-asset metadata update. Nil fields
// are left untouched. EXIF fields written here are locked so later
// extractor runs cannot overwrite them.
type UpdateAssetRequest struct {
	IsFavorite *bool
	Visibility *sqlc.AssetVisibility

	DateTimeOriginal *time.Time
	TimeZone         *string
	Latitude         *float64
	Longitude        *float64
	Rating           *int32
	Description      *string
}

// BulkUpdateRequest applies the same update to a batch of assets,
// optionally shifting each asset's capture time by a relative number
// of minutes.
type BulkUpdateRequest struct {
	IDs []uuid.UUID

	IsFavorite *bool
	Visibility *sqlc.AssetVisibility

	DateTimeRelative *int // minutes
	TimeZone         *string
}

// ThumbnailSize selects which derivative the thumbnail endpoint serves.
type ThumbnailSize string

const (
	ThumbnailSizeThumbnail ThumbnailSize = "thumbnail"
	ThumbnailSizePreview   ThumbnailSize = "preview"
	ThumbnailSizeFullsize  ThumbnailSize = "fullsize"
)

// ThumbnailOutcomeKind distinguishes serving bytes from the fallback
// redirects the fullsize policy can produce.
type ThumbnailOutcomeKind int

const (
	ThumbnailServe ThumbnailOutcomeKind = iota
	ThumbnailRedirectOriginal
	ThumbnailRedirectPreview
)

// ThumbnailOutcome tells the HTTP layer what to do: stream the blob,
// or redirect to the original / preview route.
type ThumbnailOutcome struct {
	Kind         ThumbnailOutcomeKind
	Body         io.ReadCloser
	ContentType  string
	CacheControl string
}

// BlobStream is an original-file download: the bytes plus the headers
// the HTTP layer should emit.
type BlobStream struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
	CacheControl       string
}

// RangeResult is a (possibly partial) video playback response.
type RangeResult struct {
	Body        io.ReadCloser
	Partial     bool  // true: 206 with Content-Range
	Start       int64 // first byte served
	End         int64 // last byte served, inclusive
	Total       int64 // full object size
	ContentType string
}

// Statistics is the per-owner asset count breakdown.
type Statistics struct {
	Images int64 `json:"images"`
	Videos int64 `json:"videos"`
	Total  int64 `json:"total"`
}

// AssetResponse is the external shape of one asset.
type AssetResponse struct {
	ID               uuid.UUID            `json:"id"`
	OwnerID          uuid.UUID            `json:"ownerId"`
	DeviceAssetID    string               `json:"deviceAssetId"`
	DeviceID         string               `json:"deviceId"`
	Type             sqlc.AssetType       `json:"type"`
	Visibility       sqlc.AssetVisibility `json:"visibility"`
	OriginalPath     string               `json:"originalPath"`
	OriginalFileName string               `json:"originalFileName"`
	IsFavorite       bool                 `json:"isFavorite"`
	IsTrashed        bool                 `json:"isTrashed"`
	Checksum         string               `json:"checksum"` // base64
	Thumbhash        *string              `json:"thumbhash"` // base64
	FileCreatedAt    time.Time            `json:"fileCreatedAt"`
	FileModifiedAt   time.Time            `json:"fileModifiedAt"`
	LocalDateTime    time.Time            `json:"localDateTime"`
	UpdatedAt        time.Time            `json:"updatedAt"`
	Duration         string               `json:"duration"`
	LivePhotoVideoID *uuid.UUID           `json:"livePhotoVideoId"`
	StackID          *uuid.UUID           `json:"stackId"`
	Width            *int32               `json:"width"`
	Height           *int32               `json:"height"`
}
