// Package sqlc is the hand-authored relational access layer: a DBTX
// interface, a Queries struct wrapping it, Go structs with `db:"..."`
// tags mirroring double-quoted camelCase Postgres columns, and raw
// pgx Query/QueryRow/Exec calls per operation.
package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting Queries
// run against either a pooled connection or a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the relational access entry point. It is kept
// intentionally thin: one method per query, grouped into per-entity
// files.
type Queries struct {
	db DBTX
}

// New constructs a Queries bound to the given executor (pool or tx).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to an already-open transaction, used
// by operations that must be atomic (e.g. asset insert + quota bump).
func (q *Queries) WithTx(tx DBTX) *Queries {
	return &Queries{db: tx}
}

// --- enums -----------------------------------------------------------

type AssetType string

const (
	AssetTypeImage AssetType = "IMAGE"
	AssetTypeVideo AssetType = "VIDEO"
	AssetTypeAudio AssetType = "AUDIO"
	AssetTypeOther AssetType = "OTHER"
)

type AssetVisibility string

const (
	VisibilityTimeline AssetVisibility = "timeline"
	VisibilityArchive  AssetVisibility = "archive"
	VisibilityHidden   AssetVisibility = "hidden"
	VisibilityLocked   AssetVisibility = "locked"
)

type AssetStatus string

const (
	AssetStatusActive  AssetStatus = "active"
	AssetStatusTrashed AssetStatus = "trashed"
	AssetStatusDeleted AssetStatus = "deleted"
)

type AssetFileType string

const (
	AssetFileTypeFullsize  AssetFileType = "fullsize"
	AssetFileTypePreview   AssetFileType = "preview"
	AssetFileTypeThumbnail AssetFileType = "thumbnail"
	AssetFileTypeSidecar   AssetFileType = "sidecar"
)

type AlbumUserRole string

const (
	AlbumRoleEditor AlbumUserRole = "editor"
	AlbumRoleViewer AlbumUserRole = "viewer"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusRemoving UserStatus = "removing"
	UserStatusDeleted  UserStatus = "deleted"
)

// --- entities ----------------------------------------------------------

type User struct {
	ID                uuid.UUID   `db:"id"`
	Email             string      `db:"email"`
	PasswordHash      string      `db:"passwordHash"`
	Name              string      `db:"name"`
	IsAdmin           bool        `db:"isAdmin"`
	Status            UserStatus  `db:"status"`
	StorageLabel      pgtype.Text `db:"storageLabel"`
	QuotaSizeInBytes  pgtype.Int8 `db:"quotaSizeInBytes"`
	QuotaUsageInBytes int64       `db:"quotaUsageInBytes"`
	ProfileImagePath  pgtype.Text `db:"profileImagePath"`
	PinCode           pgtype.Text `db:"pinCode"`
	UpdateID          uuid.UUID   `db:"updateId"`
	DeletedAt         pgtype.Timestamptz `db:"deletedAt"`
	CreatedAt         pgtype.Timestamptz `db:"createdAt"`
	UpdatedAt         pgtype.Timestamptz `db:"updatedAt"`
}

type Session struct {
	ID                  uuid.UUID          `db:"id"`
	UserID              uuid.UUID          `db:"userId"`
	TokenHash           string             `db:"tokenHash"`
	ExpiresAt           pgtype.Timestamptz `db:"expiresAt"`
	UpdatedAt           pgtype.Timestamptz `db:"updatedAt"`
	PinExpiresAt        pgtype.Timestamptz `db:"pinExpiresAt"`
	DeviceOS            string             `db:"deviceOS"`
	DeviceType          string             `db:"deviceType"`
	AppVersion          pgtype.Text        `db:"appVersion"`
	IsPendingSyncReset  bool               `db:"isPendingSyncReset"`
	ParentID            pgtype.UUID        `db:"parentId"`
	HasElevatedPermission bool             `db:"hasElevatedPermission"`
	CreatedAt           pgtype.Timestamptz `db:"createdAt"`
}

type ApiKey struct {
	ID          uuid.UUID          `db:"id"`
	UserID      uuid.UUID          `db:"userId"`
	Name        string             `db:"name"`
	KeyHash     string             `db:"keyHash"`
	Permissions []string           `db:"permissions"`
	CreatedAt   pgtype.Timestamptz `db:"createdAt"`
	UpdatedAt   pgtype.Timestamptz `db:"updatedAt"`
}

type Asset struct {
	ID               uuid.UUID          `db:"id"`
	OwnerID          uuid.UUID          `db:"ownerId"`
	LibraryID        pgtype.UUID        `db:"libraryId"`
	Checksum         []byte             `db:"checksum"`
	OriginalPath     string             `db:"originalPath"`
	OriginalFileName string             `db:"originalFileName"`
	Type             AssetType          `db:"type"`
	Visibility       AssetVisibility    `db:"visibility"`
	IsFavorite       bool               `db:"isFavorite"`
	DeviceAssetID    string             `db:"deviceAssetId"`
	DeviceID         string             `db:"deviceId"`
	FileCreatedAt    pgtype.Timestamptz `db:"fileCreatedAt"`
	FileModifiedAt   pgtype.Timestamptz `db:"fileModifiedAt"`
	LocalDateTime    pgtype.Timestamptz `db:"localDateTime"`
	Duration         pgtype.Text        `db:"duration"`
	LivePhotoVideoID pgtype.UUID        `db:"livePhotoVideoId"`
	StackID          pgtype.UUID        `db:"stackId"`
	Status           AssetStatus        `db:"status"`
	DeletedAt        pgtype.Timestamptz `db:"deletedAt"`
	UpdatedAt        pgtype.Timestamptz `db:"updatedAt"`
	UpdateID         uuid.UUID          `db:"updateId"`
	Width            pgtype.Int4        `db:"width"`
	Height           pgtype.Int4        `db:"height"`
	Thumbhash        []byte             `db:"thumbhash"`
	FileSizeInByte   int64              `db:"fileSizeInByte"`
	CreatedAt        pgtype.Timestamptz `db:"createdAt"`
}

type AssetExif struct {
	AssetID           uuid.UUID   `db:"assetId"`
	Make              pgtype.Text `db:"make"`
	Model             pgtype.Text `db:"model"`
	ExifImageWidth    pgtype.Int4 `db:"exifImageWidth"`
	ExifImageHeight   pgtype.Int4 `db:"exifImageHeight"`
	FileSizeInByte    pgtype.Int8 `db:"fileSizeInByte"`
	Orientation       pgtype.Text `db:"orientation"`
	DateTimeOriginal  pgtype.Timestamptz `db:"dateTimeOriginal"`
	ModifyDate        pgtype.Timestamptz `db:"modifyDate"`
	TimeZone          pgtype.Text `db:"timeZone"`
	Latitude          pgtype.Float8 `db:"latitude"`
	Longitude         pgtype.Float8 `db:"longitude"`
	ProjectionType    pgtype.Text `db:"projectionType"`
	City              pgtype.Text `db:"city"`
	State             pgtype.Text `db:"state"`
	Country           pgtype.Text `db:"country"`
	Description       pgtype.Text `db:"description"`
	Fps               pgtype.Float8 `db:"fps"`
	ExposureTime      pgtype.Text `db:"exposureTime"`
	Rating            pgtype.Int4 `db:"rating"`
	Iso               pgtype.Int4 `db:"iso"`
	FNumber           pgtype.Float8 `db:"fNumber"`
	FocalLength       pgtype.Float8 `db:"focalLength"`
	LensModel         pgtype.Text `db:"lensModel"`
	LivePhotoCID      pgtype.Text `db:"livePhotoCID"`
	ColorSpace        pgtype.Text `db:"colorspace"`
	BitsPerSample     pgtype.Int4 `db:"bitsPerSample"`
	ProfileDescription pgtype.Text `db:"profileDescription"`
	LockedProperties  []string    `db:"lockedProperties"`
	UpdateID          uuid.UUID   `db:"updateId"`
}

type AssetFile struct {
	ID      uuid.UUID     `db:"id"`
	AssetID uuid.UUID     `db:"assetId"`
	Type    AssetFileType `db:"type"`
	Path    string        `db:"path"`
	IsEdited bool         `db:"isEdited"`
}

type AssetMetadataEntry struct {
	AssetID   uuid.UUID          `db:"assetId"`
	Key       string             `db:"key"`
	Value     []byte             `db:"value"`
	UpdatedAt pgtype.Timestamptz `db:"updatedAt"`
}

type Album struct {
	ID                     uuid.UUID          `db:"id"`
	OwnerID                uuid.UUID          `db:"ownerId"`
	AlbumName              string             `db:"albumName"`
	Description            string             `db:"description"`
	AlbumThumbnailAssetID  pgtype.UUID        `db:"albumThumbnailAssetId"`
	Order                  string             `db:"order"`
	IsActivityEnabled      bool               `db:"isActivityEnabled"`
	CreatedAt              pgtype.Timestamptz `db:"createdAt"`
	UpdatedAt              pgtype.Timestamptz `db:"updatedAt"`
	UpdateID               uuid.UUID          `db:"updateId"`
}

type AlbumAsset struct {
	AlbumID uuid.UUID `db:"albumId"`
	AssetID uuid.UUID `db:"assetId"`
}

type AlbumUser struct {
	AlbumID uuid.UUID     `db:"albumId"`
	UserID  uuid.UUID     `db:"userId"`
	Role    AlbumUserRole `db:"role"`
}

type Tag struct {
	ID       uuid.UUID   `db:"id"`
	UserID   uuid.UUID   `db:"userId"`
	Value    string      `db:"value"`
	Color    pgtype.Text `db:"color"`
	ParentID pgtype.UUID `db:"parentId"`
}

type Memory struct {
	ID        uuid.UUID          `db:"id"`
	OwnerID   uuid.UUID          `db:"ownerId"`
	Type      string             `db:"type"`
	Data      []byte             `db:"data"`
	IsSaved   bool               `db:"isSaved"`
	MemoryAt  pgtype.Timestamptz `db:"memoryAt"`
	SeenAt    pgtype.Timestamptz `db:"seenAt"`
	UpdateID  uuid.UUID          `db:"updateId"`
}

type Stack struct {
	ID             uuid.UUID `db:"id"`
	OwnerID        uuid.UUID `db:"ownerId"`
	PrimaryAssetID uuid.UUID `db:"primaryAssetId"`
	UpdateID       uuid.UUID `db:"updateId"`
}

type Partner struct {
	SharedByID   uuid.UUID `db:"sharedById"`
	SharedWithID uuid.UUID `db:"sharedWithId"`
	InTimeline   bool      `db:"inTimeline"`
	UpdateID     uuid.UUID `db:"updateId"`
}

type SessionSyncCheckpoint struct {
	SessionID uuid.UUID          `db:"sessionId"`
	Type      string             `db:"type"`
	Ack       string             `db:"ack"`
	UpdateID  string             `db:"updateId"`
	UpdatedAt pgtype.Timestamptz `db:"updatedAt"`
}

type SharedLink struct {
	ID            uuid.UUID          `db:"id"`
	UserID        uuid.UUID          `db:"userId"`
	Key           []byte             `db:"key"`
	Slug          pgtype.Text        `db:"slug"`
	ExpiresAt     pgtype.Timestamptz `db:"expiresAt"`
	Password      pgtype.Text        `db:"password"`
	ShowExif      bool               `db:"showExif"`
	AllowUpload   bool               `db:"allowUpload"`
	AllowDownload bool               `db:"allowDownload"`
	AlbumID       pgtype.UUID        `db:"albumId"`
	CreatedAt     pgtype.Timestamptz `db:"createdAt"`
	UpdatedAt     pgtype.Timestamptz `db:"updatedAt"`
}

type Activity struct {
	ID        uuid.UUID          `db:"id"`
	UserID    uuid.UUID          `db:"userId"`
	AlbumID   uuid.UUID          `db:"albumId"`
	AssetID   pgtype.UUID        `db:"assetId"`
	IsLiked   bool               `db:"isLiked"`
	Comment   pgtype.Text        `db:"comment"`
	CreatedAt pgtype.Timestamptz `db:"createdAt"`
}

type SystemMetadataEntry struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

// AuditRow is the shape shared by every "<entity>_audit" table: an
// id (monotonic, time-ordered), the owning user, the dead entity's id,
// and a deletion timestamp.
type AuditRow struct {
	ID        string             `db:"id"`
	OwnerID   uuid.UUID          `db:"ownerId"`
	EntityID  uuid.UUID          `db:"entityId"`
	DeletedAt pgtype.Timestamptz `db:"deletedAt"`
}
