// Package sync implements the incremental sync engine: a streaming,
// multi-entity change-data-capture protocol driven by monotonic
// per-session checkpoints and a fixed topological ordering of entity
// types, backed by the per-type Scan*Upsert/Scan*AuditDelete methods
// in internal/db/sqlc/sync_queries.go.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

// SyncEntityType names one line of the streaming protocol's fixed
// topological ordering.
type SyncEntityType string

const (
	SyncResetV1    SyncEntityType = "SyncResetV1"
	SyncCompleteV1 SyncEntityType = "SyncCompleteV1"

	AuthUsersV1         SyncEntityType = "AuthUsersV1"
	UsersV1             SyncEntityType = "UsersV1"
	PartnersV1          SyncEntityType = "PartnersV1"
	AssetsV1            SyncEntityType = "AssetsV1"
	StacksV1            SyncEntityType = "StacksV1"
	PartnerAssetsV1     SyncEntityType = "PartnerAssetsV1"
	PartnerStacksV1     SyncEntityType = "PartnerStacksV1"
	AlbumAssetsV1       SyncEntityType = "AlbumAssetsV1"
	AlbumsV1            SyncEntityType = "AlbumsV1"
	AlbumUsersV1        SyncEntityType = "AlbumUsersV1"
	AlbumToAssetsV1     SyncEntityType = "AlbumToAssetsV1"
	AssetExifsV1        SyncEntityType = "AssetExifsV1"
	AlbumAssetExifsV1   SyncEntityType = "AlbumAssetExifsV1"
	PartnerAssetExifsV1 SyncEntityType = "PartnerAssetExifsV1"
	MemoriesV1          SyncEntityType = "MemoriesV1"
	MemoryToAssetsV1    SyncEntityType = "MemoryToAssetsV1"
	PeopleV1            SyncEntityType = "PeopleV1"
	AssetFacesV1        SyncEntityType = "AssetFacesV1"
	UserMetadataV1      SyncEntityType = "UserMetadataV1"
	AssetMetadataV1     SyncEntityType = "AssetMetadataV1"
)

// typeOrder is the fixed topological emission order: a client only
// ever sees a child line after its parent's.
var typeOrder = []SyncEntityType{
	AuthUsersV1, UsersV1, PartnersV1, AssetsV1, StacksV1,
	PartnerAssetsV1, PartnerStacksV1, AlbumAssetsV1, AlbumsV1,
	AlbumUsersV1, AlbumToAssetsV1, AssetExifsV1,
	AlbumAssetExifsV1, PartnerAssetExifsV1, MemoriesV1,
	MemoryToAssetsV1, PeopleV1, AssetFacesV1,
	UserMetadataV1, AssetMetadataV1,
}

// stubbedTypes carry no data: the face/ML pipeline types and the
// Partner*/Album*Asset(Exif)s backfill variants, whose state is
// reconstructable from the other active types -- AlbumToAssetsV1
// carries the real, non-backfill album/asset membership stream.
// UserMetadataV1 is additionally inert because this schema models
// only per-asset metadata, not a per-user metadata table.
var stubbedTypes = map[SyncEntityType]bool{
	PeopleV1:            true,
	AssetFacesV1:        true,
	PartnerAssetsV1:     true,
	PartnerStacksV1:     true,
	PartnerAssetExifsV1: true,
	AlbumAssetsV1:       true,
	AlbumAssetExifsV1:   true,
	UserMetadataV1:      true,
}

// staleAfter is the staleness window: a session whose last
// SyncCompleteV1 watermark is older than this forces a full reset.
const staleAfter = 30 * 24 * time.Hour

// pageSize mirrors sqlc's syncPageSize: each type's scan is paged at
// 1000 rows.
const pageSize = 1000

// Line is one newline-delimited JSON object of the sync stream:
// exactly {type, ids, data}.
type Line struct {
	Type SyncEntityType `json:"type"`
	IDs  []string       `json:"ids"`
	Data any            `json:"data"`
}

// LineWriter receives each emitted Line in order. Implementations
// typically json-encode and flush immediately so the client observes
// the stream incrementally.
type LineWriter func(Line) error

// Service is the SyncEngine.
type Service struct {
	queries *sqlc.Queries
	logger  *logrus.Logger
}

func NewService(queries *sqlc.Queries, logger *logrus.Logger) *Service {
	return &Service{queries: queries, logger: logger}
}

// ErrUnknownAckType is returned by AckBatch when any ack in the batch
// names a type outside typeOrder plus SyncResetV1; one unknown type
// fails the whole batch.
var ErrUnknownAckType = fmt.Errorf("sync: unknown ack type")

func isKnownType(t SyncEntityType) bool {
	if t == SyncResetV1 || t == SyncCompleteV1 {
		return true
	}
	for _, known := range typeOrder {
		if known == t {
			return true
		}
	}
	return false
}

// Stream runs the streaming protocol against sessionID/userID,
// writing one Line per emission via w. requested
// restricts the type loop to the client's requested subset, processed
// in typeOrder's fixed order; a nil/empty slice means "every type".
func (s *Service) Stream(ctx context.Context, sessionID, userID uuid.UUID, requested []SyncEntityType, forceReset bool, w LineWriter) error {
	if forceReset {
		if err := s.queries.SetSessionPendingSyncReset(ctx, sessionID, true); err != nil {
			return err
		}
		if err := s.queries.ClearSyncCheckpoints(ctx, sessionID); err != nil {
			return err
		}
	}

	pending, err := s.queries.GetSessionSyncResetState(ctx, sessionID)
	if err != nil {
		return err
	}
	if pending {
		return w(Line{Type: SyncResetV1, IDs: []string{"reset"}, Data: map[string]any{}})
	}

	checkpoints, err := s.queries.GetSyncCheckpoints(ctx, sessionID)
	if err != nil {
		return err
	}

	if cp, ok := checkpoints[string(SyncCompleteV1)]; ok {
		if ts, err := idgen.TimestampOf(cp.UpdateID); err == nil && time.Since(ts) > staleAfter {
			return w(Line{Type: SyncResetV1, IDs: []string{"reset"}, Data: map[string]any{}})
		}
	}

	nowID := idgen.New()

	wanted := requested
	if len(wanted) == 0 {
		wanted = typeOrder
	}
	wantedSet := make(map[SyncEntityType]bool, len(wanted))
	for _, t := range wanted {
		wantedSet[t] = true
	}

	for _, t := range typeOrder {
		if !wantedSet[t] || stubbedTypes[t] {
			continue
		}
		since := checkpoints[string(t)].UpdateID
		if err := s.emitType(ctx, t, userID, since, w); err != nil {
			return err
		}
	}

	return w(Line{Type: SyncCompleteV1, IDs: []string{nowID}, Data: map[string]any{}})
}

// page drains one scan family to exhaustion, re-querying with an
// advancing cursor whenever a page comes back full (exactly pageSize
// rows, so more may remain beyond that page).
func page[T any](since string, fetch func(cur string) ([]T, error), watermark func(T) string, emit func(T) error) error {
	cur := since
	for {
		rows, err := fetch(cur)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := emit(r); err != nil {
				return err
			}
		}
		if len(rows) < pageSize {
			return nil
		}
		cur = watermark(rows[len(rows)-1])
	}
}

// emitType runs one type's scan family(ies) and writes its lines. For
// types with both delete and upsert families, deletes are emitted
// first, so a rename-then-delete sequence is idempotent for the
// client. Membership/join types (AlbumUsersV1, AlbumToAssetsV1,
// MemoryToAssetsV1, PartnersV1) and AssetExifsV1/AssetMetadataV1 have
// no audit table of their own in this schema: their removal is
// reconciled by their parent row's own delete line.
func (s *Service) emitType(ctx context.Context, t SyncEntityType, userID uuid.UUID, since string, w LineWriter) error {
	line := func(ids []string, data any) error { return w(Line{Type: t, IDs: ids, Data: data}) }

	switch t {
	case AuthUsersV1, UsersV1:
		return page(since,
			func(cur string) ([]sqlc.User, error) { return s.queries.ScanUsersUpsert(ctx, userID, cur) },
			func(u sqlc.User) string { return u.UpdateID.String() },
			func(u sqlc.User) error { return line([]string{u.UpdateID.String()}, userV1Payload(u)) })

	case PartnersV1:
		return page(since,
			func(cur string) ([]sqlc.Partner, error) { return s.queries.ScanPartnersUpsert(ctx, userID, cur) },
			func(p sqlc.Partner) string { return p.UpdateID.String() },
			func(p sqlc.Partner) error { return line([]string{p.UpdateID.String()}, partnerV1Payload(p)) })

	case AssetsV1:
		if err := page(since,
			func(cur string) ([]sqlc.AuditRow, error) { return s.queries.ScanAssetsAuditDelete(ctx, userID, cur) },
			func(a sqlc.AuditRow) string { return a.ID },
			func(a sqlc.AuditRow) error { return line([]string{a.ID}, map[string]any{"entityId": a.EntityID.String()}) },
		); err != nil {
			return err
		}
		return page(since,
			func(cur string) ([]sqlc.Asset, error) { return s.queries.ScanAssetsUpsert(ctx, userID, cur) },
			func(a sqlc.Asset) string { return a.UpdateID.String() },
			func(a sqlc.Asset) error { return line([]string{a.UpdateID.String()}, assetV1Payload(a)) })

	case StacksV1:
		return page(since,
			func(cur string) ([]sqlc.Stack, error) { return s.queries.ScanStacksUpsert(ctx, userID, cur) },
			func(st sqlc.Stack) string { return st.UpdateID.String() },
			func(st sqlc.Stack) error { return line([]string{st.UpdateID.String()}, stackV1Payload(st)) })

	case AlbumsV1:
		if err := page(since,
			func(cur string) ([]sqlc.AuditRow, error) { return s.queries.ScanAlbumsAuditDelete(ctx, userID, cur) },
			func(a sqlc.AuditRow) string { return a.ID },
			func(a sqlc.AuditRow) error { return line([]string{a.ID}, map[string]any{"entityId": a.EntityID.String()}) },
		); err != nil {
			return err
		}
		return page(since,
			func(cur string) ([]sqlc.Album, error) { return s.queries.ScanAlbumsUpsert(ctx, userID, cur) },
			func(a sqlc.Album) string { return a.UpdateID.String() },
			func(a sqlc.Album) error { return line([]string{a.UpdateID.String()}, albumV1Payload(a)) })

	case AlbumUsersV1:
		return page(since,
			func(cur string) ([]sqlc.AlbumUserRow, error) { return s.queries.ScanAlbumUsersUpsert(ctx, userID, cur) },
			func(r sqlc.AlbumUserRow) string { return r.UpdateID },
			func(r sqlc.AlbumUserRow) error {
				return line([]string{r.UpdateID}, map[string]any{
					"albumId": r.AlbumID.String(), "userId": r.UserID.String(), "role": r.Role,
				})
			})

	case AlbumToAssetsV1:
		return page(since,
			func(cur string) ([]sqlc.AlbumAssetRow, error) { return s.queries.ScanAlbumAssetsUpsert(ctx, userID, cur) },
			func(r sqlc.AlbumAssetRow) string { return r.UpdateID },
			func(r sqlc.AlbumAssetRow) error {
				return line([]string{r.UpdateID}, map[string]any{
					"albumId": r.AlbumID.String(), "assetId": r.AssetID.String(),
				})
			})

	case AssetExifsV1:
		return page(since,
			func(cur string) ([]sqlc.AssetExif, error) { return s.queries.ScanAssetExifsUpsert(ctx, userID, cur) },
			func(e sqlc.AssetExif) string { return e.UpdateID.String() },
			func(e sqlc.AssetExif) error { return line([]string{e.UpdateID.String()}, assetExifV1Payload(e)) })

	case MemoriesV1:
		return page(since,
			func(cur string) ([]sqlc.Memory, error) { return s.queries.ScanMemoriesUpsert(ctx, userID, cur) },
			func(m sqlc.Memory) string { return m.UpdateID.String() },
			func(m sqlc.Memory) error { return line([]string{m.UpdateID.String()}, memoryV1Payload(m)) })

	case MemoryToAssetsV1:
		return page(since,
			func(cur string) ([]sqlc.MemoryAssetRow, error) { return s.queries.ScanMemoryAssetsUpsert(ctx, userID, cur) },
			func(r sqlc.MemoryAssetRow) string { return r.UpdateID },
			func(r sqlc.MemoryAssetRow) error {
				return line([]string{r.UpdateID}, map[string]any{
					"memoryId": r.MemoryID.String(), "assetId": r.AssetID.String(),
				})
			})

	case AssetMetadataV1:
		return page(since,
			func(cur string) ([]sqlc.AssetMetadataEntry, error) { return s.queries.ScanAssetMetadataUpsert(ctx, userID, cur) },
			func(m sqlc.AssetMetadataEntry) string { return m.UpdatedAt.Time.Format(time.RFC3339Nano) },
			func(m sqlc.AssetMetadataEntry) error {
				wm := m.UpdatedAt.Time.Format(time.RFC3339Nano)
				return line([]string{wm}, map[string]any{
					"assetId": m.AssetID.String(), "key": m.Key, "value": string(m.Value),
				})
			})
	}
	return nil
}

// Ack is one entry of a client's batched sync acknowledgment.
type Ack struct {
	Type     SyncEntityType `json:"type"`
	UpdateID string         `json:"updateId"`
	ExtraID  string         `json:"extraId,omitempty"`
}

// AckBatch ingests a client's ack batch. A SyncResetV1 ack short-
// circuits the rest of the batch: it clears the pending-reset flag
// and every checkpoint.
func (s *Service) AckBatch(ctx context.Context, sessionID uuid.UUID, acks []Ack) error {
	for _, a := range acks {
		if !isKnownType(a.Type) {
			return ErrUnknownAckType
		}
	}

	for _, a := range acks {
		if a.Type == SyncResetV1 {
			if err := s.queries.SetSessionPendingSyncReset(ctx, sessionID, false); err != nil {
				return err
			}
			return s.queries.ClearSyncCheckpoints(ctx, sessionID)
		}
	}

	// Last write wins within the batch for a repeated type.
	latest := make(map[SyncEntityType]string, len(acks))
	for _, a := range acks {
		latest[a.Type] = a.UpdateID
	}
	for t, id := range latest {
		if err := s.queries.UpsertSyncCheckpoint(ctx, sessionID, string(t), id); err != nil {
			return err
		}
	}
	return nil
}

// ListAcks returns the session's current checkpoint set, for
// `GET /api/sync/ack`.
func (s *Service) ListAcks(ctx context.Context, sessionID uuid.UUID) (map[string]sqlc.SessionSyncCheckpoint, error) {
	return s.queries.GetSyncCheckpoints(ctx, sessionID)
}

// ResetAcks clears every checkpoint and arms a forced reset, for
// `DELETE /api/sync/ack`.
func (s *Service) ResetAcks(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.queries.SetSessionPendingSyncReset(ctx, sessionID, true); err != nil {
		return err
	}
	return s.queries.ClearSyncCheckpoints(ctx, sessionID)
}

// --- legacy endpoints --------------------------------------------------

// FullSyncPage is one page of the legacy full-sync protocol.
type FullSyncPage struct {
	AssetIDs []uuid.UUID
	HasMore  bool
}

// FullSync implements `POST /sync/full-sync`: pages by primary key
// rather than watermark, filtered by ownerId and updatedAt<=until.
func (s *Service) FullSync(ctx context.Context, ownerID, afterID uuid.UUID, until time.Time, limit int) (FullSyncPage, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	rows, err := s.queries.ListAssetsForFullSync(ctx, ownerID, afterID, until, int32(limit+1))
	if err != nil {
		return FullSyncPage{}, err
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	ids := make([]uuid.UUID, len(rows))
	for i, a := range rows {
		ids[i] = a.ID
	}
	return FullSyncPage{AssetIDs: ids, HasMore: hasMore}, nil
}

// DeltaSyncResult is the response of the legacy delta-sync endpoint.
type DeltaSyncResult struct {
	NeedsFullSync bool
	Upserted      []uuid.UUID
	Deleted       []uuid.UUID
}

const (
	deltaSyncStaleAfter = 100 * 24 * time.Hour
	deltaSyncPageLimit  = 10000
)

// DeltaSync implements `POST /sync/delta-sync`: falls back to
// `needsFullSync` when the window is too old or the page would be
// truncated, otherwise returns changed/deleted asset ids.
func (s *Service) DeltaSync(ctx context.Context, callerID uuid.UUID, ownerIDs []uuid.UUID, updatedAfter time.Time) (DeltaSyncResult, error) {
	if time.Since(updatedAfter) > deltaSyncStaleAfter {
		return DeltaSyncResult{NeedsFullSync: true}, nil
	}

	rows, err := s.queries.ListAssetsForDeltaSync(ctx, callerID, ownerIDs, updatedAfter, deltaSyncPageLimit)
	if err != nil {
		return DeltaSyncResult{}, err
	}
	if len(rows) >= deltaSyncPageLimit {
		return DeltaSyncResult{NeedsFullSync: true}, nil
	}

	deleted, err := s.queries.ListDeletedAssetIDsForDeltaSync(ctx, ownerIDs, updatedAfter)
	if err != nil {
		return DeltaSyncResult{}, err
	}

	upserted := make([]uuid.UUID, len(rows))
	for i, a := range rows {
		upserted[i] = a.ID
	}
	return DeltaSyncResult{Upserted: upserted, Deleted: deleted}, nil
}

// --- payload builders --------------------------------------------------

func textOrNil(t pgtype.Text) any {
	if !t.Valid {
		return nil
	}
	return t.String
}

func uuidOrNil(u pgtype.UUID) any {
	if !u.Valid {
		return nil
	}
	return uuid.UUID(u.Bytes).String()
}

func tsOrNil(t pgtype.Timestamptz) any {
	if !t.Valid {
		return nil
	}
	return t.Time.Format(time.RFC3339Nano)
}

func int4OrNil(i pgtype.Int4) any {
	if !i.Valid {
		return nil
	}
	return i.Int32
}

func int8OrNil(i pgtype.Int8) any {
	if !i.Valid {
		return nil
	}
	return i.Int64
}

func float8OrNil(f pgtype.Float8) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

func b64OrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b // encoding/json base64-encodes []byte automatically
}

func userV1Payload(u sqlc.User) map[string]any {
	return map[string]any{
		"id":                u.ID.String(),
		"email":             u.Email,
		"name":              u.Name,
		"isAdmin":           u.IsAdmin,
		"profileImagePath":  textOrNil(u.ProfileImagePath),
		"quotaSizeInBytes":  int8OrNil(u.QuotaSizeInBytes),
		"quotaUsageInBytes": u.QuotaUsageInBytes,
		"deletedAt":         tsOrNil(u.DeletedAt),
		"updatedAt":         tsOrNil(u.UpdatedAt),
	}
}

func partnerV1Payload(p sqlc.Partner) map[string]any {
	return map[string]any{
		"sharedById":   p.SharedByID.String(),
		"sharedWithId": p.SharedWithID.String(),
		"inTimeline":   p.InTimeline,
	}
}

// assetV1Payload has no per-row signal for "does this asset have an
// edited variant": isEdited is always false since AssetFile.IsEdited
// isn't joined into this bulk scan.
func assetV1Payload(a sqlc.Asset) map[string]any {
	return map[string]any{
		"id":               a.ID.String(),
		"ownerId":          a.OwnerID.String(),
		"originalFileName": a.OriginalFileName,
		"thumbhash":        b64OrNil(a.Thumbhash),
		"checksum":         b64OrNil(a.Checksum),
		"fileCreatedAt":    tsOrNil(a.FileCreatedAt),
		"fileModifiedAt":   tsOrNil(a.FileModifiedAt),
		"localDateTime":    tsOrNil(a.LocalDateTime),
		"duration":         textOrNil(a.Duration),
		"type":             a.Type,
		"deletedAt":        tsOrNil(a.DeletedAt),
		"isFavorite":       a.IsFavorite,
		"visibility":       a.Visibility,
		"livePhotoVideoId": uuidOrNil(a.LivePhotoVideoID),
		"stackId":          uuidOrNil(a.StackID),
		"libraryId":        uuidOrNil(a.LibraryID),
		"width":            int4OrNil(a.Width),
		"height":           int4OrNil(a.Height),
		"isEdited":         false,
	}
}

func stackV1Payload(st sqlc.Stack) map[string]any {
	return map[string]any{
		"id":             st.ID.String(),
		"ownerId":        st.OwnerID.String(),
		"primaryAssetId": st.PrimaryAssetID.String(),
	}
}

func albumV1Payload(a sqlc.Album) map[string]any {
	return map[string]any{
		"id":                a.ID.String(),
		"ownerId":           a.OwnerID.String(),
		"name":              a.AlbumName,
		"description":       a.Description,
		"createdAt":         tsOrNil(a.CreatedAt),
		"updatedAt":         tsOrNil(a.UpdatedAt),
		"thumbnailAssetId":  uuidOrNil(a.AlbumThumbnailAssetID),
		"isActivityEnabled": a.IsActivityEnabled,
		"order":             a.Order,
	}
}

// assetExifV1Payload leaves autoStackId and tags unpopulated: this
// schema doesn't track a per-exif auto-generated stack id, and tag
// names aren't joined into the bulk exif scan.
func assetExifV1Payload(e sqlc.AssetExif) map[string]any {
	return map[string]any{
		"assetId":            e.AssetID.String(),
		"make":               textOrNil(e.Make),
		"model":              textOrNil(e.Model),
		"exifImageWidth":     int4OrNil(e.ExifImageWidth),
		"exifImageHeight":    int4OrNil(e.ExifImageHeight),
		"fileSizeInByte":     int8OrNil(e.FileSizeInByte),
		"orientation":        textOrNil(e.Orientation),
		"dateTimeOriginal":   tsOrNil(e.DateTimeOriginal),
		"modifyDate":         tsOrNil(e.ModifyDate),
		"timeZone":           textOrNil(e.TimeZone),
		"latitude":           float8OrNil(e.Latitude),
		"longitude":          float8OrNil(e.Longitude),
		"projectionType":     textOrNil(e.ProjectionType),
		"city":               textOrNil(e.City),
		"state":              textOrNil(e.State),
		"country":            textOrNil(e.Country),
		"description":        textOrNil(e.Description),
		"fps":                float8OrNil(e.Fps),
		"exposureTime":       textOrNil(e.ExposureTime),
		"rating":             int4OrNil(e.Rating),
		"iso":                int4OrNil(e.Iso),
		"fNumber":            float8OrNil(e.FNumber),
		"focalLength":        float8OrNil(e.FocalLength),
		"lensModel":          textOrNil(e.LensModel),
		"livePhotoCID":       textOrNil(e.LivePhotoCID),
		"autoStackId":        nil,
		"colorspace":         textOrNil(e.ColorSpace),
		"bitsPerSample":      int4OrNil(e.BitsPerSample),
		"profileDescription": textOrNil(e.ProfileDescription),
		"tags":               []string{},
		"lockedProperties":   e.LockedProperties,
	}
}

func memoryV1Payload(m sqlc.Memory) map[string]any {
	return map[string]any{
		"id":       m.ID.String(),
		"ownerId":  m.OwnerID.String(),
		"type":     m.Type,
		"data":     string(m.Data),
		"isSaved":  m.IsSaved,
		"memoryAt": tsOrNil(m.MemoryAt),
		"seenAt":   tsOrNil(m.SeenAt),
	}
}
