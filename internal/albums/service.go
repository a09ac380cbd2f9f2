package albums

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("albums")

// Service handles album CRUD and membership. Album sharing is
// mechanical database echo; the one piece of real logic is the
// thumbnail-validity invariant: a thumbnail must reference an asset
// currently in the album.
type Service struct {
	db *sqlc.Queries
}

// NewService creates a new album service
func NewService(db *sqlc.Queries) *Service {
	return &Service{db: db}
}

// CreateAlbum creates a new album
func (s *Service) CreateAlbum(ctx context.Context, req *CreateAlbumRequest) (*AlbumInfo, error) {
	ctx, span := tracer.Start(ctx, "albums.create_album",
		trace.WithAttributes(
			attribute.String("album_name", req.Name),
			attribute.String("owner_id", req.OwnerID.String()),
		),
	)
	defer span.End()

	album, err := s.db.CreateAlbum(ctx, sqlc.CreateAlbumParams{
		ID:          idgen.NewUUID(),
		OwnerID:     req.OwnerID,
		AlbumName:   req.Name,
		Description: req.Description,
		UpdateID:    idgen.NewUUID(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	albumInfo := s.convertToAlbumInfo(album, nil, nil)
	span.SetAttributes(attribute.String("album_id", album.ID.String()))
	return albumInfo, nil
}

// GetAlbum retrieves an album by ID
func (s *Service) GetAlbum(ctx context.Context, albumID uuid.UUID, userID uuid.UUID) (*AlbumInfo, error) {
	ctx, span := tracer.Start(ctx, "albums.get_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("user_id", userID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get album: %w", err)
	}

	if !s.userHasAlbumAccess(ctx, userID, album) {
		return nil, fmt.Errorf("access denied")
	}

	assetIDs, err := s.db.ListAlbumAssetIDs(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get album assets: %w", err)
	}

	sharedUsers, err := s.db.GetAlbumSharedUsers(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get shared users: %w", err)
	}

	return s.convertToAlbumInfo(album, assetIDs, sharedUsers), nil
}

// GetOwnedAlbums retrieves only the albums the user owns, excluding
// those merely shared with them.
func (s *Service) GetOwnedAlbums(ctx context.Context, userID uuid.UUID) ([]*AlbumInfo, error) {
	ctx, span := tracer.Start(ctx, "albums.get_owned_albums",
		trace.WithAttributes(attribute.String("user_id", userID.String())),
	)
	defer span.End()

	albums, err := s.db.ListAlbumsOwnedBy(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get owned albums: %w", err)
	}

	albumInfos := make([]*AlbumInfo, len(albums))
	for i, album := range albums {
		albumInfos[i] = s.convertToAlbumInfo(album, nil, nil)
	}
	return albumInfos, nil
}

// GetUserAlbums retrieves all albums owned by or shared with a user
func (s *Service) GetUserAlbums(ctx context.Context, userID uuid.UUID) ([]*AlbumInfo, error) {
	ctx, span := tracer.Start(ctx, "albums.get_user_albums",
		trace.WithAttributes(attribute.String("user_id", userID.String())),
	)
	defer span.End()

	albums, err := s.db.ListAlbumsVisibleTo(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user albums: %w", err)
	}

	albumInfos := make([]*AlbumInfo, len(albums))
	for i, album := range albums {
		albumInfos[i] = s.convertToAlbumInfo(album, nil, nil)
	}

	span.SetAttributes(attribute.Int("album_count", len(albumInfos)))
	return albumInfos, nil
}

// UpdateAlbum updates an album's name, description, and/or thumbnail.
// Setting a thumbnail asset not currently in the album is rejected
// (album thumbnail validity).
func (s *Service) UpdateAlbum(ctx context.Context, albumID uuid.UUID, userID uuid.UUID, req *UpdateAlbumRequest) (*AlbumInfo, error) {
	ctx, span := tracer.Start(ctx, "albums.update_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("user_id", userID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get album: %w", err)
	}
	if album.OwnerID != userID {
		return nil, fmt.Errorf("access denied: user does not own this album")
	}

	var thumbnailUUID pgtype.UUID
	if req.ThumbnailAssetID != nil {
		assetIDs, err := s.db.ListAlbumAssetIDs(ctx, albumID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to validate thumbnail: %w", err)
		}
		found := false
		for _, id := range assetIDs {
			if id == *req.ThumbnailAssetID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("thumbnail asset is not a member of this album")
		}
		thumbnailUUID = pgtype.UUID{Bytes: *req.ThumbnailAssetID, Valid: true}
	}

	updatedAlbum, err := s.db.UpdateAlbum(ctx, albumID, req.Name, req.Description, thumbnailUUID, idgen.NewUUID())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update album: %w", err)
	}

	return s.convertToAlbumInfo(updatedAlbum, nil, nil), nil
}

// DeleteAlbum deletes an album
func (s *Service) DeleteAlbum(ctx context.Context, albumID uuid.UUID, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "albums.delete_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("user_id", userID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get album: %w", err)
	}
	if album.OwnerID != userID {
		return fmt.Errorf("access denied: user does not own this album")
	}

	if err := s.db.DeleteAlbum(ctx, albumID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete album: %w", err)
	}
	return nil
}

// AddAssetToAlbum adds an asset to an album
func (s *Service) AddAssetToAlbum(ctx context.Context, albumID uuid.UUID, assetID uuid.UUID, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "albums.add_asset_to_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("asset_id", assetID.String()),
			attribute.String("user_id", userID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get album: %w", err)
	}
	if !s.userHasAlbumAccess(ctx, userID, album) {
		return fmt.Errorf("access denied")
	}

	if err := s.db.AddAssetToAlbum(ctx, albumID, assetID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to add asset to album: %w", err)
	}
	return nil
}

// RemoveAssetFromAlbum removes an asset from an album. Removing the
// album's primary thumbnail asset clears the thumbnail rather than
// leaving a dangling reference.
func (s *Service) RemoveAssetFromAlbum(ctx context.Context, albumID uuid.UUID, assetID uuid.UUID, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "albums.remove_asset_from_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("asset_id", assetID.String()),
			attribute.String("user_id", userID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get album: %w", err)
	}
	if !s.userHasAlbumAccess(ctx, userID, album) {
		return fmt.Errorf("access denied")
	}

	if err := s.db.RemoveAssetFromAlbum(ctx, albumID, assetID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to remove asset from album: %w", err)
	}

	if album.AlbumThumbnailAssetID.Valid && uuid.UUID(album.AlbumThumbnailAssetID.Bytes) == assetID {
		if err := s.db.SetAlbumThumbnail(ctx, albumID, pgtype.UUID{}, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to clear stale thumbnail: %w", err)
		}
	}
	return nil
}

// ShareAlbum shares an album with a user
func (s *Service) ShareAlbum(ctx context.Context, albumID uuid.UUID, targetUserID uuid.UUID, role string, ownerID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "albums.share_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("target_user_id", targetUserID.String()),
			attribute.String("role", role),
			attribute.String("owner_id", ownerID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get album: %w", err)
	}
	if album.OwnerID != ownerID {
		return fmt.Errorf("access denied: user does not own this album")
	}

	if err := s.db.AddAlbumUser(ctx, albumID, targetUserID, sqlc.AlbumUserRole(role)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to share album: %w", err)
	}
	return nil
}

// UnshareAlbum removes a user from an album
func (s *Service) UnshareAlbum(ctx context.Context, albumID uuid.UUID, targetUserID uuid.UUID, ownerID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "albums.unshare_album",
		trace.WithAttributes(
			attribute.String("album_id", albumID.String()),
			attribute.String("target_user_id", targetUserID.String()),
			attribute.String("owner_id", ownerID.String()),
		),
	)
	defer span.End()

	album, err := s.db.GetAlbumByID(ctx, albumID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get album: %w", err)
	}
	if album.OwnerID != ownerID {
		return fmt.Errorf("access denied: user does not own this album")
	}

	if err := s.db.RemoveAlbumUser(ctx, albumID, targetUserID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unshare album: %w", err)
	}
	return nil
}

// userHasAlbumAccess checks if a user has access to an album (owner or album-user member)
func (s *Service) userHasAlbumAccess(ctx context.Context, userID uuid.UUID, album sqlc.Album) bool {
	if album.OwnerID == userID {
		return true
	}
	_, err := s.db.GetAlbumUserRole(ctx, album.ID, userID)
	return err == nil
}

// convertToAlbumInfo converts a database album to AlbumInfo
func (s *Service) convertToAlbumInfo(album sqlc.Album, assetIDs []uuid.UUID, sharedUsers []sqlc.AlbumSharedUser) *AlbumInfo {
	info := &AlbumInfo{
		ID:                album.ID,
		OwnerID:           album.OwnerID,
		Name:              album.AlbumName,
		Description:       album.Description,
		CreatedAt:         timestamptzToTime(album.CreatedAt),
		UpdatedAt:         timestamptzToTime(album.UpdatedAt),
		AssetCount:        len(assetIDs),
		IsActivityEnabled: album.IsActivityEnabled,
	}

	if album.AlbumThumbnailAssetID.Valid {
		thumbnailID := uuid.UUID(album.AlbumThumbnailAssetID.Bytes)
		info.ThumbnailAssetID = &thumbnailID
	}

	if assetIDs != nil {
		info.Assets = assetIDs
	}

	if sharedUsers != nil {
		info.SharedUsers = make([]SharedUser, len(sharedUsers))
		for i, su := range sharedUsers {
			info.SharedUsers[i] = SharedUser{UserID: su.UserID, Role: string(su.Role)}
		}
	}

	return info
}

func timestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time
}
