// Package sharedlinks implements CRUD over the SharedLink entity:
// unauthenticated capability URLs granting scoped access to one album
// or an explicit asset list, never both.
package sharedlinks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

// shareKeyBytes is the raw key length: 50 random bytes.
const shareKeyBytes = 50

// Service handles shared link operations.
type Service struct {
	db *sqlc.Queries
}

// NewService creates a new shared links service.
func NewService(db *sqlc.Queries) *Service {
	return &Service{db: db}
}

// CreateSharedLinkRequest represents a request to create a shared link.
// Exactly one of AlbumID or AssetIDs must be populated (invariant 7);
// CreateSharedLink rejects a request that sets both or neither.
type CreateSharedLinkRequest struct {
	AlbumID       *uuid.UUID
	AssetIDs      []uuid.UUID
	Slug          string
	Password      string
	ExpiresAt     *time.Time
	ShowExif      bool
	AllowUpload   bool
	AllowDownload bool
}

// UpdateSharedLinkRequest represents a request to update a shared link.
// Nil fields leave the existing value unchanged.
type UpdateSharedLinkRequest struct {
	Password      *string
	ExpiresAt     *time.Time
	ShowExif      *bool
	AllowUpload   *bool
	AllowDownload *bool
	AssetIDs      []uuid.UUID
}

// CreateSharedLink creates a new shared link for userID.
func (s *Service) CreateSharedLink(ctx context.Context, userID uuid.UUID, req *CreateSharedLinkRequest) (*sqlc.SharedLink, error) {
	if (req.AlbumID == nil) == (len(req.AssetIDs) == 0) {
		return nil, fmt.Errorf("exactly one of albumId or assetIds must be set")
	}

	rawKey, err := crypto.RandomBytes(shareKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate share key: %w", err)
	}

	var hashedPassword pgtype.Text
	if req.Password != "" {
		hash, err := crypto.BcryptHash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hashedPassword = pgtype.Text{String: hash, Valid: true}
	}

	var albumID pgtype.UUID
	if req.AlbumID != nil {
		albumID = pgtype.UUID{Bytes: *req.AlbumID, Valid: true}
	}

	var expiresAt pgtype.Timestamptz
	if req.ExpiresAt != nil {
		expiresAt = pgtype.Timestamptz{Time: *req.ExpiresAt, Valid: true}
	}

	link, err := s.db.CreateSharedLink(ctx, sqlc.CreateSharedLinkParams{
		ID:            idgen.NewUUID(),
		UserID:        userID,
		Key:           rawKey,
		Slug:          pgtype.Text{String: req.Slug, Valid: req.Slug != ""},
		ExpiresAt:     expiresAt,
		Password:      hashedPassword,
		ShowExif:      req.ShowExif,
		AllowUpload:   req.AllowUpload,
		AllowDownload: req.AllowDownload,
		AlbumID:       albumID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shared link: %w", err)
	}

	for _, assetID := range req.AssetIDs {
		if err := s.db.AddAssetToSharedLink(ctx, link.ID, assetID); err != nil {
			return nil, fmt.Errorf("failed to attach asset to shared link: %w", err)
		}
	}

	return &link, nil
}

// GetSharedLink retrieves a shared link by ID, checked against
// ownership by the caller (access.Guard gates this at the handler
// layer; this is a plain lookup).
func (s *Service) GetSharedLink(ctx context.Context, linkID uuid.UUID) (*sqlc.SharedLink, error) {
	link, err := s.db.GetSharedLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared link: %w", err)
	}
	return &link, nil
}

// GetSharedLinkByKey resolves a link by its raw key and rejects it
// if expired. Credential resolution (decode of hex/base64
// presentation forms) lives in internal/auth; this is
// the plain datastore lookup it calls into.
func (s *Service) GetSharedLinkByKey(ctx context.Context, key []byte) (*sqlc.SharedLink, error) {
	link, err := s.db.GetSharedLinkByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared link by key: %w", err)
	}
	if link.ExpiresAt.Valid && link.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("shared link has expired")
	}
	return &link, nil
}

// ValidatePassword checks password against the stored bcrypt hash. A
// link with no password set requires none.
func (s *Service) ValidatePassword(ctx context.Context, linkID uuid.UUID, password string) error {
	link, err := s.db.GetSharedLink(ctx, linkID)
	if err != nil {
		return fmt.Errorf("failed to get shared link: %w", err)
	}
	if !link.Password.Valid {
		return nil
	}
	if !crypto.BcryptCompare(link.Password.String, password) {
		return fmt.Errorf("invalid password")
	}
	return nil
}

// ListSharedLinks lists all shared links owned by userID.
func (s *Service) ListSharedLinks(ctx context.Context, userID uuid.UUID) ([]sqlc.SharedLink, error) {
	links, err := s.db.ListSharedLinksForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared links: %w", err)
	}
	return links, nil
}

// UpdateSharedLink applies a partial update, replacing the asset list
// wholesale when AssetIDs is non-nil.
func (s *Service) UpdateSharedLink(ctx context.Context, linkID uuid.UUID, req *UpdateSharedLinkRequest) (*sqlc.SharedLink, error) {
	existing, err := s.db.GetSharedLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared link: %w", err)
	}

	params := sqlc.UpdateSharedLinkParams{
		ID:            linkID,
		ExpiresAt:     existing.ExpiresAt,
		Password:      existing.Password,
		ShowExif:      existing.ShowExif,
		AllowUpload:   existing.AllowUpload,
		AllowDownload: existing.AllowDownload,
	}

	if req.ExpiresAt != nil {
		params.ExpiresAt = pgtype.Timestamptz{Time: *req.ExpiresAt, Valid: true}
	}
	if req.ShowExif != nil {
		params.ShowExif = *req.ShowExif
	}
	if req.AllowUpload != nil {
		params.AllowUpload = *req.AllowUpload
	}
	if req.AllowDownload != nil {
		params.AllowDownload = *req.AllowDownload
	}
	if req.Password != nil {
		if *req.Password == "" {
			params.Password = pgtype.Text{}
		} else {
			hash, err := crypto.BcryptHash(*req.Password)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
			params.Password = pgtype.Text{String: hash, Valid: true}
		}
	}

	link, err := s.db.UpdateSharedLink(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update shared link: %w", err)
	}

	if req.AssetIDs != nil {
		existingIDs, err := s.db.GetSharedLinkAssetIDs(ctx, linkID)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing shared link assets: %w", err)
		}
		keep := make(map[uuid.UUID]bool, len(req.AssetIDs))
		for _, assetID := range req.AssetIDs {
			keep[assetID] = true
		}
		for _, assetID := range existingIDs {
			if keep[assetID] {
				continue
			}
			if err := s.db.RemoveAssetFromSharedLink(ctx, linkID, assetID); err != nil {
				return nil, fmt.Errorf("failed to remove existing asset: %w", err)
			}
		}
		for _, assetID := range req.AssetIDs {
			if err := s.db.AddAssetToSharedLink(ctx, linkID, assetID); err != nil {
				return nil, fmt.Errorf("failed to add asset to shared link: %w", err)
			}
		}
	}

	return &link, nil
}

// DeleteSharedLink deletes a shared link.
func (s *Service) DeleteSharedLink(ctx context.Context, linkID uuid.UUID) error {
	if err := s.db.DeleteSharedLink(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete shared link: %w", err)
	}
	return nil
}

// GetSharedLinkAssetIDs retrieves the explicit asset list for a
// non-album shared link.
func (s *Service) GetSharedLinkAssetIDs(ctx context.Context, linkID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.db.GetSharedLinkAssetIDs(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared link assets: %w", err)
	}
	return ids, nil
}

// AddAssetsToSharedLink adds assets to a shared link's explicit list.
func (s *Service) AddAssetsToSharedLink(ctx context.Context, linkID uuid.UUID, assetIDs []uuid.UUID) error {
	for _, assetID := range assetIDs {
		if err := s.db.AddAssetToSharedLink(ctx, linkID, assetID); err != nil {
			return fmt.Errorf("failed to add asset to shared link: %w", err)
		}
	}
	return nil
}

// RemoveAssetsFromSharedLink removes assets from a shared link's
// explicit list.
func (s *Service) RemoveAssetsFromSharedLink(ctx context.Context, linkID uuid.UUID, assetIDs []uuid.UUID) error {
	for _, assetID := range assetIDs {
		if err := s.db.RemoveAssetFromSharedLink(ctx, linkID, assetID); err != nil {
			return fmt.Errorf("failed to remove asset from shared link: %w", err)
		}
	}
	return nil
}
