// Package tags implements Tag CRUD and asset tagging. Tags
// form an optional single-level hierarchy via parentId; logic here is
// pure database echo.
package tags

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("tags")

type Service struct {
	db *sqlc.Queries
}

func NewService(db *sqlc.Queries) *Service {
	return &Service{db: db}
}

// Tag is the API-facing view of a sqlc.Tag row.
type Tag struct {
	ID       string  `json:"id"`
	UserID   string  `json:"userId"`
	Value    string  `json:"value"`
	Color    string  `json:"color,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

func toTag(t sqlc.Tag) *Tag {
	out := &Tag{ID: t.ID.String(), UserID: t.UserID.String(), Value: t.Value}
	if t.Color.Valid {
		out.Color = t.Color.String
	}
	if t.ParentID.Valid {
		id := uuid.UUID(t.ParentID.Bytes).String()
		out.ParentID = &id
	}
	return out
}

// CreateTag creates a new tag for a user, optionally nested under a parent tag.
func (s *Service) CreateTag(ctx context.Context, userID uuid.UUID, value string, parentID *string) (*Tag, error) {
	ctx, span := tracer.Start(ctx, "tags.create_tag")
	defer span.End()

	var parent pgtype.UUID
	if parentID != nil {
		pid, err := uuid.Parse(*parentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent tag ID: %w", err)
		}
		parent = pgtype.UUID{Bytes: pid, Valid: true}
	}

	tag, err := s.db.CreateTag(ctx, idgen.NewUUID(), userID, value, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return toTag(tag), nil
}

// ListTags returns all tags owned by the user.
func (s *Service) ListTags(ctx context.Context, userID uuid.UUID) ([]*Tag, error) {
	ctx, span := tracer.Start(ctx, "tags.list_tags")
	defer span.End()

	rows, err := s.db.ListTagsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]*Tag, len(rows))
	for i, t := range rows {
		out[i] = toTag(t)
	}
	return out, nil
}

func (s *Service) requireOwnedTag(ctx context.Context, userID, tagID uuid.UUID) (sqlc.Tag, error) {
	tag, err := s.db.GetTagByID(ctx, tagID)
	if err != nil {
		return tag, fmt.Errorf("tag not found: %w", err)
	}
	if tag.UserID != userID {
		return tag, fmt.Errorf("access denied: tag does not belong to user")
	}
	return tag, nil
}

// UpdateTag renames a tag and/or changes its display color.
func (s *Service) UpdateTag(ctx context.Context, userID, tagID uuid.UUID, value string, color *string) (*Tag, error) {
	ctx, span := tracer.Start(ctx, "tags.update_tag")
	defer span.End()

	existing, err := s.requireOwnedTag(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}
	if value == "" {
		value = existing.Value
	}

	colorArg := existing.Color
	if color != nil {
		colorArg = pgtype.Text{String: *color, Valid: true}
	}

	updated, err := s.db.UpdateTag(ctx, tagID, value, colorArg)
	if err != nil {
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	return toTag(updated), nil
}

// DeleteTag removes a tag owned by the user.
func (s *Service) DeleteTag(ctx context.Context, userID, tagID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "tags.delete_tag")
	defer span.End()

	if _, err := s.requireOwnedTag(ctx, userID, tagID); err != nil {
		return err
	}
	if err := s.db.DeleteTag(ctx, tagID); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

// TagAssets attaches a tag to a set of assets.
func (s *Service) TagAssets(ctx context.Context, userID, tagID uuid.UUID, assetIDs []uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "tags.tag_assets")
	defer span.End()

	if _, err := s.requireOwnedTag(ctx, userID, tagID); err != nil {
		return err
	}
	for _, assetID := range assetIDs {
		if err := s.db.TagAsset(ctx, tagID, assetID); err != nil {
			return fmt.Errorf("failed to tag asset %s: %w", assetID, err)
		}
	}
	return nil
}

// UntagAssets removes a tag from a set of assets.
func (s *Service) UntagAssets(ctx context.Context, userID, tagID uuid.UUID, assetIDs []uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "tags.untag_assets")
	defer span.End()

	if _, err := s.requireOwnedTag(ctx, userID, tagID); err != nil {
		return err
	}
	for _, assetID := range assetIDs {
		if err := s.db.UntagAsset(ctx, tagID, assetID); err != nil {
			return fmt.Errorf("failed to untag asset %s: %w", assetID, err)
		}
	}
	return nil
}

// GetTagAssets returns asset IDs tagged with the given tag.
func (s *Service) GetTagAssets(ctx context.Context, userID, tagID uuid.UUID) ([]uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "tags.get_tag_assets")
	defer span.End()

	if _, err := s.requireOwnedTag(ctx, userID, tagID); err != nil {
		return nil, err
	}
	assetIDs, err := s.db.ListAssetIDsForTag(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tagged assets: %w", err)
	}
	return assetIDs, nil
}
