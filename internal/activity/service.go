// Package activity implements album likes and comments: thin CRUD
// over the activities table.
package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("activity")

type Service struct {
	db *sqlc.Queries
}

func NewService(db *sqlc.Queries) *Service {
	return &Service{db: db}
}

// Activity is the API-facing view of a sqlc.Activity row.
type Activity struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	AlbumID string `json:"albumId"`
	AssetID string `json:"assetId,omitempty"`
	IsLiked bool   `json:"isLiked"`
	Comment string `json:"comment,omitempty"`
}

func toActivity(a sqlc.Activity) *Activity {
	out := &Activity{
		ID:      a.ID.String(),
		UserID:  a.UserID.String(),
		AlbumID: a.AlbumID.String(),
		IsLiked: a.IsLiked,
	}
	if a.AssetID.Valid {
		out.AssetID = uuid.UUID(a.AssetID.Bytes).String()
	}
	if a.Comment.Valid {
		out.Comment = a.Comment.String
	}
	return out
}

// AddComment creates a comment activity on an album or a specific asset within it.
func (s *Service) AddComment(ctx context.Context, userID, albumID uuid.UUID, assetID *uuid.UUID, comment string) (*Activity, error) {
	ctx, span := tracer.Start(ctx, "activity.add_comment")
	defer span.End()

	var assetArg pgtype.UUID
	if assetID != nil {
		assetArg = pgtype.UUID{Bytes: *assetID, Valid: true}
	}

	activity, err := s.db.CreateActivity(ctx, sqlc.CreateActivityParams{
		ID:      idgen.NewUUID(),
		UserID:  userID,
		AlbumID: albumID,
		AssetID: assetArg,
		IsLiked: false,
		Comment: pgtype.Text{String: comment, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return toActivity(activity), nil
}

// ToggleLike likes an album (or asset) on behalf of a user, or removes
// the existing like if one is already present.
func (s *Service) ToggleLike(ctx context.Context, userID, albumID uuid.UUID, assetID *uuid.UUID) (*Activity, error) {
	ctx, span := tracer.Start(ctx, "activity.toggle_like")
	defer span.End()

	var assetArg pgtype.UUID
	if assetID != nil {
		assetArg = pgtype.UUID{Bytes: *assetID, Valid: true}
	}

	existing, err := s.db.GetLikeActivity(ctx, albumID, userID, assetArg)
	if err == nil {
		if delErr := s.db.DeleteActivity(ctx, existing.ID); delErr != nil {
			return nil, fmt.Errorf("failed to unlike: %w", delErr)
		}
		return nil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up like: %w", err)
	}

	activity, err := s.db.CreateActivity(ctx, sqlc.CreateActivityParams{
		ID:      idgen.NewUUID(),
		UserID:  userID,
		AlbumID: albumID,
		AssetID: assetArg,
		IsLiked: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to like: %w", err)
	}
	return toActivity(activity), nil
}

// ListActivities returns every comment and like on an album.
func (s *Service) ListActivities(ctx context.Context, albumID uuid.UUID) ([]*Activity, error) {
	ctx, span := tracer.Start(ctx, "activity.list_activities")
	defer span.End()

	rows, err := s.db.ListActivitiesForAlbum(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	out := make([]*Activity, len(rows))
	for i, a := range rows {
		out[i] = toActivity(a)
	}
	return out, nil
}

// CountActivities reports the number of comments and likes on an album.
func (s *Service) CountActivities(ctx context.Context, albumID uuid.UUID) (int64, error) {
	ctx, span := tracer.Start(ctx, "activity.count_activities")
	defer span.End()

	n, err := s.db.CountActivitiesForAlbum(ctx, albumID)
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return n, nil
}

// DeleteActivity removes a comment or like, checked against its author.
func (s *Service) DeleteActivity(ctx context.Context, userID, activityID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "activity.delete_activity")
	defer span.End()

	existing, err := s.db.GetActivityByID(ctx, activityID)
	if err != nil {
		return fmt.Errorf("activity not found: %w", err)
	}
	if existing.UserID != userID {
		return fmt.Errorf("access denied: activity does not belong to user")
	}
	if err := s.db.DeleteActivity(ctx, activityID); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}
