// Package timeline implements month-bucket aggregation, columnar
// bucket expansion, and the random sampler. Folder browsing lives in
// the sibling internal/view package.
package timeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("timeline")

// Service answers timeline queries. Bucket queries cover the requesting
// user's own assets; GetRandom also includes partners who share with them.
type Service struct {
	db *sqlc.Queries

	operationCounter  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

func NewService(queries *sqlc.Queries) (*Service, error) {
	meter := telemetry.GetMeter()

	operationCounter, err := meter.Int64Counter(
		"timeline_operations_total",
		metric.WithDescription("Total number of timeline operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}
	operationDuration, err := meter.Float64Histogram(
		"timeline_operation_duration_seconds",
		metric.WithDescription("Time spent on timeline operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	return &Service{db: queries, operationCounter: operationCounter, operationDuration: operationDuration}, nil
}

func (s *Service) record(ctx context.Context, op string, start time.Time) {
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("operation", op)))
	s.operationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// TimeBucketsRequest narrows the bucket aggregation.
type TimeBucketsRequest struct {
	UserID       uuid.UUID
	Visibilities []sqlc.AssetVisibility
	IsFavorite   *bool
	AlbumID      *uuid.UUID
	TagID        *uuid.UUID
	Ascending    bool
}

// TimeBucket is one month's worth of asset count.
type TimeBucket struct {
	TimeBucket string `json:"timeBucket"`
	Count      int64  `json:"count"`
}

// GetTimeBuckets returns the month buckets for the caller's own
// assets. Partner-shared assets are not included, here or in a bucket
// expansion.
func (s *Service) GetTimeBuckets(ctx context.Context, req TimeBucketsRequest) ([]TimeBucket, error) {
	ctx, span := tracer.Start(ctx, "timeline.get_time_buckets", trace.WithAttributes(attribute.String("user_id", req.UserID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_time_buckets", start)

	rows, err := s.db.GetTimeBuckets(ctx, sqlc.TimeBucketFilter{
		OwnerIDs:     []uuid.UUID{req.UserID},
		Visibilities: req.Visibilities,
		IsFavorite:   req.IsFavorite,
		AlbumID:      req.AlbumID,
		TagID:        req.TagID,
	}, req.Ascending)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get time buckets: %w", err)
	}

	buckets := make([]TimeBucket, 0, len(rows))
	for _, r := range rows {
		buckets = append(buckets, TimeBucket{TimeBucket: r.Bucket, Count: r.Count})
	}
	return buckets, nil
}

// TimeBucketResponse is a columnar struct-of-arrays shape: parallel
// arrays across the bucket's assets, sized for incremental grid
// rendering on mobile.
type TimeBucketResponse struct {
	ID               []string   `json:"id"`
	OwnerID          []string   `json:"ownerId"`
	Ratio            []float64  `json:"ratio"`
	IsFavorite       []bool     `json:"isFavorite"`
	Visibility       []string   `json:"visibility"`
	IsTrashed        []bool     `json:"isTrashed"`
	IsImage          []bool     `json:"isImage"`
	Thumbhash        []*string  `json:"thumbhash"`
	FileCreatedAt    []string   `json:"fileCreatedAt"`
	LocalOffsetHours []float64  `json:"localOffsetHours"`
	Duration         []*string  `json:"duration"`
	ProjectionType   []*string  `json:"projectionType"`
	LivePhotoVideoID []*string  `json:"livePhotoVideoId"`
	City             []*string  `json:"city"`
	Country          []*string  `json:"country"`
	Latitude         []*float64 `json:"latitude"`
	Longitude        []*float64 `json:"longitude"`
}

// GetTimeBucket expands one month bucket into the columnar response.
func (s *Service) GetTimeBucket(ctx context.Context, req TimeBucketsRequest, bucket string) (*TimeBucketResponse, error) {
	ctx, span := tracer.Start(ctx, "timeline.get_time_bucket",
		trace.WithAttributes(attribute.String("user_id", req.UserID.String()), attribute.String("bucket", bucket)))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_time_bucket", start)

	rows, err := s.db.GetTimeBucketAssets(ctx, sqlc.TimeBucketFilter{
		OwnerIDs:     []uuid.UUID{req.UserID},
		Visibilities: req.Visibilities,
		IsFavorite:   req.IsFavorite,
		AlbumID:      req.AlbumID,
		TagID:        req.TagID,
	}, bucket)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get time bucket assets: %w", err)
	}

	resp := &TimeBucketResponse{}
	for _, r := range rows {
		resp.ID = append(resp.ID, r.ID.String())
		resp.OwnerID = append(resp.OwnerID, r.OwnerID.String())
		resp.Ratio = append(resp.Ratio, ratioOf(r.Width, r.Height))
		resp.IsFavorite = append(resp.IsFavorite, r.IsFavorite)
		resp.Visibility = append(resp.Visibility, string(r.Visibility))
		resp.IsTrashed = append(resp.IsTrashed, r.IsTrashed)
		resp.IsImage = append(resp.IsImage, r.Type == sqlc.AssetTypeImage)
		resp.Thumbhash = append(resp.Thumbhash, thumbhashOf(r.Thumbhash))
		resp.FileCreatedAt = append(resp.FileCreatedAt, r.FileCreatedAt.Time.Format(time.RFC3339Nano))
		resp.LocalOffsetHours = append(resp.LocalOffsetHours, localOffsetHours(r))
		resp.Duration = append(resp.Duration, r.Duration)
		resp.ProjectionType = append(resp.ProjectionType, r.ProjectionType)
		resp.LivePhotoVideoID = append(resp.LivePhotoVideoID, uuidPtrString(r.LivePhotoVideoID))
		resp.City = append(resp.City, r.City)
		resp.Country = append(resp.Country, r.Country)
		resp.Latitude = append(resp.Latitude, r.Latitude)
		resp.Longitude = append(resp.Longitude, r.Longitude)
	}
	return resp, nil
}

// ratioOf is width/height clamped to 1 when dimensions are missing.
func ratioOf(width, height int32) float64 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float64(width) / float64(height)
}

func thumbhashOf(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := base64.StdEncoding.EncodeToString(b)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// localOffsetHours is (localDateTime - fileCreatedAt) in hours, or 0
// when no timeZone was recorded.
func localOffsetHours(r sqlc.TimeBucketAssetRow) float64 {
	if r.TimeZone == nil {
		return 0
	}
	return r.LocalDateTime.Time.Sub(r.FileCreatedAt.Time).Hours()
}

// GetRandom implements getRandom: up to count non-hidden, non-deleted
// assets across the caller's visible-user set (self and partners).
func (s *Service) GetRandom(ctx context.Context, userID uuid.UUID, count int) ([]uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "timeline.get_random", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_random", start)

	visibleOwnerIDs, err := s.db.ListPartnerVisibleUserIDs(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to resolve visible owners: %w", err)
	}

	assets, err := s.db.RandomAssets(ctx, visibleOwnerIDs, int32(count))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get random assets: %w", err)
	}

	ids := make([]uuid.UUID, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	return ids, nil
}
