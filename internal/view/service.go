// Package view implements the folder browser: the distinct directory
// parts of users' original paths, and the assets sitting directly in
// one of those directories.
package view

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("view")

// Service answers folder-view queries.
type Service struct {
	db *sqlc.Queries

	operationCounter  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewService creates a new view service
func NewService(queries *sqlc.Queries) (*Service, error) {
	meter := telemetry.GetMeter()

	operationCounter, err := meter.Int64Counter(
		"view_operations_total",
		metric.WithDescription("Total number of view operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram(
		"view_operation_duration_seconds",
		metric.WithDescription("Time spent on view operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	return &Service{
		db:                queries,
		operationCounter:  operationCounter,
		operationDuration: operationDuration,
	}, nil
}

func (s *Service) record(ctx context.Context, op string, start time.Time) {
	s.operationDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", op)))
	s.operationCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", op)))
}

// GetUniqueOriginalPaths returns the distinct directory parts of the
// user's original paths, up to and including the final slash.
func (s *Service) GetUniqueOriginalPaths(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, span := tracer.Start(ctx, "view.get_unique_original_paths",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_unique_original_paths", start)

	paths, err := s.db.GetUniqueOriginalPathPrefixes(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get unique paths: %w", err)
	}
	return paths, nil
}

// FolderAsset is the folder browser's per-asset projection.
type FolderAsset struct {
	ID               uuid.UUID            `json:"id"`
	DeviceAssetID    string               `json:"deviceAssetId"`
	DeviceID         string               `json:"deviceId"`
	Type             sqlc.AssetType       `json:"type"`
	OriginalPath     string               `json:"originalPath"`
	OriginalFileName string               `json:"originalFileName"`
	Visibility       sqlc.AssetVisibility `json:"visibility"`
	IsFavorite       bool                 `json:"isFavorite"`
	IsTrashed        bool                 `json:"isTrashed"`
}

// GetAssetsByOriginalPath returns the user's assets sitting directly
// in the given directory: path-prefixed, with no further slash in the
// remaining suffix. Ordered by fileCreatedAt descending.
func (s *Service) GetAssetsByOriginalPath(ctx context.Context, userID uuid.UUID, path string) ([]FolderAsset, error) {
	ctx, span := tracer.Start(ctx, "view.get_assets_by_original_path",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.String("path", path),
		))
	defer span.End()
	start := time.Now()
	defer s.record(ctx, "get_assets_by_original_path", start)

	assets, err := s.db.GetAssetsByOriginalPathPrefix(ctx, userID, path)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get assets by path: %w", err)
	}

	out := make([]FolderAsset, len(assets))
	for i, a := range assets {
		out[i] = FolderAsset{
			ID:               a.ID,
			DeviceAssetID:    a.DeviceAssetID,
			DeviceID:         a.DeviceID,
			Type:             a.Type,
			OriginalPath:     a.OriginalPath,
			OriginalFileName: a.OriginalFileName,
			Visibility:       a.Visibility,
			IsFavorite:       a.IsFavorite,
			IsTrashed:        a.Status == sqlc.AssetStatusTrashed,
		}
	}
	return out, nil
}
