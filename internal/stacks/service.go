package stacks

import (
	"fmt"
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("stacks")

// Service groups burst/bracketed assets into stacks (invariant:
// a stack's primary asset can never be removed from the stack).
type Service struct {
	db     *sqlc.Queries
	config *config.Config

	stackCounter      metric.Int64UpDownCounter
	operationCounter  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

func NewService(queries *sqlc.Queries, cfg *config.Config) (*Service, error) {
	meter := telemetry.GetMeter()

	stackCounter, err := meter.Int64UpDownCounter(
		"stacks_total",
		metric.WithDescription("Total number of stacks in the system"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stack counter: %w", err)
	}

	operationCounter, err := meter.Int64Counter(
		"stack_operations_total",
		metric.WithDescription("Total number of stack operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram(
		"stack_operation_duration_seconds",
		metric.WithDescription("Time spent on stack operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	return &Service{
		db:                queries,
		config:            cfg,
		stackCounter:      stackCounter,
		operationCounter:  operationCounter,
		operationDuration: operationDuration,
	}, nil
}

func (s *Service) recordOp(ctx context.Context, op string, start time.Time) {
	s.operationDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", op)))
	s.operationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

func stringsToUUIDs(strs []string) ([]uuid.UUID, error) {
	uuids := make([]uuid.UUID, len(strs))
	for i, str := range strs {
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID at index %d: %w", i, err)
		}
		uuids[i] = id
	}
	return uuids, nil
}

func toResponse(stack sqlc.Stack, assetIDs []string) *StackResponse {
	return &StackResponse{
		ID:             stack.ID.String(),
		PrimaryAssetID: stack.PrimaryAssetID.String(),
		AssetIDs:       assetIDs,
		AssetCount:     int32(len(assetIDs)),
	}
}

// CreateStack creates a new asset stack with the first asset as primary.
func (s *Service) CreateStack(ctx context.Context, req CreateStackRequest) (*StackResponse, error) {
	ctx, span := tracer.Start(ctx, "stacks.create_stack",
		trace.WithAttributes(attribute.Int("asset_count", len(req.AssetIDs))))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "create_stack", start)

	if len(req.AssetIDs) == 0 {
		return nil, fmt.Errorf("at least one asset ID is required")
	}

	assetUUIDs, err := stringsToUUIDs(req.AssetIDs)
	if err != nil {
		return nil, fmt.Errorf("invalid asset IDs: %w", err)
	}
	primaryAssetID := assetUUIDs[0]

	asset, err := s.db.GetAssetByID(ctx, primaryAssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary asset: %w", err)
	}

	stack, err := s.db.CreateStack(ctx, idgen.NewUUID(), asset.OwnerID, primaryAssetID, assetUUIDs, idgen.NewUUID())
	if err != nil {
		return nil, fmt.Errorf("failed to create stack: %w", err)
	}

	s.stackCounter.Add(ctx, 1)
	return toResponse(stack, req.AssetIDs), nil
}

// GetStack retrieves a stack and its current member assets.
func (s *Service) GetStack(ctx context.Context, stackID string) (*StackResponse, error) {
	ctx, span := tracer.Start(ctx, "stacks.get_stack", trace.WithAttributes(attribute.String("stack_id", stackID)))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "get_stack", start)

	stackUUID, err := uuid.Parse(stackID)
	if err != nil {
		return nil, fmt.Errorf("invalid stack ID: %w", err)
	}

	stack, err := s.db.GetStack(ctx, stackUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack: %w", err)
	}

	assetIDs, err := s.db.ListStackAssetIDs(ctx, stackUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack assets: %w", err)
	}

	return toResponse(stack, uuidsToStrings(assetIDs)), nil
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// UpdateStack reassigns the stack's primary asset.
func (s *Service) UpdateStack(ctx context.Context, stackID string, req UpdateStackRequest) (*StackResponse, error) {
	ctx, span := tracer.Start(ctx, "stacks.update_stack", trace.WithAttributes(attribute.String("stack_id", stackID)))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "update_stack", start)

	stackUUID, err := uuid.Parse(stackID)
	if err != nil {
		return nil, fmt.Errorf("invalid stack ID: %w", err)
	}

	if req.PrimaryAssetID != nil {
		primaryUUID, err := uuid.Parse(*req.PrimaryAssetID)
		if err != nil {
			return nil, fmt.Errorf("invalid primary asset ID: %w", err)
		}
		if _, err := s.db.UpdateStackPrimaryAsset(ctx, stackUUID, primaryUUID); err != nil {
			return nil, fmt.Errorf("failed to update stack primary asset: %w", err)
		}
	}

	return s.GetStack(ctx, stackID)
}

// DeleteStack removes a stack, unlinking its member assets.
func (s *Service) DeleteStack(ctx context.Context, stackID string) error {
	ctx, span := tracer.Start(ctx, "stacks.delete_stack", trace.WithAttributes(attribute.String("stack_id", stackID)))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "delete_stack", start)

	stackUUID, err := uuid.Parse(stackID)
	if err != nil {
		return fmt.Errorf("invalid stack ID: %w", err)
	}

	if err := s.db.DeleteStack(ctx, stackUUID); err != nil {
		return fmt.Errorf("failed to delete stack: %w", err)
	}
	s.stackCounter.Add(ctx, -1)
	return nil
}

// DeleteStacks removes multiple stacks in one call.
func (s *Service) DeleteStacks(ctx context.Context, stackIDs []string) error {
	ctx, span := tracer.Start(ctx, "stacks.delete_stacks", trace.WithAttributes(attribute.Int("stack_count", len(stackIDs))))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "delete_stacks", start)

	if len(stackIDs) == 0 {
		return nil
	}

	stackUUIDs, err := stringsToUUIDs(stackIDs)
	if err != nil {
		return fmt.Errorf("invalid stack IDs: %w", err)
	}

	if err := s.db.DeleteStacks(ctx, stackUUIDs); err != nil {
		return fmt.Errorf("failed to delete stacks: %w", err)
	}
	s.stackCounter.Add(ctx, int64(-len(stackIDs)))
	return nil
}

// SearchStacks looks up a user's stacks, optionally narrowed to a primary asset.
func (s *Service) SearchStacks(ctx context.Context, req SearchStacksRequest) (*SearchStacksResponse, error) {
	ctx, span := tracer.Start(ctx, "stacks.search_stacks")
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "search_stacks", start)

	if req.UserID == nil {
		return nil, fmt.Errorf("user ID is required for search")
	}
	userUUID, err := uuid.Parse(*req.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	var primaryUUID uuid.UUID
	filterByPrimary := req.PrimaryAssetID != nil
	if filterByPrimary {
		primaryUUID, err = uuid.Parse(*req.PrimaryAssetID)
		if err != nil {
			return nil, fmt.Errorf("invalid primary asset ID: %w", err)
		}
	}

	stacks, err := s.db.ListStacksForOwner(ctx, userUUID, primaryUUID, filterByPrimary, 100, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to search stacks: %w", err)
	}

	return &SearchStacksResponse{Stacks: s.toResponses(ctx, stacks)}, nil
}

// GetUserStacks retrieves a paginated list of a user's stacks.
func (s *Service) GetUserStacks(ctx context.Context, userID string, limit, offset int32) (*SearchStacksResponse, error) {
	ctx, span := tracer.Start(ctx, "stacks.get_user_stacks", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "get_user_stacks", start)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	stacks, err := s.db.ListStacksForOwner(ctx, userUUID, uuid.Nil, false, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stacks: %w", err)
	}

	return &SearchStacksResponse{Stacks: s.toResponses(ctx, stacks)}, nil
}

func (s *Service) toResponses(ctx context.Context, stacks []sqlc.StackWithCount) []*StackResponse {
	results := make([]*StackResponse, len(stacks))
	for i, stack := range stacks {
		assetIDs, err := s.db.ListStackAssetIDs(ctx, stack.ID)
		if err != nil {
			assetIDs = nil
		}
		results[i] = &StackResponse{
			ID:             stack.ID.String(),
			PrimaryAssetID: stack.PrimaryAssetID.String(),
			AssetIDs:       uuidsToStrings(assetIDs),
			AssetCount:     stack.AssetCount,
		}
	}
	return results
}

// AddAssetsToStack adds assets to an existing stack.
func (s *Service) AddAssetsToStack(ctx context.Context, stackID string, assetIDs []string) error {
	ctx, span := tracer.Start(ctx, "stacks.add_assets_to_stack",
		trace.WithAttributes(attribute.String("stack_id", stackID), attribute.Int("asset_count", len(assetIDs))))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "add_assets_to_stack", start)

	stackUUID, err := uuid.Parse(stackID)
	if err != nil {
		return fmt.Errorf("invalid stack ID: %w", err)
	}
	assetUUIDs, err := stringsToUUIDs(assetIDs)
	if err != nil {
		return fmt.Errorf("invalid asset IDs: %w", err)
	}

	for _, assetUUID := range assetUUIDs {
		if err := s.db.SetAssetStackID(ctx, assetUUID, pgtype.UUID{Bytes: stackUUID, Valid: true}, idgen.NewUUID()); err != nil {
			return fmt.Errorf("failed to add assets to stack: %w", err)
		}
	}
	return nil
}

// RemoveAssetsFromStack detaches assets from their stack, refusing any
// removal that would strip a stack of its primary asset (invariant 6).
func (s *Service) RemoveAssetsFromStack(ctx context.Context, assetIDs []string) error {
	ctx, span := tracer.Start(ctx, "stacks.remove_assets_from_stack", trace.WithAttributes(attribute.Int("asset_count", len(assetIDs))))
	defer span.End()
	start := time.Now()
	defer s.recordOp(ctx, "remove_assets_from_stack", start)

	assetUUIDs, err := stringsToUUIDs(assetIDs)
	if err != nil {
		return fmt.Errorf("invalid asset IDs: %w", err)
	}

	for _, assetUUID := range assetUUIDs {
		asset, err := s.db.GetAssetByID(ctx, assetUUID)
		if err != nil {
			return fmt.Errorf("failed to look up asset: %w", err)
		}
		if !asset.StackID.Valid {
			continue
		}
		if err := s.db.RemoveAssetFromStack(ctx, asset.StackID.Bytes, assetUUID); err != nil {
			if err == sqlc.ErrStackPrimacy {
				return fmt.Errorf("cannot remove primary asset from stack: %w", err)
			}
			return fmt.Errorf("failed to remove assets from stack: %w", err)
		}
	}
	return nil
}

// Request/Response types

type CreateStackRequest struct {
	AssetIDs []string
}

type UpdateStackRequest struct {
	PrimaryAssetID *string
}

type SearchStacksRequest struct {
	UserID         *string
	PrimaryAssetID *string
}

type SearchStacksResponse struct {
	Stacks []*StackResponse
}

type StackResponse struct {
	ID             string
	PrimaryAssetID string
	AssetIDs       []string
	AssetCount     int32
}
