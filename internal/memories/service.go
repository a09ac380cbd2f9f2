package memories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

// Service implements mechanical memory CRUD (memory generation itself
// is a background job, stubbed here).
type Service struct {
	queries *sqlc.Queries
}

func NewService(queries *sqlc.Queries) *Service {
	return &Service{queries: queries}
}

// Memory is the API-facing view of a sqlc.Memory row, with its JSON
// `data` blob flattened to the fields clients actually read.
type Memory struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	IsSaved     bool      `json:"isSaved"`
	AssetIDs    []string  `json:"assetIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Type        string    `json:"type"`
}

func memoryData(raw []byte) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]interface{}{}
	}
	return data
}

func (s *Service) toMemory(m sqlc.Memory, assetIDs []string) *Memory {
	data := memoryData(m.Data)
	title, _ := data["title"].(string)
	if title == "" {
		title = "Memory"
	}
	description, _ := data["description"].(string)

	var seenAt time.Time
	if m.SeenAt.Valid {
		seenAt = m.SeenAt.Time
	}

	return &Memory{
		ID:          m.ID.String(),
		UserID:      m.OwnerID.String(),
		Title:       title,
		Description: description,
		Date:        m.MemoryAt.Time,
		IsSaved:     m.IsSaved,
		Type:        m.Type,
		AssetIDs:    assetIDs,
		CreatedAt:   seenAt,
		UpdatedAt:   m.MemoryAt.Time,
	}
}

func (s *Service) GetMemories(ctx context.Context, userID string) ([]*Memory, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	dbMemories, err := s.queries.ListMemoriesForOwner(ctx, uid)
	if err != nil {
		return nil, err
	}

	memories := make([]*Memory, 0, len(dbMemories))
	for _, dbMem := range dbMemories {
		memories = append(memories, s.toMemory(dbMem, nil))
	}
	return memories, nil
}

func (s *Service) GetMemory(ctx context.Context, userID string, memoryID string) (*Memory, error) {
	memUUID, err := uuid.Parse(memoryID)
	if err != nil {
		return nil, fmt.Errorf("invalid memory ID: %w", err)
	}

	dbMemory, err := s.queries.GetMemoryByID(ctx, memUUID)
	if err != nil {
		return nil, err
	}
	if dbMemory.OwnerID.String() != userID {
		return nil, fmt.Errorf("access denied: memory does not belong to user")
	}

	assetIDs, err := s.GetMemoryAssets(ctx, userID, memoryID)
	if err != nil {
		return nil, err
	}

	return s.toMemory(dbMemory, assetIDs), nil
}

func (s *Service) CreateMemory(ctx context.Context, memory *Memory) (*Memory, error) {
	userUUID, err := uuid.Parse(memory.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"title":       memory.Title,
		"description": memory.Description,
	})
	if err != nil {
		return nil, err
	}

	dbMemory, err := s.queries.CreateMemory(ctx, sqlc.CreateMemoryParams{
		ID:       idgen.NewUUID(),
		OwnerID:  userUUID,
		Type:     memory.Type,
		Data:     jsonData,
		UpdateID: idgen.NewUUID(),
	})
	if err != nil {
		return nil, err
	}

	return s.toMemory(dbMemory, nil), nil
}

func (s *Service) UpdateMemory(ctx context.Context, userID string, memoryID string, updates map[string]interface{}) (*Memory, error) {
	memUUID, err := uuid.Parse(memoryID)
	if err != nil {
		return nil, fmt.Errorf("invalid memory ID: %w", err)
	}

	existing, err := s.queries.GetMemoryByID(ctx, memUUID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID.String() != userID {
		return nil, fmt.Errorf("access denied: memory does not belong to user")
	}

	if isSaved, ok := updates["is_saved"].(bool); ok {
		if err := s.queries.SetMemorySaved(ctx, memUUID, isSaved); err != nil {
			return nil, err
		}
		existing.IsSaved = isSaved
	}

	if seen, ok := updates["seen"].(bool); ok && seen {
		if err := s.queries.MarkMemorySeen(ctx, memUUID); err != nil {
			return nil, err
		}
	}

	data := memoryData(existing.Data)
	dirty := false
	if title, ok := updates["title"].(string); ok {
		data["title"] = title
		dirty = true
	}
	if description, ok := updates["description"].(string); ok {
		data["description"] = description
		dirty = true
	}

	if dirty {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		existing, err = s.queries.UpdateMemoryData(ctx, memUUID, jsonData)
		if err != nil {
			return nil, err
		}
	}

	return s.toMemory(existing, nil), nil
}

func (s *Service) DeleteMemory(ctx context.Context, userID string, memoryID string) error {
	memUUID, err := uuid.Parse(memoryID)
	if err != nil {
		return fmt.Errorf("invalid memory ID: %w", err)
	}

	dbMemory, err := s.queries.GetMemoryByID(ctx, memUUID)
	if err != nil {
		return err
	}
	if dbMemory.OwnerID.String() != userID {
		return fmt.Errorf("access denied: memory does not belong to user")
	}

	return s.queries.DeleteMemory(ctx, memUUID)
}

func (s *Service) parseOwnedMemory(ctx context.Context, userID, memoryID string) (uuid.UUID, error) {
	memUUID, err := uuid.Parse(memoryID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid memory ID: %w", err)
	}
	dbMemory, err := s.queries.GetMemoryByID(ctx, memUUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("memory not found: %w", err)
	}
	if dbMemory.OwnerID.String() != userID {
		return uuid.Nil, fmt.Errorf("access denied: memory does not belong to user")
	}
	return memUUID, nil
}

func (s *Service) AddAssetsToMemory(ctx context.Context, userID string, memoryID string, assetIDs []string) error {
	memUUID, err := s.parseOwnedMemory(ctx, userID, memoryID)
	if err != nil {
		return err
	}

	for _, assetIDStr := range assetIDs {
		assetID, err := uuid.Parse(assetIDStr)
		if err != nil {
			continue
		}
		if err := s.queries.AddAssetToMemory(ctx, memUUID, assetID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RemoveAssetsFromMemory(ctx context.Context, userID string, memoryID string, assetIDs []string) error {
	memUUID, err := s.parseOwnedMemory(ctx, userID, memoryID)
	if err != nil {
		return err
	}

	for _, assetIDStr := range assetIDs {
		assetID, err := uuid.Parse(assetIDStr)
		if err != nil {
			continue
		}
		if err := s.queries.RemoveAssetFromMemory(ctx, memUUID, assetID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) GetMemoryAssets(ctx context.Context, userID string, memoryID string) ([]string, error) {
	memUUID, err := s.parseOwnedMemory(ctx, userID, memoryID)
	if err != nil {
		return nil, err
	}

	assetUUIDs, err := s.queries.ListAssetIDsForMemory(ctx, memUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory assets: %w", err)
	}

	assetIDs := make([]string, len(assetUUIDs))
	for i, id := range assetUUIDs {
		assetIDs[i] = id.String()
	}
	return assetIDs, nil
}

// GenerateMemories always returns an error: memory generation is not
// implemented, and no job or handler calls it.
func (s *Service) GenerateMemories(ctx context.Context, userID string) error {
	return fmt.Errorf("memory generation requires job queue system implementation")
}
