package apikeys

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

// rawKeyBytes is the entropy of a generated API key, matching the
// usual bearer-token sizing convention.
const rawKeyBytes = 32

// Service implements ApiKey CRUD. Keys are high-entropy random
// tokens hashed with SHA-256, the same primitive
// used for session tokens — not bcrypt, which is reserved for
// low-entropy user passwords.
type Service struct {
	db *sqlc.Queries
}

func NewService(db *sqlc.Queries) *Service {
	return &Service{db: db}
}

// GenerateAPIKey generates a new random, base64url-encoded API key.
func (s *Service) GenerateAPIKey() (string, error) {
	return crypto.RandomToken(rawKeyBytes)
}

// HashAPIKey returns the SHA-256 hex digest stored alongside the key.
func (s *Service) HashAPIKey(key string) (string, error) {
	return crypto.SHA256HexString(key), nil
}

// VerifyAPIKey does a constant-time comparison of a raw key against a stored hash.
func (s *Service) VerifyAPIKey(key, hash string) bool {
	return crypto.ConstantTimeEqual(crypto.SHA256HexString(key), hash)
}

// CreateAPIKey creates a new API key for a user with the given permissions.
func (s *Service) CreateAPIKey(ctx context.Context, userID uuid.UUID, name string, permissions []string) (*sqlc.ApiKey, string, error) {
	rawKey, err := s.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}
	hashedKey := crypto.SHA256HexString(rawKey)

	if permissions == nil {
		permissions = []string{}
	}

	apiKey, err := s.db.CreateApiKey(ctx, sqlc.CreateApiKeyParams{
		ID:          idgen.NewUUID(),
		UserID:      userID,
		Name:        name,
		KeyHash:     hashedKey,
		Permissions: permissions,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create API key: %w", err)
	}

	return &apiKey, rawKey, nil
}

// GetAPIKeysByUser retrieves all API keys for a user
func (s *Service) GetAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]sqlc.ApiKey, error) {
	keys, err := s.db.ListApiKeysForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get API keys: %w", err)
	}
	return keys, nil
}

// UpdateAPIKey renames a key and/or replaces its permission set.
func (s *Service) UpdateAPIKey(ctx context.Context, keyID, userID uuid.UUID, name string, permissions []string) (*sqlc.ApiKey, error) {
	existing, err := s.db.GetApiKeyByID(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("api key not found: %w", err)
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("access denied: api key does not belong to user")
	}

	if name == "" {
		name = existing.Name
	}
	if permissions == nil {
		permissions = existing.Permissions
	}

	updated, err := s.db.UpdateApiKey(ctx, keyID, name, permissions)
	if err != nil {
		return nil, fmt.Errorf("failed to update API key: %w", err)
	}
	return &updated, nil
}

// DeleteAPIKey deletes an API key
func (s *Service) DeleteAPIKey(ctx context.Context, keyID, userID uuid.UUID) error {
	if err := s.db.DeleteApiKey(ctx, keyID, userID); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	return nil
}

// ValidateAPIKey validates a raw API key against the stored hash and
// returns the associated row (including its granted permission set,
// used by the access guard to intersect requested permissions).
func (s *Service) ValidateAPIKey(ctx context.Context, rawKey string) (*sqlc.ApiKey, error) {
	apiKey, err := s.db.GetApiKeyByHash(ctx, crypto.SHA256HexString(rawKey))
	if err != nil {
		return nil, fmt.Errorf("invalid API key: %w", err)
	}
	return &apiKey, nil
}
