// Package partners implements partner sharing: a
// partner relationship grants one user read access to another's library,
// optionally surfaced in the partner's own timeline.
package partners

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("partners")

type Service struct {
	db *sqlc.Queries
}

func NewService(db *sqlc.Queries) *Service {
	return &Service{db: db}
}

// Partner is the API-facing view of a sqlc.Partner row.
type Partner struct {
	SharedByID   string `json:"sharedById"`
	SharedWithID string `json:"sharedWithId"`
	InTimeline   bool   `json:"inTimeline"`
}

func toPartner(p sqlc.Partner) *Partner {
	return &Partner{
		SharedByID:   p.SharedByID.String(),
		SharedWithID: p.SharedWithID.String(),
		InTimeline:   p.InTimeline,
	}
}

// CreatePartner grants sharedWithID read access to sharedByID's library.
func (s *Service) CreatePartner(ctx context.Context, sharedByID, sharedWithID uuid.UUID) (*Partner, error) {
	ctx, span := tracer.Start(ctx, "partners.create_partner")
	defer span.End()

	if sharedByID == sharedWithID {
		return nil, fmt.Errorf("cannot create a partner relationship with yourself")
	}

	p, err := s.db.CreatePartner(ctx, sharedByID, sharedWithID, idgen.NewUUID())
	if err != nil {
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	return toPartner(p), nil
}

// UpdateInTimeline toggles whether a partner's assets appear in the
// recipient's main timeline.
func (s *Service) UpdateInTimeline(ctx context.Context, sharedByID, sharedWithID uuid.UUID, inTimeline bool) error {
	ctx, span := tracer.Start(ctx, "partners.update_in_timeline")
	defer span.End()

	if err := s.db.UpdatePartnerInTimeline(ctx, sharedByID, sharedWithID, inTimeline, idgen.NewUUID()); err != nil {
		return fmt.Errorf("failed to update partner: %w", err)
	}
	return nil
}

// DeletePartner revokes a partner relationship.
func (s *Service) DeletePartner(ctx context.Context, sharedByID, sharedWithID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "partners.delete_partner")
	defer span.End()

	if err := s.db.DeletePartner(ctx, sharedByID, sharedWithID); err != nil {
		return fmt.Errorf("failed to delete partner: %w", err)
	}
	return nil
}

// ListSharedWithMe returns the partners who have shared their library with this user.
func (s *Service) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]*Partner, error) {
	ctx, span := tracer.Start(ctx, "partners.list_shared_with_me")
	defer span.End()

	rows, err := s.db.ListPartnersSharedWith(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	out := make([]*Partner, len(rows))
	for i, p := range rows {
		out[i] = toPartner(p)
	}
	return out, nil
}

// ListSharedByMe returns the partners this user has shared their library with.
func (s *Service) ListSharedByMe(ctx context.Context, userID uuid.UUID) ([]*Partner, error) {
	ctx, span := tracer.Start(ctx, "partners.list_shared_by_me")
	defer span.End()

	rows, err := s.db.ListPartnersSharedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	out := make([]*Partner, len(rows))
	for i, p := range rows {
		out[i] = toPartner(p)
	}
	return out, nil
}

// IsPartner reports whether sharedByID has shared their library with sharedWithID.
// Used by the access-control layer to authorize cross-user reads.
func (s *Service) IsPartner(ctx context.Context, sharedByID, sharedWithID uuid.UUID) (bool, error) {
	ctx, span := tracer.Start(ctx, "partners.is_partner")
	defer span.End()

	ok, err := s.db.IsPartner(ctx, sharedByID, sharedWithID)
	if err != nil {
		return false, fmt.Errorf("failed to check partner status: %w", err)
	}
	return ok, nil
}
