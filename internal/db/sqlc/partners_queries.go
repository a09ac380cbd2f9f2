package sqlc

import (
	"context"

	"github.com/google/uuid"
)

func scanPartner(row pgxRowScanner) (Partner, error) {
	var p Partner
	err := row.Scan(&p.SharedByID, &p.SharedWithID, &p.InTimeline, &p.UpdateID)
	return p, err
}

var partnerColumns = `"sharedById", "sharedWithId", "inTimeline", "updateId"`

func (q *Queries) CreatePartner(ctx context.Context, sharedByID, sharedWithID uuid.UUID, updateID uuid.UUID) (Partner, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO partners ("sharedById", "sharedWithId", "inTimeline", "updateId")
		VALUES ($1, $2, true, $3)
		RETURNING `+partnerColumns, sharedByID, sharedWithID, updateID)
	return scanPartner(row)
}

func (q *Queries) UpdatePartnerInTimeline(ctx context.Context, sharedByID, sharedWithID uuid.UUID, inTimeline bool, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE partners SET "inTimeline" = $3, "updateId" = $4
		WHERE "sharedById" = $1 AND "sharedWithId" = $2`, sharedByID, sharedWithID, inTimeline, updateID)
	return err
}

func (q *Queries) DeletePartner(ctx context.Context, sharedByID, sharedWithID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM partners WHERE "sharedById" = $1 AND "sharedWithId" = $2`, sharedByID, sharedWithID)
	return err
}

func (q *Queries) ListPartnersSharedWith(ctx context.Context, sharedWithID uuid.UUID) ([]Partner, error) {
	rows, err := q.db.Query(ctx, `SELECT `+partnerColumns+` FROM partners WHERE "sharedWithId" = $1`, sharedWithID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPartnersSharedBy returns the partners a user has shared their
// library with (the inverse direction of ListPartnersSharedWith).
func (q *Queries) ListPartnersSharedBy(ctx context.Context, sharedByID uuid.UUID) ([]Partner, error) {
	rows, err := q.db.Query(ctx, `SELECT `+partnerColumns+` FROM partners WHERE "sharedById" = $1`, sharedByID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) IsPartner(ctx context.Context, sharedByID, sharedWithID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM partners WHERE "sharedById" = $1 AND "sharedWithId" = $2)`,
		sharedByID, sharedWithID).Scan(&exists)
	return exists, err
}
