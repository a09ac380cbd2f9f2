// Package access implements permission checks as a small algebra of
// membership predicates composed across ownership, album membership,
// partner sharing, and shared-link grants, backed by the chunked
// membership queries in internal/db/sqlc/access_queries.go.
package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// Permission names a (resource-kind, verb) pair.
type Permission string

const (
	PermissionAssetRead     Permission = "asset.read"
	PermissionAssetView     Permission = "asset.view"
	PermissionAssetDownload Permission = "asset.download"
	PermissionAssetUpdate   Permission = "asset.update"
	PermissionAssetDelete   Permission = "asset.delete"
	PermissionAssetShare    Permission = "asset.share"
	PermissionAssetReplace  Permission = "asset.replace"
	PermissionAssetCopy     Permission = "asset.copy"
	PermissionAssetUpload   Permission = "asset.upload"

	PermissionAlbumRead   Permission = "album.read"
	PermissionAlbumUpdate Permission = "album.update"
	PermissionAlbumDelete Permission = "album.delete"
	PermissionAlbumShare  Permission = "album.share"

	PermissionActivityCreate Permission = "activity.create"
	PermissionPartnerUpdate  Permission = "partner.update"
)

// readPermissions is the set of permissions gated by the asset.read
// union predicate (owner/album/partner/shared-link).
var readPermissions = map[Permission]bool{
	PermissionAssetRead:     true,
	PermissionAssetView:     true,
	PermissionAssetDownload: true,
}

// ownerOnlyAssetPermissions is the set gated by owner=principal alone.
var ownerOnlyAssetPermissions = map[Permission]bool{
	PermissionAssetUpdate:  true,
	PermissionAssetDelete:  true,
	PermissionAssetShare:   true,
	PermissionAssetReplace: true,
	PermissionAssetCopy:    true,
}

var ownerOnlyAlbumPermissions = map[Permission]bool{
	PermissionAlbumUpdate: true,
	PermissionAlbumDelete: true,
	PermissionAlbumShare:  true,
}

// Kind distinguishes the three principal shapes the auth surface can
// resolve a request to.
type Kind int

const (
	KindUser Kind = iota
	KindAPIKey
	KindSharedLink
)

// Principal is the resolved identity a permission check runs against.
// UserID is always the acting user: the session's user for KindUser,
// the key owner for KindAPIKey, or the shared link's owner for
// KindSharedLink.
type Principal struct {
	Kind Kind

	UserID                uuid.UUID
	HasElevatedPermission bool // unexpired PIN unlock on the session, gates visibility='locked'

	// APIKeyPermissions is the key's granted-permission set; requests
	// are additionally intersected against it.
	APIKeyPermissions []string

	// SharedLink is set iff Kind == KindSharedLink.
	SharedLink *sqlc.SharedLink
}

// ErrForbidden is returned by RequireAccess when the principal is not
// granted the permission over every requested id.
type ErrForbidden struct {
	Permission Permission
	Denied     []uuid.UUID
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("access: forbidden: permission %q denied for %d id(s)", e.Permission, len(e.Denied))
}

// Guard answers, for a principal and permission, which of a set of
// entity ids the principal may operate on.
type Guard struct {
	db *sqlc.Queries
}

func NewGuard(db *sqlc.Queries) *Guard {
	return &Guard{db: db}
}

// chunkSize stays under SQLite's default 999-parameter limit with
// room for joined literals, the portable floor across backends.
const chunkSize = 500

// chunked splits ids into <=chunkSize pieces, runs fn over each, and
// unions the results. The caller's chunk boundaries are not
// observable in the output.
func chunked(ids []uuid.UUID, fn func([]uuid.UUID) ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []uuid.UUID
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		allowed, err := fn(ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, allowed...)
	}
	return out, nil
}

// apiKeyGrants reports whether an API key's permission set covers the
// requested permission. Keys carry either exact permission strings or
// the wildcard "*".
func apiKeyGrants(granted []string, perm Permission) bool {
	for _, g := range granted {
		if g == "*" || Permission(g) == perm {
			return true
		}
	}
	return false
}

// sharedLinkGrants reports whether a shared-link principal may ever
// be granted perm, independent of which ids are requested: only the
// read family and the link's allowed writes are grantable; everything
// else is denied outright.
func sharedLinkGrants(link *sqlc.SharedLink, perm Permission) bool {
	if readPermissions[perm] {
		return true
	}
	switch perm {
	case PermissionAssetUpload:
		return link.AllowUpload
	case PermissionAlbumRead:
		return true
	default:
		return false
	}
}

// CheckAccess returns the subset of ids the principal is allowed perm
// over. It never errors for lack of permission; an empty/partial
// result simply means some ids were denied. A non-nil error indicates
// an infrastructure failure (RelDB).
func (g *Guard) CheckAccess(ctx context.Context, p Principal, perm Permission, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	if p.Kind == KindSharedLink {
		if !sharedLinkGrants(p.SharedLink, perm) {
			return nil, nil
		}
		return g.checkSharedLink(ctx, p, perm, ids)
	}

	if p.Kind == KindAPIKey && !apiKeyGrants(p.APIKeyPermissions, perm) {
		return nil, nil
	}

	switch {
	case readPermissions[perm]:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterAssetsReadable(ctx, p.UserID, c, perm == PermissionAssetRead, p.HasElevatedPermission)
		})
	case ownerOnlyAssetPermissions[perm]:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterAssetsOwnedBy(ctx, p.UserID, c)
		})
	case perm == PermissionAssetUpload:
		// Non-shared-link principals (user or api key, already
		// permission-filtered above) may always upload; the asset ids
		// aren't known yet at this call site, so ids is returned as-is.
		return ids, nil
	case perm == PermissionAlbumRead:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterAlbumsReadable(ctx, p.UserID, c)
		})
	case ownerOnlyAlbumPermissions[perm]:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterAlbumsOwnedBy(ctx, p.UserID, c)
		})
	case perm == PermissionActivityCreate:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterActivityCreatableAlbums(ctx, p.UserID, c)
		})
	case perm == PermissionPartnerUpdate:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterPartnersUpdatableBy(ctx, p.UserID, c)
		})
	default:
		return nil, fmt.Errorf("access: unknown permission %q", perm)
	}
}

// checkSharedLink answers the read/upload family for a shared-link
// principal: membership is through the link itself, never through
// album ownership or partner sharing (those require a real user).
func (g *Guard) checkSharedLink(ctx context.Context, p Principal, perm Permission, ids []uuid.UUID) ([]uuid.UUID, error) {
	switch {
	case readPermissions[perm]:
		return chunked(ids, func(c []uuid.UUID) ([]uuid.UUID, error) {
			return g.db.FilterAssetsViaSharedLink(ctx, p.SharedLink.ID, p.SharedLink.AlbumID, c)
		})
	case perm == PermissionAssetUpload:
		return ids, nil
	case perm == PermissionAlbumRead:
		if !p.SharedLink.AlbumID.Valid {
			return nil, nil
		}
		var out []uuid.UUID
		for _, id := range ids {
			if id == uuid.UUID(p.SharedLink.AlbumID.Bytes) {
				out = append(out, id)
			}
		}
		return out, nil
	default:
		return nil, nil
	}
}

// RequireAccess is CheckAccess plus a forbidden error when the
// principal was not granted every requested id.
func (g *Guard) RequireAccess(ctx context.Context, p Principal, perm Permission, ids []uuid.UUID) error {
	allowed, err := g.CheckAccess(ctx, p, perm, ids)
	if err != nil {
		return err
	}
	if len(allowed) == len(ids) {
		return nil
	}
	allowedSet := make(map[uuid.UUID]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}
	var denied []uuid.UUID
	for _, id := range ids {
		if !allowedSet[id] {
			denied = append(denied, id)
		}
	}
	return &ErrForbidden{Permission: perm, Denied: denied}
}
