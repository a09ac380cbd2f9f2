package sqlc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TimeBucketFilter narrows the month-bucket aggregation and bucket
// expansion queries behind getTimeBuckets/getTimeBucket.
type TimeBucketFilter struct {
	OwnerIDs     []uuid.UUID
	Visibilities []AssetVisibility
	IsFavorite   *bool
	AlbumID      *uuid.UUID
	TagID        *uuid.UUID
}

func (f TimeBucketFilter) whereClause(args []any) (string, []any) {
	clause := ` WHERE a."ownerId" = ANY($1) AND a."deletedAt" IS NULL`
	args = append(args, f.OwnerIDs)
	n := len(args)

	if len(f.Visibilities) > 0 {
		n++
		clause += fmt.Sprintf(` AND a.visibility = ANY($%d)`, n)
		args = append(args, f.Visibilities)
	}
	if f.IsFavorite != nil {
		n++
		clause += fmt.Sprintf(` AND a."isFavorite" = $%d`, n)
		args = append(args, *f.IsFavorite)
	}
	if f.AlbumID != nil {
		n++
		clause += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM album_assets aa WHERE aa."assetId" = a.id AND aa."albumId" = $%d)`, n)
		args = append(args, *f.AlbumID)
	}
	if f.TagID != nil {
		n++
		clause += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM tag_assets ta WHERE ta."assetId" = a.id AND ta."tagId" = $%d)`, n)
		args = append(args, *f.TagID)
	}
	return clause, args
}

// TimeBucketCount is one row of getTimeBuckets: a month bucket key
// (YYYY-MM-01) and the asset count within it.
type TimeBucketCount struct {
	Bucket string
	Count  int64
}

// GetTimeBuckets groups matching assets by month of localDateTime.
func (q *Queries) GetTimeBuckets(ctx context.Context, f TimeBucketFilter, ascending bool) ([]TimeBucketCount, error) {
	where, args := f.whereClause(nil)
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	query := `
		SELECT to_char(date_trunc('month', a."localDateTime"), 'YYYY-MM-01') AS bucket, COUNT(*) AS count
		FROM assets a` + where + `
		GROUP BY bucket ORDER BY bucket ` + order

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeBucketCount
	for rows.Next() {
		var c TimeBucketCount
		if err := rows.Scan(&c.Bucket, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TimeBucketAssetRow carries exactly the columns getTimeBucket's
// columnar response needs, one row per asset joined
// against its exif row for city/country/lat/long/timezone.
type TimeBucketAssetRow struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Width            int32
	Height           int32
	IsFavorite       bool
	Visibility       AssetVisibility
	IsTrashed        bool
	Type             AssetType
	Thumbhash        []byte
	FileCreatedAt    pgtype.Timestamptz
	LocalDateTime    pgtype.Timestamptz
	TimeZone         *string
	Duration         *string
	ProjectionType   *string
	LivePhotoVideoID *uuid.UUID
	City             *string
	Country          *string
	Latitude         *float64
	Longitude        *float64
}

// GetTimeBucketAssets returns every asset in the given month bucket,
// ordered newest-first, for columnar assembly by internal/timeline.
func (q *Queries) GetTimeBucketAssets(ctx context.Context, f TimeBucketFilter, bucket string) ([]TimeBucketAssetRow, error) {
	where, args := f.whereClause(nil)
	args = append(args, bucket)
	n := len(args)

	query := fmt.Sprintf(`
		SELECT a.id, a."ownerId", a.width, a.height, a."isFavorite", a.visibility,
			(a.status = 'trashed') AS "isTrashed", a.type, a.thumbhash,
			a."fileCreatedAt", a."localDateTime", e."timeZone", a.duration,
			e."projectionType", a."livePhotoVideoId", e.city, e.country, e.latitude, e.longitude
		FROM assets a
		LEFT JOIN asset_exif e ON e."assetId" = a.id
		`+where+`
		AND to_char(date_trunc('month', a."localDateTime"), 'YYYY-MM-01') = $%d
		ORDER BY a."fileCreatedAt" DESC`, n)

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeBucketAssetRow
	for rows.Next() {
		var r TimeBucketAssetRow
		var width, height pgtype.Int4
		var livePhoto pgtype.UUID
		var timeZone, duration, projectionType, city, country pgtype.Text
		var lat, lng pgtype.Float8
		if err := rows.Scan(&r.ID, &r.OwnerID, &width, &height, &r.IsFavorite, &r.Visibility,
			&r.IsTrashed, &r.Type, &r.Thumbhash, &r.FileCreatedAt, &r.LocalDateTime,
			&timeZone, &duration, &projectionType, &livePhoto, &city, &country, &lat, &lng); err != nil {
			return nil, err
		}
		if width.Valid {
			r.Width = width.Int32
		}
		if height.Valid {
			r.Height = height.Int32
		}
		if timeZone.Valid {
			r.TimeZone = &timeZone.String
		}
		if duration.Valid {
			r.Duration = &duration.String
		}
		if projectionType.Valid {
			r.ProjectionType = &projectionType.String
		}
		if city.Valid {
			r.City = &city.String
		}
		if country.Valid {
			r.Country = &country.String
		}
		if lat.Valid {
			r.Latitude = &lat.Float64
		}
		if lng.Valid {
			r.Longitude = &lng.Float64
		}
		if livePhoto.Valid {
			id := uuid.UUID(livePhoto.Bytes)
			r.LivePhotoVideoID = &id
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetUniqueOriginalPathPrefixes returns the distinct directory parts
// (path up to and including the final slash) of the owner's assets.
func (q *Queries) GetUniqueOriginalPathPrefixes(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		SELECT DISTINCT regexp_replace("originalPath", '/[^/]*$', '/')
		FROM assets
		WHERE "ownerId" = $1 AND "deletedAt" IS NULL
		ORDER BY 1`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetAssetsByOriginalPathPrefix returns assets directly inside path —
// originalPath begins with path, and the remainder contains no
// further slash -- folder, not subtree, semantics.
func (q *Queries) GetAssetsByOriginalPathPrefix(ctx context.Context, ownerID uuid.UUID, path string) ([]Asset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE "ownerId" = $1 AND "deletedAt" IS NULL
			AND "originalPath" LIKE $2 || '%'
			AND position('/' in substring("originalPath" from length($2) + 1)) = 0
		ORDER BY "fileCreatedAt" DESC`, ownerID, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
