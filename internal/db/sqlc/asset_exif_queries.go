package sqlc

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var assetExifColumns = `"assetId", make, model, "exifImageWidth", "exifImageHeight", "fileSizeInByte",
	orientation, "dateTimeOriginal", "modifyDate", "timeZone", latitude, longitude,
	"projectionType", city, state, country, description, fps, "exposureTime", rating,
	iso, "fNumber", "focalLength", "lensModel", "livePhotoCID", colorspace, "bitsPerSample",
	"profileDescription", "lockedProperties", "updateId"`

func scanAssetExif(row pgxRowScanner) (AssetExif, error) {
	var e AssetExif
	err := row.Scan(
		&e.AssetID, &e.Make, &e.Model, &e.ExifImageWidth, &e.ExifImageHeight, &e.FileSizeInByte,
		&e.Orientation, &e.DateTimeOriginal, &e.ModifyDate, &e.TimeZone, &e.Latitude, &e.Longitude,
		&e.ProjectionType, &e.City, &e.State, &e.Country, &e.Description, &e.Fps, &e.ExposureTime, &e.Rating,
		&e.Iso, &e.FNumber, &e.FocalLength, &e.LensModel, &e.LivePhotoCID, &e.ColorSpace, &e.BitsPerSample,
		&e.ProfileDescription, &e.LockedProperties, &e.UpdateID,
	)
	return e, err
}

func (q *Queries) GetAssetExif(ctx context.Context, assetID uuid.UUID) (AssetExif, error) {
	row := q.db.QueryRow(ctx, `SELECT `+assetExifColumns+` FROM asset_exif WHERE "assetId" = $1`, assetID)
	return scanAssetExif(row)
}

// UpsertAssetExifOverride inserts or overwrites the exif row, used by
// the extractor pass, which always runs against a fresh insert or a
// best-effort re-extraction and must not touch locked fields.
func (q *Queries) UpsertAssetExifOverride(ctx context.Context, e AssetExif) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO asset_exif (`+assetExifColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
		ON CONFLICT ("assetId") DO UPDATE SET
			make = CASE WHEN 'make' = ANY(asset_exif."lockedProperties") THEN asset_exif.make ELSE EXCLUDED.make END,
			model = CASE WHEN 'model' = ANY(asset_exif."lockedProperties") THEN asset_exif.model ELSE EXCLUDED.model END,
			"exifImageWidth" = EXCLUDED."exifImageWidth",
			"exifImageHeight" = EXCLUDED."exifImageHeight",
			"fileSizeInByte" = EXCLUDED."fileSizeInByte",
			orientation = EXCLUDED.orientation,
			"dateTimeOriginal" = CASE WHEN 'dateTimeOriginal' = ANY(asset_exif."lockedProperties") THEN asset_exif."dateTimeOriginal" ELSE EXCLUDED."dateTimeOriginal" END,
			"modifyDate" = EXCLUDED."modifyDate",
			"timeZone" = CASE WHEN 'timeZone' = ANY(asset_exif."lockedProperties") THEN asset_exif."timeZone" ELSE EXCLUDED."timeZone" END,
			latitude = CASE WHEN 'latitude' = ANY(asset_exif."lockedProperties") THEN asset_exif.latitude ELSE EXCLUDED.latitude END,
			longitude = CASE WHEN 'longitude' = ANY(asset_exif."lockedProperties") THEN asset_exif.longitude ELSE EXCLUDED.longitude END,
			rating = CASE WHEN 'rating' = ANY(asset_exif."lockedProperties") THEN asset_exif.rating ELSE EXCLUDED.rating END,
			description = CASE WHEN 'description' = ANY(asset_exif."lockedProperties") THEN asset_exif.description ELSE EXCLUDED.description END,
			"updateId" = EXCLUDED."updateId"`,
		e.AssetID, e.Make, e.Model, e.ExifImageWidth, e.ExifImageHeight, e.FileSizeInByte,
		e.Orientation, e.DateTimeOriginal, e.ModifyDate, e.TimeZone, e.Latitude, e.Longitude,
		e.ProjectionType, e.City, e.State, e.Country, e.Description, e.Fps, e.ExposureTime, e.Rating,
		e.Iso, e.FNumber, e.FocalLength, e.LensModel, e.LivePhotoCID, e.ColorSpace, e.BitsPerSample,
		e.ProfileDescription, e.LockedProperties, e.UpdateID)
	return err
}

type UpdateAssetExifUserValuesParams struct {
	AssetID          uuid.UUID
	DateTimeOriginal pgtype.Timestamptz
	TimeZone         pgtype.Text
	Latitude         pgtype.Float8
	Longitude        pgtype.Float8
	Rating           pgtype.Int4
	Description      pgtype.Text
	UpdateID         uuid.UUID
}

// UpdateAssetExifUserValues writes user-supplied exif fields
// unconditionally (the user's intent wins over any lock) and leaves
// null params untouched. Callers pair it with AppendLockedProperties
// so extractor passes cannot undo the edit.
func (q *Queries) UpdateAssetExifUserValues(ctx context.Context, arg UpdateAssetExifUserValuesParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO asset_exif ("assetId", "dateTimeOriginal", "timeZone", latitude, longitude, rating, description, "lockedProperties", "updateId")
		VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', $8)
		ON CONFLICT ("assetId") DO UPDATE SET
			"dateTimeOriginal" = COALESCE($2, asset_exif."dateTimeOriginal"),
			"timeZone" = COALESCE($3, asset_exif."timeZone"),
			latitude = COALESCE($4, asset_exif.latitude),
			longitude = COALESCE($5, asset_exif.longitude),
			rating = COALESCE($6, asset_exif.rating),
			description = COALESCE($7, asset_exif.description),
			"updateId" = $8`,
		arg.AssetID, arg.DateTimeOriginal, arg.TimeZone, arg.Latitude, arg.Longitude,
		arg.Rating, arg.Description, arg.UpdateID)
	return err
}

// ShiftExifDateTimeOriginal applies a relative minute shift to each
// row's dateTimeOriginal, stamps the supplied zone, and locks both
// fields against extractor overwrite.
func (q *Queries) ShiftExifDateTimeOriginal(ctx context.Context, ids []uuid.UUID, minutes int, timeZone pgtype.Text, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE asset_exif
		SET "dateTimeOriginal" = "dateTimeOriginal" + make_interval(mins => $2),
		    "timeZone" = COALESCE($3, "timeZone"),
		    "lockedProperties" = (
		        SELECT ARRAY(SELECT DISTINCT unnest("lockedProperties" || '{dateTimeOriginal,timeZone}'::text[]))
		    ),
		    "updateId" = $4
		WHERE "assetId" = ANY($1)`, ids, minutes, timeZone, updateID)
	return err
}

// AppendLockedProperties marks fields as user-set so later extractor
// runs cannot overwrite them, and bumps the exif watermark.
func (q *Queries) AppendLockedProperties(ctx context.Context, assetID uuid.UUID, fields []string, updateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE asset_exif
		SET "lockedProperties" = (
			SELECT ARRAY(SELECT DISTINCT unnest("lockedProperties" || $2::text[]))
		), "updateId" = $3
		WHERE "assetId" = $1`, assetID, fields, updateID)
	return err
}
