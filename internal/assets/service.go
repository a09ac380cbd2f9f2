// Package assets implements the ingestion and retrieval pipeline:
// content-addressed uploads with at-most-once semantics per
// (owner, checksum), quota accounting, derivative generation, and
// range-capable streaming playback.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/storage"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

// Service handles asset ingestion, metadata updates, and lifecycle.
type Service struct {
	db        *sqlc.Queries
	storage   *storage.Service
	extractor *MetadataExtractor
	variants  *VariantGenerator
	logger    *logrus.Logger

	uploadCounter   metric.Int64Counter
	downloadCounter metric.Int64Counter
	processingTime  metric.Float64Histogram
}

// NewService creates a new asset service
func NewService(queries *sqlc.Queries, storageService *storage.Service) (*Service, error) {
	meter := telemetry.GetMeter()

	uploadCounter, err := meter.Int64Counter(
		"assets_uploads_total",
		metric.WithDescription("Total number of asset uploads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload counter: %w", err)
	}

	downloadCounter, err := meter.Int64Counter(
		"assets_downloads_total",
		metric.WithDescription("Total number of asset downloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create download counter: %w", err)
	}

	processingTime, err := meter.Float64Histogram(
		"assets_processing_duration_seconds",
		metric.WithDescription("Time spent processing assets"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing time histogram: %w", err)
	}

	return &Service{
		db:              queries,
		storage:         storageService,
		extractor:       NewMetadataExtractor(),
		variants:        NewVariantGenerator(),
		logger:          logrus.StandardLogger(),
		uploadCounter:   uploadCounter,
		downloadCounter: downloadCounter,
		processingTime:  processingTime,
	}, nil
}

// originalPathFor derives the content-addressed blob key for an
// asset's original bytes.
func originalPathFor(ownerID, assetID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("upload/%s/%s/original%s", ownerID, assetID, ext)
}

func sidecarPathFor(ownerID, assetID uuid.UUID) string {
	return fmt.Sprintf("upload/%s/%s/sidecar.xmp", ownerID, assetID)
}

// isUniqueViolation reports whether err is the unique-constraint
// failure two racing uploads of the same content produce.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Upload ingests one asset. Duplicate content returns the existing
// row's id with status duplicate; only genuinely new bytes hit the
// blob store and the quota.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "assets.upload",
		trace.WithAttributes(
			attribute.String("owner_id", req.OwnerID.String()),
			attribute.String("filename", req.OriginalFileName),
			attribute.Int("size", len(req.Data)),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		s.processingTime.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("operation", "upload")))
	}()

	// Client-declared checksum lets the duplicate pre-check answer
	// before hashing, the quota check and storage (the body is already
	// buffered in req.Data).
	if len(req.ChecksumHint) > 0 {
		if existing, err := s.db.GetAssetByChecksum(ctx, req.OwnerID, pgtype.UUID{}, req.ChecksumHint); err == nil {
			return &UploadResult{ID: existing.ID, Status: UploadStatusDuplicate}, nil
		}
	}

	size := int64(len(req.Data))
	checksum := crypto.SHA1(req.Data)

	quotaSize, quotaUsage, err := s.db.GetUserQuota(ctx, req.OwnerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read quota: %w", err)
	}
	if quotaSize.Valid && quotaUsage+size > quotaSize.Int64 {
		return nil, ErrQuotaExceeded
	}

	if existing, err := s.db.GetAssetByChecksum(ctx, req.OwnerID, pgtype.UUID{}, checksum); err == nil {
		return &UploadResult{ID: existing.ID, Status: UploadStatusDuplicate}, nil
	}

	assetID := idgen.NewUUID()
	blobPath := originalPathFor(req.OwnerID, assetID, req.OriginalFileName)

	// Blob first: a failed write must not leave a dangling row.
	if err := s.storage.UploadBytes(ctx, blobPath, req.Data, req.ContentType); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to store original: %w", err)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = sqlc.VisibilityTimeline
	}

	asset, err := s.db.CreateAsset(ctx, sqlc.CreateAssetParams{
		ID:               assetID,
		OwnerID:          req.OwnerID,
		Checksum:         checksum,
		OriginalPath:     blobPath,
		OriginalFileName: req.OriginalFileName,
		Type:             typeFromContentType(req.ContentType),
		Visibility:       visibility,
		IsFavorite:       req.IsFavorite,
		DeviceAssetID:    req.DeviceAssetID,
		DeviceID:         req.DeviceID,
		FileCreatedAt:    pgtype.Timestamptz{Time: req.FileCreatedAt, Valid: !req.FileCreatedAt.IsZero()},
		FileModifiedAt:   pgtype.Timestamptz{Time: req.FileModifiedAt, Valid: !req.FileModifiedAt.IsZero()},
		LocalDateTime:    pgtype.Timestamptz{Time: localDateTimeOr(req.LocalDateTime, req.FileCreatedAt), Valid: true},
		Duration:         pgtypeText(req.Duration),
		FileSizeInByte:   size,
		UpdateID:         idgen.NewUUID(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race: another upload of the same bytes won the
			// insert. The blob written above is orphaned and reaped by
			// the cleanup job.
			winner, qerr := s.db.GetAssetByChecksum(ctx, req.OwnerID, pgtype.UUID{}, checksum)
			if qerr != nil {
				span.RecordError(qerr)
				return nil, fmt.Errorf("failed to resolve duplicate race: %w", qerr)
			}
			return &UploadResult{ID: winner.ID, Status: UploadStatusDuplicate}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	// Extraction and derivatives are best-effort: the asset exists
	// regardless, with at least the byte length recorded.
	s.extractAndStoreMetadata(ctx, asset, req.Data)

	if asset.Type == sqlc.AssetTypeImage {
		if err := s.generateImageDerivatives(ctx, asset.OwnerID, asset.ID, req.Data); err != nil {
			s.logger.WithError(err).WithField("asset_id", asset.ID).Warn("derivative generation failed")
		}
	}

	if len(req.Sidecar) > 0 {
		s.attachSidecar(ctx, asset.OwnerID, asset.ID, req.Sidecar)
	}

	if err := s.db.IncrementQuotaUsage(ctx, req.OwnerID, size); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to account quota: %w", err)
	}

	s.uploadCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("owner_id", req.OwnerID.String()),
			attribute.String("type", string(asset.Type)),
		))

	return &UploadResult{ID: asset.ID, Status: UploadStatusCreated}, nil
}

// localDateTimeOr picks the client-supplied local time, falling back
// to the file creation time.
func localDateTimeOr(local, fileCreated time.Time) time.Time {
	if !local.IsZero() {
		return local
	}
	if !fileCreated.IsZero() {
		return fileCreated
	}
	return time.Now()
}

func pgtypeText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func typeFromContentType(contentType string) sqlc.AssetType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return sqlc.AssetTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return sqlc.AssetTypeVideo
	case strings.HasPrefix(contentType, "audio/"):
		return sqlc.AssetTypeAudio
	default:
		return sqlc.AssetTypeOther
	}
}

// extractAndStoreMetadata runs the extractor over the original bytes
// and upserts the exif row. Failures degrade to recording only the
// byte length.
func (s *Service) extractAndStoreMetadata(ctx context.Context, asset sqlc.Asset, data []byte) {
	ctx, span := tracer.Start(ctx, "assets.extract_metadata",
		trace.WithAttributes(attribute.String("asset_id", asset.ID.String())))
	defer span.End()

	exif := sqlc.AssetExif{
		AssetID:          asset.ID,
		FileSizeInByte:   pgtype.Int8{Int64: asset.FileSizeInByte, Valid: true},
		LockedProperties: []string{},
		UpdateID:         idgen.NewUUID(),
	}

	meta, err := s.extractor.Extract(ctx, bytes.NewReader(data), string(asset.Type))
	if err != nil {
		span.RecordError(err)
		s.logger.WithError(err).WithField("asset_id", asset.ID).Debug("metadata extraction failed")
	} else {
		applyExtracted(&exif, meta)
	}

	if err := s.db.UpsertAssetExifOverride(ctx, exif); err != nil {
		span.RecordError(err)
		s.logger.WithError(err).WithField("asset_id", asset.ID).Warn("exif upsert failed")
		return
	}

	if meta != nil && meta.Width != nil && meta.Height != nil {
		if err := s.db.UpdateAssetDimensions(ctx, asset.ID,
			pgtype.Int4{Int32: *meta.Width, Valid: true},
			pgtype.Int4{Int32: *meta.Height, Valid: true},
			nil); err != nil {
			span.RecordError(err)
		}
	}
}

// applyExtracted maps the extractor's normalized record onto exif
// columns.
func applyExtracted(exif *sqlc.AssetExif, meta *ExtractedMetadata) {
	setText := func(dst *pgtype.Text, v *string) {
		if v != nil {
			*dst = pgtype.Text{String: *v, Valid: true}
		}
	}
	setFloat := func(dst *pgtype.Float8, v *float64) {
		if v != nil {
			*dst = pgtype.Float8{Float64: *v, Valid: true}
		}
	}
	setInt := func(dst *pgtype.Int4, v *int32) {
		if v != nil {
			*dst = pgtype.Int4{Int32: *v, Valid: true}
		}
	}

	setText(&exif.Make, meta.Make)
	setText(&exif.Model, meta.Model)
	setText(&exif.LensModel, meta.LensModel)
	setText(&exif.ExposureTime, meta.ExposureTime)
	setText(&exif.Description, meta.Description)
	setInt(&exif.ExifImageWidth, meta.Width)
	setInt(&exif.ExifImageHeight, meta.Height)
	setInt(&exif.Iso, meta.ISO)
	setFloat(&exif.FNumber, meta.FNumber)
	setFloat(&exif.FocalLength, meta.FocalLength)
	setFloat(&exif.Latitude, meta.Latitude)
	setFloat(&exif.Longitude, meta.Longitude)
	if meta.DateTaken != nil {
		exif.DateTimeOriginal = pgtype.Timestamptz{Time: *meta.DateTaken, Valid: true}
	}
}

// generateImageDerivatives produces the thumbnail and preview
// variants, stores them, and records the asset_files rows.
func (s *Service) generateImageDerivatives(ctx context.Context, ownerID, assetID uuid.UUID, data []byte) error {
	ctx, span := tracer.Start(ctx, "assets.generate_derivatives",
		trace.WithAttributes(attribute.String("asset_id", assetID.String())))
	defer span.End()

	variants, err := s.variants.Generate(ctx, bytes.NewReader(data))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to generate variants: %w", err)
	}

	for fileType, variant := range variants {
		variantPath := variantPathFor(ownerID, assetID, fileType)
		if err := s.storage.UploadBytes(ctx, variantPath, variant, "image/webp"); err != nil {
			span.RecordError(err)
			continue
		}
		if _, err := s.db.UpsertAssetFile(ctx, sqlc.UpsertAssetFileParams{
			ID:      idgen.NewUUID(),
			AssetID: assetID,
			Type:    fileType,
			Path:    variantPath,
		}); err != nil {
			span.RecordError(err)
		}
	}
	return nil
}

// attachSidecar stores the .xmp payload next to the original and
// records it as an asset file.
func (s *Service) attachSidecar(ctx context.Context, ownerID, assetID uuid.UUID, sidecar []byte) {
	sidecarPath := sidecarPathFor(ownerID, assetID)
	if err := s.storage.UploadBytes(ctx, sidecarPath, sidecar, "application/xml"); err != nil {
		s.logger.WithError(err).WithField("asset_id", assetID).Warn("sidecar store failed")
		return
	}
	if _, err := s.db.UpsertAssetFile(ctx, sqlc.UpsertAssetFileParams{
		ID:      idgen.NewUUID(),
		AssetID: assetID,
		Type:    sqlc.AssetFileTypeSidecar,
		Path:    sidecarPath,
	}); err != nil {
		s.logger.WithError(err).WithField("asset_id", assetID).Warn("sidecar record failed")
	}
}

// RegenerateDerivatives re-runs variant generation for an existing
// asset from its stored original. Used by the background job queue.
func (s *Service) RegenerateDerivatives(ctx context.Context, assetID uuid.UUID) error {
	asset, err := s.db.GetAssetByID(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to get asset: %w", err)
	}
	if asset.Type != sqlc.AssetTypeImage {
		return nil
	}
	reader, err := s.storage.Download(ctx, asset.OriginalPath)
	if err != nil {
		return fmt.Errorf("failed to download original: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return fmt.Errorf("failed to read original: %w", err)
	}
	return s.generateImageDerivatives(ctx, asset.OwnerID, asset.ID, buf.Bytes())
}

// RefreshMetadata re-runs extraction for an existing asset from its
// stored original. Locked exif fields survive the pass.
func (s *Service) RefreshMetadata(ctx context.Context, assetID uuid.UUID) error {
	asset, err := s.db.GetAssetByID(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to get asset: %w", err)
	}
	reader, err := s.storage.Download(ctx, asset.OriginalPath)
	if err != nil {
		return fmt.Errorf("failed to download original: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return fmt.Errorf("failed to read original: %w", err)
	}
	s.extractAndStoreMetadata(ctx, asset, buf.Bytes())
	return nil
}

// Replace overwrites an asset's original bytes. The checksum, path,
// name, and type follow the new content; live-photo pairing is
// cleared. Usage is incremented by the new size; the prior bytes are
// reclaimed when the old blob is eventually purged.
func (s *Service) Replace(ctx context.Context, req ReplaceRequest) (*AssetResponse, error) {
	ctx, span := tracer.Start(ctx, "assets.replace",
		trace.WithAttributes(attribute.String("asset_id", req.AssetID.String())))
	defer span.End()

	asset, err := s.db.GetAssetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	size := int64(len(req.Data))
	checksum := crypto.SHA1(req.Data)
	blobPath := originalPathFor(asset.OwnerID, asset.ID, req.OriginalFileName)

	if err := s.storage.UploadBytes(ctx, blobPath, req.Data, req.ContentType); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to store replacement: %w", err)
	}

	updated, err := s.db.ReplaceAsset(ctx, sqlc.ReplaceAssetParams{
		ID:               asset.ID,
		Checksum:         checksum,
		OriginalPath:     blobPath,
		OriginalFileName: req.OriginalFileName,
		Type:             typeFromContentType(req.ContentType),
		FileSizeInByte:   size,
		UpdateID:         idgen.NewUUID(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to replace asset: %w", err)
	}

	s.extractAndStoreMetadata(ctx, updated, req.Data)
	if updated.Type == sqlc.AssetTypeImage {
		if err := s.generateImageDerivatives(ctx, updated.OwnerID, updated.ID, req.Data); err != nil {
			s.logger.WithError(err).WithField("asset_id", updated.ID).Warn("derivative regeneration failed")
		}
	}

	if err := s.db.IncrementQuotaUsage(ctx, updated.OwnerID, size); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to account quota: %w", err)
	}

	resp := toAssetResponse(updated)
	return &resp, nil
}

// Exist answers POST /assets/exist: the subset of deviceAssetIds
// already present for the device.
func (s *Service) Exist(ctx context.Context, ownerID uuid.UUID, deviceID string, deviceAssetIDs []string) ([]string, error) {
	if len(deviceAssetIDs) == 0 {
		return nil, nil
	}
	return s.db.ExistingDeviceAssetIDs(ctx, ownerID, deviceID, deviceAssetIDs)
}

// decodeChecksum tolerates hex and base64 encodings of a SHA-1.
func decodeChecksum(s string) ([]byte, error) {
	if len(s) == 40 {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 20 {
		return b, nil
	}
	return nil, fmt.Errorf("assets: malformed checksum %q", s)
}

// BulkUploadCheck answers, per checksum, whether the client should
// upload the content or already has it server-side.
func (s *Service) BulkUploadCheck(ctx context.Context, ownerID uuid.UUID, inputs []BulkUploadCheckInput) ([]BulkUploadCheckResult, error) {
	results := make([]BulkUploadCheckResult, 0, len(inputs))
	for _, in := range inputs {
		checksum, err := decodeChecksum(in.Checksum)
		if err != nil {
			return nil, err
		}
		brief, err := s.db.BulkFindByChecksum(ctx, ownerID, checksum)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				results = append(results, BulkUploadCheckResult{ID: in.ID, Action: BulkUploadCheckAccept})
				continue
			}
			return nil, fmt.Errorf("failed to check checksum: %w", err)
		}
		id := brief.ID
		results = append(results, BulkUploadCheckResult{
			ID:        in.ID,
			Action:    BulkUploadCheckReject,
			Reason:    "duplicate",
			AssetID:   &id,
			IsTrashed: brief.IsTrashed,
		})
	}
	return results, nil
}

// GetAsset returns one asset by id.
func (s *Service) GetAsset(ctx context.Context, assetID uuid.UUID) (*AssetResponse, error) {
	asset, err := s.db.GetAssetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	resp := toAssetResponse(asset)
	return &resp, nil
}

// UpdateAsset applies a single-asset metadata edit. EXIF fields
// written here are locked so extractor passes cannot overwrite them.
func (s *Service) UpdateAsset(ctx context.Context, assetID uuid.UUID, req UpdateAssetRequest) (*AssetResponse, error) {
	ctx, span := tracer.Start(ctx, "assets.update",
		trace.WithAttributes(attribute.String("asset_id", assetID.String())))
	defer span.End()

	params := sqlc.UpdateAssetParams{ID: assetID, UpdateID: idgen.NewUUID()}
	if req.IsFavorite != nil {
		params.IsFavorite = pgtype.Bool{Bool: *req.IsFavorite, Valid: true}
	}
	if req.Visibility != nil {
		params.Visibility = pgtype.Text{String: string(*req.Visibility), Valid: true}
	}

	asset, err := s.db.UpdateAsset(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}

	locked := exifFieldsWritten(req)
	if len(locked) > 0 {
		exifParams := sqlc.UpdateAssetExifUserValuesParams{AssetID: assetID, UpdateID: idgen.NewUUID()}
		if req.DateTimeOriginal != nil {
			exifParams.DateTimeOriginal = pgtype.Timestamptz{Time: *req.DateTimeOriginal, Valid: true}
		}
		if req.TimeZone != nil {
			exifParams.TimeZone = pgtype.Text{String: *req.TimeZone, Valid: true}
		}
		if req.Latitude != nil {
			exifParams.Latitude = pgtype.Float8{Float64: *req.Latitude, Valid: true}
		}
		if req.Longitude != nil {
			exifParams.Longitude = pgtype.Float8{Float64: *req.Longitude, Valid: true}
		}
		if req.Rating != nil {
			exifParams.Rating = pgtype.Int4{Int32: *req.Rating, Valid: true}
		}
		if req.Description != nil {
			exifParams.Description = pgtype.Text{String: *req.Description, Valid: true}
		}
		if err := s.db.UpdateAssetExifUserValues(ctx, exifParams); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to update exif: %w", err)
		}
		if err := s.db.AppendLockedProperties(ctx, assetID, locked, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to lock exif fields: %w", err)
		}
	}

	resp := toAssetResponse(asset)
	return &resp, nil
}

func exifFieldsWritten(req UpdateAssetRequest) []string {
	var fields []string
	if req.DateTimeOriginal != nil {
		fields = append(fields, "dateTimeOriginal")
	}
	if req.TimeZone != nil {
		fields = append(fields, "timeZone")
	}
	if req.Latitude != nil {
		fields = append(fields, "latitude")
	}
	if req.Longitude != nil {
		fields = append(fields, "longitude")
	}
	if req.Rating != nil {
		fields = append(fields, "rating")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	return fields
}

// BulkUpdate applies the same edit to a batch, including the relative
// capture-time shift.
func (s *Service) BulkUpdate(ctx context.Context, req BulkUpdateRequest) error {
	ctx, span := tracer.Start(ctx, "assets.bulk_update",
		trace.WithAttributes(attribute.Int("count", len(req.IDs))))
	defer span.End()

	if len(req.IDs) == 0 {
		return nil
	}

	for _, id := range req.IDs {
		params := sqlc.UpdateAssetParams{ID: id, UpdateID: idgen.NewUUID()}
		if req.IsFavorite != nil {
			params.IsFavorite = pgtype.Bool{Bool: *req.IsFavorite, Valid: true}
		}
		if req.Visibility != nil {
			params.Visibility = pgtype.Text{String: string(*req.Visibility), Valid: true}
		}
		if _, err := s.db.UpdateAsset(ctx, params); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
			return fmt.Errorf("failed to update asset %s: %w", id, err)
		}
	}

	if req.DateTimeRelative != nil && *req.DateTimeRelative != 0 {
		var tz pgtype.Text
		if req.TimeZone != nil {
			tz = pgtype.Text{String: *req.TimeZone, Valid: true}
		}
		if err := s.db.ShiftLocalDateTime(ctx, req.IDs, *req.DateTimeRelative, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to shift local time: %w", err)
		}
		if err := s.db.ShiftExifDateTimeOriginal(ctx, req.IDs, *req.DateTimeRelative, tz, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to shift capture time: %w", err)
		}
	}
	return nil
}

// SoftDeleteAssets trashes the given assets and emits their audit
// tombstones so sync clients see the deletes.
func (s *Service) SoftDeleteAssets(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "assets.soft_delete",
		trace.WithAttributes(attribute.Int("count", len(ids))))
	defer span.End()

	allowed, err := s.db.FilterAssetsOwnedBy(ctx, ownerID, ids)
	if err != nil {
		return fmt.Errorf("failed to verify ownership: %w", err)
	}
	for _, id := range allowed {
		if err := s.db.SoftDeleteAsset(ctx, id, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to trash asset %s: %w", id, err)
		}
		if err := s.db.InsertAuditRow(ctx, "asset_audit", idgen.New(), ownerID, id); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to record deletion of %s: %w", id, err)
		}
	}
	return nil
}

// Statistics returns the owner's active asset counts by type.
func (s *Service) Statistics(ctx context.Context, ownerID uuid.UUID) (*Statistics, error) {
	images, videos, total, err := s.db.AssetStatistics(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}
	return &Statistics{Images: images, Videos: videos, Total: total}, nil
}

// Random returns up to count assets sampled from the caller's visible
// owner set (self plus partners sharing into the timeline).
func (s *Service) Random(ctx context.Context, userID uuid.UUID, count int32) ([]AssetResponse, error) {
	if count <= 0 {
		count = 1
	}
	owners, err := s.db.ListPartnerVisibleUserIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible owners: %w", err)
	}

	rows, err := s.db.RandomAssets(ctx, owners, count)
	if err != nil {
		return nil, fmt.Errorf("failed to sample assets: %w", err)
	}
	out := make([]AssetResponse, len(rows))
	for i, a := range rows {
		out[i] = toAssetResponse(a)
	}
	return out, nil
}

// ByDevice lists the owner's non-deleted assets registered by one
// device.
func (s *Service) ByDevice(ctx context.Context, ownerID uuid.UUID, deviceID string) ([]string, error) {
	rows, err := s.db.AssetsByDevice(ctx, ownerID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device assets: %w", err)
	}
	ids := make([]string, len(rows))
	for i, a := range rows {
		ids[i] = a.DeviceAssetID
	}
	return ids, nil
}

// Search is a plain substring match against original file names.
func (s *Service) Search(ctx context.Context, ownerID uuid.UUID, query string, limit, offset int32) ([]AssetResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.SearchAssets(ctx, ownerID, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}
	out := make([]AssetResponse, len(rows))
	for i, a := range rows {
		out[i] = toAssetResponse(a)
	}
	return out, nil
}

// SetMetadata upserts caller-supplied key/value metadata entries.
func (s *Service) SetMetadata(ctx context.Context, assetID uuid.UUID, entries map[string][]byte) error {
	for key, value := range entries {
		if err := s.db.UpsertAssetMetadata(ctx, assetID, key, value); err != nil {
			return fmt.Errorf("failed to set metadata %q: %w", key, err)
		}
	}
	return nil
}

// GetMetadata returns one metadata value by key.
func (s *Service) GetMetadata(ctx context.Context, assetID uuid.UUID, key string) ([]byte, error) {
	value, err := s.db.GetAssetMetadata(ctx, assetID, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	return value, nil
}

// ListMetadata returns all metadata entries for an asset.
func (s *Service) ListMetadata(ctx context.Context, assetID uuid.UUID) ([]sqlc.AssetMetadataEntry, error) {
	return s.db.ListAssetMetadata(ctx, assetID)
}

// DeleteMetadata removes one metadata entry by key.
func (s *Service) DeleteMetadata(ctx context.Context, assetID uuid.UUID, key string) error {
	return s.db.DeleteAssetMetadata(ctx, assetID, key)
}

func toAssetResponse(a sqlc.Asset) AssetResponse {
	resp := AssetResponse{
		ID:               a.ID,
		OwnerID:          a.OwnerID,
		DeviceAssetID:    a.DeviceAssetID,
		DeviceID:         a.DeviceID,
		Type:             a.Type,
		Visibility:       a.Visibility,
		OriginalPath:     a.OriginalPath,
		OriginalFileName: a.OriginalFileName,
		IsFavorite:       a.IsFavorite,
		IsTrashed:        a.Status == sqlc.AssetStatusTrashed,
		Checksum:         base64.StdEncoding.EncodeToString(a.Checksum),
	}
	if len(a.Thumbhash) > 0 {
		th := base64.StdEncoding.EncodeToString(a.Thumbhash)
		resp.Thumbhash = &th
	}
	if a.FileCreatedAt.Valid {
		resp.FileCreatedAt = a.FileCreatedAt.Time
	}
	if a.FileModifiedAt.Valid {
		resp.FileModifiedAt = a.FileModifiedAt.Time
	}
	if a.LocalDateTime.Valid {
		resp.LocalDateTime = a.LocalDateTime.Time
	}
	if a.UpdatedAt.Valid {
		resp.UpdatedAt = a.UpdatedAt.Time
	}
	if a.Duration.Valid {
		resp.Duration = a.Duration.String
	}
	if a.LivePhotoVideoID.Valid {
		id := uuid.UUID(a.LivePhotoVideoID.Bytes)
		resp.LivePhotoVideoID = &id
	}
	if a.StackID.Valid {
		id := uuid.UUID(a.StackID.Bytes)
		resp.StackID = &id
	}
	if a.Width.Valid {
		w := a.Width.Int32
		resp.Width = &w
	}
	if a.Height.Valid {
		h := a.Height.Int32
		resp.Height = &h
	}
	return resp
}
