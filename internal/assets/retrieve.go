package assets

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// Originals are content-addressed and never change under a given key,
// so clients may cache them indefinitely.
const immutableCacheControl = "private, max-age=31536000, immutable"

// webFriendlyImage reports whether browsers can render the original
// directly, which lets the fullsize policy redirect instead of
// transcoding.
func webFriendlyImage(originalPath string) bool {
	switch strings.ToLower(path.Ext(originalPath)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return true
	}
	return false
}

func contentTypeFor(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// downloadFileName preserves the client's base name but follows the
// stored blob's extension (a replace may have changed the format).
func downloadFileName(originalFileName, blobPath string) string {
	base := strings.TrimSuffix(path.Base(originalFileName), path.Ext(originalFileName))
	return base + path.Ext(blobPath)
}

// ServeOriginal streams the asset's original bytes, or the edited
// fullsize variant when edited is set and one exists.
func (s *Service) ServeOriginal(ctx context.Context, assetID uuid.UUID, edited bool) (*BlobStream, error) {
	ctx, span := tracer.Start(ctx, "assets.serve_original",
		trace.WithAttributes(
			attribute.String("asset_id", assetID.String()),
			attribute.Bool("edited", edited),
		))
	defer span.End()

	asset, err := s.db.GetAssetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	blobPath := asset.OriginalPath
	if edited {
		if f, err := s.db.GetAssetFile(ctx, assetID, sqlc.AssetFileTypeFullsize, true); err == nil {
			blobPath = f.Path
		}
	}

	body, err := s.storage.Download(ctx, blobPath)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to download original: %w", err)
	}

	s.downloadCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", string(asset.Type))))

	return &BlobStream{
		Body:               body,
		ContentType:        contentTypeFor(blobPath),
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", downloadFileName(asset.OriginalFileName, blobPath)),
		CacheControl:       immutableCacheControl,
	}, nil
}

// Thumbnail resolves the derivative for the requested size. For
// fullsize without a stored variant, web-renderable originals
// redirect to the original route and everything else falls back to
// the preview.
func (s *Service) Thumbnail(ctx context.Context, assetID uuid.UUID, size ThumbnailSize, edited bool) (*ThumbnailOutcome, error) {
	ctx, span := tracer.Start(ctx, "assets.thumbnail",
		trace.WithAttributes(
			attribute.String("asset_id", assetID.String()),
			attribute.String("size", string(size)),
		))
	defer span.End()

	asset, err := s.db.GetAssetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	var fileType sqlc.AssetFileType
	switch size {
	case ThumbnailSizeThumbnail:
		fileType = sqlc.AssetFileTypeThumbnail
	case ThumbnailSizePreview:
		fileType = sqlc.AssetFileTypePreview
	case ThumbnailSizeFullsize:
		fileType = sqlc.AssetFileTypeFullsize
	default:
		return nil, fmt.Errorf("assets: unsupported thumbnail size %q", size)
	}

	file, err := s.db.GetAssetFile(ctx, assetID, fileType, edited)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to resolve derivative: %w", err)
		}
		if size != ThumbnailSizeFullsize {
			return nil, ErrNotFound
		}
		// No stored fullsize: browsers can render some originals
		// directly, everything else degrades to the preview.
		if webFriendlyImage(asset.OriginalPath) {
			return &ThumbnailOutcome{Kind: ThumbnailRedirectOriginal}, nil
		}
		return &ThumbnailOutcome{Kind: ThumbnailRedirectPreview}, nil
	}

	body, err := s.storage.Download(ctx, file.Path)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to download derivative: %w", err)
	}

	return &ThumbnailOutcome{
		Kind:         ThumbnailServe,
		Body:         body,
		ContentType:  contentTypeFor(file.Path),
		CacheControl: immutableCacheControl,
	}, nil
}

// ErrInvalidRange is returned for unsatisfiable or malformed Range
// headers; the HTTP layer maps it to 416.
var ErrInvalidRange = errors.New("assets: invalid byte range")

// parseByteRange parses "bytes=a-b" against an object of the given
// size. An empty end means "to the end"; a suffix range "bytes=-n"
// means the last n bytes.
func parseByteRange(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, ErrInvalidRange
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, ErrInvalidRange
	}

	if startStr == "" {
		// Suffix range: last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, ErrInvalidRange
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, ErrInvalidRange
	}
	if endStr == "" {
		return start, size - 1, nil
	}
	end, err = strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return 0, 0, ErrInvalidRange
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}

// VideoPlayback streams the asset's video bytes, honoring a Range
// header when one is given.
func (s *Service) VideoPlayback(ctx context.Context, assetID uuid.UUID, rangeHeader string) (*RangeResult, error) {
	ctx, span := tracer.Start(ctx, "assets.video_playback",
		trace.WithAttributes(
			attribute.String("asset_id", assetID.String()),
			attribute.String("range", rangeHeader),
		))
	defer span.End()

	asset, err := s.db.GetAssetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	// An encoded (transcoded) rendition takes precedence when one was
	// produced; otherwise the original plays directly.
	blobPath := asset.OriginalPath
	if f, err := s.db.GetAssetFile(ctx, assetID, sqlc.AssetFileTypeFullsize, false); err == nil && asset.Type == sqlc.AssetTypeVideo {
		blobPath = f.Path
	}

	size, err := s.storage.GetSize(ctx, blobPath)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stat video: %w", err)
	}

	if rangeHeader == "" {
		body, err := s.storage.Download(ctx, blobPath)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to download video: %w", err)
		}
		return &RangeResult{
			Body:        body,
			Partial:     false,
			Start:       0,
			End:         size - 1,
			Total:       size,
			ContentType: contentTypeFor(blobPath),
		}, nil
	}

	start, end, err := parseByteRange(rangeHeader, size)
	if err != nil {
		return nil, err
	}

	body, err := s.storage.DownloadRange(ctx, blobPath, start, end-start+1)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to download video range: %w", err)
	}

	return &RangeResult{
		Body:        body,
		Partial:     true,
		Start:       start,
		End:         end,
		Total:       size,
		ContentType: contentTypeFor(blobPath),
	}, nil
}
