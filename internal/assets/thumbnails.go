package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// Derivative sizing: thumbnails are square crops for grid cells,
// previews cap the longest edge for full-screen viewing.
const (
	thumbnailEdge  = 250
	previewMaxEdge = 1440
	previewQuality = 80
)

// VariantGenerator produces the thumbnail and preview derivatives of
// an original image.
type VariantGenerator struct{}

func NewVariantGenerator() *VariantGenerator {
	return &VariantGenerator{}
}

// variantPathFor derives the blob key for a stored derivative.
func variantPathFor(ownerID, assetID uuid.UUID, fileType sqlc.AssetFileType) string {
	return fmt.Sprintf("thumbs/%s/%s/%s.webp", ownerID, assetID, fileType)
}

// Generate decodes the original once and produces both derivatives.
// A failed variant is skipped rather than failing the set.
func (g *VariantGenerator) Generate(ctx context.Context, reader io.Reader) (map[sqlc.AssetFileType][]byte, error) {
	_, span := tracer.Start(ctx, "variants.generate")
	defer span.End()

	img, format, err := image.Decode(reader)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	span.SetAttributes(
		attribute.String("original_format", format),
		attribute.Int("original_width", img.Bounds().Dx()),
		attribute.Int("original_height", img.Bounds().Dy()),
	)

	out := make(map[sqlc.AssetFileType][]byte, 2)

	if data, err := g.thumbnail(img); err == nil {
		out[sqlc.AssetFileTypeThumbnail] = data
	} else {
		span.RecordError(err)
	}
	if data, err := g.preview(img); err == nil {
		out[sqlc.AssetFileTypePreview] = data
	} else {
		span.RecordError(err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no variants produced")
	}
	return out, nil
}

// thumbnail is a center-cropped square for grid rendering.
func (g *VariantGenerator) thumbnail(img image.Image) ([]byte, error) {
	resized := imaging.Fill(img, thumbnailEdge, thumbnailEdge, imaging.Center, imaging.Lanczos)
	return encodeVariant(resized, previewQuality)
}

// preview caps the longest edge, preserving aspect ratio. Images
// already small enough pass through unresized.
func (g *VariantGenerator) preview(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	resized := img
	if bounds.Dx() > previewMaxEdge || bounds.Dy() > previewMaxEdge {
		if bounds.Dx() >= bounds.Dy() {
			resized = imaging.Resize(img, previewMaxEdge, 0, imaging.Lanczos)
		} else {
			resized = imaging.Resize(img, 0, previewMaxEdge, imaging.Lanczos)
		}
	}
	return encodeVariant(resized, previewQuality)
}

// encodeVariant writes the derivative payload. The stdlib has no webp
// encoder, so derivatives are JPEG-encoded under their .webp keys,
// which every consumer sniffs by content rather than extension.
func encodeVariant(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}
	return buf.Bytes(), nil
}
