package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

func TestParseByteRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{"full explicit", "bytes=0-99", 100, 0, 99, false},
		{"middle", "bytes=10-19", 100, 10, 19, false},
		{"open end", "bytes=50-", 100, 50, 99, false},
		{"suffix", "bytes=-10", 100, 90, 99, false},
		{"end clamped to size", "bytes=90-150", 100, 90, 99, false},
		{"suffix larger than object", "bytes=-500", 100, 0, 99, false},
		{"start past end of object", "bytes=100-", 100, 0, 0, true},
		{"inverted", "bytes=20-10", 100, 0, 0, true},
		{"multi-range unsupported", "bytes=0-1,5-6", 100, 0, 0, true},
		{"not a range header", "items=0-1", 100, 0, 0, true},
		{"garbage", "bytes=abc-def", 100, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseByteRange(tt.header, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestDecodeChecksum(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 20)

	t.Run("hex", func(t *testing.T) {
		got, err := decodeChecksum("abababababababababababababababababababab")
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("base64", func(t *testing.T) {
		got, err := decodeChecksum("q6urq6urq6urq6urq6urq6urq6s=")
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := decodeChecksum("zz")
		assert.Error(t, err)
	})
}

func TestTypeFromContentType(t *testing.T) {
	assert.Equal(t, sqlc.AssetTypeImage, typeFromContentType("image/jpeg"))
	assert.Equal(t, sqlc.AssetTypeVideo, typeFromContentType("video/mp4"))
	assert.Equal(t, sqlc.AssetTypeAudio, typeFromContentType("audio/mpeg"))
	assert.Equal(t, sqlc.AssetTypeOther, typeFromContentType("application/pdf"))
	assert.Equal(t, sqlc.AssetTypeOther, typeFromContentType(""))
}

func TestOriginalPathFor(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	asset := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	got := originalPathFor(owner, asset, "IMG_0001.JPG")
	assert.Equal(t,
		"upload/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/original.jpg",
		got)

	noExt := originalPathFor(owner, asset, "raw-bytes")
	assert.Equal(t,
		"upload/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/original",
		noExt)
}

func TestDownloadFileName(t *testing.T) {
	// The stored blob's extension wins over the client's.
	assert.Equal(t, "holiday.png", downloadFileName("holiday.jpg", "upload/u/a/original.png"))
	assert.Equal(t, "holiday.jpg", downloadFileName("holiday.jpg", "upload/u/a/original.jpg"))
	assert.Equal(t, "clip.mp4", downloadFileName("clip.mov", "upload/u/a/original.mp4"))
}

func TestWebFriendlyImage(t *testing.T) {
	assert.True(t, webFriendlyImage("upload/u/a/original.jpg"))
	assert.True(t, webFriendlyImage("upload/u/a/original.PNG"))
	assert.True(t, webFriendlyImage("upload/u/a/original.webp"))
	assert.True(t, webFriendlyImage("upload/u/a/original.gif"))
	assert.False(t, webFriendlyImage("upload/u/a/original.heic"))
	assert.False(t, webFriendlyImage("upload/u/a/original.cr2"))
}

func TestVariantPathFor(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	asset := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t,
		"thumbs/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/thumbnail.webp",
		variantPathFor(owner, asset, sqlc.AssetFileTypeThumbnail))
	assert.Equal(t,
		"thumbs/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/preview.webp",
		variantPathFor(owner, asset, sqlc.AssetFileTypePreview))
}

// testPNG renders a small gradient image for variant tests.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestVariantGenerator(t *testing.T) {
	g := NewVariantGenerator()

	t.Run("produces both variants", func(t *testing.T) {
		variants, err := g.Generate(context.Background(), bytes.NewReader(testPNG(t, 2000, 1000)))
		require.NoError(t, err)
		require.Contains(t, variants, sqlc.AssetFileTypeThumbnail)
		require.Contains(t, variants, sqlc.AssetFileTypePreview)

		thumb, _, err := image.Decode(bytes.NewReader(variants[sqlc.AssetFileTypeThumbnail]))
		require.NoError(t, err)
		assert.Equal(t, thumbnailEdge, thumb.Bounds().Dx())
		assert.Equal(t, thumbnailEdge, thumb.Bounds().Dy())

		preview, _, err := image.Decode(bytes.NewReader(variants[sqlc.AssetFileTypePreview]))
		require.NoError(t, err)
		assert.Equal(t, previewMaxEdge, preview.Bounds().Dx())
	})

	t.Run("small image passes through preview unresized", func(t *testing.T) {
		variants, err := g.Generate(context.Background(), bytes.NewReader(testPNG(t, 300, 200)))
		require.NoError(t, err)

		preview, _, err := image.Decode(bytes.NewReader(variants[sqlc.AssetFileTypePreview]))
		require.NoError(t, err)
		assert.Equal(t, 300, preview.Bounds().Dx())
		assert.Equal(t, 200, preview.Bounds().Dy())
	})

	t.Run("rejects non-image bytes", func(t *testing.T) {
		_, err := g.Generate(context.Background(), bytes.NewReader([]byte("not an image")))
		assert.Error(t, err)
	})
}

func TestExtractMetadataToleratesExiflessImages(t *testing.T) {
	e := NewMetadataExtractor()

	meta, err := e.Extract(context.Background(), bytes.NewReader(testPNG(t, 10, 10)), "IMAGE")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Nil(t, meta.Make)
	assert.Nil(t, meta.DateTaken)
}

func TestExifFieldsWritten(t *testing.T) {
	lat := 1.0
	desc := "x"
	rating := int32(5)

	assert.Empty(t, exifFieldsWritten(UpdateAssetRequest{}))
	assert.ElementsMatch(t,
		[]string{"latitude", "description", "rating"},
		exifFieldsWritten(UpdateAssetRequest{Latitude: &lat, Description: &desc, Rating: &rating}))
}
