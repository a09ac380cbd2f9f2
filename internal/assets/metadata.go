package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("immich-go-backend/assets")

// ExtractedMetadata is the extractor's normalized record; nil fields
// were absent from the source.
type ExtractedMetadata struct {
	DateTaken *time.Time

	Width    *int32
	Height   *int32
	Duration *float64 // seconds

	Make      *string
	Model     *string
	LensModel *string

	FNumber      *float64
	FocalLength  *float64
	ISO          *int32
	ExposureTime *string

	Latitude  *float64
	Longitude *float64

	Description *string
}

// MetadataExtractor pulls EXIF from images and, when ffprobe is on
// the path, stream metadata from videos.
type MetadataExtractor struct{}

// NewMetadataExtractor creates a new metadata extractor
func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

// Extract reads metadata from the original bytes. Missing or
// unparseable metadata is not an error; the returned record is simply
// sparser.
func (e *MetadataExtractor) Extract(ctx context.Context, reader io.Reader, assetType string) (*ExtractedMetadata, error) {
	ctx, span := tracer.Start(ctx, "metadata.extract",
		trace.WithAttributes(attribute.String("asset_type", assetType)))
	defer span.End()

	meta := &ExtractedMetadata{}

	switch assetType {
	case "IMAGE":
		if err := e.extractImage(ctx, reader, meta); err != nil {
			span.RecordError(err)
			return meta, err
		}
	case "VIDEO":
		if err := e.extractVideo(ctx, reader, meta); err != nil {
			span.RecordError(err)
			return meta, err
		}
	}
	return meta, nil
}

// extractImage pulls EXIF tags out of an image.
func (e *MetadataExtractor) extractImage(ctx context.Context, reader io.Reader, meta *ExtractedMetadata) error {
	_, span := tracer.Start(ctx, "metadata.extract_image")
	defer span.End()

	x, err := exif.Decode(reader)
	if err != nil {
		// Plenty of images carry no EXIF block at all.
		span.SetAttributes(attribute.Bool("has_exif", false))
		return nil
	}
	span.SetAttributes(attribute.Bool("has_exif", true))

	if tag, err := x.Get(exif.Make); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.Make = &v
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.Model = &v
		}
	}
	if tag, err := x.Get(exif.LensModel); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.LensModel = &v
		}
	}

	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.Width = clampInt32(v)
		}
	}
	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.Height = clampInt32(v)
		}
	}

	if tag, err := x.Get(exif.FNumber); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			v := float64(num) / float64(denom)
			meta.FNumber = &v
		}
	}
	if tag, err := x.Get(exif.FocalLength); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			v := float64(num) / float64(denom)
			meta.FocalLength = &v
		}
	}
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.ISO = clampInt32(v)
		}
	}
	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.ExposureTime = &v
		}
	}

	if lat, lon, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &lon
	}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if v, err := tag.StringVal(); err == nil {
			if t, err := time.Parse("2006:01:02 15:04:05", v); err == nil {
				meta.DateTaken = &t
			}
		}
	}

	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.Description = &v
		}
	}

	return nil
}

func clampInt32(v int) *int32 {
	if v > 2147483647 {
		v = 2147483647
	}
	out := int32(v)
	return &out
}

// ffprobeOutput represents the JSON output from ffprobe
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

type ffprobeFormat struct {
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// extractVideo shells out to ffprobe. Without ffprobe on the path the
// video simply gets no stream metadata.
func (e *MetadataExtractor) extractVideo(ctx context.Context, reader io.Reader, meta *ExtractedMetadata) error {
	_, span := tracer.Start(ctx, "metadata.extract_video")
	defer span.End()

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		span.SetAttributes(attribute.String("status", "ffprobe_not_found"))
		return nil
	}

	// ffprobe wants a seekable input, so spool to a temp file.
	tmpFile, err := os.CreateTemp("", "video-metadata-*.tmp")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := io.Copy(tmpFile, reader); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	tmpFile.Close()

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		tmpFile.Name(),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("stderr", stderr.String()))
		return fmt.Errorf("ffprobe failed: %w", err)
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &probeData); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, stream := range probeData.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if stream.Width > 0 {
			w := int32(stream.Width)
			meta.Width = &w
		}
		if stream.Height > 0 {
			h := int32(stream.Height)
			meta.Height = &h
		}
		if stream.Duration != "" {
			if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				meta.Duration = &dur
			}
		}
		span.SetAttributes(
			attribute.Int("width", stream.Width),
			attribute.Int("height", stream.Height),
			attribute.String("codec", stream.CodecName),
		)
		break
	}

	if probeData.Format.Duration != "" && meta.Duration == nil {
		if dur, err := strconv.ParseFloat(probeData.Format.Duration, 64); err == nil {
			meta.Duration = &dur
		}
	}

	if probeData.Format.Tags != nil {
		dateFields := []string{"creation_time", "date", "com.apple.quicktime.creationdate"}
		for _, field := range dateFields {
			dateStr, ok := probeData.Format.Tags[field]
			if !ok {
				continue
			}
			for _, layout := range []string{
				time.RFC3339,
				"2006-01-02T15:04:05.000000Z",
				"2006-01-02T15:04:05Z",
				"2006-01-02 15:04:05",
			} {
				if t, err := time.Parse(layout, dateStr); err == nil {
					meta.DateTaken = &t
					break
				}
			}
			if meta.DateTaken != nil {
				break
			}
		}

		if v, ok := probeData.Format.Tags["com.apple.quicktime.make"]; ok {
			meta.Make = &v
		}
		if v, ok := probeData.Format.Tags["com.apple.quicktime.model"]; ok {
			meta.Model = &v
		}
		if v, ok := probeData.Format.Tags["com.apple.quicktime.location.ISO6709"]; ok {
			lat, lon := parseISO6709Location(v)
			if lat != 0 || lon != 0 {
				meta.Latitude = &lat
				meta.Longitude = &lon
			}
		}
	}

	return nil
}

// parseISO6709Location parses ISO 6709 location string (e.g., "+37.7749-122.4194/")
func parseISO6709Location(s string) (lat, lon float64) {
	s = strings.TrimSuffix(s, "/")

	// Find the second sign (start of longitude)
	secondSignIdx := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			secondSignIdx = i
			break
		}
	}

	if secondSignIdx == -1 {
		return 0, 0
	}

	latStr := s[:secondSignIdx]
	lonStr := s[secondSignIdx:]

	lat, _ = strconv.ParseFloat(latStr, 64)
	lon, _ = strconv.ParseFloat(lonStr, 64)

	return lat, lon
}
