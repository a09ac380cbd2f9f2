//go:build integration

package assets

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/db/testdb"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/storage"
)

func newTestStorage(t *testing.T) *storage.Service {
	t.Helper()
	cfg := storage.GetDefaultStorageConfig()
	cfg.Local.RootPath = t.TempDir()
	svc, err := storage.NewService(cfg)
	require.NoError(t, err)
	return svc
}

func newTestService(t *testing.T, tdb *testdb.TestDB) *Service {
	t.Helper()
	svc, err := NewService(tdb.Queries, newTestStorage(t))
	require.NoError(t, err)
	return svc
}

func createUser(t *testing.T, tdb *testdb.TestDB, email string, quota int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	user, err := tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "hashedpassword",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	if quota > 0 {
		_, err = tdb.Queries.UpdateUser(ctx, sqlc.UpdateUserParams{
			ID:               user.ID,
			QuotaSizeInBytes: pgtype.Int8{Int64: quota, Valid: true},
		})
		require.NoError(t, err)
	}
	return user.ID
}

func pngUpload(t *testing.T, ownerID uuid.UUID, name string, data []byte) UploadRequest {
	t.Helper()
	return UploadRequest{
		OwnerID:          ownerID,
		DeviceAssetID:    name,
		DeviceID:         "test-device",
		OriginalFileName: name + ".png",
		ContentType:      "image/png",
		Data:             data,
	}
}

func TestIntegration_UploadCreatesExactlyOneAssetPerContent(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "upload@test.com", 0)
	data := testPNG(t, 40, 30)

	first, err := service.Upload(ctx, pngUpload(t, userID, "dup", data))
	require.NoError(t, err)
	assert.Equal(t, UploadStatusCreated, first.Status)

	// Same bytes again: the original row wins, usage stays at one copy.
	second, err := service.Upload(ctx, pngUpload(t, userID, "dup-again", data))
	require.NoError(t, err)
	assert.Equal(t, UploadStatusDuplicate, second.Status)
	assert.Equal(t, first.ID, second.ID)

	_, usage, err := tdb.Queries.GetUserQuota(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), usage)
}

func TestIntegration_UploadChecksumHintShortCircuits(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "hint@test.com", 0)
	data := testPNG(t, 20, 20)

	first, err := service.Upload(ctx, pngUpload(t, userID, "hinted", data))
	require.NoError(t, err)

	asset, err := tdb.Queries.GetAssetByID(ctx, first.ID)
	require.NoError(t, err)

	req := pngUpload(t, userID, "hinted-2", nil)
	req.ChecksumHint = asset.Checksum
	second, err := service.Upload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, UploadStatusDuplicate, second.Status)
	assert.Equal(t, first.ID, second.ID)
}

func TestIntegration_UploadQuotaExceeded(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	data := testPNG(t, 100, 100)
	userID := createUser(t, tdb, "quota@test.com", int64(len(data))-1)

	_, err := service.Upload(ctx, pngUpload(t, userID, "toolarge", data))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, usage, err := tdb.Queries.GetUserQuota(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, usage)
}

func TestIntegration_UploadStoresBlobAndDerivatives(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	store := newTestStorage(t)
	service, err := NewService(tdb.Queries, store)
	require.NoError(t, err)

	userID := createUser(t, tdb, "blob@test.com", 0)
	data := testPNG(t, 600, 400)

	result, err := service.Upload(ctx, pngUpload(t, userID, "stored", data))
	require.NoError(t, err)

	asset, err := tdb.Queries.GetAssetByID(ctx, result.ID)
	require.NoError(t, err)

	// Round trip: stored bytes equal the uploaded bytes.
	reader, err := store.Download(ctx, asset.OriginalPath)
	require.NoError(t, err)
	stored, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	files, err := tdb.Queries.ListAssetFiles(ctx, result.ID)
	require.NoError(t, err)
	types := make(map[sqlc.AssetFileType]bool)
	for _, f := range files {
		types[f.Type] = true
	}
	assert.True(t, types[sqlc.AssetFileTypeThumbnail])
	assert.True(t, types[sqlc.AssetFileTypePreview])

	exif, err := tdb.Queries.GetAssetExif(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), exif.FileSizeInByte.Int64)
}

func TestIntegration_ServeOriginalRoundTrip(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "download@test.com", 0)
	data := testPNG(t, 50, 50)

	result, err := service.Upload(ctx, pngUpload(t, userID, "roundtrip", data))
	require.NoError(t, err)

	stream, err := service.ServeOriginal(ctx, result.ID, false)
	require.NoError(t, err)
	body, err := io.ReadAll(stream.Body)
	stream.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, data, body)
	assert.Contains(t, stream.ContentDisposition, "roundtrip.png")
}

func TestIntegration_VideoPlaybackRangeFidelity(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "video@test.com", 0)

	// Synthetic payload; playback never inspects codec structure.
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	req := pngUpload(t, userID, "clip", data)
	req.OriginalFileName = "clip.mp4"
	req.ContentType = "video/mp4"

	result, err := service.Upload(ctx, req)
	require.NoError(t, err)

	t.Run("partial range", func(t *testing.T) {
		out, err := service.VideoPlayback(ctx, result.ID, "bytes=100-199")
		require.NoError(t, err)
		defer out.Body.Close()

		assert.True(t, out.Partial)
		assert.Equal(t, int64(100), out.Start)
		assert.Equal(t, int64(199), out.End)
		assert.Equal(t, int64(1000), out.Total)

		body, err := io.ReadAll(out.Body)
		require.NoError(t, err)
		assert.Equal(t, data[100:200], body)
	})

	t.Run("no range header", func(t *testing.T) {
		out, err := service.VideoPlayback(ctx, result.ID, "")
		require.NoError(t, err)
		defer out.Body.Close()

		assert.False(t, out.Partial)
		body, err := io.ReadAll(out.Body)
		require.NoError(t, err)
		assert.Equal(t, data, body)
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		_, err := service.VideoPlayback(ctx, result.ID, "bytes=5000-")
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestIntegration_ReplaceSwapsContent(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "replace@test.com", 0)
	original := testPNG(t, 30, 30)
	replacement := testPNG(t, 60, 60)

	created, err := service.Upload(ctx, pngUpload(t, userID, "replaceme", original))
	require.NoError(t, err)

	before, err := tdb.Queries.GetAssetByID(ctx, created.ID)
	require.NoError(t, err)

	updated, err := service.Replace(ctx, ReplaceRequest{
		AssetID:          created.ID,
		OriginalFileName: "replaced.png",
		ContentType:      "image/png",
		Data:             replacement,
	})
	require.NoError(t, err)
	assert.Equal(t, "replaced.png", updated.OriginalFileName)

	after, err := tdb.Queries.GetAssetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before.Checksum, after.Checksum)
	assert.False(t, after.LivePhotoVideoID.Valid)
	assert.Equal(t, int64(len(replacement)), after.FileSizeInByte)
}

func TestIntegration_SoftDeleteEmitsAuditAndExist(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "delete@test.com", 0)
	created, err := service.Upload(ctx, pngUpload(t, userID, "deleteme", testPNG(t, 10, 10)))
	require.NoError(t, err)

	require.NoError(t, service.SoftDeleteAssets(ctx, userID, []uuid.UUID{created.ID}))

	asset, err := tdb.Queries.GetAssetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, sqlc.AssetStatusTrashed, asset.Status)

	// The tombstone is visible to the sync engine's delete scan.
	tombstones, err := tdb.Queries.ScanAssetsAuditDelete(ctx, userID, "")
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, created.ID, tombstones[0].EntityID)
}

func TestIntegration_ExistAndBulkUploadCheck(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "exist@test.com", 0)
	created, err := service.Upload(ctx, pngUpload(t, userID, "present", testPNG(t, 15, 15)))
	require.NoError(t, err)

	existing, err := service.Exist(ctx, userID, "test-device", []string{"present", "absent"})
	require.NoError(t, err)
	assert.Equal(t, []string{"present"}, existing)

	asset, err := tdb.Queries.GetAssetByID(ctx, created.ID)
	require.NoError(t, err)

	results, err := service.BulkUploadCheck(ctx, userID, []BulkUploadCheckInput{
		{ID: "1", Checksum: hexChecksum(asset.Checksum)},
		{ID: "2", Checksum: "00112233445566778899aabbccddeeff00112233"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, BulkUploadCheckReject, results[0].Action)
	assert.Equal(t, created.ID, *results[0].AssetID)
	assert.Equal(t, BulkUploadCheckAccept, results[1].Action)
}

func hexChecksum(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, hexDigits[c>>4], hexDigits[c&0x0f])
	}
	return string(out)
}

func TestIntegration_StatisticsCountsByType(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "stats@test.com", 0)
	_, err := service.Upload(ctx, pngUpload(t, userID, "img1", testPNG(t, 10, 10)))
	require.NoError(t, err)
	_, err = service.Upload(ctx, pngUpload(t, userID, "img2", testPNG(t, 11, 11)))
	require.NoError(t, err)

	vid := pngUpload(t, userID, "vid", []byte("video-bytes"))
	vid.OriginalFileName = "vid.mp4"
	vid.ContentType = "video/mp4"
	_, err = service.Upload(ctx, vid)
	require.NoError(t, err)

	stats, err := service.Statistics(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Images)
	assert.Equal(t, int64(1), stats.Videos)
	assert.Equal(t, int64(3), stats.Total)
}

func TestIntegration_UpdateAssetLocksExifFields(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	userID := createUser(t, tdb, "lock@test.com", 0)
	created, err := service.Upload(ctx, pngUpload(t, userID, "lockme", testPNG(t, 10, 10)))
	require.NoError(t, err)

	desc := "user-written caption"
	fav := true
	_, err = service.UpdateAsset(ctx, created.ID, UpdateAssetRequest{
		IsFavorite:  &fav,
		Description: &desc,
	})
	require.NoError(t, err)

	exif, err := tdb.Queries.GetAssetExif(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, desc, exif.Description.String)
	assert.Contains(t, exif.LockedProperties, "description")

	// A later extractor pass must not clobber the locked field.
	require.NoError(t, service.RefreshMetadata(ctx, created.ID))
	exif, err = tdb.Queries.GetAssetExif(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, desc, exif.Description.String)
}

func TestIntegration_GetAssetNotFound(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := newTestService(t, tdb)

	_, err := service.GetAsset(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tdb.Queries.GetAssetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
