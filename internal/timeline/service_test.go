//go:build integration

package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/db/testdb"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

func createTestUser(t *testing.T, tdb *testdb.TestDB, email string) uuid.UUID {
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
	return user.ID
}

func createAssetAt(t *testing.T, tdb *testdb.TestDB, ownerID uuid.UUID, name string, localTime time.Time) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := idgen.NewUUID()
	_, err := tdb.Queries.CreateAsset(ctx, sqlc.CreateAssetParams{
		ID:               id,
		OwnerID:          ownerID,
		Checksum:         []byte("checksum-" + name),
		OriginalPath:     "upload/" + ownerID.String() + "/" + id.String() + "/original.jpg",
		OriginalFileName: name + ".jpg",
		Type:             sqlc.AssetTypeImage,
		Visibility:       sqlc.VisibilityTimeline,
		DeviceAssetID:    name,
		DeviceID:         "test-device",
		FileCreatedAt:    pgtype.Timestamptz{Time: localTime, Valid: true},
		FileModifiedAt:   pgtype.Timestamptz{Time: localTime, Valid: true},
		LocalDateTime:    pgtype.Timestamptz{Time: localTime, Valid: true},
		FileSizeInByte:   100,
		UpdateID:         idgen.NewUUID(),
	})
	require.NoError(t, err)
	return id
}

func mustService(t *testing.T, tdb *testdb.TestDB) *Service {
	t.Helper()
	service, err := NewService(tdb.Queries)
	require.NoError(t, err)
	return service
}

func TestIntegration_TimeBucketsGroupByMonth(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "buckets@test.com")
	jan := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)

	createAssetAt(t, tdb, userID, "jan1", jan)
	createAssetAt(t, tdb, userID, "jan2", jan.Add(24*time.Hour))
	createAssetAt(t, tdb, userID, "feb1", feb)

	buckets, err := service.GetTimeBuckets(ctx, TimeBucketsRequest{UserID: userID})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// Default order is newest bucket first.
	assert.Equal(t, "2024-02-01", buckets[0].TimeBucket)
	assert.Equal(t, int64(1), buckets[0].Count)
	assert.Equal(t, "2024-01-01", buckets[1].TimeBucket)
	assert.Equal(t, int64(2), buckets[1].Count)

	ascending, err := service.GetTimeBuckets(ctx, TimeBucketsRequest{UserID: userID, Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", ascending[0].TimeBucket)
}

func TestIntegration_TimeBucketColumnarExpansion(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "bucketexpand@test.com")
	month := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	a1 := createAssetAt(t, tdb, userID, "inbucket1", month)
	a2 := createAssetAt(t, tdb, userID, "inbucket2", month.Add(time.Hour))
	createAssetAt(t, tdb, userID, "otherbucket", month.AddDate(0, 1, 0))

	resp, err := service.GetTimeBucket(ctx, TimeBucketsRequest{UserID: userID}, "2024-03-01")
	require.NoError(t, err)

	// Parallel arrays, one slot per asset in the bucket.
	require.Len(t, resp.ID, 2)
	assert.Len(t, resp.OwnerID, 2)
	assert.Len(t, resp.Ratio, 2)
	assert.Len(t, resp.IsFavorite, 2)
	assert.Len(t, resp.Thumbhash, 2)
	assert.ElementsMatch(t, []string{a1.String(), a2.String()}, resp.ID)

	// Dimensions are missing, so ratio clamps to 1.
	assert.Equal(t, 1.0, resp.Ratio[0])
	// No timeZone recorded, so the offset is 0.
	assert.Equal(t, 0.0, resp.LocalOffsetHours[0])
	assert.True(t, resp.IsImage[0])
}

func TestIntegration_TimeBucketsFavoriteFilter(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "favfilter@test.com")
	month := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	fav := createAssetAt(t, tdb, userID, "favorite", month)
	createAssetAt(t, tdb, userID, "ordinary", month)

	_, err := tdb.Queries.UpdateAsset(ctx, sqlc.UpdateAssetParams{
		ID:         fav,
		IsFavorite: pgtype.Bool{Bool: true, Valid: true},
		UpdateID:   idgen.NewUUID(),
	})
	require.NoError(t, err)

	isFav := true
	buckets, err := service.GetTimeBuckets(ctx, TimeBucketsRequest{UserID: userID, IsFavorite: &isFav})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(1), buckets[0].Count)
}

func TestIntegration_TimeBucketsExcludeTrashed(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "trashfilter@test.com")
	month := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	trashed := createAssetAt(t, tdb, userID, "trashed", month)
	createAssetAt(t, tdb, userID, "kept", month)

	require.NoError(t, tdb.Queries.SoftDeleteAsset(ctx, trashed, idgen.NewUUID()))

	buckets, err := service.GetTimeBuckets(ctx, TimeBucketsRequest{UserID: userID})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(1), buckets[0].Count)
}

func TestIntegration_GetRandomVisibleSet(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "random@test.com")
	partnerID := createTestUser(t, tdb, "randompartner@test.com")
	strangerID := createTestUser(t, tdb, "randomstranger@test.com")

	now := time.Now()
	own := createAssetAt(t, tdb, userID, "own", now)
	shared := createAssetAt(t, tdb, partnerID, "shared", now)
	createAssetAt(t, tdb, strangerID, "hiddenfromme", now)

	_, err := tdb.Queries.CreatePartner(ctx, partnerID, userID, idgen.NewUUID())
	require.NoError(t, err)

	ids, err := service.GetRandom(ctx, userID, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{own, shared}, ids)
}
