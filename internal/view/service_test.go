//go:build integration

package view

import (
	"context"
	"testing"

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

func createAssetWithPath(t *testing.T, tdb *testdb.TestDB, ownerID uuid.UUID, name, originalPath string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := idgen.NewUUID()
	_, err := tdb.Queries.CreateAsset(ctx, sqlc.CreateAssetParams{
		ID:               id,
		OwnerID:          ownerID,
		Checksum:         []byte("checksum-" + name),
		OriginalPath:     originalPath,
		OriginalFileName: name + ".jpg",
		Type:             sqlc.AssetTypeImage,
		Visibility:       sqlc.VisibilityTimeline,
		DeviceAssetID:    name,
		DeviceID:         "test-device",
		FileCreatedAt:    pgtype.Timestamptz{Valid: true},
		FileModifiedAt:   pgtype.Timestamptz{Valid: true},
		LocalDateTime:    pgtype.Timestamptz{Valid: true},
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

func TestIntegration_UniqueOriginalPaths(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "paths@test.com")
	createAssetWithPath(t, tdb, userID, "a", "photos/2024/a.jpg")
	createAssetWithPath(t, tdb, userID, "b", "photos/2024/b.jpg")
	createAssetWithPath(t, tdb, userID, "c", "photos/2023/c.jpg")

	paths, err := service.GetUniqueOriginalPaths(ctx, userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"photos/2024/", "photos/2023/"}, paths)
}

func TestIntegration_FolderAssetsAreDirectChildrenOnly(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	userID := createTestUser(t, tdb, "folder@test.com")
	direct := createAssetWithPath(t, tdb, userID, "direct", "photos/2024/direct.jpg")
	createAssetWithPath(t, tdb, userID, "nested", "photos/2024/trip/nested.jpg")
	createAssetWithPath(t, tdb, userID, "elsewhere", "videos/elsewhere.mp4")

	assets, err := service.GetAssetsByOriginalPath(ctx, userID, "photos/2024/")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, direct, assets[0].ID)
	assert.Equal(t, "photos/2024/direct.jpg", assets[0].OriginalPath)
}

func TestIntegration_FolderViewScopedToOwner(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := mustService(t, tdb)

	user1 := createTestUser(t, tdb, "folderuser1@test.com")
	user2 := createTestUser(t, tdb, "folderuser2@test.com")
	createAssetWithPath(t, tdb, user1, "mine", "shared-name/mine.jpg")
	createAssetWithPath(t, tdb, user2, "theirs", "shared-name/theirs.jpg")

	assets, err := service.GetAssetsByOriginalPath(ctx, user1, "shared-name/")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "shared-name/mine.jpg", assets[0].OriginalPath)
}
