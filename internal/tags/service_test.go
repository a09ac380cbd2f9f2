//go:build integration

package tags

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

func createTestAsset(t *testing.T, tdb *testdb.TestDB, ownerID uuid.UUID, deviceAssetID string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	asset, err := tdb.Queries.CreateAsset(ctx, sqlc.CreateAssetParams{
		ID:               idgen.NewUUID(),
		DeviceAssetID:    deviceAssetID,
		OwnerID:          ownerID,
		DeviceID:         "test-device",
		Type:             sqlc.AssetTypeImage,
		OriginalPath:     "/test/path/" + deviceAssetID + ".jpg",
		OriginalFileName: deviceAssetID + ".jpg",
		Checksum:         []byte("test-checksum-" + deviceAssetID),
		Visibility:       sqlc.VisibilityTimeline,
		FileCreatedAt:    pgtype.Timestamptz{Valid: true},
		FileModifiedAt:   pgtype.Timestamptz{Valid: true},
		LocalDateTime:    pgtype.Timestamptz{Valid: true},
		UpdateID:         idgen.NewUUID(),
	})
	require.NoError(t, err)
	return asset.ID
}

func TestIntegration_CreateAndListTags(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "tagger@test.com")

	tag, err := service.CreateTag(ctx, userID, "Vacation", nil)
	require.NoError(t, err)
	assert.Equal(t, "Vacation", tag.Value)
	assert.Nil(t, tag.ParentID)

	tags, err := service.ListTags(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestIntegration_CreateNestedTag(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "nestedtag@test.com")

	parent, err := service.CreateTag(ctx, userID, "Places", nil)
	require.NoError(t, err)

	child, err := service.CreateTag(ctx, userID, "Places/Beach", &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
}

func TestIntegration_UpdateTag(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "updatetag@test.com")
	tag, err := service.CreateTag(ctx, userID, "Old", nil)
	require.NoError(t, err)

	color := "#ff0000"
	updated, err := service.UpdateTag(ctx, userID, uuid.MustParse(tag.ID), "New", &color)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Value)
	assert.Equal(t, "#ff0000", updated.Color)
}

func TestIntegration_UpdateTag_WrongUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	owner := createTestUser(t, tdb, "tagowner@test.com")
	other := createTestUser(t, tdb, "tagother@test.com")
	tag, err := service.CreateTag(ctx, owner, "Mine", nil)
	require.NoError(t, err)

	_, err = service.UpdateTag(ctx, other, uuid.MustParse(tag.ID), "Stolen", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestIntegration_TagAndUntagAssets(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "tagassets@test.com")
	asset1 := createTestAsset(t, tdb, userID, "tagasset1")
	asset2 := createTestAsset(t, tdb, userID, "tagasset2")

	tag, err := service.CreateTag(ctx, userID, "Favorites", nil)
	require.NoError(t, err)
	tagID := uuid.MustParse(tag.ID)

	err = service.TagAssets(ctx, userID, tagID, []uuid.UUID{asset1, asset2})
	require.NoError(t, err)

	assets, err := service.GetTagAssets(ctx, userID, tagID)
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	err = service.UntagAssets(ctx, userID, tagID, []uuid.UUID{asset1})
	require.NoError(t, err)

	assets, err = service.GetTagAssets(ctx, userID, tagID)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	assert.Equal(t, asset2, assets[0])
}

func TestIntegration_DeleteTag(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "deletetag@test.com")
	tag, err := service.CreateTag(ctx, userID, "Temp", nil)
	require.NoError(t, err)

	err = service.DeleteTag(ctx, userID, uuid.MustParse(tag.ID))
	require.NoError(t, err)

	tags, err := service.ListTags(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
