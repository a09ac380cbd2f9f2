//go:build integration

package stacks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/config"
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

func TestIntegration_CreateStack(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "stacktest@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "asset1")
	asset2ID := createTestAsset(t, tdb, userID, "asset2")
	asset3ID := createTestAsset(t, tdb, userID, "asset3")

	response, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{
			asset1ID.String(),
			asset2ID.String(),
			asset3ID.String(),
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, response)
	assert.NotEmpty(t, response.ID)
	assert.Equal(t, asset1ID.String(), response.PrimaryAssetID)
	assert.Equal(t, int32(3), response.AssetCount)
	assert.Len(t, response.AssetIDs, 3)
}

func TestIntegration_CreateStackEmptyAssets(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	response, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{},
	})
	assert.Error(t, err)
	assert.Nil(t, response)
	assert.Contains(t, err.Error(), "at least one asset ID is required")
}

func TestIntegration_GetStack(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "getstack@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "getasset1")
	asset2ID := createTestAsset(t, tdb, userID, "getasset2")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)

	getResponse, err := service.GetStack(ctx, createResponse.ID)
	require.NoError(t, err)
	assert.NotNil(t, getResponse)
	assert.Equal(t, createResponse.ID, getResponse.ID)
	assert.Equal(t, asset1ID.String(), getResponse.PrimaryAssetID)
	assert.Equal(t, int32(2), getResponse.AssetCount)
}

func TestIntegration_GetStackNotFound(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	randomID := uuid.New().String()
	response, err := service.GetStack(ctx, randomID)
	assert.Error(t, err)
	assert.Nil(t, response)
}

func TestIntegration_UpdateStackPrimaryAsset(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "updatestack@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "updateasset1")
	asset2ID := createTestAsset(t, tdb, userID, "updateasset2")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, asset1ID.String(), createResponse.PrimaryAssetID)

	asset2IDStr := asset2ID.String()
	updateResponse, err := service.UpdateStack(ctx, createResponse.ID, UpdateStackRequest{
		PrimaryAssetID: &asset2IDStr,
	})
	require.NoError(t, err)
	assert.Equal(t, asset2ID.String(), updateResponse.PrimaryAssetID)
}

func TestIntegration_DeleteStack(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "deletestack@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "deleteasset1")
	asset2ID := createTestAsset(t, tdb, userID, "deleteasset2")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)

	err = service.DeleteStack(ctx, createResponse.ID)
	require.NoError(t, err)

	getResponse, err := service.GetStack(ctx, createResponse.ID)
	assert.Error(t, err)
	assert.Nil(t, getResponse)
}

func TestIntegration_DeleteStacks(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "deletestacks@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "bulkasset1")
	asset2ID := createTestAsset(t, tdb, userID, "bulkasset2")
	asset3ID := createTestAsset(t, tdb, userID, "bulkasset3")
	asset4ID := createTestAsset(t, tdb, userID, "bulkasset4")

	stack1, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)

	stack2, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset3ID.String(), asset4ID.String()},
	})
	require.NoError(t, err)

	err = service.DeleteStacks(ctx, []string{stack1.ID, stack2.ID})
	require.NoError(t, err)

	_, err = service.GetStack(ctx, stack1.ID)
	assert.Error(t, err)

	_, err = service.GetStack(ctx, stack2.ID)
	assert.Error(t, err)
}

func TestIntegration_GetUserStacks(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "userstacks@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "userasset1")
	asset2ID := createTestAsset(t, tdb, userID, "userasset2")
	asset3ID := createTestAsset(t, tdb, userID, "userasset3")
	asset4ID := createTestAsset(t, tdb, userID, "userasset4")

	_, err = service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)

	_, err = service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset3ID.String(), asset4ID.String()},
	})
	require.NoError(t, err)

	response, err := service.GetUserStacks(ctx, userID.String(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, response)
	assert.Len(t, response.Stacks, 2)
}

func TestIntegration_AddAssetsToStack(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "addassets@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "addasset1")
	asset2ID := createTestAsset(t, tdb, userID, "addasset2")
	asset3ID := createTestAsset(t, tdb, userID, "addasset3")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), createResponse.AssetCount)

	err = service.AddAssetsToStack(ctx, createResponse.ID, []string{asset3ID.String()})
	require.NoError(t, err)

	getResponse, err := service.GetStack(ctx, createResponse.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), getResponse.AssetCount)
}

func TestIntegration_RemoveAssetsFromStack(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "removeassets@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "removeasset1")
	asset2ID := createTestAsset(t, tdb, userID, "removeasset2")
	asset3ID := createTestAsset(t, tdb, userID, "removeasset3")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String(), asset3ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), createResponse.AssetCount)

	err = service.RemoveAssetsFromStack(ctx, []string{asset3ID.String()})
	require.NoError(t, err)

	getResponse, err := service.GetStack(ctx, createResponse.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), getResponse.AssetCount)
}

func TestIntegration_RemoveAssetsFromStack_Primary(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "removeprimary@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "removeprimary1")
	asset2ID := createTestAsset(t, tdb, userID, "removeprimary2")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)

	err = service.RemoveAssetsFromStack(ctx, []string{asset1ID.String()})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot remove primary asset")

	getResponse, err := service.GetStack(ctx, createResponse.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), getResponse.AssetCount)
}

func TestIntegration_SearchStacks(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	userID := createTestUser(t, tdb, "searchstacks@test.com")
	asset1ID := createTestAsset(t, tdb, userID, "searchasset1")
	asset2ID := createTestAsset(t, tdb, userID, "searchasset2")

	createResponse, err := service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{asset1ID.String(), asset2ID.String()},
	})
	require.NoError(t, err)

	userIDStr := userID.String()
	searchResponse, err := service.SearchStacks(ctx, SearchStacksRequest{
		UserID: &userIDStr,
	})
	require.NoError(t, err)
	assert.NotNil(t, searchResponse)
	assert.Len(t, searchResponse.Stacks, 1)
	assert.Equal(t, createResponse.ID, searchResponse.Stacks[0].ID)

	primaryAssetID := asset1ID.String()
	searchResponse, err = service.SearchStacks(ctx, SearchStacksRequest{
		UserID:         &userIDStr,
		PrimaryAssetID: &primaryAssetID,
	})
	require.NoError(t, err)
	assert.NotNil(t, searchResponse)
	assert.Len(t, searchResponse.Stacks, 1)
}

func TestIntegration_InvalidUUIDs(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	service, err := NewService(tdb.Queries, cfg)
	require.NoError(t, err)

	_, err = service.GetStack(ctx, "not-a-valid-uuid")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stack ID")

	_, err = service.CreateStack(ctx, CreateStackRequest{
		AssetIDs: []string{"not-a-valid-uuid"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid asset IDs")

	invalidUserID := "not-a-valid-uuid"
	_, err = service.SearchStacks(ctx, SearchStacksRequest{
		UserID: &invalidUserID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user ID")
}
