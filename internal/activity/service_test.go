//go:build integration

package activity

import (
	"context"
	"testing"

	"github.com/google/uuid"
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

func createTestAlbum(t *testing.T, tdb *testdb.TestDB, ownerID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	album, err := tdb.Queries.CreateAlbum(ctx, sqlc.CreateAlbumParams{
		ID:          idgen.NewUUID(),
		OwnerID:     ownerID,
		AlbumName:   name,
		Description: "",
		UpdateID:    idgen.NewUUID(),
	})
	require.NoError(t, err)
	return album.ID
}

func TestIntegration_AddComment(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "commenter@test.com")
	albumID := createTestAlbum(t, tdb, userID, "Comment Album")

	act, err := service.AddComment(ctx, userID, albumID, nil, "Nice shot!")
	require.NoError(t, err)
	assert.Equal(t, "Nice shot!", act.Comment)
	assert.False(t, act.IsLiked)
}

func TestIntegration_ToggleLike(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "liker@test.com")
	albumID := createTestAlbum(t, tdb, userID, "Like Album")

	act, err := service.ToggleLike(ctx, userID, albumID, nil)
	require.NoError(t, err)
	require.NotNil(t, act)
	assert.True(t, act.IsLiked)

	count, err := service.CountActivities(ctx, albumID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	act2, err := service.ToggleLike(ctx, userID, albumID, nil)
	require.NoError(t, err)
	assert.Nil(t, act2)

	count, err = service.CountActivities(ctx, albumID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIntegration_ListActivities(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "lister@test.com")
	albumID := createTestAlbum(t, tdb, userID, "List Album")

	_, err := service.AddComment(ctx, userID, albumID, nil, "first")
	require.NoError(t, err)
	_, err = service.ToggleLike(ctx, userID, albumID, nil)
	require.NoError(t, err)

	activities, err := service.ListActivities(ctx, albumID)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestIntegration_DeleteActivity(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "deleter@test.com")
	albumID := createTestAlbum(t, tdb, userID, "Delete Album")

	act, err := service.AddComment(ctx, userID, albumID, nil, "to delete")
	require.NoError(t, err)

	err = service.DeleteActivity(ctx, userID, uuid.MustParse(act.ID))
	require.NoError(t, err)

	activities, err := service.ListActivities(ctx, albumID)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestIntegration_DeleteActivity_WrongUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	owner := createTestUser(t, tdb, "commentowner@test.com")
	other := createTestUser(t, tdb, "commentother@test.com")
	albumID := createTestAlbum(t, tdb, owner, "Protected Album")

	act, err := service.AddComment(ctx, owner, albumID, nil, "protected")
	require.NoError(t, err)

	err = service.DeleteActivity(ctx, other, uuid.MustParse(act.ID))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
