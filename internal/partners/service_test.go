//go:build integration

package partners

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

func TestIntegration_CreatePartner(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	sharer := createTestUser(t, tdb, "sharer@test.com")
	recipient := createTestUser(t, tdb, "recipient@test.com")

	p, err := service.CreatePartner(ctx, sharer, recipient)
	require.NoError(t, err)
	assert.Equal(t, sharer.String(), p.SharedByID)
	assert.Equal(t, recipient.String(), p.SharedWithID)
	assert.True(t, p.InTimeline)
}

func TestIntegration_CreatePartner_Self(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	userID := createTestUser(t, tdb, "loner@test.com")

	_, err := service.CreatePartner(ctx, userID, userID)
	assert.Error(t, err)
}

func TestIntegration_ListSharedWithMeAndByMe(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	a := createTestUser(t, tdb, "a@test.com")
	b := createTestUser(t, tdb, "b@test.com")

	_, err := service.CreatePartner(ctx, a, b)
	require.NoError(t, err)

	sharedWithB, err := service.ListSharedWithMe(ctx, b)
	require.NoError(t, err)
	assert.Len(t, sharedWithB, 1)

	sharedByA, err := service.ListSharedByMe(ctx, a)
	require.NoError(t, err)
	assert.Len(t, sharedByA, 1)
}

func TestIntegration_UpdateInTimeline(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	a := createTestUser(t, tdb, "timeline-a@test.com")
	b := createTestUser(t, tdb, "timeline-b@test.com")

	_, err := service.CreatePartner(ctx, a, b)
	require.NoError(t, err)

	err = service.UpdateInTimeline(ctx, a, b, false)
	require.NoError(t, err)

	shared, err := service.ListSharedWithMe(ctx, b)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.False(t, shared[0].InTimeline)
}

func TestIntegration_DeletePartnerAndIsPartner(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	service := NewService(tdb.Queries)

	a := createTestUser(t, tdb, "del-a@test.com")
	b := createTestUser(t, tdb, "del-b@test.com")

	_, err := service.CreatePartner(ctx, a, b)
	require.NoError(t, err)

	ok, err := service.IsPartner(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, ok)

	err = service.DeletePartner(ctx, a, b)
	require.NoError(t, err)

	ok, err = service.IsPartner(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)
}
