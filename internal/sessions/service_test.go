//go:build integration
// +build integration

package sessions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/db/testdb"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

func createTestUser(t *testing.T, tdb *testdb.TestDB, email string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	hash, err := crypto.BcryptHash("hunter2hunter2")
	require.NoError(t, err)

	user, err := tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		IsAdmin:      false,
	})
	require.NoError(t, err)
	return user.ID
}

func createTestService(t *testing.T, tdb *testdb.TestDB) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewService(tdb.Queries, logger)
}

func TestIntegration_ListAndDeleteSessions(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	ctx := context.Background()
	tdb := testdb.SetupTestDB(t)
	defer tdb.Close(ctx)

	svc := createTestService(t, tdb)
	userID := createTestUser(t, tdb, "sessions-list@example.com")

	created := make([]uuid.UUID, 0, 2)
	for i := 0; i < 2; i++ {
		sess, err := tdb.Queries.CreateSession(ctx, sqlc.CreateSessionParams{
			ID:         idgen.NewUUID(),
			UserID:     userID,
			TokenHash:  crypto.SHA256HexString(uuid.NewString()),
			DeviceOS:   "linux",
			DeviceType: "cli",
		})
		require.NoError(t, err)
		created = append(created, sess.ID)
	}

	sessions, err := svc.ListSessions(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, svc.DeleteOtherSessions(ctx, userID, created[0]))

	remaining, err := svc.ListSessions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, created[0], remaining[0].ID)
}

func TestIntegration_UnlockWithPin(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	ctx := context.Background()
	tdb := testdb.SetupTestDB(t)
	defer tdb.Close(ctx)

	svc := createTestService(t, tdb)
	userID := createTestUser(t, tdb, "sessions-pin@example.com")

	sess, err := tdb.Queries.CreateSession(ctx, sqlc.CreateSessionParams{
		ID:         idgen.NewUUID(),
		UserID:     userID,
		TokenHash:  crypto.SHA256HexString(uuid.NewString()),
		DeviceOS:   "linux",
		DeviceType: "cli",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetPin(ctx, userID, "1234"))
	require.Error(t, svc.UnlockWithPin(ctx, userID, sess.ID, "0000"))
	require.NoError(t, svc.UnlockWithPin(ctx, userID, sess.ID, "1234"))

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.HasElevatedPermission)
}
