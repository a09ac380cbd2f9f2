//go:build integration
// +build integration

package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/db/testdb"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

func createUser(t *testing.T, tdb *testdb.TestDB, email, name string, isAdmin bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	user, err := tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        email,
		Name:         name,
		PasswordHash: "$2a$10$hashedpassword",
		IsAdmin:      isAdmin,
	})
	require.NoError(t, err)
	return user.ID
}

func TestIntegration_CreateAndGetUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "integration@test.com", "Integration Test User", false)

	user, err := service.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, "integration@test.com", user.Email)
	assert.Equal(t, "Integration Test User", user.Name)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, userID, user.ID)
}

func TestIntegration_GetUserByEmail(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	email := "email-lookup@test.com"
	createUser(t, tdb, email, "Email Lookup User", false)

	user, err := service.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, "Email Lookup User", user.Name)
}

func TestIntegration_GetUserNotFound(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	user, err := service.GetUser(ctx, uuid.New())
	assert.Error(t, err)
	assert.Nil(t, user)

	userErr, ok := err.(*UserError)
	require.True(t, ok)
	assert.Equal(t, ErrUserNotFound, userErr.Type)
}

func TestIntegration_ListUsers(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		createUser(t, tdb, "listuser"+string(rune('0'+i))+"@test.com", "Test User", false)
	}

	response, err := service.ListUsers(ctx, ListUsersRequest{Limit: 10, Offset: 0})
	require.NoError(t, err)
	assert.NotNil(t, response)
	assert.Len(t, response.Users, 5)
	assert.Equal(t, 5, response.Total)

	response, err = service.ListUsers(ctx, ListUsersRequest{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, response.Users, 2)
}

func TestIntegration_UpdateUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "update@test.com", "Original Name", false)

	newName := "Updated Name"
	updatedUser, err := service.UpdateUser(ctx, userID, UpdateUserRequest{Name: &newName})
	require.NoError(t, err)
	assert.NotNil(t, updatedUser)
	assert.Equal(t, "Updated Name", updatedUser.Name)

	user, err := service.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", user.Name)
}

func TestIntegration_UpdateUserPassword(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "password@test.com", "Password User", false)

	err = service.UpdateUserPassword(ctx, userID, UpdatePasswordRequest{NewPassword: "NewSecurePassword123!"})
	require.NoError(t, err)

	user, err := tdb.Queries.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, "$2a$10$hashedpassword", user.PasswordHash)
}

func TestIntegration_UpdateUserPassword_TooShort(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "shortpw@test.com", "Short Password User", false)

	err = service.UpdateUserPassword(ctx, userID, UpdatePasswordRequest{NewPassword: "short"})
	assert.Error(t, err)
}

func TestIntegration_DeleteUser_SoftDelete(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "delete@test.com", "Delete User", false)

	err = service.DeleteUser(ctx, userID, false)
	require.NoError(t, err)

	user, err := service.GetUser(ctx, userID)
	assert.Error(t, err)
	assert.Nil(t, user)
}

func TestIntegration_RestoreUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "restore@test.com", "Restore User", false)
	require.NoError(t, service.DeleteUser(ctx, userID, false))

	restored, err := service.RestoreUser(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	user, err := service.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
}

func TestIntegration_AdminUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	service, err := NewService(tdb.Queries, &config.Config{})
	require.NoError(t, err)

	userID := createUser(t, tdb, "admin@test.com", "Admin User", true)

	user, err := service.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, user)
	assert.True(t, user.IsAdmin)

	updated, err := service.UpdateUserAdmin(ctx, userID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsAdmin)
}

func TestIntegration_UniqueEmailConstraint(t *testing.T) {
	testdb.SkipIfNoDocker(t)

	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()

	createUser(t, tdb, "unique@test.com", "First User", false)

	_, err := tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        "unique@test.com",
		Name:         "Second User",
		PasswordHash: "$2a$10$hashedpassword",
		IsAdmin:      false,
	})
	assert.Error(t, err)
}
