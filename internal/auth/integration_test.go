//go:build integration
// +build integration

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/crypto"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/db/testdb"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		RegistrationEnabled: true,
		PasswordMinLength:   8,
		SessionTimeout:      time.Hour,
	}
}

func TestIntegration_AdminSignUp(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	info, err := service.AdminSignUp(ctx, AdminSignUpRequest{
		Email:    "admin@test.com",
		Password: "SecurePass123!",
		Name:     "Admin User",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@test.com", info.Email)
	assert.True(t, info.IsAdmin)

	user, err := tdb.Queries.GetUserByEmail(ctx, "admin@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Admin User", user.Name)
}

func TestIntegration_AdminSignUpOnlyOnce(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	_, err := service.AdminSignUp(ctx, AdminSignUpRequest{
		Email:    "first@test.com",
		Password: "SecurePass123!",
		Name:     "First Admin",
	})
	require.NoError(t, err)

	_, err = service.AdminSignUp(ctx, AdminSignUpRequest{
		Email:    "second@test.com",
		Password: "SecurePass123!",
		Name:     "Second Admin",
	})
	assert.Error(t, err)

	authErr, ok := err.(*AuthError)
	require.True(t, ok)
	assert.Equal(t, ErrRegistrationDisabled, authErr.Type)
}

func TestIntegration_Login(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	password := "TestPassword123!"
	hash, err := crypto.BcryptHash(password)
	require.NoError(t, err)

	_, err = tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        "login@test.com",
		PasswordHash: hash,
		Name:         "Login User",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	response, err := service.Login(ctx, LoginRequest{
		Email:    "login@test.com",
		Password: password,
	}, DeviceInfo{DeviceOS: "linux", DeviceType: "cli"})
	require.NoError(t, err)
	assert.NotEmpty(t, response.AccessToken)
	assert.Equal(t, "login@test.com", response.UserEmail)

	claims, err := service.ValidateSessionToken(ctx, response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "login@test.com", claims.Email)
	assert.False(t, claims.IsAdmin)
}

func TestIntegration_LoginInvalidPassword(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	hash, err := crypto.BcryptHash("CorrectPassword123!")
	require.NoError(t, err)

	_, err = tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        "wrongpass@test.com",
		PasswordHash: hash,
		Name:         "Wrong Pass User",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	response, err := service.Login(ctx, LoginRequest{
		Email:    "wrongpass@test.com",
		Password: "WrongPassword123!",
	}, DeviceInfo{})
	assert.Error(t, err)
	assert.Nil(t, response)

	authErr, ok := err.(*AuthError)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidCredentials, authErr.Type)
}

func TestIntegration_LoginUserNotFound(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	response, err := service.Login(ctx, LoginRequest{
		Email:    "nonexistent@test.com",
		Password: "SomePassword123!",
	}, DeviceInfo{})
	assert.Error(t, err)
	assert.Nil(t, response)

	authErr, ok := err.(*AuthError)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidCredentials, authErr.Type)
}

func TestIntegration_LoginDeletedUser(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	password := "TestPassword123!"
	hash, err := crypto.BcryptHash(password)
	require.NoError(t, err)

	userID := idgen.NewUUID()
	_, err = tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           userID,
		Email:        "deleted@test.com",
		PasswordHash: hash,
		Name:         "Deleted User",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	require.NoError(t, tdb.Queries.SoftDeleteUser(ctx, userID))

	response, err := service.Login(ctx, LoginRequest{
		Email:    "deleted@test.com",
		Password: password,
	}, DeviceInfo{})
	assert.Error(t, err)
	assert.Nil(t, response)

	authErr, ok := err.(*AuthError)
	require.True(t, ok)
	assert.Equal(t, ErrUserDeleted, authErr.Type)
}

func TestIntegration_Logout(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	hash, err := crypto.BcryptHash("SecurePass123!")
	require.NoError(t, err)

	_, err = tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           idgen.NewUUID(),
		Email:        "logout@test.com",
		PasswordHash: hash,
		Name:         "Logout User",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	response, err := service.Login(ctx, LoginRequest{
		Email:    "logout@test.com",
		Password: "SecurePass123!",
	}, DeviceInfo{})
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, response.AccessToken))

	_, err = service.ValidateSessionToken(ctx, response.AccessToken)
	assert.Error(t, err)

	// Logout is idempotent: calling it again on an already-deleted
	// session must not error.
	assert.NoError(t, service.Logout(ctx, response.AccessToken))
}

func TestIntegration_ChangePassword(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	originalPassword := "OriginalPass123!"
	hash, err := crypto.BcryptHash(originalPassword)
	require.NoError(t, err)

	userID := idgen.NewUUID()
	_, err = tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           userID,
		Email:        "changepass@test.com",
		PasswordHash: hash,
		Name:         "Change Pass User",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	newPassword := "NewSecurePass123!"
	err = service.ChangePassword(ctx, userID.String(), ChangePasswordRequest{
		Password:    originalPassword,
		NewPassword: newPassword,
	})
	require.NoError(t, err)

	response, err := service.Login(ctx, LoginRequest{
		Email:    "changepass@test.com",
		Password: newPassword,
	}, DeviceInfo{})
	require.NoError(t, err)
	assert.NotNil(t, response)

	response, err = service.Login(ctx, LoginRequest{
		Email:    "changepass@test.com",
		Password: originalPassword,
	}, DeviceInfo{})
	assert.Error(t, err)
	assert.Nil(t, response)
}

func TestIntegration_ChangePasswordRevokesAllSessions(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	password := "OriginalPass123!"
	hash, err := crypto.BcryptHash(password)
	require.NoError(t, err)

	userID := idgen.NewUUID()
	_, err = tdb.Queries.CreateUser(ctx, sqlc.CreateUserParams{
		ID:           userID,
		Email:        "revoke@test.com",
		PasswordHash: hash,
		Name:         "Revoke User",
		IsAdmin:      false,
	})
	require.NoError(t, err)

	first, err := service.Login(ctx, LoginRequest{Email: "revoke@test.com", Password: password}, DeviceInfo{})
	require.NoError(t, err)
	second, err := service.Login(ctx, LoginRequest{Email: "revoke@test.com", Password: password}, DeviceInfo{})
	require.NoError(t, err)

	require.NoError(t, service.ChangePassword(ctx, userID.String(), ChangePasswordRequest{
		Password:    password,
		NewPassword: "NewSecurePass123!",
	}))

	_, err = service.ValidateSessionToken(ctx, first.AccessToken)
	assert.Error(t, err)
	_, err = service.ValidateSessionToken(ctx, second.AccessToken)
	assert.Error(t, err)
}

func TestIntegration_AdminLoginClaims(t *testing.T) {
	testdb.SkipIfNoDocker(t)
	tdb := testdb.SetupTestDB(t)
	ctx := context.Background()
	defer tdb.Close(ctx)

	service := NewService(testAuthConfig(), tdb.Queries)

	_, err := service.AdminSignUp(ctx, AdminSignUpRequest{
		Email:    "admin2@test.com",
		Password: "AdminPass123!",
		Name:     "Admin User",
	})
	require.NoError(t, err)

	response, err := service.Login(ctx, LoginRequest{
		Email:    "admin2@test.com",
		Password: "AdminPass123!",
	}, DeviceInfo{})
	require.NoError(t, err)
	assert.True(t, response.IsAdmin)

	claims, err := service.ValidateSessionToken(ctx, response.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.SessionID)
}
