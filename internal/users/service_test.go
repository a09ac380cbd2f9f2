package users

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestService_Construction(t *testing.T) {
	service, err := NewService(nil, nil)
	assert.NoError(t, err)
	assert.NotNil(t, service)
}

func TestUpdateUserRequest(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		newName := "Updated Name"
		req := UpdateUserRequest{Name: &newName}

		assert.NotNil(t, req.Name)
		assert.Equal(t, "Updated Name", *req.Name)
		assert.Nil(t, req.Email)
	})

	t.Run("full update", func(t *testing.T) {
		name := "Full Name"
		email := "new@example.com"
		path := "/profile.jpg"
		quota := int64(10737418240) // 10GB
		label := "primary"

		req := UpdateUserRequest{
			Name:             &name,
			Email:            &email,
			ProfileImagePath: &path,
			QuotaSizeInBytes: &quota,
			StorageLabel:     &label,
		}

		assert.NotNil(t, req.Name)
		assert.NotNil(t, req.Email)
		assert.NotNil(t, req.ProfileImagePath)
		assert.NotNil(t, req.QuotaSizeInBytes)
		assert.NotNil(t, req.StorageLabel)
	})
}

func TestListUsersRequest(t *testing.T) {
	t.Run("default pagination", func(t *testing.T) {
		req := ListUsersRequest{Limit: 10, Offset: 0}

		assert.Equal(t, 10, req.Limit)
		assert.Equal(t, 0, req.Offset)
		assert.False(t, req.IncludeDeleted)
	})

	t.Run("with deleted users", func(t *testing.T) {
		req := ListUsersRequest{Limit: 20, Offset: 10, IncludeDeleted: true}

		assert.Equal(t, 20, req.Limit)
		assert.Equal(t, 10, req.Offset)
		assert.True(t, req.IncludeDeleted)
	})
}

func TestUserError(t *testing.T) {
	t.Run("error without wrapped error", func(t *testing.T) {
		err := &UserError{Type: ErrUserNotFound, Message: "User not found"}

		assert.Equal(t, "User not found", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("error with wrapped error", func(t *testing.T) {
		innerErr := assert.AnError
		err := &UserError{Type: ErrDatabaseError, Message: "Database operation failed", Err: innerErr}

		assert.Contains(t, err.Error(), "Database operation failed")
		assert.Contains(t, err.Error(), innerErr.Error())
		assert.Equal(t, innerErr, err.Unwrap())
	})

	t.Run("helper classification", func(t *testing.T) {
		err := NewUserNotFoundError("gone")
		assert.True(t, IsUserError(err))
		assert.True(t, IsNotFoundError(err))
		assert.Equal(t, ErrUserNotFound, GetUserErrorType(err))
		assert.False(t, IsNotFoundError(assert.AnError))
	})
}

func TestUserInfo_Helpers(t *testing.T) {
	now := time.Now()
	profilePath := "/profile.jpg"
	storageLabel := "primary"
	quotaSize := int64(10737418240)

	user := UserInfo{
		ID:               uuid.New(),
		Email:            "test@example.com",
		Name:             "Test User",
		IsAdmin:          true,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
		ProfileImagePath: &profilePath,
		StorageLabel:     &storageLabel,
		QuotaSizeInBytes: &quotaSize,
	}

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.True(t, user.IsAdmin)
	assert.NotNil(t, user.ProfileImagePath)
	assert.Equal(t, "/profile.jpg", *user.ProfileImagePath)
	assert.NotNil(t, user.QuotaSizeInBytes)
	assert.Equal(t, int64(10737418240), *user.QuotaSizeInBytes)
}
