package users

import (
	"time"

	"github.com/google/uuid"
)

// UserInfo represents user information: the core account fields,
// without the OAuth/preferences baggage a full admin surface carries.
type UserInfo struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	IsAdmin           bool       `json:"isAdmin"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	QuotaUsageInBytes int64      `json:"quotaUsageInBytes"`
	ProfileImagePath  *string    `json:"profileImagePath,omitempty"`
	StorageLabel      *string    `json:"storageLabel,omitempty"`
	QuotaSizeInBytes  *int64     `json:"quotaSizeInBytes,omitempty"`
	DeletedAt         *time.Time `json:"deletedAt,omitempty"`
}

// ListUsersRequest represents a request to list users.
type ListUsersRequest struct {
	Limit          int  `json:"limit"`
	Offset         int  `json:"offset"`
	IncludeDeleted bool `json:"includeDeleted"`
}

// ListUsersResponse represents the response from listing users.
type ListUsersResponse struct {
	Users  []*UserInfo `json:"users"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// UpdateUserRequest represents a request to update user information.
type UpdateUserRequest struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	ProfileImagePath *string `json:"profileImagePath,omitempty"`
	QuotaSizeInBytes *int64  `json:"quotaSizeInBytes,omitempty"`
	StorageLabel     *string `json:"storageLabel,omitempty"`
}

// UpdatePasswordRequest represents a request to update a user's password.
type UpdatePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// UserError represents errors that can occur in user operations.
type UserError struct {
	Type    UserErrorType `json:"type"`
	Message string        `json:"message"`
	Err     error         `json:"-"`
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// UserErrorType represents different types of user errors.
type UserErrorType string

const (
	ErrInvalidUserID   UserErrorType = "invalid_user_id"
	ErrUserNotFound    UserErrorType = "user_not_found"
	ErrUserDeleted     UserErrorType = "user_deleted"
	ErrUserExists      UserErrorType = "user_exists"
	ErrInvalidPassword UserErrorType = "invalid_password"
	ErrPasswordHashing UserErrorType = "password_hashing"
	ErrDatabaseError   UserErrorType = "database_error"
	ErrUnauthorized    UserErrorType = "unauthorized"
	ErrInvalidInput    UserErrorType = "invalid_input"
)

// NewUserNotFoundError creates a user not found error.
func NewUserNotFoundError(message string) *UserError {
	return &UserError{Type: ErrUserNotFound, Message: message}
}

// IsNotFoundError checks if an error is a user not found error.
func IsNotFoundError(err error) bool {
	if userErr, ok := err.(*UserError); ok {
		return userErr.Type == ErrUserNotFound
	}
	return false
}

// IsUserError checks if an error is a UserError.
func IsUserError(err error) bool {
	_, ok := err.(*UserError)
	return ok
}

// GetUserErrorType returns the type of a UserError.
func GetUserErrorType(err error) UserErrorType {
	if userErr, ok := err.(*UserError); ok {
		return userErr.Type
	}
	return ""
}
