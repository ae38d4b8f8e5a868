package model

import (
	"errors"
	"time"
)

// User represents an account in the system.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	Name           *string   `db:"name" json:"name"`
	Bio            *string   `db:"bio" json:"bio"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	AvatarKey      *string   `db:"avatar_key" json:"-"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	PostCount      int       `db:"post_count" json:"post_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterRequest represents the data needed to register a new account.
type RegisterRequest struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// LoginRequest represents the data needed to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the request body for PUT /me.
type UpdateProfileRequest struct {
	Username  string  `json:"username"`
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// ChangePasswordRequest is the request body for PUT /me/password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// User constraints
const (
	MaxUsernameLength = 20
	MaxBioLength      = 500
	MinPasswordLength = 8
)

var (
	// ErrUserNotFound is returned when an account cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to register a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTooLong is returned when a username exceeds MaxUsernameLength
	ErrUsernameTooLong = errors.New("username too long")

	// ErrInvalidAvatarURL is returned when an avatar URL fails validation
	ErrInvalidAvatarURL = errors.New("avatar url is not a valid url")

	// ErrPasswordTooShort is returned when a password is below MinPasswordLength
	ErrPasswordTooShort = errors.New("password too short")
)
