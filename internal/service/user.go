package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pictogram/internal/model"
	"pictogram/internal/repository"
)

// bcryptCost trades login latency for hash strength. 12 keeps a hash
// around 250ms on commodity hardware.
const bcryptCost = 12

// followChecker is the one follow-repository method profile reads need.
type followChecker interface {
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
}

// UserService handles business logic for account operations.
type UserService struct {
	repo       repository.UserRepository
	followRepo followChecker
}

func NewUserService(repo repository.UserRepository, followRepo followChecker) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
	}
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(username) > model.MaxUsernameLength {
		return nil, model.ErrUsernameTooLong
	}

	if req.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if len(req.Password) < model.MinPasswordLength {
		return nil, model.ErrPasswordTooShort
	}

	if req.AvatarURL != nil {
		if err := validateHTTPURL(*req.AvatarURL); err != nil {
			return nil, model.ErrInvalidAvatarURL
		}
	}

	// Check if username already exists
	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       username,
		PasswordHashed: string(hashedPassword),
		Name:           req.Name,
		Bio:            req.Bio,
		AvatarURL:      req.AvatarURL,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Don't reveal whether username exists or not
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ProfileResponse pairs a user with the viewer's follow status.
type ProfileResponse struct {
	User        *model.User `json:"user"`
	IsFollowing bool        `json:"is_following"`
}

// GetProfile retrieves a user's profile with follow relationship status.
// The user fetch and the follow check are two queries: the existence
// check fails fast, and a follow-check failure degrades to false
// instead of killing the whole profile.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &ProfileResponse{User: user}

	if viewerID != nil && *viewerID != userID {
		isFollowing, err := s.followRepo.Exists(ctx, *viewerID, userID)
		if err == nil {
			profile.IsFollowing = isFollowing
		}
	}

	return profile, nil
}

// UpdateProfile applies the request to the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != "" && req.Username != user.Username {
		username := strings.TrimSpace(req.Username)
		if len(username) > model.MaxUsernameLength {
			return nil, model.ErrUsernameTooLong
		}
		exists, err := s.repo.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return nil, model.ErrUsernameExists
		}
		user.Username = username
	}

	if req.Name != nil {
		user.Name = req.Name
	}
	if req.Bio != nil {
		if len(*req.Bio) > model.MaxBioLength {
			return nil, fmt.Errorf("bio exceeds %d characters", model.MaxBioLength)
		}
		user.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		if err := validateHTTPURL(*req.AvatarURL); err != nil {
			return nil, model.ErrInvalidAvatarURL
		}
		user.AvatarURL = req.AvatarURL
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// ChangePassword verifies the old password before storing a new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *model.ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.OldPassword)); err != nil {
		return model.ErrInvalidCredentials
	}

	if len(req.NewPassword) < model.MinPasswordLength {
		return model.ErrPasswordTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, string(hashed))
}

// validateHTTPURL accepts absolute http(s) URLs only.
func validateHTTPURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
