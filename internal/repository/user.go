package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pictogram/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, password_hashed, name, bio, avatar_url, avatar_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, follower_count, following_count, post_count, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.PasswordHashed,
		u.Name,
		u.Bio,
		u.AvatarURL,
		u.AvatarKey,
	)

	err := row.Scan(
		&u.ID,
		&u.FollowerCount,
		&u.FollowingCount,
		&u.PostCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, username, password_hashed, name, bio, avatar_url, avatar_key,
		       follower_count, following_count, post_count, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, password_hashed, name, bio, avatar_url, avatar_key,
		       follower_count, following_count, post_count, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *userRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET username = $1, name = $2, bio = $3, avatar_url = $4, avatar_key = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		u.Username, u.Name, u.Bio, u.AvatarURL, u.AvatarKey, u.ID,
	).Scan(&u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, passwordHashed string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hashed = $1, updated_at = NOW() WHERE id = $2`,
		passwordHashed, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// GetSummaries fetches lightweight account views for the given ids in one query.
func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	if len(ids) == 0 {
		return map[int64]model.UserSummary{}, nil
	}

	query := `
		SELECT id, username, name, avatar_url
		FROM users
		WHERE id = ANY($1)
	`
	var summaries []model.UserSummary
	err := r.db.SelectContext(ctx, &summaries, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}

	result := make(map[int64]model.UserSummary, len(summaries))
	for _, s := range summaries {
		result[s.ID] = s
	}
	return result, nil
}

// IncrementFollowerCount adjusts the denormalized follower counter.
func (r *userRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET follower_count = follower_count + $1 WHERE id = $2`,
		delta, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update follower count: %w", err)
	}
	return nil
}

// IncrementFollowingCount adjusts the denormalized following counter.
func (r *userRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET following_count = following_count + $1 WHERE id = $2`,
		delta, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update following count: %w", err)
	}
	return nil
}
