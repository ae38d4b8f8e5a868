package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pictogram/internal/model"
)

type bookmarkRepository struct {
	db *sqlx.DB
}

func NewBookmarkRepository(db *sqlx.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

// Create inserts a bookmark. Returns ErrAlreadyBookmarked on duplicate.
func (r *bookmarkRepository) Create(ctx context.Context, userID, postID int64) error {
	query := `INSERT INTO bookmarks (user_id, post_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, userID, postID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadyBookmarked
		}
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// Delete removes a bookmark. Returns ErrNotBookmarked if absent.
func (r *bookmarkRepository) Delete(ctx context.Context, userID, postID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotBookmarked
	}
	return nil
}

// GetBookmarkedPosts returns the viewer's saved posts, newest bookmark first.
// Posts deleted after being bookmarked drop out of the result naturally.
func (r *bookmarkRepository) GetBookmarkedPosts(ctx context.Context, userID int64) ([]model.Post, error) {
	query := `
		SELECT p.id, p.user_id, p.image_url, p.like_count, p.created_at, p.updated_at
		FROM bookmarks b
		JOIN posts p ON p.id = b.post_id
		WHERE b.user_id = $1 AND p.deleted_at IS NULL
		ORDER BY b.created_at DESC
	`
	posts := []model.Post{}
	err := r.db.SelectContext(ctx, &posts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get bookmarked posts: %w", err)
	}
	return posts, nil
}
