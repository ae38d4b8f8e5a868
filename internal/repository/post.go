package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pictogram/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a new post and bumps the author's post counter in one transaction.
func (r *postRepository) Create(ctx context.Context, userID int64, imageURL string) (*model.Post, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var post model.Post
	query := `
		INSERT INTO posts (user_id, image_url)
		VALUES ($1, $2)
		RETURNING id, user_id, image_url, like_count, created_at, updated_at
	`
	err = tx.GetContext(ctx, &post, query, userID, imageURL)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET post_count = post_count + 1 WHERE id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("increment post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &post, nil
}

// GetByID retrieves a single post.
func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	query := `
		SELECT id, user_id, image_url, like_count, created_at, updated_at
		FROM posts
		WHERE id = $1 AND deleted_at IS NULL
	`
	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// GetByAuthor returns all live posts owned by an account, newest first.
func (r *postRepository) GetByAuthor(ctx context.Context, userID int64) ([]model.Post, error) {
	query := `
		SELECT id, user_id, image_url, like_count, created_at, updated_at
		FROM posts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`
	posts := []model.Post{}
	err := r.db.SelectContext(ctx, &posts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get posts by author: %w", err)
	}
	return posts, nil
}

// Delete performs a soft delete on a post owned by userID.
func (r *postRepository) Delete(ctx context.Context, postID, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE posts SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish missing post from wrong owner
		var exists bool
		r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1 AND deleted_at IS NULL)`, postID)
		if exists {
			return model.ErrNotPostOwner
		}
		return model.ErrPostNotFound
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET post_count = post_count - 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("decrement post count: %w", err)
	}

	return tx.Commit()
}

// GetAuthorID returns the owning account of a post.
func (r *postRepository) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	var authorID int64
	err := r.db.GetContext(ctx, &authorID, `SELECT user_id FROM posts WHERE id = $1 AND deleted_at IS NULL`, postID)
	if err == sql.ErrNoRows {
		return 0, model.ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get author id: %w", err)
	}
	return authorID, nil
}

// Exists checks if a post exists and is not deleted.
func (r *postRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1 AND deleted_at IS NULL)`, postID)
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

// IncrementLikeCount atomically updates the like_count on a post.
func (r *postRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	query := `UPDATE posts SET like_count = like_count + $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	result, err := tx.ExecContext(ctx, query, delta, postID)
	if err != nil {
		return fmt.Errorf("update like count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}
