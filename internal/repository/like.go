package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pictogram/internal/model"
)

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// LikePost inserts a post like row. Returns ErrAlreadyLiked on duplicate.
// Runs inside the caller's transaction so the like_count update stays atomic.
func (r *likeRepository) LikePost(ctx context.Context, tx *sqlx.Tx, userID, postID int64) error {
	query := `INSERT INTO likes (user_id, post_id) VALUES ($1, $2)`
	_, err := tx.ExecContext(ctx, query, userID, postID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("insert post like: %w", err)
	}
	return nil
}

// UnlikePost deletes a post like row. Returns ErrNotLiked if absent.
func (r *likeRepository) UnlikePost(ctx context.Context, tx *sqlx.Tx, userID, postID int64) error {
	query := `DELETE FROM likes WHERE user_id = $1 AND post_id = $2 AND comment_id IS NULL`
	result, err := tx.ExecContext(ctx, query, userID, postID)
	if err != nil {
		return fmt.Errorf("delete post like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotLiked
	}
	return nil
}

// LikeComment inserts a comment like row. No counter is maintained for
// comment likes, so no transaction is required.
func (r *likeRepository) LikeComment(ctx context.Context, userID, postID, commentID int64) error {
	query := `INSERT INTO likes (user_id, post_id, comment_id) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, userID, postID, commentID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("insert comment like: %w", err)
	}
	return nil
}

// UnlikeComment deletes a comment like row. Returns ErrNotLiked if absent.
func (r *likeRepository) UnlikeComment(ctx context.Context, userID, postID, commentID int64) error {
	query := `DELETE FROM likes WHERE user_id = $1 AND post_id = $2 AND comment_id = $3`
	result, err := r.db.ExecContext(ctx, query, userID, postID, commentID)
	if err != nil {
		return fmt.Errorf("delete comment like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotLiked
	}
	return nil
}

// HasLikedPost reports whether userID has liked postID.
func (r *likeRepository) HasLikedPost(ctx context.Context, userID, postID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2 AND comment_id IS NULL)`,
		userID, postID)
	if err != nil {
		return false, fmt.Errorf("check post like: %w", err)
	}
	return exists, nil
}

// HasLikedComment reports whether userID has liked the comment on the post.
func (r *likeRepository) HasLikedComment(ctx context.Context, userID, postID, commentID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2 AND comment_id = $3)`,
		userID, postID, commentID)
	if err != nil {
		return false, fmt.Errorf("check comment like: %w", err)
	}
	return exists, nil
}

// CheckPostLikes checks which of the given posts the user has liked.
// Returns a map of post_id -> liked.
func (r *likeRepository) CheckPostLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if len(postIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2) AND comment_id IS NULL`
	var likedIDs []int64
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(postIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check post likes: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}

	return result, nil
}
