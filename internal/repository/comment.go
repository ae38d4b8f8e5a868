package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pictogram/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a new comment. The author's display name is frozen into the
// row at creation time.
func (r *commentRepository) Create(ctx context.Context, postID int64, authorName, content string) (*model.Comment, error) {
	query := `
		INSERT INTO comments (post_id, author_name, content)
		VALUES ($1, $2, $3)
		RETURNING id, post_id, author_name, content, created_at, updated_at
	`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, postID, authorName, content)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &comment, nil
}

// GetByID retrieves a single comment.
func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	query := `
		SELECT id, post_id, author_name, content, created_at, updated_at
		FROM comments
		WHERE id = $1
	`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// GetByPost returns every comment on a post, oldest first. The feed layer
// relies on this being the complete result set for the post.
func (r *commentRepository) GetByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	query := `
		SELECT id, post_id, author_name, content, created_at, updated_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC
	`
	comments := []model.Comment{}
	err := r.db.SelectContext(ctx, &comments, query, postID)
	if err != nil {
		return nil, fmt.Errorf("get comments by post: %w", err)
	}
	return comments, nil
}
