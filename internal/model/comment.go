package model

import (
	"errors"
	"time"
)

// Comment represents a comment on a post. The author's display name is
// captured at creation time, not resolved through a live join.
type Comment struct {
	ID         int64     `db:"id" json:"id"`
	PostID     int64     `db:"post_id" json:"post_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	// Derived per viewer on each read, never stored.
	IsLiked bool `db:"-" json:"is_liked"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// Comment constraints
const (
	MaxCommentLength = 1024
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
)
