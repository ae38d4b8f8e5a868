package model

import (
	"errors"
	"time"
)

// Like represents a like on a post or, when CommentID is set, on a
// comment within that post. One table serves both cases.
type Like struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	CommentID *int64    `db:"comment_id" json:"comment_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Like errors
var (
	ErrAlreadyLiked = errors.New("already liked")
	ErrNotLiked     = errors.New("not liked")
)
