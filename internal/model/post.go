package model

import (
	"errors"
	"time"
)

// Post represents a single-image post. A post is owned by exactly one
// account for its lifetime and is never reassigned.
type Post struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	ImageURL  string     `db:"image_url" json:"image_url"`
	LikeCount int        `db:"like_count" json:"like_count"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`

	// Derived per viewer, never stored.
	IsLiked bool `db:"-" json:"is_liked"`

	// Joined field (not in posts table)
	Author *UserSummary `db:"-" json:"author,omitempty"`
}

// CreatePostRequest is the request body for creating a post.
// The image URL comes from a prior media upload.
type CreatePostRequest struct {
	ImageURL string `json:"image_url"`
}

// Post errors
var (
	ErrPostNotFound   = errors.New("post not found")
	ErrNotPostOwner   = errors.New("not the owner of this post")
	ErrInvalidPostURL = errors.New("image url is not a valid url")
)
