package model

import (
	"errors"
	"time"
)

// Follow is a directed follower -> followee edge. The primary key on
// (follower_id, followee_id) keeps the relation deduplicated.
type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the lightweight account view embedded in lists and posts.
type UserSummary struct {
	ID        int64   `db:"id" json:"id"`
	Username  string  `db:"username" json:"username"`
	Name      *string `db:"name" json:"name"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url"`
}

// FollowListResponse is the follower/following list response.
type FollowListResponse struct {
	Users []UserSummary `json:"users"`
}

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
