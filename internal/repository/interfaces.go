package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"pictogram/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHashed string) error
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

type FollowRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64) ([]model.UserSummary, error)
	GetFollowing(ctx context.Context, userID int64) ([]model.UserSummary, error)
	// GetFollowingIDs returns the ids of every account userID follows.
	// This is the fan-out entry point for the following feed.
	GetFollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, userID int64, imageURL string) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// GetByAuthor returns all live posts owned by the given account.
	GetByAuthor(ctx context.Context, userID int64) ([]model.Post, error)
	Delete(ctx context.Context, postID, userID int64) error
	GetAuthorID(ctx context.Context, postID int64) (int64, error)
	Exists(ctx context.Context, postID int64) (bool, error)
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
}

type CommentRepository interface {
	Create(ctx context.Context, postID int64, authorName, content string) (*model.Comment, error)
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	// GetByPost returns the full comment list for a post, oldest first.
	GetByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}

// LikeRepository is the like index. Post likes and comment likes share one
// table; post like rows carry a NULL comment_id.
type LikeRepository interface {
	LikePost(ctx context.Context, tx *sqlx.Tx, userID, postID int64) error
	UnlikePost(ctx context.Context, tx *sqlx.Tx, userID, postID int64) error
	LikeComment(ctx context.Context, userID, postID, commentID int64) error
	UnlikeComment(ctx context.Context, userID, postID, commentID int64) error
	HasLikedPost(ctx context.Context, userID, postID int64) (bool, error)
	HasLikedComment(ctx context.Context, userID, postID, commentID int64) (bool, error)
	// CheckPostLikes checks which of the given posts the user has liked.
	CheckPostLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

type BookmarkRepository interface {
	Create(ctx context.Context, userID, postID int64) error
	Delete(ctx context.Context, userID, postID int64) error
	// GetBookmarkedPosts returns the viewer's saved posts, newest bookmark first.
	GetBookmarkedPosts(ctx context.Context, userID int64) ([]model.Post, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	GetRecentByUser(ctx context.Context, userID int64, limit int) ([]model.Activity, error)
}
