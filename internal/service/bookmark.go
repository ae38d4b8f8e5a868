package service

import (
	"context"
	"fmt"
	"log"

	"pictogram/internal/model"
	"pictogram/internal/repository"
)

type BookmarkService struct {
	bookmarkRepo repository.BookmarkRepository
	postRepo     repository.PostRepository
	likeRepo     repository.LikeRepository
}

func NewBookmarkService(
	bookmarkRepo repository.BookmarkRepository,
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
) *BookmarkService {
	return &BookmarkService{
		bookmarkRepo: bookmarkRepo,
		postRepo:     postRepo,
		likeRepo:     likeRepo,
	}
}

// Save bookmarks a post for the user.
func (s *BookmarkService) Save(ctx context.Context, userID, postID int64) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return model.ErrPostNotFound
	}

	if err := s.bookmarkRepo.Create(ctx, userID, postID); err != nil {
		return err
	}

	log.Printf("[BookmarkService] User %d bookmarked post %d", userID, postID)
	return nil
}

// Remove deletes the user's bookmark on a post.
func (s *BookmarkService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.bookmarkRepo.Delete(ctx, userID, postID); err != nil {
		return err
	}
	log.Printf("[BookmarkService] User %d removed bookmark on post %d", userID, postID)
	return nil
}

// GetSaved returns the user's bookmarked posts, newest bookmark first,
// with like status annotated.
func (s *BookmarkService) GetSaved(ctx context.Context, userID int64) ([]model.Post, error) {
	posts, err := s.bookmarkRepo.GetBookmarkedPosts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get bookmarked posts: %w", err)
	}

	if len(posts) > 0 {
		postIDs := make([]int64, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
		}
		likeMap, err := s.likeRepo.CheckPostLikes(ctx, userID, postIDs)
		if err != nil {
			log.Printf("[BookmarkService] Failed to check like statuses: %v", err)
		} else {
			for i := range posts {
				posts[i].IsLiked = likeMap[posts[i].ID]
			}
		}
	}

	return posts, nil
}
