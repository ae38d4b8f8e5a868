package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"pictogram/internal/model"
	"pictogram/internal/queue"
	"pictogram/internal/repository"
)

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	likeRepo  repository.LikeRepository
	publisher queue.Publisher
	db        *sqlx.DB
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	publisher queue.Publisher,
	db *sqlx.DB,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		likeRepo:  likeRepo,
		publisher: publisher,
		db:        db,
	}
}

// Create creates a new post from a previously uploaded image URL.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	if req.ImageURL == "" {
		return nil, model.ErrInvalidPostURL
	}
	if err := validateHTTPURL(req.ImageURL); err != nil {
		return nil, model.ErrInvalidPostURL
	}

	post, err := s.postRepo.Create(ctx, userID, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.attachAuthor(ctx, post)

	log.Printf("[PostService] User %d created post %d", userID, post.ID)
	return post, nil
}

// GetByID retrieves a single post with author info and, when a viewer
// is present, their like status.
func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.attachAuthor(ctx, post)

	if viewerID != nil {
		liked, err := s.likeRepo.HasLikedPost(ctx, *viewerID, postID)
		if err != nil {
			log.Printf("[PostService] Failed to check like status: %v", err)
		} else {
			post.IsLiked = liked
		}
	}

	return post, nil
}

// GetUserPosts retrieves all of a user's posts, newest first, with the
// viewer's like status annotated in one batch query.
func (s *PostService) GetUserPosts(ctx context.Context, userID int64, viewerID *int64) ([]model.Post, error) {
	posts, err := s.postRepo.GetByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user posts: %w", err)
	}

	if viewerID != nil && len(posts) > 0 {
		postIDs := make([]int64, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
		}
		likeMap, err := s.likeRepo.CheckPostLikes(ctx, *viewerID, postIDs)
		if err != nil {
			log.Printf("[PostService] Failed to check like statuses: %v", err)
		} else {
			for i := range posts {
				posts[i].IsLiked = likeMap[posts[i].ID]
			}
		}
	}

	return posts, nil
}

// Delete soft-deletes a post. Ownership is validated by the repository.
func (s *PostService) Delete(ctx context.Context, postID, userID int64) error {
	if err := s.postRepo.Delete(ctx, postID, userID); err != nil {
		return err
	}
	log.Printf("[PostService] User %d deleted post %d", userID, postID)
	return nil
}

// Like adds a like to a post. Uses transaction: insert like + increment counter.
func (s *PostService) Like(ctx context.Context, postID, userID int64) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert like (fails if already liked)
	if err := s.likeRepo.LikePost(ctx, tx, userID, postID); err != nil {
		return err
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[PostService] User %d liked post %d", userID, postID)

	// Publish engagement event (after commit, best-effort)
	if s.publisher != nil {
		authorID, err := s.postRepo.GetAuthorID(ctx, postID)
		if err == nil && authorID != userID {
			event := queue.NewPostLikedEvent(userID, authorID, postID)
			if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
				log.Printf("[PostService] Failed to publish PostLiked event: %v", err)
			}
		}
	}

	return nil
}

// Unlike removes a like from a post. Uses transaction: delete like + decrement counter.
func (s *PostService) Unlike(ctx context.Context, postID, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete like (fails if not liked)
	if err := s.likeRepo.UnlikePost(ctx, tx, userID, postID); err != nil {
		return err
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[PostService] User %d unliked post %d", userID, postID)
	return nil
}

func (s *PostService) attachAuthor(ctx context.Context, post *model.Post) {
	author, err := s.userRepo.GetByID(ctx, post.UserID)
	if err != nil {
		// Author info is decoration; the post itself is still valid.
		log.Printf("[PostService] Failed to fetch author %d: %v", post.UserID, err)
		return
	}
	post.Author = &model.UserSummary{
		ID:        author.ID,
		Username:  author.Username,
		Name:      author.Name,
		AvatarURL: author.AvatarURL,
	}
}
