package service

import (
	"context"
	"fmt"
	"log"

	"pictogram/internal/model"
	"pictogram/internal/queue"
	"pictogram/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	likeRepo    repository.LikeRepository
	publisher   queue.Publisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		likeRepo:    likeRepo,
		publisher:   publisher,
	}
}

// Create adds a comment to a post. The commenter's username is captured
// into the comment row at creation time, so later renames don't rewrite
// history.
func (s *CommentService) Create(ctx context.Context, postID, userID int64, req model.CreateCommentRequest) (*model.Comment, error) {
	if len(req.Content) == 0 {
		return nil, model.ErrContentRequired
	}
	if len(req.Content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.Create(ctx, postID, author.Username, req.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[CommentService] User %d commented on post %d", userID, postID)

	// Publish engagement event (after insert, best-effort)
	if s.publisher != nil {
		postAuthorID, err := s.postRepo.GetAuthorID(ctx, postID)
		if err == nil && postAuthorID != userID {
			event := queue.NewPostCommentedEvent(userID, postAuthorID, postID, comment.ID)
			if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
				log.Printf("[CommentService] Failed to publish PostCommented event: %v", err)
			}
		}
	}

	return comment, nil
}

// GetByPost returns the full comment list for a post, oldest first,
// with the viewer's like status annotated.
func (s *CommentService) GetByPost(ctx context.Context, postID int64, viewerID *int64) ([]model.Comment, error) {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	comments, err := s.commentRepo.GetByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}

	if viewerID != nil {
		for i := range comments {
			liked, err := s.likeRepo.HasLikedComment(ctx, *viewerID, postID, comments[i].ID)
			if err != nil {
				log.Printf("[CommentService] Failed to check like status for comment %d: %v", comments[i].ID, err)
				continue
			}
			comments[i].IsLiked = liked
		}
	}

	return comments, nil
}

// Like adds a like to a comment.
func (s *CommentService) Like(ctx context.Context, userID, postID, commentID int64) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.PostID != postID {
		return model.ErrCommentNotFound
	}

	if err := s.likeRepo.LikeComment(ctx, userID, postID, commentID); err != nil {
		return err
	}

	log.Printf("[CommentService] User %d liked comment %d", userID, commentID)

	if s.publisher != nil {
		postAuthorID, err := s.postRepo.GetAuthorID(ctx, postID)
		if err == nil && postAuthorID != userID {
			event := queue.NewCommentLikedEvent(userID, postAuthorID, postID, commentID)
			if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
				log.Printf("[CommentService] Failed to publish CommentLiked event: %v", err)
			}
		}
	}

	return nil
}

// Unlike removes a like from a comment.
func (s *CommentService) Unlike(ctx context.Context, userID, postID, commentID int64) error {
	if err := s.likeRepo.UnlikeComment(ctx, userID, postID, commentID); err != nil {
		return err
	}
	log.Printf("[CommentService] User %d unliked comment %d", userID, commentID)
	return nil
}
