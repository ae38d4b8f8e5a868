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

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	db         *sqlx.DB
	publisher  queue.Publisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		db:         db,
		publisher:  publisher,
	}
}

// Follow creates a follower -> followee edge and bumps both counter
// columns in one transaction.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.followRepo.Create(ctx, tx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !inserted {
		return model.ErrAlreadyFollowing
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, 1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	// Publish engagement event (after commit!)
	if s.publisher != nil {
		event := queue.NewUserFollowedEvent(followerID, followeeID)
		if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
			log.Printf("[FollowService] Failed to publish UserFollowed event: follower=%d followee=%d err=%v",
				followerID, followeeID, err)
		}
	}

	log.Printf("[FollowService] User %d followed user %d", followerID, followeeID)
	return nil
}

// Unfollow removes the edge and decrements both counters in one
// transaction.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.followRepo.Delete(ctx, tx, followerID, followeeID); err != nil {
		return err
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, -1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[FollowService] User %d unfollowed user %d", followerID, followeeID)
	return nil
}

// GetFollowers retrieves the users who follow the specified user.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64) (*model.FollowListResponse, error) {
	users, err := s.followRepo.GetFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.FollowListResponse{Users: users}, nil
}

// GetFollowing retrieves the users the specified user follows.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64) (*model.FollowListResponse, error) {
	users, err := s.followRepo.GetFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.FollowListResponse{Users: users}, nil
}
