package service

import (
	"context"
	"fmt"
	"log"

	"pictogram/internal/cache"
	"pictogram/internal/model"
	"pictogram/internal/repository"
)

// DefaultActivityLimit is how many entries the activity feed returns.
const DefaultActivityLimit = 50

// ActivityService reads the per-user activity feed. Entries are written
// asynchronously by the worker; this service only ever reads, preferring
// the Redis list and falling back to Postgres on a cold cache.
type ActivityService struct {
	activityRepo repository.ActivityRepository
	userRepo     repository.UserRepository
	cache        cache.ActivityCache
}

func NewActivityService(
	activityRepo repository.ActivityRepository,
	userRepo repository.UserRepository,
	activityCache cache.ActivityCache,
) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		userRepo:     userRepo,
		cache:        activityCache,
	}
}

// GetRecent returns the user's most recent activity entries, newest
// first, with actor summaries attached.
func (s *ActivityService) GetRecent(ctx context.Context, userID int64) (*model.ActivityListResponse, error) {
	activities, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.attachActors(ctx, activities); err != nil {
		// Actor summaries are decoration; the rendered content already
		// names the actor.
		log.Printf("[ActivityService] Failed to attach actors for user %d: %v", userID, err)
	}

	return &model.ActivityListResponse{Activities: activities}, nil
}

func (s *ActivityService) load(ctx context.Context, userID int64) ([]model.Activity, error) {
	if s.cache != nil {
		activities, found, err := s.cache.GetRecent(ctx, userID, DefaultActivityLimit)
		if err != nil {
			log.Printf("[ActivityService] Cache read failed for user %d, falling back to DB: %v", userID, err)
		} else if found {
			return activities, nil
		}
	}

	activities, err := s.activityRepo.GetRecentByUser(ctx, userID, DefaultActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("get activities: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Warm(ctx, userID, activities); err != nil {
			log.Printf("[ActivityService] Cache warm failed for user %d: %v", userID, err)
		}
	}

	return activities, nil
}

// attachActors batch-resolves the acting accounts into summaries.
func (s *ActivityService) attachActors(ctx context.Context, activities []model.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	idSet := make(map[int64]struct{}, len(activities))
	ids := make([]int64, 0, len(activities))
	for _, a := range activities {
		if _, ok := idSet[a.ActorID]; !ok {
			idSet[a.ActorID] = struct{}{}
			ids = append(ids, a.ActorID)
		}
	}

	summaries, err := s.userRepo.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}

	for i := range activities {
		if summary, ok := summaries[activities[i].ActorID]; ok {
			activities[i].Actor = &summary
		}
	}
	return nil
}
