package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"pictogram/internal/cache"
	"pictogram/internal/model"
	"pictogram/internal/queue"
)

// ActivityWriter persists activity rows. Satisfied by the activity
// repository; abstracted so workers don't depend on the DB directly.
type ActivityWriter interface {
	Create(ctx context.Context, activity *model.Activity) error
}

// ActorProvider resolves the acting account for rendering.
type ActorProvider interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Handler turns engagement events into rendered activity entries: one
// row in Postgres plus a push into the recipient's Redis list.
type Handler struct {
	activities    ActivityWriter
	actors        ActorProvider
	activityCache cache.ActivityCache // Can be nil; cache warms on next read
}

// NewHandler creates a new event handler.
func NewHandler(activities ActivityWriter, actors ActorProvider, activityCache cache.ActivityCache) *Handler {
	return &Handler{
		activities:    activities,
		actors:        actors,
		activityCache: activityCache,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.EngagementEvent) error {
	startTime := time.Now()

	content, err := h.renderContent(ctx, event)
	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	if err := h.recordActivity(ctx, event, content); err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s recipient=%d duration=%v",
		event.Type, event.RecipientID, time.Since(startTime))
	return nil
}

// renderContent builds the human-readable entry text. The actor's
// username is captured at render time, matching how comments capture
// author names.
func (h *Handler) renderContent(ctx context.Context, event queue.EngagementEvent) (string, error) {
	actor, err := h.actors.GetByID(ctx, event.ActorID)
	if err != nil {
		return "", fmt.Errorf("resolve actor %d: %w", event.ActorID, err)
	}

	switch event.Type {
	case queue.EventPostLiked:
		return fmt.Sprintf("%s liked your post", actor.Username), nil
	case queue.EventPostCommented:
		return fmt.Sprintf("%s commented on your post", actor.Username), nil
	case queue.EventCommentLiked:
		return fmt.Sprintf("%s liked your comment", actor.Username), nil
	case queue.EventUserFollowed:
		return fmt.Sprintf("%s started following you", actor.Username), nil
	default:
		return "", fmt.Errorf("unknown event type: %s", event.Type)
	}
}

// recordActivity inserts the row, then pushes it to the recipient's
// cache. The cache push is best-effort: the row is the source of truth
// and a cold cache repopulates from it.
func (h *Handler) recordActivity(ctx context.Context, event queue.EngagementEvent, content string) error {
	activity := &model.Activity{
		UserID:  event.RecipientID,
		ActorID: event.ActorID,
		Content: content,
	}

	if err := h.activities.Create(ctx, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}

	if h.activityCache != nil {
		if err := h.activityCache.Push(ctx, event.RecipientID, *activity); err != nil {
			log.Printf("[Worker] Cache push failed for user %d: %v", event.RecipientID, err)
		}
	}

	return nil
}
