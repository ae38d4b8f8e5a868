package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the engagement stream
const (
	EventPostLiked     = "post_liked"
	EventPostCommented = "post_commented"
	EventCommentLiked  = "comment_liked"
	EventUserFollowed  = "user_followed"
)

// Stream names
const (
	StreamEngagement = "stream:engagement"
)

// Consumer group name for activity workers
const (
	ConsumerGroupActivity = "activity_workers"
)

// EngagementEvent is published whenever one account acts on another's
// content. The worker turns these into activity-feed rows for the
// recipient.
type EngagementEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// ActorID is the account that acted, RecipientID the account whose
	// activity feed receives the entry.
	ActorID     int64 `json:"actor_id"`
	RecipientID int64 `json:"recipient_id"`

	// Subject of the action, depending on Type.
	PostID    int64 `json:"post_id,omitempty"`
	CommentID int64 `json:"comment_id,omitempty"`
}

// NewPostLikedEvent creates an event for a like on a post.
func NewPostLikedEvent(actorID, postAuthorID, postID int64) EngagementEvent {
	return EngagementEvent{
		Type:        EventPostLiked,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: postAuthorID,
		PostID:      postID,
	}
}

// NewPostCommentedEvent creates an event for a new comment on a post.
func NewPostCommentedEvent(actorID, postAuthorID, postID, commentID int64) EngagementEvent {
	return EngagementEvent{
		Type:        EventPostCommented,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: postAuthorID,
		PostID:      postID,
		CommentID:   commentID,
	}
}

// NewCommentLikedEvent creates an event for a like on a comment.
func NewCommentLikedEvent(actorID, postAuthorID, postID, commentID int64) EngagementEvent {
	return EngagementEvent{
		Type:        EventCommentLiked,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: postAuthorID,
		PostID:      postID,
		CommentID:   commentID,
	}
}

// NewUserFollowedEvent creates an event for a new follow edge.
func NewUserFollowedEvent(followerID, followeeID int64) EngagementEvent {
	return EngagementEvent{
		Type:        EventUserFollowed,
		Timestamp:   time.Now().Unix(),
		ActorID:     followerID,
		RecipientID: followeeID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e EngagementEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEngagementEvent parses an EngagementEvent from Redis stream message values.
func ParseEngagementEvent(values map[string]interface{}) (EngagementEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return EngagementEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event EngagementEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return EngagementEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
