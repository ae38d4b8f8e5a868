package model

import "time"

// Activity is a rendered engagement entry shown in a user's activity
// feed ("alice liked your post"). Rows are written asynchronously by
// the worker; UserID is the recipient, ActorID the account that acted.
type Activity struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	ActorID   int64     `db:"actor_id" json:"actor_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined field (not in activities table)
	Actor *UserSummary `db:"-" json:"actor,omitempty"`
}

// ActivityListResponse is the activity feed response.
type ActivityListResponse struct {
	Activities []Activity `json:"activities"`
}
