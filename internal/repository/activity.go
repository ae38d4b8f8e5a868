package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pictogram/internal/model"
)

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create inserts a rendered activity entry.
func (r *activityRepository) Create(ctx context.Context, a *model.Activity) error {
	query := `
		INSERT INTO activities (user_id, actor_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, a.UserID, a.ActorID, a.Content).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetRecentByUser returns the newest activity entries addressed to userID.
func (r *activityRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]model.Activity, error) {
	query := `
		SELECT id, user_id, actor_id, content, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	activities := []model.Activity{}
	err := r.db.SelectContext(ctx, &activities, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent activities: %w", err)
	}
	return activities, nil
}
