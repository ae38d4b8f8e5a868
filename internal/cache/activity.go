package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"pictogram/internal/model"
)

const (
	// ActivityCachePrefix is the key prefix for per-user activity lists
	ActivityCachePrefix = "activity:user:"

	// ActivityCacheCap is the maximum number of entries kept per user
	ActivityCacheCap = 100

	// ActivityCacheTTL bounds how long an idle activity list survives
	ActivityCacheTTL = 72 * time.Hour
)

// ActivityCache keeps each user's most recent activity entries in Redis
// so the activity feed endpoint rarely hits Postgres. The worker pushes
// entries as it writes rows; reads fall back to the database on a miss.
type ActivityCache interface {
	// Push prepends an entry to the user's list, trimming to the cap.
	Push(ctx context.Context, userID int64, activity model.Activity) error

	// GetRecent returns up to limit entries, newest first. found is
	// false when the user has no cached list (cold or expired).
	GetRecent(ctx context.Context, userID int64, limit int) (activities []model.Activity, found bool, err error)

	// Warm replaces the user's list with the given entries (newest first).
	Warm(ctx context.Context, userID int64, activities []model.Activity) error
}

// RedisActivityCache implements ActivityCache using Redis lists of
// JSON-encoded entries.
type RedisActivityCache struct {
	client *redis.Client
}

// NewActivityCache creates an ActivityCache backed by Redis.
func NewActivityCache(client *redis.Client) ActivityCache {
	return &RedisActivityCache{client: client}
}

func activityKey(userID int64) string {
	return fmt.Sprintf("%s%d", ActivityCachePrefix, userID)
}

// Push prepends via a pipeline: LPUSH + LTRIM (maintain cap) + EXPIRE
// (refresh TTL).
func (c *RedisActivityCache) Push(ctx context.Context, userID int64, activity model.Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	key := activityKey(userID)
	pipe := c.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, ActivityCacheCap-1)
	pipe.Expire(ctx, key, ActivityCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[ActivityCache] Push FAILED: user=%d err=%v", userID, err)
		return fmt.Errorf("push activity: %w", err)
	}
	return nil
}

// GetRecent reads the head of the list. A missing key is a miss, not an
// error; the caller falls back to the database.
func (c *RedisActivityCache) GetRecent(ctx context.Context, userID int64, limit int) ([]model.Activity, bool, error) {
	key := activityKey(userID)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("check activity cache: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	raw, err := c.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[ActivityCache] GetRecent FAILED: user=%d err=%v", userID, err)
		return nil, false, fmt.Errorf("read activity cache: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, ActivityCacheTTL)

	activities := make([]model.Activity, 0, len(raw))
	for _, item := range raw {
		var a model.Activity
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			// One corrupt entry poisons the list; drop the key and
			// let the next read repopulate from the database.
			log.Printf("[ActivityCache] Corrupt entry for user %d, dropping cache: %v", userID, err)
			c.client.Del(ctx, key)
			return nil, false, nil
		}
		activities = append(activities, a)
	}

	return activities, true, nil
}

// Warm replaces the list atomically via a pipeline: DEL + RPUSH in
// given order + EXPIRE.
func (c *RedisActivityCache) Warm(ctx context.Context, userID int64, activities []model.Activity) error {
	key := activityKey(userID)

	if len(activities) > ActivityCacheCap {
		activities = activities[:ActivityCacheCap]
	}

	values := make([]interface{}, 0, len(activities))
	for _, a := range activities {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal activity: %w", err)
		}
		values = append(values, data)
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		// RPUSH keeps the slice order, newest first.
		pipe.RPush(ctx, key, values...)
	}
	pipe.Expire(ctx, key, ActivityCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[ActivityCache] Warm FAILED: user=%d entries=%d err=%v", userID, len(activities), err)
		return fmt.Errorf("warm activity cache: %w", err)
	}

	log.Printf("[ActivityCache] Warm OK: user=%d entries=%d", userID, len(activities))
	return nil
}
