package worker_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"pictogram/internal/cache"
	"pictogram/internal/model"
	"pictogram/internal/queue"
	"pictogram/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockActivityWriter records activity rows in memory. Guarded by a
// mutex because the manager calls Create from worker goroutines.
type MockActivityWriter struct {
	mu         sync.Mutex
	activities []model.Activity
	failWith   error
	nextID     int64
}

func (m *MockActivityWriter) Create(ctx context.Context, activity *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	activity.ID = m.nextID
	activity.CreatedAt = time.Now()
	m.activities = append(m.activities, *activity)
	return nil
}

func (m *MockActivityWriter) Recorded() []model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Activity, len(m.activities))
	copy(out, m.activities)
	return out
}

// MockActorProvider resolves actor accounts from a fixed map.
type MockActorProvider struct {
	users map[int64]*model.User
}

func NewMockActorProvider() *MockActorProvider {
	return &MockActorProvider{users: make(map[int64]*model.User)}
}

func (m *MockActorProvider) AddUser(id int64, username string) {
	m.users[id] = &model.User{ID: id, Username: username}
}

func (m *MockActorProvider) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

// =============================================================================
// Handler Unit Tests
// =============================================================================

func TestHandler_RendersActivityContent(t *testing.T) {
	actors := NewMockActorProvider()
	actors.AddUser(1, "alice")

	cases := []struct {
		event       queue.EngagementEvent
		wantContent string
	}{
		{queue.NewPostLikedEvent(1, 2, 100), "alice liked your post"},
		{queue.NewPostCommentedEvent(1, 2, 100, 200), "alice commented on your post"},
		{queue.NewCommentLikedEvent(1, 2, 100, 200), "alice liked your comment"},
		{queue.NewUserFollowedEvent(1, 2), "alice started following you"},
	}

	for _, tc := range cases {
		writer := &MockActivityWriter{}
		handler := worker.NewHandler(writer, actors, nil)

		if err := handler.HandleEvent(context.Background(), tc.event); err != nil {
			t.Fatalf("%s: HandleEvent failed: %v", tc.event.Type, err)
		}

		if len(writer.activities) != 1 {
			t.Fatalf("%s: recorded %d activities, want 1", tc.event.Type, len(writer.activities))
		}
		got := writer.activities[0]
		if got.Content != tc.wantContent {
			t.Errorf("%s: content = %q, want %q", tc.event.Type, got.Content, tc.wantContent)
		}
		if got.UserID != 2 {
			t.Errorf("%s: recipient = %d, want 2", tc.event.Type, got.UserID)
		}
		if got.ActorID != 1 {
			t.Errorf("%s: actor = %d, want 1", tc.event.Type, got.ActorID)
		}
	}
}

func TestHandler_UnknownEventType(t *testing.T) {
	actors := NewMockActorProvider()
	actors.AddUser(1, "alice")
	writer := &MockActivityWriter{}
	handler := worker.NewHandler(writer, actors, nil)

	event := queue.EngagementEvent{Type: "post_boosted", ActorID: 1, RecipientID: 2}
	err := handler.HandleEvent(context.Background(), event)
	if err == nil || !strings.Contains(err.Error(), "unknown event type") {
		t.Fatalf("error = %v, want unknown event type", err)
	}
	if len(writer.activities) != 0 {
		t.Error("no activity should be recorded for an unknown event type")
	}
}

func TestHandler_WriteFailurePropagates(t *testing.T) {
	actors := NewMockActorProvider()
	actors.AddUser(1, "alice")
	writeErr := errors.New("insert failed")
	writer := &MockActivityWriter{failWith: writeErr}
	handler := worker.NewHandler(writer, actors, nil)

	err := handler.HandleEvent(context.Background(), queue.NewPostLikedEvent(1, 2, 100))
	if !errors.Is(err, writeErr) {
		t.Fatalf("error = %v, want wrapped %v", err, writeErr)
	}
}

// =============================================================================
// Redis Integration Tests
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)
	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx := context.Background()
	client.FlushDB(ctx)
	client.Close()
}

// TestHandler_PushesToActivityCache verifies the cache list carries
// the entry the handler just wrote.
func TestHandler_PushesToActivityCache(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	activityCache := cache.NewActivityCache(client)
	actors := NewMockActorProvider()
	actors.AddUser(1, "alice")
	writer := &MockActivityWriter{}
	handler := worker.NewHandler(writer, actors, activityCache)

	if err := handler.HandleEvent(ctx, queue.NewPostLikedEvent(1, 2, 100)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	entries, found, err := activityCache.GetRecent(ctx, 2, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if !found {
		t.Fatal("recipient's activity cache should exist after the event")
	}
	if len(entries) != 1 {
		t.Fatalf("cached entries = %d, want 1", len(entries))
	}
	if entries[0].Content != "alice liked your post" {
		t.Errorf("content = %q, want %q", entries[0].Content, "alice liked your post")
	}
}

// TestPublishConsumeRoundTrip runs the full path: publish to the
// stream, consume through the manager, observe the activity row.
func TestPublishConsumeRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	actors := NewMockActorProvider()
	actors.AddUser(1, "alice")
	writer := &MockActivityWriter{}
	handler := worker.NewHandler(writer, actors, cache.NewActivityCache(client))

	manager := worker.NewManager(queue.NewConsumer(client), handler, worker.ManagerConfig{
		WorkerCount:  1,
		BatchSize:    10,
		BlockTimeout: 100 * time.Millisecond,
	})
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	publisher := queue.NewPublisher(client)
	if _, err := publisher.Publish(ctx, queue.StreamEngagement, queue.NewUserFollowedEvent(1, 2)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(writer.Recorded()) == 1 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	recorded := writer.Recorded()
	if len(recorded) != 1 {
		t.Fatalf("recorded %d activities, want 1", len(recorded))
	}
	if recorded[0].Content != "alice started following you" {
		t.Errorf("content = %q, want %q", recorded[0].Content, "alice started following you")
	}
}
