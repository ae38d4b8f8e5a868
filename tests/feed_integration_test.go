package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// End-to-end tests against a running server. Start the stack first
// (docker compose up, or go run ./cmd/server with Postgres and Redis
// available), then:
//
//	TEST_BASE_URL=http://localhost:8080 go test ./tests/...
//
// Tests create their own users per run, so no seed data is required.

var baseURL = getEnv("TEST_BASE_URL", "http://localhost:8080")

const feedPageSize = 5

// ============================================================================
// HTTP Client Helpers
// ============================================================================

type apiClient struct {
	client  *http.Client
	baseURL string
	token   string
}

func newClient() *apiClient {
	return &apiClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

func (c *apiClient) withToken(token string) *apiClient {
	c.token = token
	return c
}

func (c *apiClient) do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func (c *apiClient) get(path string) (*http.Response, error) {
	return c.do("GET", path, nil)
}

func (c *apiClient) post(path string, body interface{}) (*http.Response, error) {
	return c.do("POST", path, body)
}

func (c *apiClient) delete(path string) (*http.Response, error) {
	return c.do("DELETE", path, nil)
}

func parseJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireServer(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		t.Skipf("Server not reachable at %s: %v", baseURL, err)
	}
	resp.Body.Close()
}

// ============================================================================
// Account Helpers
// ============================================================================

// Usernames are capped at 20 chars, so keep prefixes short.
func uniqueUsername(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1e12)
}

type testAccount struct {
	ID       int64
	Username string
	Token    string
	client   *apiClient
}

// registerAccount creates a fresh user through the public API and logs in.
func registerAccount(t *testing.T, prefix string) *testAccount {
	t.Helper()
	username := uniqueUsername(prefix)
	password := "password123"

	resp, err := newClient().post("/auth/register", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Register %s failed: %d - %s", username, resp.StatusCode, body)
	}
	resp.Body.Close()

	resp, err = newClient().post("/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		t.Fatalf("Login %s: %v", username, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Login %s failed: %d - %s", username, resp.StatusCode, body)
	}

	var login struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	if err := parseJSON(resp, &login); err != nil {
		t.Fatalf("Parse login response: %v", err)
	}

	return &testAccount{
		ID:       login.User.ID,
		Username: username,
		Token:    login.AccessToken,
		client:   newClient().withToken(login.AccessToken),
	}
}

func (a *testAccount) createPost(t *testing.T, seed string) int64 {
	t.Helper()
	resp, err := a.client.post("/posts", map[string]string{
		"image_url": "https://picsum.photos/seed/" + seed + "/1080/1080",
	})
	if err != nil {
		t.Fatalf("Create post: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Create post failed: %d - %s", resp.StatusCode, body)
	}
	var post struct {
		ID int64 `json:"id"`
	}
	if err := parseJSON(resp, &post); err != nil {
		t.Fatalf("Parse post: %v", err)
	}
	return post.ID
}

func (a *testAccount) follow(t *testing.T, userID int64) {
	t.Helper()
	resp, err := a.client.post(fmt.Sprintf("/users/%d/follow", userID), nil)
	if err != nil {
		t.Fatalf("Follow %d: %v", userID, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusConflict {
		t.Fatalf("Follow %d failed: %d", userID, resp.StatusCode)
	}
}

type feedResponse struct {
	Items []struct {
		Post struct {
			ID        int64     `json:"id"`
			UserID    int64     `json:"user_id"`
			IsLiked   bool      `json:"is_liked"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"post"`
		Comments []struct {
			ID      int64  `json:"id"`
			Content string `json:"content"`
			IsLiked bool   `json:"is_liked"`
		} `json:"comments"`
	} `json:"items"`
	Page int `json:"page"`
}

func (a *testAccount) getFeed(t *testing.T, page int) feedResponse {
	t.Helper()
	resp, err := a.client.get(fmt.Sprintf("/feed?page=%d", page))
	if err != nil {
		t.Fatalf("Get feed page %d: %v", page, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Get feed page %d failed: %d - %s", page, resp.StatusCode, body)
	}
	var feed feedResponse
	if err := parseJSON(resp, &feed); err != nil {
		t.Fatalf("Parse feed: %v", err)
	}
	return feed
}

// ============================================================================
// TEST CASES
// ============================================================================

func TestFeedRequiresAuth(t *testing.T) {
	requireServer(t)

	resp, err := newClient().get("/feed")
	if err != nil {
		t.Fatalf("Get feed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestEmptyFeed(t *testing.T) {
	requireServer(t)

	viewer := registerAccount(t, "lone")
	feed := viewer.getFeed(t, 1)

	if len(feed.Items) != 0 {
		t.Errorf("Expected empty feed for user following nobody, got %d items", len(feed.Items))
	}
	if feed.Page != 1 {
		t.Errorf("Expected page 1 echoed back, got %d", feed.Page)
	}
}

func TestFeedAggregatesFollowedAccounts(t *testing.T) {
	requireServer(t)

	author1 := registerAccount(t, "auth")
	author2 := registerAccount(t, "autb")
	outsider := registerAccount(t, "outs")
	viewer := registerAccount(t, "view")

	p1 := author1.createPost(t, "agg1")
	p2 := author2.createPost(t, "agg2")
	outsiderPost := outsider.createPost(t, "agg3")

	viewer.follow(t, author1.ID)
	viewer.follow(t, author2.ID)

	feed := viewer.getFeed(t, 1)
	if len(feed.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(feed.Items))
	}

	seen := map[int64]bool{}
	for _, item := range feed.Items {
		seen[item.Post.ID] = true
		if item.Post.ID == outsiderPost {
			t.Errorf("Feed contains post %d from unfollowed account", outsiderPost)
		}
	}
	if !seen[p1] || !seen[p2] {
		t.Errorf("Feed missing followed accounts' posts: have %v, want %d and %d", seen, p1, p2)
	}

	// Newest first across accounts.
	for i := 1; i < len(feed.Items); i++ {
		prev, cur := feed.Items[i-1].Post.CreatedAt, feed.Items[i].Post.CreatedAt
		if cur.After(prev) {
			t.Errorf("Items out of order: item %d (%v) newer than item %d (%v)", i, cur, i-1, prev)
		}
	}
}

func TestFeedPagination(t *testing.T) {
	requireServer(t)

	author := registerAccount(t, "pgau")
	viewer := registerAccount(t, "pgvw")

	total := feedPageSize + 2
	for i := 0; i < total; i++ {
		author.createPost(t, fmt.Sprintf("pg%d", i))
	}
	viewer.follow(t, author.ID)

	page1 := viewer.getFeed(t, 1)
	if len(page1.Items) != feedPageSize {
		t.Errorf("Page 1: expected %d items, got %d", feedPageSize, len(page1.Items))
	}

	page2 := viewer.getFeed(t, 2)
	if len(page2.Items) != total-feedPageSize {
		t.Errorf("Page 2: expected %d items, got %d", total-feedPageSize, len(page2.Items))
	}

	// No overlap between pages.
	page1IDs := map[int64]bool{}
	for _, item := range page1.Items {
		page1IDs[item.Post.ID] = true
	}
	for _, item := range page2.Items {
		if page1IDs[item.Post.ID] {
			t.Errorf("Post %d appears on both pages", item.Post.ID)
		}
	}

	// Past-the-end and non-positive pages are empty, never errors.
	for _, page := range []int{3, 100, 0, -1} {
		feed := viewer.getFeed(t, page)
		if len(feed.Items) != 0 {
			t.Errorf("Page %d: expected empty, got %d items", page, len(feed.Items))
		}
	}
}

func TestFeedAnnotatesViewerLikes(t *testing.T) {
	requireServer(t)

	author := registerAccount(t, "lkau")
	liker := registerAccount(t, "lkvw")
	other := registerAccount(t, "lkot")

	postID := author.createPost(t, "likes")

	resp, err := author.client.post(fmt.Sprintf("/posts/%d/comments", postID), map[string]string{
		"content": "first!",
	})
	if err != nil {
		t.Fatalf("Create comment: %v", err)
	}
	var comment struct {
		ID int64 `json:"id"`
	}
	if err := parseJSON(resp, &comment); err != nil {
		t.Fatalf("Parse comment: %v", err)
	}

	liker.follow(t, author.ID)
	other.follow(t, author.ID)

	if resp, err := liker.client.post(fmt.Sprintf("/posts/%d/like", postID), nil); err != nil {
		t.Fatalf("Like post: %v", err)
	} else {
		resp.Body.Close()
	}
	if resp, err := liker.client.post(fmt.Sprintf("/posts/%d/comments/%d/like", postID, comment.ID), nil); err != nil {
		t.Fatalf("Like comment: %v", err)
	} else {
		resp.Body.Close()
	}

	likerFeed := liker.getFeed(t, 1)
	if len(likerFeed.Items) != 1 {
		t.Fatalf("Liker feed: expected 1 item, got %d", len(likerFeed.Items))
	}
	if !likerFeed.Items[0].Post.IsLiked {
		t.Error("Liker's feed should mark the post as liked")
	}
	if len(likerFeed.Items[0].Comments) != 1 || !likerFeed.Items[0].Comments[0].IsLiked {
		t.Errorf("Liker's feed should mark the comment as liked: %+v", likerFeed.Items[0].Comments)
	}

	otherFeed := other.getFeed(t, 1)
	if len(otherFeed.Items) != 1 {
		t.Fatalf("Other feed: expected 1 item, got %d", len(otherFeed.Items))
	}
	if otherFeed.Items[0].Post.IsLiked {
		t.Error("Non-liker's feed should not mark the post as liked")
	}
	if len(otherFeed.Items[0].Comments) != 1 || otherFeed.Items[0].Comments[0].IsLiked {
		t.Error("Non-liker's feed should not mark the comment as liked")
	}
}

func TestUnfollowRemovesPostsFromFeed(t *testing.T) {
	requireServer(t)

	author := registerAccount(t, "unau")
	viewer := registerAccount(t, "unvw")

	author.createPost(t, "unfollow")
	viewer.follow(t, author.ID)

	before := viewer.getFeed(t, 1)
	if len(before.Items) != 1 {
		t.Fatalf("Expected 1 item before unfollow, got %d", len(before.Items))
	}

	resp, err := viewer.client.delete(fmt.Sprintf("/users/%d/follow", author.ID))
	if err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Unfollow failed: %d", resp.StatusCode)
	}

	after := viewer.getFeed(t, 1)
	if len(after.Items) != 0 {
		t.Errorf("Expected empty feed after unfollow, got %d items", len(after.Items))
	}
}

func TestLikeFlowsIntoActivityFeed(t *testing.T) {
	requireServer(t)

	author := registerAccount(t, "acau")
	fan := registerAccount(t, "acfn")

	postID := author.createPost(t, "activity")
	fan.follow(t, author.ID)

	if resp, err := fan.client.post(fmt.Sprintf("/posts/%d/like", postID), nil); err != nil {
		t.Fatalf("Like post: %v", err)
	} else {
		resp.Body.Close()
	}

	// The activity row is written by an async stream consumer.
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := author.client.get("/me/activity")
		if err != nil {
			t.Fatalf("Get activity: %v", err)
		}
		var activity struct {
			Activities []struct {
				Content string `json:"content"`
			} `json:"activities"`
		}
		if err := parseJSON(resp, &activity); err != nil {
			t.Fatalf("Parse activity: %v", err)
		}

		for _, a := range activity.Activities {
			if a.Content == fan.Username+" liked your post" {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("Like activity never appeared; got %+v", activity.Activities)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
