package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pictogram/internal/model"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================

type mockFollowRepository struct {
	getFollowingIDsFn func(ctx context.Context, userID int64) ([]int64, error)
}

func (m *mockFollowRepository) GetFollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.getFollowingIDsFn != nil {
		return m.getFollowingIDsFn(ctx, userID)
	}
	return nil, nil
}

type mockPostRepository struct {
	getByAuthorFn func(ctx context.Context, userID int64) ([]model.Post, error)
}

func (m *mockPostRepository) GetByAuthor(ctx context.Context, userID int64) ([]model.Post, error) {
	if m.getByAuthorFn != nil {
		return m.getByAuthorFn(ctx, userID)
	}
	return nil, nil
}

type mockCommentRepository struct {
	getByPostFn func(ctx context.Context, postID int64) ([]model.Comment, error)
}

func (m *mockCommentRepository) GetByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	if m.getByPostFn != nil {
		return m.getByPostFn(ctx, postID)
	}
	return nil, nil
}

type mockLikeIndex struct {
	hasLikedPostFn    func(ctx context.Context, userID, postID int64) (bool, error)
	hasLikedCommentFn func(ctx context.Context, userID, postID, commentID int64) (bool, error)
}

func (m *mockLikeIndex) HasLikedPost(ctx context.Context, userID, postID int64) (bool, error) {
	if m.hasLikedPostFn != nil {
		return m.hasLikedPostFn(ctx, userID, postID)
	}
	return false, nil
}

func (m *mockLikeIndex) HasLikedComment(ctx context.Context, userID, postID, commentID int64) (bool, error) {
	if m.hasLikedCommentFn != nil {
		return m.hasLikedCommentFn(ctx, userID, postID, commentID)
	}
	return false, nil
}

// =============================================================================
// FIXTURES
// =============================================================================

var feedBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func feedViewerRepo() *mockUserRepository {
	return &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: fmt.Sprintf("user%d", id)}, nil
		},
	}
}

func newTestFeedService(
	users *mockUserRepository,
	follows *mockFollowRepository,
	posts *mockPostRepository,
	comments *mockCommentRepository,
	likes *mockLikeIndex,
	concurrency int,
) *FeedService {
	return NewFeedService(users, follows, posts, comments, likes, nil, concurrency)
}

// =============================================================================
// TESTS
// =============================================================================

func TestFeedService_EmptyWhenFollowingNoOne(t *testing.T) {
	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return []int64{}, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				t.Error("post lookup should not run when the viewer follows no one")
				return nil, nil
			},
		},
		&mockCommentRepository{},
		&mockLikeIndex{},
		0,
	)

	items, err := svc.GetFollowingFeed(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if items == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}

func TestFeedService_ViewerNotFound(t *testing.T) {
	svc := newTestFeedService(
		&mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
		},
		&mockFollowRepository{},
		&mockPostRepository{},
		&mockCommentRepository{},
		&mockLikeIndex{},
		0,
	)

	_, err := svc.GetFollowingFeed(context.Background(), 999, 1)
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}

func TestFeedService_SortsDescendingAcrossAccounts(t *testing.T) {
	// Account 2 posts at t1 and t3, account 3 posts at t2. The merged
	// feed must interleave them most recent first regardless of which
	// account produced which post.
	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return []int64{2, 3}, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				switch userID {
				case 2:
					return []model.Post{
						{ID: 10, UserID: 2, CreatedAt: feedBase.Add(1 * time.Minute)},
						{ID: 30, UserID: 2, CreatedAt: feedBase.Add(3 * time.Minute)},
					}, nil
				case 3:
					return []model.Post{
						{ID: 20, UserID: 3, CreatedAt: feedBase.Add(2 * time.Minute)},
					}, nil
				}
				return nil, nil
			},
		},
		&mockCommentRepository{},
		&mockLikeIndex{},
		0,
	)

	items, err := svc.GetFollowingFeed(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	wantOrder := []int64{30, 20, 10}
	if len(items) != len(wantOrder) {
		t.Fatalf("items = %d, want %d", len(items), len(wantOrder))
	}
	for i, want := range wantOrder {
		if items[i].Post.ID != want {
			t.Errorf("items[%d].Post.ID = %d, want %d", i, items[i].Post.ID, want)
		}
	}

	// Only one page of data exists, so page 2 is empty.
	page2, err := svc.GetFollowingFeed(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(page2) != 0 {
		t.Errorf("page 2 items = %d, want 0", len(page2))
	}
}

func TestFeedService_Pagination(t *testing.T) {
	// 12 posts from a single account: pages of 5, 5, 2, then empty.
	posts := make([]model.Post, 12)
	for i := range posts {
		posts[i] = model.Post{
			ID:        int64(i + 1),
			UserID:    2,
			CreatedAt: feedBase.Add(time.Duration(i) * time.Minute),
		}
	}

	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return []int64{2}, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				return posts, nil
			},
		},
		&mockCommentRepository{},
		&mockLikeIndex{},
		0,
	)

	wantLens := map[int]int{1: 5, 2: 5, 3: 2, 4: 0, 0: 0, -1: 0}
	seen := make(map[int64]int)
	for page, wantLen := range wantLens {
		items, err := svc.GetFollowingFeed(context.Background(), 1, page)
		if err != nil {
			t.Fatalf("page %d: expected no error, got: %v", page, err)
		}
		if len(items) != wantLen {
			t.Errorf("page %d: items = %d, want %d", page, len(items), wantLen)
		}
		if page >= 1 {
			for _, item := range items {
				seen[item.Post.ID] = page
			}
		}
	}

	// Pages 1-3 together cover every post exactly once.
	if len(seen) != len(posts) {
		t.Errorf("pages 1-3 covered %d distinct posts, want %d", len(seen), len(posts))
	}

	// Pages are contiguous slices of the descending order: page 1 holds
	// the 5 newest posts (ids 12..8), page 2 the next 5, page 3 the rest.
	for id, page := range seen {
		var wantPage int
		switch {
		case id >= 8:
			wantPage = 1
		case id >= 3:
			wantPage = 2
		default:
			wantPage = 3
		}
		if page != wantPage {
			t.Errorf("post %d on page %d, want page %d", id, page, wantPage)
		}
	}
}

func TestFeedService_AnnotatesLikesPerViewer(t *testing.T) {
	comments := []model.Comment{
		{ID: 100, PostID: 10, AuthorName: "bob", Content: "first"},
		{ID: 101, PostID: 10, AuthorName: "carol", Content: "second"},
	}

	newSvc := func() *FeedService {
		return newTestFeedService(
			feedViewerRepo(),
			&mockFollowRepository{
				getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
					return []int64{2}, nil
				},
			},
			&mockPostRepository{
				getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
					return []model.Post{{ID: 10, UserID: 2, CreatedAt: feedBase}}, nil
				},
			},
			&mockCommentRepository{
				getByPostFn: func(ctx context.Context, postID int64) ([]model.Comment, error) {
					out := make([]model.Comment, len(comments))
					copy(out, comments)
					return out, nil
				},
			},
			&mockLikeIndex{
				// Viewer 1 liked the post and comment 100; viewer 5 liked nothing.
				hasLikedPostFn: func(ctx context.Context, userID, postID int64) (bool, error) {
					return userID == 1, nil
				},
				hasLikedCommentFn: func(ctx context.Context, userID, postID, commentID int64) (bool, error) {
					return userID == 1 && commentID == 100, nil
				},
			},
			0,
		)
	}

	items, err := newSvc().GetFollowingFeed(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	item := items[0]
	if !item.Post.IsLiked {
		t.Error("viewer 1: post.IsLiked = false, want true")
	}
	if len(item.Comments) != len(comments) {
		t.Fatalf("comments = %d, want %d", len(item.Comments), len(comments))
	}
	if !item.Comments[0].IsLiked {
		t.Error("viewer 1: comment 100 IsLiked = false, want true")
	}
	if item.Comments[1].IsLiked {
		t.Error("viewer 1: comment 101 IsLiked = true, want false")
	}

	// The same data viewed by someone else carries different flags.
	items, err = newSvc().GetFollowingFeed(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if items[0].Post.IsLiked {
		t.Error("viewer 5: post.IsLiked = true, want false")
	}
	for _, c := range items[0].Comments {
		if c.IsLiked {
			t.Errorf("viewer 5: comment %d IsLiked = true, want false", c.ID)
		}
	}
}

func TestFeedService_StoreErrorFailsWholeRequest(t *testing.T) {
	storeErr := errors.New("connection reset")

	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return []int64{2, 3, 4}, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				if userID == 3 {
					return nil, storeErr
				}
				return []model.Post{{ID: userID * 10, UserID: userID, CreatedAt: feedBase}}, nil
			},
		},
		&mockCommentRepository{},
		&mockLikeIndex{},
		0,
	)

	items, err := svc.GetFollowingFeed(context.Background(), 1, 1)
	if !errors.Is(err, storeErr) {
		t.Fatalf("error = %v, want wrapped %v", err, storeErr)
	}
	if items != nil {
		t.Errorf("expected nil items on failure, got %d items", len(items))
	}
}

func TestFeedService_CommentErrorFailsWholeRequest(t *testing.T) {
	storeErr := errors.New("timeout")

	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return []int64{2}, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				return []model.Post{{ID: 10, UserID: 2, CreatedAt: feedBase}}, nil
			},
		},
		&mockCommentRepository{
			getByPostFn: func(ctx context.Context, postID int64) ([]model.Comment, error) {
				return nil, storeErr
			},
		},
		&mockLikeIndex{},
		0,
	)

	if _, err := svc.GetFollowingFeed(context.Background(), 1, 1); !errors.Is(err, storeErr) {
		t.Fatalf("error = %v, want wrapped %v", err, storeErr)
	}
}

func TestFeedService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return []int64{2, 3, 4, 5}, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				cancel()
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		&mockCommentRepository{},
		&mockLikeIndex{},
		2,
	)

	if _, err := svc.GetFollowingFeed(ctx, 1, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestFeedService_RespectsConcurrencyBudget(t *testing.T) {
	const budget = 3

	var inFlight, maxInFlight atomic.Int64
	enter := func() {
		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	leave := func() { inFlight.Add(-1) }

	accountIDs := make([]int64, 20)
	for i := range accountIDs {
		accountIDs[i] = int64(i + 2)
	}

	svc := newTestFeedService(
		feedViewerRepo(),
		&mockFollowRepository{
			getFollowingIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
				return accountIDs, nil
			},
		},
		&mockPostRepository{
			getByAuthorFn: func(ctx context.Context, userID int64) ([]model.Post, error) {
				enter()
				defer leave()
				return []model.Post{{ID: userID * 10, UserID: userID, CreatedAt: feedBase.Add(time.Duration(userID) * time.Second)}}, nil
			},
		},
		&mockCommentRepository{
			getByPostFn: func(ctx context.Context, postID int64) ([]model.Comment, error) {
				enter()
				defer leave()
				return []model.Comment{{ID: postID + 1, PostID: postID}}, nil
			},
		},
		&mockLikeIndex{
			hasLikedPostFn: func(ctx context.Context, userID, postID int64) (bool, error) {
				enter()
				defer leave()
				return false, nil
			},
			hasLikedCommentFn: func(ctx context.Context, userID, postID, commentID int64) (bool, error) {
				enter()
				defer leave()
				return false, nil
			},
		},
		budget,
	)

	items, err := svc.GetFollowingFeed(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(items) != FeedPageSize {
		t.Errorf("items = %d, want %d", len(items), FeedPageSize)
	}
	if got := maxInFlight.Load(); got > budget {
		t.Errorf("max in-flight store lookups = %d, want <= %d", got, budget)
	}
}

func TestPaginateFeed_Bounds(t *testing.T) {
	items := make([]model.FeedItem, 7)
	for i := range items {
		items[i].Post.ID = int64(i)
	}

	cases := []struct {
		page int
		want int
	}{
		{page: -3, want: 0},
		{page: 0, want: 0},
		{page: 1, want: 5},
		{page: 2, want: 2},
		{page: 3, want: 0},
		{page: 1 << 40, want: 0},
	}
	for _, tc := range cases {
		got := paginateFeed(items, tc.page)
		if len(got) != tc.want {
			t.Errorf("paginateFeed(7 items, page=%d) = %d items, want %d", tc.page, len(got), tc.want)
		}
	}
}
