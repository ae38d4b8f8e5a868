package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pictogram/internal/metrics"
	"pictogram/internal/model"
)

const (
	// FeedPageSize is the fixed number of feed items per page.
	// Not caller-configurable.
	FeedPageSize = 5

	// DefaultFeedFetchConcurrency caps in-flight store lookups during
	// aggregation when no limit is configured.
	DefaultFeedFetchConcurrency = 8
)

// maxFeedPage keeps the page window arithmetic clear of integer overflow.
const maxFeedPage = math.MaxInt / FeedPageSize

// The feed service declares the slice of each repository it actually
// reads. The sqlx repositories satisfy these; tests substitute small
// fakes.
type (
	feedUserStore interface {
		GetByID(ctx context.Context, id int64) (*model.User, error)
	}
	feedFollowStore interface {
		GetFollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	}
	feedPostStore interface {
		GetByAuthor(ctx context.Context, userID int64) ([]model.Post, error)
	}
	feedCommentStore interface {
		GetByPost(ctx context.Context, postID int64) ([]model.Comment, error)
	}
	feedLikeStore interface {
		HasLikedPost(ctx context.Context, userID, postID int64) (bool, error)
		HasLikedComment(ctx context.Context, userID, postID, commentID int64) (bool, error)
	}
)

// FeedService assembles the following feed: it fans out across the
// accounts the viewer follows, collects their posts with fully
// annotated comments, and returns one fixed-size page ordered by
// recency.
type FeedService struct {
	userRepo    feedUserStore
	followRepo  feedFollowStore
	postRepo    feedPostStore
	commentRepo feedCommentStore
	likeRepo    feedLikeStore
	metrics     metrics.FeedMetrics
	concurrency int64
}

func NewFeedService(
	userRepo feedUserStore,
	followRepo feedFollowStore,
	postRepo feedPostStore,
	commentRepo feedCommentStore,
	likeRepo feedLikeStore,
	m metrics.FeedMetrics,
	concurrency int,
) *FeedService {
	if concurrency <= 0 {
		concurrency = DefaultFeedFetchConcurrency
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &FeedService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		metrics:     m,
		concurrency: int64(concurrency),
	}
}

// GetFollowingFeed returns page `page` (1-based) of the viewer's
// following feed.
//
// Flow:
//  1. Resolve the viewer (defensive; a valid session should always resolve)
//  2. Fan out across followed accounts, collecting posts
//  3. For each post, materialize comments and annotate is_liked for the viewer
//  4. Sort everything by created_at descending, slice out one page
//
// The aggregation either completes fully or fails; a store error on any
// branch aborts the request rather than producing a partial feed. Pages
// past the end of the data, and page indices below 1, yield an empty
// slice, never an error.
func (s *FeedService) GetFollowingFeed(ctx context.Context, viewerID int64, page int) ([]model.FeedItem, error) {
	startTime := time.Now()

	if _, err := s.userRepo.GetByID(ctx, viewerID); err != nil {
		s.metrics.RecordFeedFailure()
		return nil, err
	}

	followingIDs, err := s.followRepo.GetFollowingIDs(ctx, viewerID)
	if err != nil {
		s.metrics.RecordFeedFailure()
		return nil, fmt.Errorf("get following ids: %w", err)
	}

	if len(followingIDs) == 0 {
		log.Printf("[FeedService] User %d follows no one, empty feed", viewerID)
		return []model.FeedItem{}, nil
	}

	items, err := s.aggregate(ctx, viewerID, followingIDs)
	if err != nil {
		s.metrics.RecordFeedFailure()
		return nil, fmt.Errorf("aggregate feed: %w", err)
	}

	sortFeedItems(items)
	pageItems := paginateFeed(items, page)

	s.metrics.RecordFeedSuccess(time.Since(startTime), len(pageItems))
	log.Printf("[FeedService] GetFollowingFeed OK: user=%d following=%d total=%d page=%d returned=%d duration=%v",
		viewerID, len(followingIDs), len(items), page, len(pageItems), time.Since(startTime))

	return pageItems, nil
}

// aggregate builds one feed item per post across all followed accounts.
// Completion order is irrelevant; the sort step is the single ordering
// authority. A weighted semaphore caps concurrent store lookups at the
// configured budget across both phases, and the errgroup's context
// cancels all outstanding work on the first error.
func (s *FeedService) aggregate(ctx context.Context, viewerID int64, accountIDs []int64) ([]model.FeedItem, error) {
	sem := semaphore.NewWeighted(s.concurrency)

	// Phase 1: posts per followed account.
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var posts []model.Post
	for _, accountID := range accountIDs {
		g.Go(func() error {
			var accountPosts []model.Post
			err := s.withStoreSlot(gctx, sem, func() error {
				var err error
				accountPosts, err = s.postRepo.GetByAuthor(gctx, accountID)
				return err
			})
			if err != nil {
				return fmt.Errorf("posts for account %d: %w", accountID, err)
			}
			mu.Lock()
			posts = append(posts, accountPosts...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Phase 2: one feed item per post. Each goroutine owns its slot in
	// the result slice, so no locking is needed here.
	g, gctx = errgroup.WithContext(ctx)
	items := make([]model.FeedItem, len(posts))
	for i, post := range posts {
		g.Go(func() error {
			item, err := s.buildFeedItem(gctx, sem, viewerID, post)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

// buildFeedItem materializes a post's complete comment list and
// annotates the post and every comment with is_liked for the viewer.
// The item is assembled only once all annotations have completed.
func (s *FeedService) buildFeedItem(ctx context.Context, sem *semaphore.Weighted, viewerID int64, post model.Post) (model.FeedItem, error) {
	var comments []model.Comment
	err := s.withStoreSlot(ctx, sem, func() error {
		var err error
		comments, err = s.commentRepo.GetByPost(ctx, post.ID)
		return err
	})
	if err != nil {
		return model.FeedItem{}, fmt.Errorf("comments for post %d: %w", post.ID, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.withStoreSlot(gctx, sem, func() error {
			liked, err := s.likeRepo.HasLikedPost(gctx, viewerID, post.ID)
			if err != nil {
				return fmt.Errorf("like check for post %d: %w", post.ID, err)
			}
			post.IsLiked = liked
			return nil
		})
	})

	for i := range comments {
		g.Go(func() error {
			return s.withStoreSlot(gctx, sem, func() error {
				liked, err := s.likeRepo.HasLikedComment(gctx, viewerID, post.ID, comments[i].ID)
				if err != nil {
					return fmt.Errorf("like check for comment %d: %w", comments[i].ID, err)
				}
				comments[i].IsLiked = liked
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return model.FeedItem{}, err
	}

	return model.FeedItem{Post: post, Comments: comments}, nil
}

// withStoreSlot runs fn while holding one unit of the store-access
// budget. Acquire respects context cancellation, so abandoned requests
// never leak queued lookups.
func (s *FeedService) withStoreSlot(ctx context.Context, sem *semaphore.Weighted, fn func() error) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)
	s.metrics.RecordStoreLookup()
	return fn()
}

// sortFeedItems orders items by created_at descending, most recent
// first. The sort is not stable: items with identical timestamps keep
// no guaranteed relative order.
func sortFeedItems(items []model.FeedItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Post.CreatedAt.After(items[j].Post.CreatedAt)
	})
}

// paginateFeed slices out the half-open window [(page-1)*size, page*size).
// Non-positive and past-the-end pages produce an empty slice.
func paginateFeed(items []model.FeedItem, page int) []model.FeedItem {
	if page < 1 || page > maxFeedPage {
		return []model.FeedItem{}
	}
	start := (page - 1) * FeedPageSize
	if start >= len(items) {
		return []model.FeedItem{}
	}
	end := start + FeedPageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
