package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pictogram/internal/handler"
	"pictogram/internal/httputil"
	authmw "pictogram/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	FollowHandler   *handler.FollowHandler
	FeedHandler     *handler.FeedHandler
	PostHandler     *handler.PostHandler
	CommentHandler  *handler.CommentHandler
	BookmarkHandler *handler.BookmarkHandler
	ActivityHandler *handler.ActivityHandler
	MediaHandler    *handler.MediaHandler
	MetricsHandler  http.Handler
	RateLimiter     *authmw.RateLimiter
	JWTSecret       string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	optional := authmw.OptionalAuth(cfg.JWTSecret)

	// Public read endpoints with optional authentication
	r.Group(func(r chi.Router) {
		r.Use(optional)

		r.Get("/users/{userID}", cfg.UserHandler.GetProfile)
		r.Get("/users/{userID}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{userID}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{userID}/posts", cfg.PostHandler.GetUserPosts)
		r.Get("/posts/{postID}", cfg.PostHandler.Get)
		r.Get("/posts/{postID}/comments", cfg.CommentHandler.GetByPost)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.Auth(cfg.JWTSecret))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Put("/me", cfg.UserHandler.UpdateProfile)
		r.Put("/me/password", cfg.UserHandler.ChangePassword)
		r.Get("/me/bookmarks", cfg.BookmarkHandler.GetSaved)
		r.Get("/me/activity", cfg.ActivityHandler.GetRecent)

		// Auth actions that require authentication
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Follow/unfollow
		r.Post("/users/{userID}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{userID}/follow", cfg.FollowHandler.Unfollow)

		// Following feed
		r.Get("/feed", cfg.FeedHandler.GetFollowingFeed)

		// Posts
		r.Post("/posts", cfg.PostHandler.Create)
		r.Delete("/posts/{postID}", cfg.PostHandler.Delete)
		r.Post("/posts/{postID}/like", cfg.PostHandler.Like)
		r.Delete("/posts/{postID}/like", cfg.PostHandler.Unlike)
		r.Post("/posts/{postID}/bookmark", cfg.BookmarkHandler.Save)
		r.Delete("/posts/{postID}/bookmark", cfg.BookmarkHandler.Remove)

		// Comments
		r.Post("/posts/{postID}/comments", cfg.CommentHandler.Create)
		r.Post("/posts/{postID}/comments/{commentID}/like", cfg.CommentHandler.Like)
		r.Delete("/posts/{postID}/comments/{commentID}/like", cfg.CommentHandler.Unlike)

		// Media uploads
		if cfg.MediaHandler != nil {
			r.Post("/media/avatar", cfg.MediaHandler.UploadAvatar)
			r.Post("/media/post", cfg.MediaHandler.UploadPostImage)
		}
	})

	return r
}
