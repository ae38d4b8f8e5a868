package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pictogram/internal/cache"
	"pictogram/internal/config"
	"pictogram/internal/database"
	"pictogram/internal/handler"
	"pictogram/internal/metrics"
	"pictogram/internal/queue"
	appredis "pictogram/internal/redis"
	"pictogram/internal/repository"
	"pictogram/internal/service"
	authmw "pictogram/internal/transport/http/middleware"
	"pictogram/internal/worker"
)

// Run wires the whole application together and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func Run() error {
	// 1. Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Database (with migrations)
	if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Redis
	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(startupCtx); err != nil {
		cancelStartup()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	cancelStartup()

	// 4. Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// 5. Queue, cache, metrics
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)
	activityCache := cache.NewActivityCache(redisClient.Client)
	collector := metrics.NewCollector()

	// 6. Services
	userService := service.NewUserService(userRepo, followRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	followService := service.NewFollowService(followRepo, userRepo, db, publisher)
	postService := service.NewPostService(postRepo, userRepo, likeRepo, publisher, db)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo, likeRepo, publisher)
	bookmarkService := service.NewBookmarkService(bookmarkRepo, postRepo, likeRepo)
	activityService := service.NewActivityService(activityRepo, userRepo, activityCache)
	feedService := service.NewFeedService(userRepo, followRepo, postRepo, commentRepo, likeRepo, collector, cfg.FeedFetchConcurrency)

	var mediaHandler *handler.MediaHandler
	mediaService, err := service.NewMediaService(context.Background(), cfg)
	if err != nil {
		// Media uploads are optional in development; clients can still
		// post with externally hosted image URLs.
		log.Printf("Media service disabled: %v", err)
	} else {
		mediaHandler = handler.NewMediaHandler(mediaService)
	}

	// 7. Background worker
	manager := worker.NewManager(
		consumer,
		worker.NewHandler(activityRepo, userRepo, activityCache),
		worker.DefaultManagerConfig(),
	)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := manager.Start(workerCtx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	// 8. Router and server
	router := NewRouter(RouterConfig{
		AuthHandler:     handler.NewAuthHandler(userService, authService),
		UserHandler:     handler.NewUserHandler(userService, authService),
		FollowHandler:   handler.NewFollowHandler(followService),
		FeedHandler:     handler.NewFeedHandler(feedService),
		PostHandler:     handler.NewPostHandler(postService),
		CommentHandler:  handler.NewCommentHandler(commentService),
		BookmarkHandler: handler.NewBookmarkHandler(bookmarkService),
		ActivityHandler: handler.NewActivityHandler(activityService),
		MediaHandler:    mediaHandler,
		MetricsHandler:  collector.Handler(),
		RateLimiter:     authmw.NewRateLimiter(10, 30),
		JWTSecret:       cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	// Block until shutdown signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		manager.Stop()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	manager.Stop()
	return nil
}
