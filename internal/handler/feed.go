package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"pictogram/internal/httputil"
	"pictogram/internal/model"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFollowingFeed handles GET /feed
// Returns one page of the authenticated user's following feed.
//
// Query params:
//   - page: optional, 1-based page index (default 1). Pages past the
//     end of the data return an empty items list.
func (h *FeedHandler) GetFollowingFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid page parameter")
			return
		}
		page = parsed
	}

	items, err := h.feedService.GetFollowingFeed(r.Context(), userID, page)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing to write.
			return
		}
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] GetFollowingFeed handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.FeedResponse{Items: items, Page: page})
}
