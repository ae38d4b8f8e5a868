package handler

import (
	"errors"
	"net/http"

	"pictogram/internal/httputil"
	"pictogram/internal/model"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow handles POST /users/{userID}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	followeeID, err := parseIDParam(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Follow(r.Context(), followerID, followeeID); err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, "Cannot follow yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrAlreadyFollowing):
			httputil.WriteConflict(w, "Already following this user")
		default:
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow handles DELETE /users/{userID}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	followeeID, err := parseIDParam(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteConflict(w, "Not following this user")
		default:
			httputil.WriteInternalError(w, "Failed to unfollow user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetFollowers handles GET /users/{userID}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	resp, err := h.followService.GetFollowers(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to get followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetFollowing handles GET /users/{userID}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	resp, err := h.followService.GetFollowing(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to get following")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
