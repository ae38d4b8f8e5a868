package handler

import (
	"errors"
	"net/http"

	"pictogram/internal/httputil"
	"pictogram/internal/model"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type BookmarkHandler struct {
	bookmarkService *service.BookmarkService
}

func NewBookmarkHandler(bookmarkService *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{
		bookmarkService: bookmarkService,
	}
}

// Save handles POST /posts/{postID}/bookmark
func (h *BookmarkHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	postID, err := parseIDParam(r, "postID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if err := h.bookmarkService.Save(r.Context(), userID, postID); err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrAlreadyBookmarked):
			httputil.WriteConflict(w, "Post already bookmarked")
		default:
			httputil.WriteInternalError(w, "Failed to bookmark post")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /posts/{postID}/bookmark
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	postID, err := parseIDParam(r, "postID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if err := h.bookmarkService.Remove(r.Context(), userID, postID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotBookmarked):
			httputil.WriteConflict(w, "Post not bookmarked")
		default:
			httputil.WriteInternalError(w, "Failed to remove bookmark")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSaved handles GET /me/bookmarks
func (h *BookmarkHandler) GetSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	posts, err := h.bookmarkService.GetSaved(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to get bookmarks")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}
