package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pictogram/internal/httputil"
	"pictogram/internal/model"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Create handles POST /posts/{postID}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), postID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment content exceeds 1024 characters")
		default:
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// GetByPost handles GET /posts/{postID}/comments
func (h *CommentHandler) GetByPost(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	comments, err := h.commentService.GetByPost(r.Context(), postID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// Like handles POST /posts/{postID}/comments/{commentID}/like
func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
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
	commentID, err := parseIDParam(r, "commentID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	if err := h.commentService.Like(r.Context(), userID, postID, commentID); err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrAlreadyLiked):
			httputil.WriteConflict(w, "Comment already liked")
		default:
			httputil.WriteInternalError(w, "Failed to like comment")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unlike handles DELETE /posts/{postID}/comments/{commentID}/like
func (h *CommentHandler) Unlike(w http.ResponseWriter, r *http.Request) {
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
	commentID, err := parseIDParam(r, "commentID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	if err := h.commentService.Unlike(r.Context(), userID, postID, commentID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotLiked):
			httputil.WriteConflict(w, "Comment not liked")
		default:
			httputil.WriteInternalError(w, "Failed to unlike comment")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
