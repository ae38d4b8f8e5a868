package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pictogram/internal/httputil"
	"pictogram/internal/model"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

func NewUserHandler(userService *service.UserService, authService *service.AuthService) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
	}
}

// GetProfile handles GET /users/{userID}
// Works anonymously; signed-in viewers get is_following.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrUsernameExists):
			httputil.WriteConflict(w, "Username already exists")
		case errors.Is(err, model.ErrUsernameTooLong):
			httputil.WriteBadRequest(w, "Username must be at most 20 characters")
		case errors.Is(err, model.ErrInvalidAvatarURL):
			httputil.WriteBadRequest(w, "Avatar URL is not a valid URL")
		default:
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /me/password
// All refresh tokens are revoked on success; other sessions must log
// in again.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.userService.ChangePassword(r.Context(), userID, &req); err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCredentials):
			httputil.WriteUnauthorized(w, "Current password is incorrect")
		case errors.Is(err, model.ErrPasswordTooShort):
			httputil.WriteBadRequest(w, "Password must be at least 8 characters")
		default:
			httputil.WriteInternalError(w, "Failed to change password")
		}
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		// Password already changed; a failed revocation is not worth a 500.
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed, all sessions logged out"})
}

// parseIDParam parses a chi URL parameter as an int64 ID.
func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
