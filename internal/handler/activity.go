package handler

import (
	"net/http"

	"pictogram/internal/httputil"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type ActivityHandler struct {
	activityService *service.ActivityService
}

func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// GetRecent handles GET /me/activity
// Returns the authenticated user's recent activity entries, newest first.
func (h *ActivityHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	resp, err := h.activityService.GetRecent(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to get activity")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
