package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"pictogram/internal/httputil"
	"pictogram/internal/model"
	"pictogram/internal/service"
	"pictogram/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

// UploadAvatar handles POST /media/avatar
// Multipart form with an "image" file field.
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.MaxAvatarSizeBytes, h.mediaService.UploadAvatar)
}

// UploadPostImage handles POST /media/post
// Multipart form with an "image" file field. The returned URL is used
// in a subsequent POST /posts.
func (h *MediaHandler) UploadPostImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.MaxPostImageSizeBytes, h.mediaService.UploadPostImage)
}

func (h *MediaHandler) upload(
	w http.ResponseWriter,
	r *http.Request,
	maxSize int64,
	fn func(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error),
) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	maxFormSize := maxSize + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Upload exceeds size limit")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "Missing image file")
		return
	}
	defer file.Close()

	result, err := fn(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Upload exceeds size limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			httputil.WriteInternalError(w, "Failed to upload image")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, result)
}
