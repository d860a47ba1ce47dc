package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/yourvoice/identity/internal/api/middleware"
	"github.com/yourvoice/identity/internal/api/response"
	"github.com/yourvoice/identity/internal/identity"
	"github.com/yourvoice/identity/internal/storage"
)

const maxAvatarBytes = 5 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AvatarHandler handles profile avatar uploads.
type AvatarHandler struct {
	repo  identity.Repository
	blobs storage.BlobStore
}

// NewAvatarHandler creates a new AvatarHandler.
func NewAvatarHandler(repo identity.Repository, blobs storage.BlobStore) *AvatarHandler {
	return &AvatarHandler{repo: repo, blobs: blobs}
}

// Update handles PUT /profiles/me/avatar: a multipart upload stored in the
// blob bucket, with the public URL written back to the profile row.
func (h *AvatarHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_UPLOAD", "Request must be a multipart form of at most 5 MiB", requestID)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_UPLOAD", "An avatar file field is required", requestID)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, ok := avatarExtensions[contentType]
	if !ok {
		response.Err(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", "Avatar must be JPEG, PNG, or WebP", requestID)
		return
	}

	key := path.Join("avatars", fmt.Sprintf("%s%s", profile.ID, ext))
	if err := h.blobs.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		slog.Error("failed to store avatar", "error", err, "id", profile.ID, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store avatar", requestID)
		return
	}

	url := h.blobs.PublicURL(key)
	if err := h.repo.SetAvatarURL(r.Context(), profile.ID, url); err != nil {
		slog.Error("failed to save avatar URL", "error", err, "id", profile.ID, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save avatar", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"avatarUrl": url}, requestID)
}
