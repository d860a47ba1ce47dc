package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yourvoice/identity/internal/api/middleware"
	"github.com/yourvoice/identity/internal/api/response"
	"github.com/yourvoice/identity/internal/identity"
)

// ProfileHandler handles profile endpoints, including the admin moderation
// surface.
type ProfileHandler struct {
	repo identity.Repository
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(repo identity.Repository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// Me handles GET /profiles/me.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
		return
	}

	response.Success(w, http.StatusOK, toProfileResponse(profile), requestID)
}

// List handles GET /profiles (admin).
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	profiles, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list profiles", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list profiles", requestID)
		return
	}

	items := make([]profileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, toProfileResponse(&profiles[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Block handles POST /profiles/{id}/block (admin).
func (h *ProfileHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock handles POST /profiles/{id}/unblock (admin).
func (h *ProfileHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *ProfileHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	if err := h.repo.SetBlocked(r.Context(), id, blocked); err != nil {
		if errors.Is(err, identity.ErrProfileNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Profile not found", requestID)
			return
		}
		slog.Error("failed to update blocked flag", "error", err, "id", id, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update profile", requestID)
		return
	}

	response.NoContent(w)
}
