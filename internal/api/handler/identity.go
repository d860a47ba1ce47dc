package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourvoice/identity/internal/api/middleware"
	"github.com/yourvoice/identity/internal/api/response"
	"github.com/yourvoice/identity/internal/api/validation"
	"github.com/yourvoice/identity/internal/identity"
)

type identifyRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsAnonymous *bool  `json:"isAnonymous"`
}

type sessionResponse struct {
	Profile   profileResponse `json:"profile"`
	Token     string          `json:"token"`
	ExpiresAt *string         `json:"expiresAt,omitempty"`
}

// IdentityHandler handles the identify and session endpoints.
type IdentityHandler struct {
	svc *identity.Service
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(svc *identity.Service) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// Identify handles POST /identify: the capture form's endpoint. It creates
// or reuses the profile for the supplied email and issues a fresh session
// token, invalidating the previous one.
func (h *IdentityHandler) Identify(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateIdentifyRequest(validation.IdentifyRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	isAnonymous := true
	if req.IsAnonymous != nil {
		isAnonymous = *req.IsAnonymous
	}

	profile, token, err := h.svc.Identify(r.Context(), req.Email, req.DisplayName, isAnonymous)
	if err != nil {
		slog.Error("identify failed", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Identification failed", requestID)
		return
	}

	response.Success(w, http.StatusOK, sessionResponse{
		Profile:   toProfileResponse(profile),
		Token:     token,
		ExpiresAt: formatExpiry(profile.TokenExpiresAt),
	}, requestID)
}

// Session handles GET /session: rehydration for remote clients. The Auth
// middleware has already resolved the bearer token.
func (h *IdentityHandler) Session(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
		return
	}

	response.Success(w, http.StatusOK, toProfileResponse(profile), requestID)
}

// Revoke handles POST /session/revoke: server-side invalidation of the
// presented token. Idempotent from the client's view: a token that no
// longer resolves is already revoked.
func (h *IdentityHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	token := middleware.BearerToken(r)
	if token == "" {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
		return
	}

	if err := h.svc.Revoke(r.Context(), token); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			response.NoContent(w)
			return
		}
		slog.Error("failed to revoke session", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke session", requestID)
		return
	}

	response.NoContent(w)
}
