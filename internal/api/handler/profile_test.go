package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/yourvoice/identity/internal/api/handler"
	"github.com/yourvoice/identity/internal/identity"
)

// ===== GET /profiles/me =====

func TestProfileMe_ReturnsAuthenticatedProfile(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	_, token := identifiedToken(t, repo, svc, "me@example.com", "", false)

	req := httptest.NewRequest(http.MethodGet, "/profiles/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(svc, http.MethodGet, "/profiles/me", h.Me, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "me@example.com", data["email"])
}

func TestProfileMe_RequiresToken(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/profiles/me", nil)
	w := serve(svc, http.MethodGet, "/profiles/me", h.Me, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ===== GET /profiles =====

func TestProfileList_ReturnsAll(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	identifiedToken(t, repo, svc, "one@example.com", "", false)
	_, token := identifiedToken(t, repo, svc, "admin@example.com", identity.RoleAdmin, false)

	req := httptest.NewRequest(http.MethodGet, "/profiles", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(svc, http.MethodGet, "/profiles", h.List, req)

	assert.Equal(t, http.StatusOK, w.Code)

	env := parseEnvelope(t, w)
	items := env["data"].([]any)
	assert.Len(t, items, 2)
	meta := env["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["total"])
}

// ===== POST /profiles/{id}/block =====

func TestProfileBlock_SetsFlag(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	targetID, _ := identifiedToken(t, repo, svc, "target@example.com", "", false)
	_, token := identifiedToken(t, repo, svc, "admin@example.com", identity.RoleAdmin, false)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+targetID.String()+"/block", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(svc, http.MethodPost, "/profiles/{id}/block", h.Block, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	blocked, err := repo.GetByID(req.Context(), targetID)
	assert.NoError(t, err)
	assert.True(t, blocked.IsBlocked)
}

func TestProfileBlock_InvalidID(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	_, token := identifiedToken(t, repo, svc, "admin@example.com", identity.RoleAdmin, false)

	req := httptest.NewRequest(http.MethodPost, "/profiles/not-a-uuid/block", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(svc, http.MethodPost, "/profiles/{id}/block", h.Block, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}

func TestProfileBlock_NotFound(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	_, token := identifiedToken(t, repo, svc, "admin@example.com", identity.RoleAdmin, false)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+uuid.NewString()+"/block", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(svc, http.MethodPost, "/profiles/{id}/block", h.Block, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileUnblock_ClearsFlag(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo)
	h := handler.NewProfileHandler(repo)

	targetID, _ := identifiedToken(t, repo, svc, "target@example.com", "", true)
	_, token := identifiedToken(t, repo, svc, "admin@example.com", identity.RoleAdmin, false)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+targetID.String()+"/unblock", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(svc, http.MethodPost, "/profiles/{id}/unblock", h.Unblock, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	p, err := repo.GetByID(req.Context(), targetID)
	assert.NoError(t, err)
	assert.False(t, p.IsBlocked)
}
