package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yourvoice/identity/internal/api/middleware"
	"github.com/yourvoice/identity/internal/identity"
)

const testBcryptCost = 4 // low cost for fast tests

// fakeRepo is an in-memory identity.Repository for handler tests.
type fakeRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*identity.Profile
	listErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[uuid.UUID]*identity.Profile)}
}

func (r *fakeRepo) Create(_ context.Context, p *identity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.profiles {
		if existing.Email == p.Email {
			return identity.ErrEmailTaken
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	r.profiles[p.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.profiles[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, identity.ErrProfileNotFound
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		if p.Email == email {
			copied := *p
			return &copied, nil
		}
	}
	return nil, identity.ErrProfileNotFound
}

func (r *fakeRepo) FindByTokenPrefix(_ context.Context, prefix string) ([]identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []identity.Profile{}
	for _, p := range r.profiles {
		if p.TokenPrefix != nil && *p.TokenPrefix == prefix {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) RotateToken(_ context.Context, id uuid.UUID, upd identity.TokenUpdate) (*identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	p.TokenPrefix = &upd.Prefix
	p.TokenHash = &upd.Hash
	expires := upd.ExpiresAt
	p.TokenExpiresAt = &expires
	if upd.DisplayName != nil {
		p.DisplayName = upd.DisplayName
	}
	p.IsAnonymous = upd.IsAnonymous
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) ClearToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return identity.ErrProfileNotFound
	}
	p.TokenPrefix = nil
	p.TokenHash = nil
	p.TokenExpiresAt = nil
	return nil
}

func (r *fakeRepo) SetBlocked(_ context.Context, id uuid.UUID, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return identity.ErrProfileNotFound
	}
	p.IsBlocked = blocked
	return nil
}

func (r *fakeRepo) SetAvatarURL(_ context.Context, id uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return identity.ErrProfileNotFound
	}
	p.AvatarURL = &url
	return nil
}

func (r *fakeRepo) List(_ context.Context) ([]identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []identity.Profile{}
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func newTestService(repo identity.Repository) *identity.Service {
	return identity.NewService(repo, testBcryptCost, time.Hour)
}

// identifiedToken runs an identify against the given service and returns the
// issued token, adjusting role and blocked flag directly in the repo when
// the desired profile asks for them.
func identifiedToken(t *testing.T, repo *fakeRepo, svc *identity.Service, email, role string, blocked bool) (uuid.UUID, string) {
	t.Helper()

	p, token, err := svc.Identify(context.Background(), email, "", true)
	require.NoError(t, err)

	repo.mu.Lock()
	if role != "" {
		repo.profiles[p.ID].Role = role
	}
	repo.profiles[p.ID].IsBlocked = blocked
	repo.mu.Unlock()

	return p.ID, token
}

// serve routes a single request through a chi router carrying the standard
// request-id and auth middlewares, matching the production wiring.
func serve(svc *identity.Service, method, pattern string, handlerFn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.With(middleware.Auth(svc)).MethodFunc(method, pattern, handlerFn)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
