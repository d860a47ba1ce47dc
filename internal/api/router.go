package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yourvoice/identity/internal/api/handler"
	"github.com/yourvoice/identity/internal/api/middleware"
	"github.com/yourvoice/identity/internal/identity"
	"github.com/yourvoice/identity/internal/storage"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Service  *identity.Service
	Repo     identity.Repository
	DBPinger handler.DBPinger
	Blobs    storage.BlobStore // nil disables avatar routes
	Version  string
}

// NewRouter creates and configures a chi router with all middleware and
// routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	identityHandler := handler.NewIdentityHandler(deps.Service)
	r.Post("/identify", identityHandler.Identify)

	profileHandler := handler.NewProfileHandler(deps.Repo)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Service))

		r.Get("/session", identityHandler.Session)
		r.Post("/session/revoke", identityHandler.Revoke)

		r.Get("/profiles/me", profileHandler.Me)

		if deps.Blobs != nil {
			avatarHandler := handler.NewAvatarHandler(deps.Repo, deps.Blobs)
			r.With(middleware.RequireUnblocked()).Put("/profiles/me/avatar", avatarHandler.Update)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(identity.RoleAdmin))

			r.Get("/profiles", profileHandler.List)
			r.Post("/profiles/{id}/block", profileHandler.Block)
			r.Post("/profiles/{id}/unblock", profileHandler.Unblock)
		})
	})

	return r
}
