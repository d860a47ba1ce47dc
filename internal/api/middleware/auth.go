package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/yourvoice/identity/internal/api/response"
	"github.com/yourvoice/identity/internal/identity"
)

const profileKey contextKey = "profile"

// TokenResolver resolves a raw bearer token to a profile. Implemented by
// *identity.Service.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*identity.Profile, error)
}

// Auth is middleware that extracts the Authorization bearer token and
// resolves it to a Profile. Missing, stale, and expired tokens return 401.
func Auth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			token := BearerToken(r)
			if token == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
				return
			}

			profile, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrInvalidToken) {
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired session token", requestID)
					return
				}
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed", requestID)
				return
			}

			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetProfile retrieves the authenticated Profile from the request context.
func GetProfile(ctx context.Context) *identity.Profile {
	if p, ok := ctx.Value(profileKey).(*identity.Profile); ok {
		return p
	}
	return nil
}

// BearerToken extracts the raw token from the Authorization header, or
// empty when the header is missing or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const scheme = "Bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return ""
	}
	return strings.TrimSpace(header[len(scheme):])
}
