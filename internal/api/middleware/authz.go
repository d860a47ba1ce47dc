package middleware

import (
	"net/http"

	"github.com/yourvoice/identity/internal/api/response"
)

// RequireRole returns middleware that rejects profiles whose role is not in
// the allowed list.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			profile := GetProfile(r.Context())
			if profile == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
				return
			}

			if !allowed[profile.Role] {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireUnblocked returns middleware for write paths: blocked profiles are
// rejected with 403. Read paths stay open to them.
func RequireUnblocked() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			profile := GetProfile(r.Context())
			if profile == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
				return
			}

			if profile.IsBlocked {
				response.Err(w, http.StatusForbidden, "BLOCKED", "This account is blocked from write actions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
