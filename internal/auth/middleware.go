package auth

import (
	"net/http"
	"strings"

	"github.com/revforge/revforge/internal/platform/httpx"
	"github.com/revforge/revforge/internal/shared"
)

// Middleware attaches the caller's identity to request contexts.
type Middleware struct {
	service *Service
}

func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Optional resolves a token when present but lets anonymous requests
// through. Browsing endpoints use it to personalize without requiring login.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if identity, err := m.service.Resolve(r.Context(), token); err == nil {
				r = r.WithContext(shared.ContextWithIdentity(r.Context(), &identity))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without a valid token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		identity, err := m.service.Resolve(r.Context(), token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), &identity)))
	})
}

// RequireStaff rejects non-staff callers. Runs on top of Require.
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := shared.IdentityFromContext(r.Context())
		if identity == nil || !identity.IsStaff {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
