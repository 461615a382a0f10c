package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
)

// TokenVerifier turns a bearer token into the caller it was issued to.
type TokenVerifier interface {
	Verify(token string) (identity.Principal, error)
}

// Authenticate requires a valid bearer token and stores the caller in the
// request context. Browsers cannot set headers on a websocket upgrade, so an
// access_token query parameter is accepted as well.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				respond.Detail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			principal, err := verifier.Verify(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				respond.Detail(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// RequireRole lets through only callers holding one of roles. It must run
// after Authenticate.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.PrincipalFromContext(r.Context())
			if !ok {
				respond.Detail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !slices.Contains(roles, p.Role) {
				respond.Detail(w, http.StatusForbidden, "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
