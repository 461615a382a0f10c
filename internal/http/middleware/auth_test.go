package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medcare-assistant/internal/auth"
	"github.com/wolfman30/medcare-assistant/internal/identity"
)

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := identity.PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(string(p.Role) + ":" + p.UserID))
	})
}

func TestAuthenticate(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", "medcare", time.Hour)
	token, _, err := issuer.Issue(identity.Principal{UserID: "p1", Role: identity.RolePatient})
	require.NoError(t, err)
	foreign, _, err := auth.NewTokenIssuer("other-secret", "medcare", time.Hour).Issue(identity.Principal{UserID: "p1", Role: identity.RolePatient})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{name: "bearer header", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "patient:p1"},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK, wantBody: "patient:p1"},
		{name: "query parameter", query: "?access_token=" + token, wantStatus: http.StatusOK, wantBody: "patient:p1"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "wrong signature", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chat/state"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(issuer)(principalEcho()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rec.Body.String(), `"detail"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(identity.RoleDoctor, identity.RoleAdmin)

	for _, tt := range []struct {
		name       string
		principal  *identity.Principal
		wantStatus int
	}{
		{name: "doctor", principal: &identity.Principal{UserID: "d1", Role: identity.RoleDoctor}, wantStatus: http.StatusOK},
		{name: "admin", principal: &identity.Principal{UserID: "a1", Role: identity.RoleAdmin}, wantStatus: http.StatusOK},
		{name: "patient", principal: &identity.Principal{UserID: "p1", Role: identity.RolePatient}, wantStatus: http.StatusForbidden},
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/prescriptions", nil)
			if tt.principal != nil {
				req = req.WithContext(identity.WithPrincipal(req.Context(), *tt.principal))
			}
			rec := httptest.NewRecorder()
			mw(principalEcho()).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
