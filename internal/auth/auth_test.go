package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/internal/users"
)

func newTestService() (*Service, *TokenIssuer) {
	tokens := NewTokenIssuer("test-secret", "medcare", time.Minute)
	return NewService(users.NewInMemoryRepository(), BcryptHasher{Cost: bcrypt.MinCost}, tokens, nil), tokens
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "medcare", time.Minute)
	token, expires, err := issuer.Issue(identity.Principal{UserID: "p-1", Role: identity.RolePatient})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	p, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{UserID: "p-1", Role: identity.RolePatient}, p)

	_, err = NewTokenIssuer("other", "medcare", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer("secret", "someone-else", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpiredAndForeignAlgorithms(t *testing.T) {
	issuer := NewTokenIssuer("secret", "", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.Issue(identity.Principal{UserID: "p-1", Role: identity.RolePatient})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "patient"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, tokens := newTestService()
	ctx := context.Background()

	acct, err := svc.Register(ctx, identity.RoleDoctor, RegisterRequest{
		Username: "jsmith", Password: "longenough", FirstName: "John", LastName: "Smith", Specialization: "Cardiologist",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, identity.RoleDoctor, RegisterRequest{Username: "jsmith", Password: "longenough", Specialization: "x"})
	assert.ErrorIs(t, err, users.ErrUsernameTaken)

	_, err = svc.Register(ctx, identity.RolePatient, RegisterRequest{Username: "short", Password: "123"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	tok, err := svc.Login(ctx, LoginRequest{Username: "jsmith", Password: "longenough", Role: "doctor"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	p, err := tokens.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, p.UserID)
	assert.Equal(t, identity.RoleDoctor, p.Role)

	_, err = svc.Login(ctx, LoginRequest{Username: "jsmith", Password: "wrong-password", Role: "doctor"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Username: "jsmith", Password: "longenough", Role: "patient"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Username: "jsmith", Password: "longenough", Role: "nurse"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/auth/register/{role}", h.Register)
	r.Post("/auth/login", h.Login)

	body := `{"username":"jane","password":"password1","first_name":"Jane","last_name":"Doe","dob":"1990-01-02"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register/patient", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register/patient", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"detail":"Patient already exists"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register/nurse", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"jane","password":"password1","role":"patient"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var tok Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.NotEmpty(t, tok.AccessToken)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"jane","password":"nope","role":"patient"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid credentials"}`, rec.Body.String())
}
