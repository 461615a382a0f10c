package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medcare-assistant/internal/identity"
)

type upperHasher struct{}

func (upperHasher) Hash(p string) (string, error) { return strings.ToUpper(p), nil }

func seedHandler(t *testing.T) (*Handler, *InMemoryRepository, string) {
	t.Helper()
	repo := NewInMemoryRepository()
	ctx := context.Background()
	patient, err := repo.CreateAccount(ctx, NewAccount{Role: identity.RolePatient, Username: "jane", HashedPassword: "h", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = repo.CreateAccount(ctx, NewAccount{Role: identity.RoleDoctor, Username: "doc", HashedPassword: "h", FirstName: "John", LastName: "Smith", Specialization: "Cardiologist"})
	require.NoError(t, err)
	return NewHandler(repo, upperHasher{}, nil), repo, patient.ID
}

func TestHandler_ListDoctors(t *testing.T) {
	h, _, _ := seedHandler(t)

	rec := httptest.NewRecorder()
	h.ListDoctors(rec, httptest.NewRequest(http.MethodGet, "/doctors?specialization=heart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doctors []Doctor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctors))
	require.Len(t, doctors, 1)
	assert.Equal(t, "Smith", doctors[0].LastName)

	rec = httptest.NewRecorder()
	h.ListDoctors(rec, httptest.NewRequest(http.MethodGet, "/doctors?specialization=urologist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No doctors found for the given specialization: 'urologist'")
}

func TestHandler_GetDoctor(t *testing.T) {
	h, _, _ := seedHandler(t)
	r := chi.NewRouter()
	r.Get("/doctors/{doctorID}", h.GetDoctor)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Doctor not found"}`, rec.Body.String())
}

func TestHandler_PatientProfile(t *testing.T) {
	h, repo, patientID := seedHandler(t)
	ctx := identity.WithPrincipal(context.Background(), identity.Principal{UserID: patientID, Role: identity.RolePatient})

	rec := httptest.NewRecorder()
	h.GetMe(rec, httptest.NewRequest(http.MethodGet, "/patients/me", nil).WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first_name":"Jane"`)

	body := `{"last_name":"Roe","dob":"1990-05-01","password":"secret"}`
	rec = httptest.NewRecorder()
	h.UpdateMe(rec, httptest.NewRequest(http.MethodPatch, "/patients/me", strings.NewReader(body)).WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_name":"Roe"`)

	acct, err := repo.FindAccount(context.Background(), identity.RolePatient, "jane")
	require.NoError(t, err)
	assert.Equal(t, "SECRET", acct.HashedPassword)

	rec = httptest.NewRecorder()
	h.UpdateMe(rec, httptest.NewRequest(http.MethodPatch, "/patients/me", strings.NewReader(`{"dob":"May 1"}`)).WithContext(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.GetMe(rec, httptest.NewRequest(http.MethodGet, "/patients/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
