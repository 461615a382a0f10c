package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medcare-assistant/internal/app/bootstrap"
	"github.com/wolfman30/medcare-assistant/internal/auth"
	"github.com/wolfman30/medcare-assistant/internal/chatbot"
	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/internal/reminders"
	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

func newTestRouter(t *testing.T, rps float64) http.Handler {
	t.Helper()

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	cfg := &appconfig.Config{
		Env:                 "development",
		JWTSecret:           "router-test-secret",
		JWTIssuer:           "medcare",
		JWTTTL:              time.Hour,
		HistoryMaxTurns:     20,
		LLMProvider:         "static",
		LLMMaxTokens:        150,
		UseMemoryQueue:      true,
		ReminderTimezone:    "UTC",
		ReminderWorkerCount: 1,
	}
	svc, err := bootstrap.BuildServices(context.Background(), cfg, bootstrap.Infra{Registry: reg}, logger)
	require.NoError(t, err)

	return New(&Config{
		Logger:               logger,
		Tokens:               svc.Tokens,
		AuthHandler:          auth.NewHandler(svc.Auth, logger),
		UsersHandler:         users.NewHandler(svc.Users, auth.BcryptHasher{}, logger),
		SchedulingHandler:    scheduling.NewHandler(svc.Scheduling, logger),
		PrescriptionsHandler: prescriptions.NewHandler(svc.Prescriptions, logger),
		ChatHandler:          chatbot.NewHandler(svc.Engine, svc.Transcript, logger),
		RemindersHandler:     reminders.NewHandler(svc.Inbox, logger),
		MetricsHandler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:   []string{"https://app.example.com"},
		RateLimitRPS:         rps,
		RateLimitBurst:       2,
	})
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, h http.Handler, role string, body map[string]string) string {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/auth/register/"+role, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"username": body["username"],
		"password": body["password"],
		"role":     role,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func TestRouterHealthEndpoint(t *testing.T) {
	h := newTestRouter(t, 0)
	rec := call(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouterRequiresToken(t *testing.T) {
	h := newTestRouter(t, 0)
	for _, path := range []string{"/doctors", "/appointments", "/chat/state", "/chat/reminders", "/prescriptions"} {
		rec := call(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterBookingAndChatFlow(t *testing.T) {
	h := newTestRouter(t, 0)

	patient := registerAndLogin(t, h, "patient", map[string]string{
		"username": "pat@example.com", "password": "supersecret", "first_name": "Pat", "last_name": "Lee",
	})
	doctor := registerAndLogin(t, h, "doctor", map[string]string{
		"username": "dr.smith", "password": "supersecret", "first_name": "John", "last_name": "Smith",
		"specialization": "Cardiologist",
	})

	rec := call(t, h, http.MethodGet, "/doctors?specialization=heart", patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Smith")

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	slotBody := map[string]time.Time{"start_time": start, "end_time": start.Add(30 * time.Minute)}
	rec = call(t, h, http.MethodPost, "/timeslots", patient, slotBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPost, "/timeslots", doctor, slotBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var slot scheduling.TimeSlot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slot))

	rec = call(t, h, http.MethodGet, "/doctors/"+slot.DoctorID+"/timeslots", patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), slot.ID)

	rec = call(t, h, http.MethodPost, "/appointments", patient, map[string]string{"time_slot_id": slot.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(t, h, http.MethodPost, "/appointments", patient, map[string]string{"time_slot_id": slot.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, h, http.MethodPost, "/chat", patient, map[string]string{"user_message": "hello there"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply chatbot.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, chatbot.StageGeneral, reply.Stage)
	assert.NotEmpty(t, reply.Response)

	rec = call(t, h, http.MethodPost, "/chat", doctor, map[string]string{"user_message": "hello"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodGet, "/chat/history", patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello there")

	rec = call(t, h, http.MethodGet, "/chat/reminders", patient, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookings_total")
	assert.Contains(t, rec.Body.String(), "medcare_chat_turns_total")
}

func TestRouterRateLimitsLogin(t *testing.T) {
	h := newTestRouter(t, 0.001)
	body := map[string]string{"username": "nobody", "password": "whatever1", "role": "patient"}

	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(t, h, http.MethodPost, "/auth/login", "", body).Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newTestRouter(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
