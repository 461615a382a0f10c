package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/medcare-assistant/internal/auth"
	"github.com/wolfman30/medcare-assistant/internal/chatbot"
	httpmiddleware "github.com/wolfman30/medcare-assistant/internal/http/middleware"
	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/internal/reminders"
	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	Tokens               httpmiddleware.TokenVerifier
	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	SchedulingHandler    *scheduling.Handler
	PrescriptionsHandler *prescriptions.Handler
	ChatHandler          *chatbot.Handler
	RemindersHandler     *reminders.Handler
	MetricsHandler       http.Handler
	CORSAllowedOrigins   []string

	// Per-client limits for the login and chat endpoints. Zero disables.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new HTTP router
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		limited = httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	patient := httpmiddleware.RequireRole(identity.RolePatient)
	doctor := httpmiddleware.RequireRole(identity.RoleDoctor)

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/auth", func(r chi.Router) {
			r.Use(limited)
			r.Post("/register/{role}", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
		})
	})

	// Authenticated endpoints
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.Authenticate(cfg.Tokens))

		api.Route("/doctors", func(r chi.Router) {
			r.Get("/", cfg.UsersHandler.ListDoctors)
			r.Get("/{doctorID}", cfg.UsersHandler.GetDoctor)
			r.Get("/{doctorID}/timeslots", cfg.SchedulingHandler.DoctorSlots)
		})
		api.Route("/patients/me", func(r chi.Router) {
			r.Use(patient)
			r.Get("/", cfg.UsersHandler.GetMe)
			r.Patch("/", cfg.UsersHandler.UpdateMe)
		})

		api.With(doctor).Post("/timeslots", cfg.SchedulingHandler.CreateSlot)
		api.Route("/appointments", func(r chi.Router) {
			r.With(patient).Post("/", cfg.SchedulingHandler.Book)
			r.Get("/", cfg.SchedulingHandler.ListAppointments)
			r.With(doctor).Post("/{appointmentID}/inactive", cfg.SchedulingHandler.MarkInactive)
		})

		api.Route("/prescriptions", func(r chi.Router) {
			r.With(doctor).Post("/", cfg.PrescriptionsHandler.Create)
			r.With(patient).Get("/", cfg.PrescriptionsHandler.ListMine)
			r.Post("/{prescriptionID}/reminders/activate", cfg.PrescriptionsHandler.ActivateReminders)
		})

		api.Route("/chat", func(r chi.Router) {
			r.Use(patient)
			r.With(limited).Post("/", cfg.ChatHandler.Chat)
			r.Get("/state", cfg.ChatHandler.GetState)
			r.Delete("/state", cfg.ChatHandler.ResetState)
			r.Get("/history", cfg.ChatHandler.History)
			r.Get("/ws", cfg.ChatHandler.WebSocket)
			if cfg.RemindersHandler != nil {
				r.Get("/reminders", cfg.RemindersHandler.Drain)
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
