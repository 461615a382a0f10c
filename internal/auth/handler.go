package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

var existsMessages = map[identity.Role]string{
	identity.RolePatient: "Patient already exists",
	identity.RoleDoctor:  "Doctor already exists",
	identity.RoleAdmin:   "Admin already exists",
}

type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Register handles POST /auth/register/{role}.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	role, err := identity.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid role specified")
		return
	}

	var req RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acct, err := h.service.Register(r.Context(), role, req)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusCreated, registerResponse{ID: acct.ID, Username: acct.Username, Role: string(acct.Role)})
	case errors.Is(err, users.ErrUsernameTaken):
		respond.Detail(w, http.StatusConflict, existsMessages[role])
	case errors.Is(err, ErrWeakPassword),
		errors.Is(err, users.ErrMissingUsername),
		errors.Is(err, users.ErrMissingPassword),
		errors.Is(err, users.ErrMissingSpecialization):
		respond.Detail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("registration failed", "role", role, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.service.Login(r.Context(), req)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, token)
	case errors.Is(err, ErrInvalidRole):
		respond.Detail(w, http.StatusBadRequest, "Invalid role specified")
	case errors.Is(err, ErrInvalidCredentials):
		respond.Detail(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.logger.Error("login failed", "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Error logging in")
	}
}
