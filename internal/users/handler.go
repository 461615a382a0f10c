package users

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// PasswordHasher hashes a new password on profile update.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Handler serves doctor discovery and the patient profile.
type Handler struct {
	repo      Repository
	directory *Directory
	hasher    PasswordHasher
	logger    *logging.Logger
}

func NewHandler(repo Repository, hasher PasswordHasher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:      repo,
		directory: NewDirectory(repo, logger),
		hasher:    hasher,
		logger:    logger,
	}
}

// ListDoctors handles GET /doctors?specialization=.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	spec := strings.TrimSpace(r.URL.Query().Get("specialization"))

	var (
		doctors []Doctor
		err     error
	)
	if spec == "" {
		doctors, err = h.directory.ListDoctors(r.Context())
	} else {
		doctors, err = h.directory.FindBySpecialization(r.Context(), spec)
	}
	if err != nil {
		respond.Detail(w, http.StatusInternalServerError, "Error occurred while retrieving doctors.")
		return
	}
	if spec != "" && len(doctors) == 0 {
		respond.Detail(w, http.StatusNotFound, fmt.Sprintf("No doctors found for the given specialization: '%s'", spec))
		return
	}
	if doctors == nil {
		doctors = []Doctor{}
	}
	respond.JSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /doctors/{doctorID}.
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.directory.GetDoctor(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			respond.Detail(w, http.StatusNotFound, "Doctor not found")
			return
		}
		h.logger.Error("failed to load doctor", "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Error occurred while retrieving doctors.")
		return
	}
	respond.JSON(w, http.StatusOK, doctor)
}

// GetMe handles GET /patients/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	patient, err := h.repo.GetPatient(r.Context(), principal.UserID)
	if err != nil {
		h.writePatientError(w, principal.UserID, err)
		return
	}
	respond.JSON(w, http.StatusOK, patient)
}

// UpdatePatientRequest is the PATCH /patients/me body. DOB uses YYYY-MM-DD.
type UpdatePatientRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	DOB         *string `json:"dob,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// UpdateMe handles PATCH /patients/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var req UpdatePatientRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := PatientUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}
	if req.DOB != nil && *req.DOB != "" {
		dob, err := time.Parse(time.DateOnly, *req.DOB)
		if err != nil {
			respond.Detail(w, http.StatusBadRequest, "dob must use the YYYY-MM-DD format")
			return
		}
		update.DOB = &dob
	}
	if req.Password != nil && *req.Password != "" {
		if h.hasher == nil {
			respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
			return
		}
		hashed, err := h.hasher.Hash(*req.Password)
		if err != nil {
			h.logger.Error("failed to hash password", "error", err)
			respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
			return
		}
		update.HashedPassword = &hashed
	}

	patient, err := h.repo.UpdatePatient(r.Context(), principal.UserID, update)
	if err != nil {
		h.writePatientError(w, principal.UserID, err)
		return
	}
	h.logger.Info("patient updated", "patient_id", principal.UserID)
	respond.JSON(w, http.StatusOK, patient)
}

func (h *Handler) writePatientError(w http.ResponseWriter, patientID string, err error) {
	if errors.Is(err, ErrPatientNotFound) {
		respond.Detail(w, http.StatusNotFound, fmt.Sprintf("Patient not found with ID: %s", patientID))
		return
	}
	h.logger.Error("patient lookup failed", "patient_id", patientID, "error", err)
	respond.Detail(w, http.StatusInternalServerError, "Error occurred while retrieving patients.")
}
