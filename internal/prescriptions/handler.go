package prescriptions

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

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

type prescriptionResponse struct {
	Prescription
	Reminders []Reminder `json:"reminders"`
}

// Create handles POST /prescriptions for the calling doctor.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())

	var req NewPrescription
	if err := respond.Decode(r, &req); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.DoctorID = principal.UserID

	p, reminders, err := h.service.Create(r.Context(), req)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusCreated, prescriptionResponse{Prescription: *p, Reminders: reminders})
	case errors.Is(err, ErrMissingPatient), errors.Is(err, ErrMissingMedication), errors.Is(err, ErrNoReminderTimes):
		respond.Detail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to create prescription", "doctor_id", principal.UserID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while creating the prescription.")
	}
}

// ListMine handles GET /prescriptions for the calling patient.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())
	list, err := h.service.ListForPatient(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("failed to list prescriptions", "patient_id", principal.UserID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
		return
	}
	if list == nil {
		list = []Prescription{}
	}
	respond.JSON(w, http.StatusOK, list)
}

// ActivateReminders handles POST /prescriptions/{prescriptionID}/reminders/activate.
func (h *Handler) ActivateReminders(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "prescriptionID")

	reminders, err := h.service.ActivateForPatient(r.Context(), principal.UserID, id)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, reminders)
	case errors.Is(err, ErrPrescriptionNotFound), errors.Is(err, ErrNoReminders):
		respond.Detail(w, http.StatusNotFound, ErrorDetail(err, id))
	case errors.Is(err, ErrNotOwner):
		respond.Detail(w, http.StatusForbidden, "You do not have permission to manage this prescription.")
	default:
		h.logger.Error("failed to activate reminders", "prescription_id", id, "error", err)
		respond.Detail(w, http.StatusInternalServerError, ErrorDetail(err, id))
	}
}
