package scheduling

import (
	"errors"
	"fmt"
	"net/http"
	"time"

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

type createSlotRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// CreateSlot handles POST /timeslots for the calling doctor.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())

	var req createSlotRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	slot, err := h.service.CreateSlot(r.Context(), principal.UserID, req.StartTime, req.EndTime)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusCreated, slot)
	case errors.Is(err, ErrSlotOverlap):
		respond.Detail(w, http.StatusConflict, "The time slot overlaps an existing slot.")
	case errors.Is(err, ErrInvalidSlotRange):
		respond.Detail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to create time slot", "doctor_id", principal.UserID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Error creating time slot")
	}
}

// DoctorSlots handles GET /doctors/{doctorID}/timeslots.
func (h *Handler) DoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	slots, err := h.service.AvailableSlots(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("failed to load time slots", "doctor_id", doctorID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
		return
	}
	if len(slots) == 0 {
		respond.Detail(w, http.StatusNotFound, "No available time slots found for the doctor")
		return
	}
	respond.JSON(w, http.StatusOK, slots)
}

type bookRequest struct {
	TimeSlotID string `json:"time_slot_id"`
}

// Book handles POST /appointments for the calling patient.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())

	var req bookRequest
	if err := respond.Decode(r, &req); err != nil || req.TimeSlotID == "" {
		respond.Detail(w, http.StatusBadRequest, "time_slot_id is required")
		return
	}
	booking, err := h.service.Book(r.Context(), req.TimeSlotID, principal.UserID)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusCreated, booking)
	case errors.Is(err, ErrSlotUnavailable):
		respond.Detail(w, http.StatusConflict, "The selected time slot is unavailable.")
	default:
		respond.Detail(w, http.StatusInternalServerError, "Error booking the appointment.")
	}
}

// ListAppointments handles GET /appointments.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())
	appts, err := h.service.ListAppointments(r.Context(), principal)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			respond.Detail(w, http.StatusForbidden, "Only patients and doctors have appointments.")
			return
		}
		h.logger.Error("failed to list appointments", "user_id", principal.UserID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Error occurred while retrieving appointments.")
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}
	respond.JSON(w, http.StatusOK, appts)
}

// MarkInactive handles POST /appointments/{appointmentID}/inactive.
func (h *Handler) MarkInactive(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())
	appointmentID := chi.URLParam(r, "appointmentID")

	appt, err := h.service.MarkAppointmentInactive(r.Context(), principal.UserID, appointmentID)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, appt)
	case errors.Is(err, ErrAppointmentNotFound):
		respond.Detail(w, http.StatusNotFound, fmt.Sprintf("Appointment with ID %s not found.", appointmentID))
	case errors.Is(err, ErrPermissionDenied):
		respond.Detail(w, http.StatusForbidden, "You do not have permission to mark this appointment as inactive.")
	default:
		h.logger.Error("failed to mark appointment inactive", "appointment_id", appointmentID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, fmt.Sprintf("Unexpected error occurred while marking appointment %s inactive.", appointmentID))
	}
}
