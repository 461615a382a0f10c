package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const notifyTimeout = 15 * time.Second

// Notifier is told about confirmed bookings.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b Booking) error
}

// Service wraps the repository with tracing, metrics and confirmations.
type Service struct {
	repo     Repository
	notifier Notifier
	metrics  *metrics.BookingMetrics
	tracer   trace.Tracer
	logger   *logging.Logger
}

func NewService(repo Repository, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("scheduling: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		tracer:   otel.Tracer("medcare.internal.scheduling"),
		logger:   logger,
	}
}

func (s *Service) CreateSlot(ctx context.Context, doctorID string, start, end time.Time) (*TimeSlot, error) {
	slot, err := s.repo.CreateSlot(ctx, NewSlot{DoctorID: doctorID, StartTime: start.UTC(), EndTime: end.UTC()})
	if err != nil {
		return nil, err
	}
	s.logger.Info("time slot created", "slot_id", slot.ID, "doctor_id", doctorID)
	return slot, nil
}

func (s *Service) AvailableSlots(ctx context.Context, doctorID string) ([]TimeSlot, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.available_slots", trace.WithAttributes(attribute.String("doctor_id", doctorID)))
	defer span.End()

	slots, err := s.repo.AvailableSlots(ctx, doctorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return slots, nil
}

// Book reserves slotID for patientID. The confirmation email is sent in the
// background and its failure does not undo the booking.
func (s *Service) Book(ctx context.Context, slotID, patientID string) (*Booking, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.book", trace.WithAttributes(
		attribute.String("slot_id", slotID),
		attribute.String("patient_id", patientID),
	))
	defer span.End()

	booking, err := s.repo.Book(ctx, slotID, patientID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveBooking("unavailable")
			s.logger.Info("slot no longer available", "slot_id", slotID, "patient_id", patientID)
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("scheduling: book slot %s: %w", slotID, err)
	}
	s.metrics.ObserveBooking("booked")
	s.logger.Info("appointment booked",
		"appointment_id", booking.Appointment.ID,
		"slot_id", slotID,
		"patient_id", patientID,
		"doctor_id", booking.Slot.DoctorID,
	)

	if s.notifier != nil {
		go s.confirm(context.WithoutCancel(ctx), *booking)
	}
	return booking, nil
}

func (s *Service) confirm(ctx context.Context, b Booking) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.BookingConfirmed(ctx, b); err != nil {
		s.logger.Warn("booking confirmation failed", "appointment_id", b.Appointment.ID, "error", err)
	}
}

// ListAppointments returns the caller's appointments: a patient's bookings or
// a doctor's schedule.
func (s *Service) ListAppointments(ctx context.Context, p identity.Principal) ([]Appointment, error) {
	switch p.Role {
	case identity.RolePatient:
		return s.repo.ListAppointmentsForPatient(ctx, p.UserID)
	case identity.RoleDoctor:
		return s.repo.ListAppointmentsForDoctor(ctx, p.UserID)
	default:
		return nil, ErrPermissionDenied
	}
}

// MarkAppointmentInactive closes an appointment owned by doctorID.
func (s *Service) MarkAppointmentInactive(ctx context.Context, doctorID, appointmentID string) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, ErrPermissionDenied
	}
	updated, err := s.repo.SetAppointmentActive(ctx, appointmentID, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment marked inactive", "appointment_id", appointmentID, "doctor_id", doctorID)
	return updated, nil
}

func (s *Service) LatestInactiveAppointment(ctx context.Context, patientID string) (*Appointment, error) {
	return s.repo.LatestInactiveAppointment(ctx, patientID)
}
