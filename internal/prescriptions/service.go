package prescriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// Service holds prescription and reminder rules on top of a Repository.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("prescriptions: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, n NewPrescription) (*Prescription, []Reminder, error) {
	n.MedicationName = strings.TrimSpace(n.MedicationName)
	switch {
	case n.PatientID == "":
		return nil, nil, ErrMissingPatient
	case n.MedicationName == "":
		return nil, nil, ErrMissingMedication
	case len(n.ReminderTimes) == 0:
		return nil, nil, ErrNoReminderTimes
	}
	p, reminders, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("prescription created", "prescription_id", p.ID, "patient_id", p.PatientID, "doctor_id", p.DoctorID, "reminders", len(reminders))
	return p, reminders, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Prescription, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

func (s *Service) ListForPatientDoctor(ctx context.Context, patientID, doctorID string) ([]Prescription, error) {
	return s.repo.ListForPatientDoctor(ctx, patientID, doctorID)
}

func (s *Service) HasActiveReminders(ctx context.Context, prescriptionID string) (bool, error) {
	return s.repo.HasActiveReminders(ctx, prescriptionID)
}

// ActivateReminders turns on every reminder of the prescription.
func (s *Service) ActivateReminders(ctx context.Context, prescriptionID string) ([]Reminder, error) {
	reminders, err := s.repo.ActivateReminders(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reminders activated", "prescription_id", prescriptionID, "count", len(reminders))
	return reminders, nil
}

// ActivateForPatient is ActivateReminders restricted to the prescription's patient.
func (s *Service) ActivateForPatient(ctx context.Context, patientID, prescriptionID string) ([]Reminder, error) {
	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if p.PatientID != patientID {
		return nil, ErrNotOwner
	}
	return s.ActivateReminders(ctx, prescriptionID)
}

func (s *Service) MarkInactive(ctx context.Context, prescriptionID string) (*Prescription, error) {
	return s.repo.SetActive(ctx, prescriptionID, false)
}

// UpdateReminderTimes replaces the reminder schedule with times, all active.
func (s *Service) UpdateReminderTimes(ctx context.Context, prescriptionID string, times []ClockTime) ([]Reminder, error) {
	if len(times) == 0 {
		return nil, ErrNoReminderTimes
	}
	for _, t := range times {
		if !t.valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidClockTime, t)
		}
	}
	reminders, err := s.repo.ReplaceReminderTimes(ctx, prescriptionID, times)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reminder times updated", "prescription_id", prescriptionID, "times", JoinClockTimes(times, false))
	return reminders, nil
}

func (s *Service) DueReminders(ctx context.Context, now time.Time, limit int) ([]DueReminder, error) {
	return s.repo.DueReminders(ctx, now, limit)
}

func (s *Service) MarkSent(ctx context.Context, reminderID string, at time.Time) error {
	return s.repo.MarkSent(ctx, reminderID, at)
}
