package prescriptions

import (
	"errors"
	"fmt"
)

var (
	ErrPrescriptionNotFound = errors.New("prescriptions: prescription not found")
	ErrNoReminders          = errors.New("prescriptions: no reminders")
	ErrMissingMedication    = errors.New("prescriptions: medication_name is required")
	ErrMissingPatient       = errors.New("prescriptions: patient_id is required")
	ErrNoReminderTimes      = errors.New("prescriptions: at least one reminder time is required")
	ErrNotOwner             = errors.New("prescriptions: prescription belongs to another patient")
)

// ErrorDetail renders err the way it is shown to patients.
func ErrorDetail(err error, prescriptionID string) string {
	switch {
	case errors.Is(err, ErrPrescriptionNotFound):
		return fmt.Sprintf("Prescription not found for ID: %s", prescriptionID)
	case errors.Is(err, ErrNoReminders):
		return fmt.Sprintf("No reminders found for prescription ID: %s", prescriptionID)
	default:
		return "Unexpected error occurred while activating reminders"
	}
}
