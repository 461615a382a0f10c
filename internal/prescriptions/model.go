package prescriptions

import (
	"sort"
	"time"
)

type ReminderStatus string

const (
	ReminderActive   ReminderStatus = "active"
	ReminderInactive ReminderStatus = "inactive"
)

type Prescription struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id"`
	DoctorID       string    `json:"doctor_id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage,omitempty"`
	Instructions   string    `json:"instructions,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Reminder struct {
	ID             string         `json:"id"`
	PrescriptionID string         `json:"prescription_id"`
	ReminderTime   ClockTime      `json:"reminder_time"`
	Status         ReminderStatus `json:"status"`
	LastSentAt     *time.Time     `json:"last_sent_at,omitempty"`
	// ActivatedAt is when the reminder last went from inactive to active.
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// NewPrescription is what a doctor submits. Reminders start inactive until
// the patient activates them.
type NewPrescription struct {
	PatientID      string      `json:"patient_id"`
	DoctorID       string      `json:"-"`
	MedicationName string      `json:"medication_name"`
	Dosage         string      `json:"dosage,omitempty"`
	Instructions   string      `json:"instructions,omitempty"`
	ReminderTimes  []ClockTime `json:"reminder_times"`
}

// DueReminder is an active reminder whose time of day has passed and that
// has not been sent yet today.
type DueReminder struct {
	ReminderID     string    `json:"reminder_id"`
	PrescriptionID string    `json:"prescription_id"`
	PatientID      string    `json:"patient_id"`
	MedicationName string    `json:"medication_name"`
	ReminderTime   ClockTime `json:"reminder_time"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// firesToday reports whether a reminder at t is due by now. A reminder
// activated today does not fire for times that had already passed when it
// was activated.
func firesToday(now time.Time, t ClockTime, activatedAt *time.Time) bool {
	today := startOfDay(now)
	occurrence := today.Add(time.Duration(t.Minutes()) * time.Minute)
	if occurrence.After(now) {
		return false
	}
	if activatedAt == nil || activatedAt.Before(today) || !activatedAt.Before(today.AddDate(0, 0, 1)) {
		return true
	}
	return !occurrence.Before(activatedAt.Truncate(time.Minute))
}

func sortReminders(rems []Reminder) {
	sort.Slice(rems, func(i, j int) bool { return rems[i].ReminderTime.Minutes() < rems[j].ReminderTime.Minutes() })
}
