// Package chatbot runs the patient-facing conversation: general medical
// chat backed by an LLM, doctor discovery and booking, and prescription
// reminder activation.
package chatbot

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/medcare-assistant/internal/llm"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
)

// Stage is the step of the conversation a patient is in.
type Stage string

const (
	StageInitial                   Stage = "initial"
	StageGeneral                   Stage = "general"
	StageAwaitingDoctorSelection   Stage = "awaiting_doctor_selection"
	StageAwaitingSlotSelection     Stage = "awaiting_slot_selection"
	StageCheckInactiveAppointments Stage = "check_inactive_appointments"
	StageWaitingForExit            Stage = "waiting_for_exit"
	StageActivateReminders         Stage = "activate_reminders"
	StageUpdateReminderPrompt      Stage = "update_reminder_prompt"
	StageCollectNewReminderTimes   Stage = "collect_new_reminder_times"
	StageBookingConfirmed          Stage = "booking_confirmed"
)

// ErrChatbotUnavailable is returned when a turn cannot be completed because a
// collaborator failed.
var ErrChatbotUnavailable = errors.New("chatbot: failed to communicate with the chatbot")

type DoctorRef struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
}

func (d DoctorRef) FullName() string {
	return d.FirstName + " " + d.LastName
}

func doctorRefOf(d users.Doctor) DoctorRef {
	return DoctorRef{ID: d.ID, FirstName: d.FirstName, LastName: d.LastName, Specialization: d.Specialization}
}

type PendingPrescription struct {
	ID         string `json:"id"`
	Medication string `json:"medication"`
}

// State is everything the engine remembers about one patient between turns.
type State struct {
	PatientID      string                `json:"patient_id"`
	Stage          Stage                 `json:"stage"`
	Doctors        []DoctorRef           `json:"doctors,omitempty"`
	SelectedDoctor *DoctorRef            `json:"selected_doctor,omitempty"`
	Prescriptions  []PendingPrescription `json:"prescriptions,omitempty"`
	PrescriptionID string                `json:"prescription_id,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func newState(patientID string) *State {
	return &State{PatientID: patientID, Stage: StageInitial}
}

// resetTo clears every payload and moves to stage.
func (s *State) resetTo(stage Stage) {
	s.Stage = stage
	s.Doctors = nil
	s.SelectedDoctor = nil
	s.Prescriptions = nil
	s.PrescriptionID = ""
}

// Reply is the engine's answer to one patient message. Doctors is only set
// when the patient is asked to pick one of them.
type Reply struct {
	Response string      `json:"response"`
	Doctors  []DoctorRef `json:"doctors,omitempty"`
	Stage    Stage       `json:"stage"`
}

type DoctorDirectory interface {
	FindBySpecialization(ctx context.Context, specialization string) ([]users.Doctor, error)
}

type SlotBooker interface {
	AvailableSlots(ctx context.Context, doctorID string) ([]scheduling.TimeSlot, error)
	Book(ctx context.Context, slotID, patientID string) (*scheduling.Booking, error)
}

type AppointmentLookup interface {
	LatestInactiveAppointment(ctx context.Context, patientID string) (*scheduling.Appointment, error)
}

type PrescriptionDesk interface {
	ListForPatientDoctor(ctx context.Context, patientID, doctorID string) ([]prescriptions.Prescription, error)
	HasActiveReminders(ctx context.Context, prescriptionID string) (bool, error)
	ActivateReminders(ctx context.Context, prescriptionID string) ([]prescriptions.Reminder, error)
	MarkInactive(ctx context.Context, prescriptionID string) (*prescriptions.Prescription, error)
	UpdateReminderTimes(ctx context.Context, prescriptionID string, times []prescriptions.ClockTime) ([]prescriptions.Reminder, error)
}

// StateStore persists State per patient. Load returns nil, nil when the
// patient has no stored state.
type StateStore interface {
	Load(ctx context.Context, patientID string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, patientID string) error
}

// Locker serializes turns of the same patient.
type Locker interface {
	Lock(ctx context.Context, patientID string) (unlock func(), err error)
}

// History is the LLM transcript of a patient, without the system prompt.
type History interface {
	Load(ctx context.Context, patientID string) ([]llm.Message, error)
	Append(ctx context.Context, patientID string, msgs ...llm.Message) error
	Clear(ctx context.Context, patientID string) error
}

// TranscriptEntry is one stored chat line.
type TranscriptEntry struct {
	ID        int64     `json:"id"`
	PatientID string    `json:"patient_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Stage     Stage     `json:"stage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is the durable chat log shown back to patients.
type Transcript interface {
	Append(ctx context.Context, entries ...TranscriptEntry) error
	List(ctx context.Context, patientID string, limit int) ([]TranscriptEntry, error)
}
