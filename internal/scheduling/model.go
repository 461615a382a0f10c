package scheduling

import (
	"errors"
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

type TimeSlot struct {
	ID        string     `json:"id"`
	DoctorID  string     `json:"doctor_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	PatientID *string    `json:"patient_id,omitempty"`
}

// NewSlot is the doctor-supplied part of a time slot.
type NewSlot struct {
	DoctorID  string
	StartTime time.Time
	EndTime   time.Time
}

func (n NewSlot) Validate() error {
	if n.StartTime.IsZero() || n.EndTime.IsZero() {
		return errors.New("scheduling: start_time and end_time are required")
	}
	if !n.EndTime.After(n.StartTime) {
		return ErrInvalidSlotRange
	}
	return nil
}

type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	TimeSlotID      string    `json:"time_slot_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Booking is the result of reserving a slot.
type Booking struct {
	Slot        TimeSlot    `json:"time_slot"`
	Appointment Appointment `json:"appointment"`
}
