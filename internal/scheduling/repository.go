package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists time slots and appointments.
type Repository interface {
	CreateSlot(ctx context.Context, n NewSlot) (*TimeSlot, error)
	// AvailableSlots returns open slots ordered by start time.
	AvailableSlots(ctx context.Context, doctorID string) ([]TimeSlot, error)
	// Book flips an available slot to booked and inserts the appointment
	// atomically; ErrSlotUnavailable when the slot is not available.
	Book(ctx context.Context, slotID, patientID string) (*Booking, error)
	GetAppointment(ctx context.Context, id string) (*Appointment, error)
	ListAppointmentsForPatient(ctx context.Context, patientID string) ([]Appointment, error)
	ListAppointmentsForDoctor(ctx context.Context, doctorID string) ([]Appointment, error)
	SetAppointmentActive(ctx context.Context, id string, active bool) (*Appointment, error)
	// LatestInactiveAppointment returns ErrAppointmentNotFound when the
	// patient has none.
	LatestInactiveAppointment(ctx context.Context, patientID string) (*Appointment, error)
}

// InMemoryRepository is a process-local Repository.
type InMemoryRepository struct {
	mu           sync.Mutex
	slots        map[string]*TimeSlot
	appointments map[string]*Appointment
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		slots:        make(map[string]*TimeSlot),
		appointments: make(map[string]*Appointment),
	}
}

func (r *InMemoryRepository) CreateSlot(ctx context.Context, n NewSlot) (*TimeSlot, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.DoctorID == n.DoctorID && s.StartTime.Before(n.EndTime) && n.StartTime.Before(s.EndTime) {
			return nil, ErrSlotOverlap
		}
	}
	slot := &TimeSlot{
		ID:        uuid.New().String(),
		DoctorID:  n.DoctorID,
		StartTime: n.StartTime,
		EndTime:   n.EndTime,
		Status:    SlotAvailable,
	}
	r.slots[slot.ID] = slot
	out := *slot
	return &out, nil
}

func (r *InMemoryRepository) AvailableSlots(ctx context.Context, doctorID string) ([]TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TimeSlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Status == SlotAvailable {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *InMemoryRepository) Book(ctx context.Context, slotID, patientID string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok || slot.Status != SlotAvailable {
		return nil, ErrSlotUnavailable
	}
	slot.Status = SlotBooked
	pid := patientID
	slot.PatientID = &pid

	appt := &Appointment{
		ID:              uuid.New().String(),
		PatientID:       patientID,
		DoctorID:        slot.DoctorID,
		TimeSlotID:      slot.ID,
		AppointmentDate: slot.StartTime,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	r.appointments[appt.ID] = appt
	return &Booking{Slot: *slot, Appointment: *appt}, nil
}

func (r *InMemoryRepository) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *appt
	return &out, nil
}

func (r *InMemoryRepository) ListAppointmentsForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *InMemoryRepository) ListAppointmentsForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *InMemoryRepository) SetAppointmentActive(ctx context.Context, id string, active bool) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.IsActive = active
	out := *appt
	return &out, nil
}

func (r *InMemoryRepository) LatestInactiveAppointment(ctx context.Context, patientID string) (*Appointment, error) {
	list := r.listAppointments(func(a *Appointment) bool { return a.PatientID == patientID && !a.IsActive })
	if len(list) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &list[0], nil
}

// listAppointments returns matches newest appointment date first.
func (r *InMemoryRepository) listAppointments(keep func(*Appointment) bool) []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.After(out[j].AppointmentDate) })
	return out
}
