package prescriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists prescriptions and their reminders.
type Repository interface {
	Create(ctx context.Context, n NewPrescription) (*Prescription, []Reminder, error)
	Get(ctx context.Context, id string) (*Prescription, error)
	ListForPatient(ctx context.Context, patientID string) ([]Prescription, error)
	ListForPatientDoctor(ctx context.Context, patientID, doctorID string) ([]Prescription, error)
	// ActivateReminders flips every reminder of the prescription to active
	// and returns them ordered by time of day.
	ActivateReminders(ctx context.Context, prescriptionID string) ([]Reminder, error)
	HasActiveReminders(ctx context.Context, prescriptionID string) (bool, error)
	SetActive(ctx context.Context, prescriptionID string, active bool) (*Prescription, error)
	// ReplaceReminderTimes swaps the reminder set for new active reminders.
	ReplaceReminderTimes(ctx context.Context, prescriptionID string, times []ClockTime) ([]Reminder, error)
	DueReminders(ctx context.Context, now time.Time, limit int) ([]DueReminder, error)
	MarkSent(ctx context.Context, reminderID string, at time.Time) error
}

// InMemoryRepository is a process-local Repository.
type InMemoryRepository struct {
	mu            sync.Mutex
	prescriptions map[string]*Prescription
	order         []string
	reminders     map[string][]*Reminder // prescription id -> reminders
	now           func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		prescriptions: make(map[string]*Prescription),
		reminders:     make(map[string][]*Reminder),
		now:           time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, n NewPrescription) (*Prescription, []Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Prescription{
		ID:             uuid.New().String(),
		PatientID:      n.PatientID,
		DoctorID:       n.DoctorID,
		MedicationName: n.MedicationName,
		Dosage:         n.Dosage,
		Instructions:   n.Instructions,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	r.prescriptions[p.ID] = p
	r.order = append(r.order, p.ID)
	r.reminders[p.ID] = newReminders(p.ID, n.ReminderTimes, ReminderInactive, time.Time{})
	return clonePrescription(p), r.snapshot(p.ID), nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return clonePrescription(p), nil
}

func (r *InMemoryRepository) ListForPatient(ctx context.Context, patientID string) ([]Prescription, error) {
	return r.list(func(p *Prescription) bool { return p.PatientID == patientID }), nil
}

func (r *InMemoryRepository) ListForPatientDoctor(ctx context.Context, patientID, doctorID string) ([]Prescription, error) {
	return r.list(func(p *Prescription) bool { return p.PatientID == patientID && p.DoctorID == doctorID }), nil
}

func (r *InMemoryRepository) ActivateReminders(ctx context.Context, prescriptionID string) ([]Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prescriptions[prescriptionID]; !ok {
		return nil, ErrPrescriptionNotFound
	}
	rems := r.reminders[prescriptionID]
	if len(rems) == 0 {
		return nil, ErrNoReminders
	}
	at := r.now()
	for _, rem := range rems {
		if rem.Status != ReminderActive {
			activated := at
			rem.ActivatedAt = &activated
		}
		rem.Status = ReminderActive
	}
	return r.snapshot(prescriptionID), nil
}

func (r *InMemoryRepository) HasActiveReminders(ctx context.Context, prescriptionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.reminders[prescriptionID] {
		if rem.Status == ReminderActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) SetActive(ctx context.Context, prescriptionID string, active bool) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[prescriptionID]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	p.IsActive = active
	return clonePrescription(p), nil
}

func (r *InMemoryRepository) ReplaceReminderTimes(ctx context.Context, prescriptionID string, times []ClockTime) ([]Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prescriptions[prescriptionID]; !ok {
		return nil, ErrPrescriptionNotFound
	}
	r.reminders[prescriptionID] = newReminders(prescriptionID, times, ReminderActive, r.now())
	return r.snapshot(prescriptionID), nil
}

func (r *InMemoryRepository) DueReminders(ctx context.Context, now time.Time, limit int) ([]DueReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	today := startOfDay(now)

	var out []DueReminder
	for pid, rems := range r.reminders {
		p := r.prescriptions[pid]
		if p == nil {
			continue
		}
		for _, rem := range rems {
			if rem.Status != ReminderActive || !firesToday(now, rem.ReminderTime, rem.ActivatedAt) {
				continue
			}
			if rem.LastSentAt != nil && !rem.LastSentAt.Before(today) {
				continue
			}
			out = append(out, DueReminder{
				ReminderID:     rem.ID,
				PrescriptionID: pid,
				PatientID:      p.PatientID,
				MedicationName: p.MedicationName,
				ReminderTime:   rem.ReminderTime,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderTime.Minutes() < out[j].ReminderTime.Minutes() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) MarkSent(ctx context.Context, reminderID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rems := range r.reminders {
		for _, rem := range rems {
			if rem.ID == reminderID {
				sent := at
				rem.LastSentAt = &sent
				return nil
			}
		}
	}
	return ErrNoReminders
}

func (r *InMemoryRepository) list(keep func(*Prescription) bool) []Prescription {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Prescription
	for _, id := range r.order {
		if p := r.prescriptions[id]; keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

// snapshot copies the reminders of a prescription ordered by time; callers
// hold r.mu.
func (r *InMemoryRepository) snapshot(prescriptionID string) []Reminder {
	rems := r.reminders[prescriptionID]
	out := make([]Reminder, 0, len(rems))
	for _, rem := range rems {
		out = append(out, *rem)
	}
	sortReminders(out)
	return out
}

func newReminders(prescriptionID string, times []ClockTime, status ReminderStatus, activatedAt time.Time) []*Reminder {
	out := make([]*Reminder, 0, len(times))
	for _, t := range times {
		rem := &Reminder{
			ID:             uuid.New().String(),
			PrescriptionID: prescriptionID,
			ReminderTime:   t,
			Status:         status,
		}
		if status == ReminderActive {
			at := activatedAt
			rem.ActivatedAt = &at
		}
		out = append(out, rem)
	}
	return out
}

func clonePrescription(p *Prescription) *Prescription {
	out := *p
	return &out
}
