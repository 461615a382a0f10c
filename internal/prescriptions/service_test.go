package prescriptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *Prescription) {
	t.Helper()
	svc := NewService(NewInMemoryRepository(), nil)
	p, reminders, err := svc.Create(context.Background(), NewPrescription{
		PatientID:      "p1",
		DoctorID:       "doc",
		MedicationName: "Lisinopril",
		ReminderTimes:  []ClockTime{{20, 0}, {8, 0}},
	})
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, ReminderInactive, reminders[0].Status)
	return svc, p
}

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, NewPrescription{MedicationName: "x", ReminderTimes: []ClockTime{{8, 0}}})
	assert.ErrorIs(t, err, ErrMissingPatient)
	_, _, err = svc.Create(ctx, NewPrescription{PatientID: "p", MedicationName: " ", ReminderTimes: []ClockTime{{8, 0}}})
	assert.ErrorIs(t, err, ErrMissingMedication)
	_, _, err = svc.Create(ctx, NewPrescription{PatientID: "p", MedicationName: "x"})
	assert.ErrorIs(t, err, ErrNoReminderTimes)
}

func TestService_ActivateAndUpdate(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	active, err := svc.HasActiveReminders(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, active)

	reminders, err := svc.ActivateReminders(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, ClockTime{8, 0}, reminders[0].ReminderTime)
	assert.Equal(t, ReminderActive, reminders[1].Status)

	active, err = svc.HasActiveReminders(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, active)

	updated, err := svc.MarkInactive(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	reminders, err = svc.UpdateReminderTimes(ctx, p.ID, []ClockTime{{7, 15}})
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, ReminderActive, reminders[0].Status)

	_, err = svc.UpdateReminderTimes(ctx, p.ID, []ClockTime{{25, 0}})
	assert.ErrorIs(t, err, ErrInvalidClockTime)
	_, err = svc.UpdateReminderTimes(ctx, "missing", []ClockTime{{7, 0}})
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}

func TestService_ActivateErrors(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	_, err := svc.ActivateReminders(ctx, "missing")
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
	assert.Equal(t, "Prescription not found for ID: missing", ErrorDetail(err, "missing"))

	_, err = svc.ActivateForPatient(ctx, "someone-else", p.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	repo := NewInMemoryRepository()
	empty, _, err := repo.Create(ctx, NewPrescription{PatientID: "p1", MedicationName: "Vitamin D"})
	require.NoError(t, err)
	_, err = NewService(repo, nil).ActivateReminders(ctx, empty.ID)
	assert.ErrorIs(t, err, ErrNoReminders)
	assert.Equal(t, "No reminders found for prescription ID: "+empty.ID, ErrorDetail(err, empty.ID))
}

func TestService_DueRemindersOncePerDay(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()
	_, err := svc.ActivateReminders(ctx, p.ID)
	require.NoError(t, err)

	morning := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	due, err := svc.DueReminders(ctx, morning, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Lisinopril", due[0].MedicationName)
	assert.Equal(t, "p1", due[0].PatientID)

	require.NoError(t, svc.MarkSent(ctx, due[0].ReminderID, morning))
	due, err = svc.DueReminders(ctx, morning.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.DueReminders(ctx, morning.Add(12*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ClockTime{20, 0}, due[0].ReminderTime)

	due, err = svc.DueReminders(ctx, morning.Add(36*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestService_LateActivationSkipsPassedTimesToday(t *testing.T) {
	repo := NewInMemoryRepository()
	activatedAt := time.Date(2026, 3, 2, 14, 10, 45, 0, time.UTC)
	repo.now = func() time.Time { return activatedAt }
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, _, err := svc.Create(ctx, NewPrescription{
		PatientID:      "p1",
		MedicationName: "Lisinopril",
		ReminderTimes:  []ClockTime{{8, 0}, {14, 10}, {20, 0}},
	})
	require.NoError(t, err)
	reminders, err := svc.ActivateReminders(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, reminders[0].ActivatedAt)

	due, err := svc.DueReminders(ctx, activatedAt.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1, "08:00 had already passed when the reminders were switched on")
	assert.Equal(t, ClockTime{14, 10}, due[0].ReminderTime)

	due, err = svc.DueReminders(ctx, time.Date(2026, 3, 2, 20, 5, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	due, err = svc.DueReminders(ctx, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, due, 1, "the next day every time fires again")
	assert.Equal(t, ClockTime{8, 0}, due[0].ReminderTime)

	// Activating again does not move the activation time.
	repo.now = func() time.Time { return activatedAt.Add(6 * time.Hour) }
	again, err := svc.ActivateReminders(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, activatedAt, *again[0].ActivatedAt)

	replaced, err := svc.UpdateReminderTimes(ctx, p.ID, []ClockTime{{9, 0}, {21, 0}})
	require.NoError(t, err)
	require.Len(t, replaced, 2)
	due, err = svc.DueReminders(ctx, time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, due, 1, "replaced times follow the same rule")
	assert.Equal(t, ClockTime{21, 0}, due[0].ReminderTime)
}

func TestFiresToday(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	morning := time.Date(2026, 3, 2, 9, 30, 20, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)

	assert.True(t, firesToday(now, ClockTime{8, 0}, nil))
	assert.False(t, firesToday(now, ClockTime{12, 1}, nil))
	assert.True(t, firesToday(now, ClockTime{8, 0}, &yesterday))
	assert.False(t, firesToday(now, ClockTime{8, 0}, &morning))
	assert.True(t, firesToday(now, ClockTime{9, 30}, &morning), "the activation minute still fires")
	assert.True(t, firesToday(now, ClockTime{8, 0}, &tomorrow))
}
