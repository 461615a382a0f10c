package scheduling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
)

var nine = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type chanNotifier struct {
	ch  chan Booking
	err error
}

func (n *chanNotifier) BookingConfirmed(_ context.Context, b Booking) error {
	n.ch <- b
	return n.err
}

func TestInMemoryRepository_SlotsOrderedAndOverlapRejected(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.CreateSlot(ctx, NewSlot{DoctorID: "doc", StartTime: nine.Add(2 * time.Hour), EndTime: nine.Add(3 * time.Hour)})
	require.NoError(t, err)
	_, err = repo.CreateSlot(ctx, NewSlot{DoctorID: "doc", StartTime: nine, EndTime: nine.Add(time.Hour)})
	require.NoError(t, err)
	_, err = repo.CreateSlot(ctx, NewSlot{DoctorID: "doc", StartTime: nine.Add(30 * time.Minute), EndTime: nine.Add(90 * time.Minute)})
	assert.ErrorIs(t, err, ErrSlotOverlap)
	_, err = repo.CreateSlot(ctx, NewSlot{DoctorID: "doc", StartTime: nine, EndTime: nine})
	assert.ErrorIs(t, err, ErrInvalidSlotRange)

	slots, err := repo.AvailableSlots(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].StartTime.Equal(nine))
}

func TestInMemoryRepository_BookIsExclusive(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	slot, err := repo.CreateSlot(ctx, NewSlot{DoctorID: "doc", StartTime: nine, EndTime: nine.Add(time.Hour)})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		losers  atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Book(ctx, slot.ID, "patient")
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, ErrSlotUnavailable):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, winners.Load())
	assert.EqualValues(t, 9, losers.Load())

	slots, err := repo.AvailableSlots(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestInMemoryRepository_LatestInactiveAppointment(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.LatestInactiveAppointment(ctx, "p1")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	var ids []string
	for i := 0; i < 3; i++ {
		slot, err := repo.CreateSlot(ctx, NewSlot{DoctorID: "doc", StartTime: nine.Add(time.Duration(i) * 24 * time.Hour), EndTime: nine.Add(time.Duration(i)*24*time.Hour + time.Hour)})
		require.NoError(t, err)
		b, err := repo.Book(ctx, slot.ID, "p1")
		require.NoError(t, err)
		ids = append(ids, b.Appointment.ID)
	}
	_, err = repo.SetAppointmentActive(ctx, ids[0], false)
	require.NoError(t, err)
	_, err = repo.SetAppointmentActive(ctx, ids[1], false)
	require.NoError(t, err)

	latest, err := repo.LatestInactiveAppointment(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, ids[1], latest.ID)
}

func TestService_BookNotifiesAndCountsOutcomes(t *testing.T) {
	repo := NewInMemoryRepository()
	reg := prometheus.NewRegistry()
	notifier := &chanNotifier{ch: make(chan Booking, 1), err: errors.New("smtp down")}
	svc := NewService(repo, notifier, metrics.NewBookingMetrics(reg), nil)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, "doc", nine, nine.Add(time.Hour))
	require.NoError(t, err)

	booking, err := svc.Book(ctx, slot.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, booking.Slot.Status)
	assert.True(t, booking.Appointment.IsActive)

	select {
	case got := <-notifier.ch:
		assert.Equal(t, booking.Appointment.ID, got.Appointment.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected booking confirmation")
	}

	_, err = svc.Book(ctx, slot.ID, "p2")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestService_MarkAppointmentInactiveChecksOwnership(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, "doc", nine, nine.Add(time.Hour))
	require.NoError(t, err)
	booking, err := svc.Book(ctx, slot.ID, "p1")
	require.NoError(t, err)

	_, err = svc.MarkAppointmentInactive(ctx, "other-doc", booking.Appointment.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.MarkAppointmentInactive(ctx, "doc", "missing")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	appt, err := svc.MarkAppointmentInactive(ctx, "doc", booking.Appointment.ID)
	require.NoError(t, err)
	assert.False(t, appt.IsActive)

	list, err := svc.ListAppointments(ctx, identity.Principal{UserID: "doc", Role: identity.RoleDoctor})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.ListAppointments(ctx, identity.Principal{UserID: "adm", Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

var (
	slotCols = []string{"id", "doctor_id", "start_time", "end_time", "status", "patient_id"}
	apptCols = []string{"id", "patient_id", "doctor_id", "time_slot_id", "appointment_date", "is_active", "created_at"}
)

func TestPostgresRepository_Book(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	patient := "p1"
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE time_slots").
		WithArgs("slot-1", "p1").
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow("slot-1", "doc", nine, nine.Add(time.Hour), SlotBooked, &patient))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("p1", "doc", "slot-1", nine).
		WillReturnRows(pgxmock.NewRows(apptCols).AddRow("appt-1", "p1", "doc", "slot-1", nine, true, nine))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	booking, err := repo.Book(context.Background(), "slot-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "appt-1", booking.Appointment.ID)
	assert.Equal(t, SlotBooked, booking.Slot.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_BookLostRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE time_slots").
		WithArgs("slot-1", "p2").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	_, err = repo.Book(context.Background(), "slot-1", "p2")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_AvailableSlots(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM time_slots").
		WithArgs("doc").
		WillReturnRows(pgxmock.NewRows(slotCols).
			AddRow("slot-1", "doc", nine, nine.Add(time.Hour), SlotAvailable, (*string)(nil)).
			AddRow("slot-2", "doc", nine.Add(time.Hour), nine.Add(2*time.Hour), SlotAvailable, (*string)(nil)))

	slots, err := NewPostgresRepository(mock).AvailableSlots(context.Background(), "doc")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "slot-2", slots[1].ID)
	assert.Nil(t, slots[0].PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}
