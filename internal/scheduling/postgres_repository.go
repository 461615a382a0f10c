package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores slots in time_slots and bookings in appointments.
type PostgresRepository struct {
	db pool
}

func NewPostgresRepository(db pool) *PostgresRepository {
	if db == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const slotColumns = `id, doctor_id, start_time, end_time, status, patient_id`

func scanSlot(row pgx.Row) (TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(&s.ID, &s.DoctorID, &s.StartTime, &s.EndTime, &s.Status, &s.PatientID)
	return s, err
}

func (r *PostgresRepository) CreateSlot(ctx context.Context, n NewSlot) (*TimeSlot, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO time_slots (doctor_id, start_time, end_time, status)
		SELECT $1, $2, $3, 'available'
		WHERE NOT EXISTS (
			SELECT 1 FROM time_slots
			WHERE doctor_id = $1 AND start_time < $3 AND $2 < end_time
		)
		RETURNING ` + slotColumns
	slot, err := scanSlot(r.db.QueryRow(ctx, query, n.DoctorID, n.StartTime, n.EndTime))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotOverlap
		}
		return nil, fmt.Errorf("scheduling: insert slot: %w", err)
	}
	return &slot, nil
}

func (r *PostgresRepository) AvailableSlots(ctx context.Context, doctorID string) ([]TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE doctor_id = $1 AND status = 'available'
		ORDER BY start_time
	`
	rows, err := r.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: query slots: %w", err)
	}
	defer rows.Close()

	var out []TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan slot: %w", err)
		}
		out = append(out, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate slots: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Book(ctx context.Context, slotID, patientID string) (*Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The status predicate makes the update the arbiter between racing bookers.
	slot, err := scanSlot(tx.QueryRow(ctx, `
		UPDATE time_slots
		SET status = 'booked', patient_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'available'
		RETURNING `+slotColumns, slotID, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("scheduling: reserve slot: %w", err)
	}

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, time_slot_id, appointment_date, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING `+appointmentColumns, patientID, slot.DoctorID, slot.ID, slot.StartTime))
	if err != nil {
		return nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit booking: %w", err)
	}
	return &Booking{Slot: slot, Appointment: appt}, nil
}

const appointmentColumns = `id, patient_id, doctor_id, time_slot_id, appointment_date, is_active, created_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.TimeSlotID, &a.AppointmentDate, &a.IsActive, &a.CreatedAt)
	return a, err
}

func (r *PostgresRepository) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("scheduling: select appointment: %w", err)
	}
	return &appt, nil
}

func (r *PostgresRepository) ListAppointmentsForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE patient_id = $1 ORDER BY appointment_date DESC`, patientID)
}

func (r *PostgresRepository) ListAppointmentsForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id = $1 ORDER BY appointment_date DESC`, doctorID)
}

func (r *PostgresRepository) SetAppointmentActive(ctx context.Context, id string, active bool) (*Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `
		UPDATE appointments SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("scheduling: update appointment: %w", err)
	}
	return &appt, nil
}

func (r *PostgresRepository) LatestInactiveAppointment(ctx context.Context, patientID string) (*Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1 AND is_active = false
		ORDER BY appointment_date DESC
		LIMIT 1`, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("scheduling: latest inactive appointment: %w", err)
	}
	return &appt, nil
}

func (r *PostgresRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scheduling: query appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate appointments: %w", err)
	}
	return out, nil
}
