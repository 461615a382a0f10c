package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores prescriptions and reminders in Postgres.
type PostgresRepository struct {
	db pool
}

func NewPostgresRepository(db pool) *PostgresRepository {
	if db == nil {
		panic("prescriptions: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func toPGTime(c ClockTime) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c.Minutes()) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPGTime(t pgtype.Time) ClockTime {
	minutes := t.Microseconds / int64(time.Minute/time.Microsecond)
	return ClockTime{Hour: int(minutes / 60), Minute: int(minutes % 60)}
}

const prescriptionColumns = `id, patient_id, doctor_id, medication_name, COALESCE(dosage, ''), COALESCE(instructions, ''), is_active, created_at`

func scanPrescription(row pgx.Row) (Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.MedicationName, &p.Dosage, &p.Instructions, &p.IsActive, &p.CreatedAt)
	return p, err
}

const reminderColumns = `id, prescription_id, reminder_time, status, last_sent_at, activated_at`

func scanReminder(row pgx.Row) (Reminder, error) {
	var (
		rem Reminder
		at  pgtype.Time
	)
	if err := row.Scan(&rem.ID, &rem.PrescriptionID, &at, &rem.Status, &rem.LastSentAt, &rem.ActivatedAt); err != nil {
		return Reminder{}, err
	}
	rem.ReminderTime = fromPGTime(at)
	return rem, nil
}

func (r *PostgresRepository) Create(ctx context.Context, n NewPrescription) (*Prescription, []Reminder, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("prescriptions: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPrescription(tx.QueryRow(ctx, `
		INSERT INTO prescriptions (patient_id, doctor_id, medication_name, dosage, instructions, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), true)
		RETURNING `+prescriptionColumns,
		n.PatientID, n.DoctorID, n.MedicationName, n.Dosage, n.Instructions))
	if err != nil {
		return nil, nil, fmt.Errorf("prescriptions: insert prescription: %w", err)
	}
	reminders, err := insertReminders(ctx, tx, p.ID, n.ReminderTimes, ReminderInactive)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("prescriptions: commit create: %w", err)
	}
	return &p, reminders, nil
}

func insertReminders(ctx context.Context, q querier, prescriptionID string, times []ClockTime, status ReminderStatus) ([]Reminder, error) {
	out := make([]Reminder, 0, len(times))
	for _, t := range times {
		rem, err := scanReminder(q.QueryRow(ctx, `
			INSERT INTO reminders (prescription_id, reminder_time, status, activated_at)
			VALUES ($1, $2, $3, CASE WHEN $3 = 'active' THEN now() END)
			RETURNING `+reminderColumns, prescriptionID, toPGTime(t), status))
		if err != nil {
			return nil, fmt.Errorf("prescriptions: insert reminder: %w", err)
		}
		out = append(out, rem)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Prescription, error) {
	p, err := scanPrescription(r.db.QueryRow(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("prescriptions: select prescription: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) ListForPatient(ctx context.Context, patientID string) ([]Prescription, error) {
	return r.queryPrescriptions(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE patient_id = $1 ORDER BY created_at`, patientID)
}

func (r *PostgresRepository) ListForPatientDoctor(ctx context.Context, patientID, doctorID string) ([]Prescription, error) {
	return r.queryPrescriptions(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE patient_id = $1 AND doctor_id = $2 ORDER BY created_at`, patientID, doctorID)
}

func (r *PostgresRepository) queryPrescriptions(ctx context.Context, query string, args ...any) ([]Prescription, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: query prescriptions: %w", err)
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions: scan prescription: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prescriptions: iterate prescriptions: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ActivateReminders(ctx context.Context, prescriptionID string) ([]Reminder, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM prescriptions WHERE id = $1)`, prescriptionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("prescriptions: check prescription: %w", err)
	}
	if !exists {
		return nil, ErrPrescriptionNotFound
	}

	rows, err := r.db.Query(ctx, `
		UPDATE reminders
		SET status = 'active',
			activated_at = CASE WHEN status = 'active' THEN activated_at ELSE now() END,
			updated_at = now()
		WHERE prescription_id = $1
		RETURNING `+reminderColumns, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: activate reminders: %w", err)
	}
	reminders, err := collectReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(reminders) == 0 {
		return nil, ErrNoReminders
	}
	return reminders, nil
}

func collectReminders(rows pgx.Rows) ([]Reminder, error) {
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions: scan reminder: %w", err)
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prescriptions: iterate reminders: %w", err)
	}
	sortReminders(out)
	return out, nil
}

func (r *PostgresRepository) HasActiveReminders(ctx context.Context, prescriptionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reminders WHERE prescription_id = $1 AND status = 'active')
	`, prescriptionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("prescriptions: check active reminders: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, prescriptionID string, active bool) (*Prescription, error) {
	p, err := scanPrescription(r.db.QueryRow(ctx, `
		UPDATE prescriptions SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+prescriptionColumns, prescriptionID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("prescriptions: update prescription: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) ReplaceReminderTimes(ctx context.Context, prescriptionID string, times []ClockTime) ([]Reminder, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM prescriptions WHERE id = $1)`, prescriptionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("prescriptions: check prescription: %w", err)
	}
	if !exists {
		return nil, ErrPrescriptionNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM reminders WHERE prescription_id = $1`, prescriptionID); err != nil {
		return nil, fmt.Errorf("prescriptions: delete reminders: %w", err)
	}
	reminders, err := insertReminders(ctx, tx, prescriptionID, times, ReminderActive)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("prescriptions: commit reminder times: %w", err)
	}
	sortReminders(reminders)
	return reminders, nil
}

func (r *PostgresRepository) DueReminders(ctx context.Context, now time.Time, limit int) ([]DueReminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.prescription_id, p.patient_id, p.medication_name, r.reminder_time
		FROM reminders r
		JOIN prescriptions p ON p.id = r.prescription_id
		WHERE r.status = 'active'
			AND r.reminder_time <= $1
			AND (r.last_sent_at IS NULL OR r.last_sent_at < $2)
			AND (r.activated_at IS NULL
				OR r.activated_at < $2::timestamptz
				OR r.activated_at >= $2::timestamptz + interval '1 day'
				OR $2::timestamptz + r.reminder_time::interval >= date_trunc('minute', r.activated_at))
		ORDER BY r.reminder_time
		LIMIT $3
	`, toPGTime(ClockTimeOf(now)), startOfDay(now), limit)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: query due reminders: %w", err)
	}
	defer rows.Close()

	var out []DueReminder
	for rows.Next() {
		var (
			d  DueReminder
			at pgtype.Time
		)
		if err := rows.Scan(&d.ReminderID, &d.PrescriptionID, &d.PatientID, &d.MedicationName, &at); err != nil {
			return nil, fmt.Errorf("prescriptions: scan due reminder: %w", err)
		}
		d.ReminderTime = fromPGTime(at)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prescriptions: iterate due reminders: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkSent(ctx context.Context, reminderID string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE reminders SET last_sent_at = $2 WHERE id = $1`, reminderID, at)
	if err != nil {
		return fmt.Errorf("prescriptions: mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoReminders
	}
	return nil
}
