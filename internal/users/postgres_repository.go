package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/medcare-assistant/internal/identity"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores users in the patients, doctors and admins tables.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository accepts a *pgxpool.Pool or any compatible querier.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("users: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func tableFor(role identity.Role) (string, error) {
	switch role {
	case identity.RolePatient:
		return "patients", nil
	case identity.RoleDoctor:
		return "doctors", nil
	case identity.RoleAdmin:
		return "admins", nil
	default:
		return "", fmt.Errorf("users: unsupported role %q", role)
	}
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, n NewAccount) (*Account, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var (
		query string
		args  []any
	)
	switch n.Role {
	case identity.RolePatient:
		query = `
			INSERT INTO patients (username, hashed_password, first_name, last_name, phone_number, dob)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
			RETURNING id
		`
		args = []any{n.Username, n.HashedPassword, n.FirstName, n.LastName, n.PhoneNumber, n.DOB}
	case identity.RoleDoctor:
		query = `
			INSERT INTO doctors (username, hashed_password, first_name, last_name, specialization, phone_number)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
			RETURNING id
		`
		args = []any{n.Username, n.HashedPassword, n.FirstName, n.LastName, n.Specialization, n.PhoneNumber}
	case identity.RoleAdmin:
		query = `
			INSERT INTO admins (username, hashed_password, first_name, last_name)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		args = []any{n.Username, n.HashedPassword, n.FirstName, n.LastName}
	default:
		return nil, fmt.Errorf("users: unsupported role %q", n.Role)
	}

	var id string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("users: insert %s: %w", n.Role, err)
	}
	return &Account{ID: id, Role: n.Role, Username: n.Username, HashedPassword: n.HashedPassword}, nil
}

func (r *PostgresRepository) FindAccount(ctx context.Context, role identity.Role, username string) (*Account, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, username, hashed_password FROM %s WHERE username = $1`, table)

	acct := Account{Role: role}
	if err := r.db.QueryRow(ctx, query, username).Scan(&acct.ID, &acct.Username, &acct.HashedPassword); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("users: select account: %w", err)
	}
	return &acct, nil
}

const patientColumns = `id, username, first_name, last_name, COALESCE(phone_number, ''), dob, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.DOB, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(r.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("users: select patient: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) UpdatePatient(ctx context.Context, id string, u PatientUpdate) (*Patient, error) {
	query := `
		UPDATE patients SET
			first_name = COALESCE(NULLIF($2, ''), first_name),
			last_name = COALESCE(NULLIF($3, ''), last_name),
			phone_number = COALESCE(NULLIF($4, ''), phone_number),
			dob = COALESCE($5, dob),
			hashed_password = COALESCE(NULLIF($6, ''), hashed_password),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + patientColumns
	p, err := scanPatient(r.db.QueryRow(ctx, query,
		id,
		deref(u.FirstName),
		deref(u.LastName),
		deref(u.PhoneNumber),
		u.DOB,
		deref(u.HashedPassword),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("users: update patient: %w", err)
	}
	return p, nil
}

const doctorColumns = `id, username, first_name, last_name, specialization, COALESCE(phone_number, ''), created_at`

func scanDoctor(row pgx.Row) (Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Username, &d.FirstName, &d.LastName, &d.Specialization, &d.PhoneNumber, &d.CreatedAt)
	return d, err
}

func (r *PostgresRepository) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	d, err := scanDoctor(r.db.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("users: select doctor: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return r.queryDoctors(ctx, `SELECT `+doctorColumns+` FROM doctors ORDER BY last_name, first_name`)
}

func (r *PostgresRepository) FindDoctorsBySpecialization(ctx context.Context, terms []string) ([]Doctor, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	patterns := make([]string, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, "%"+escapeLike(term)+"%")
	}
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors
		WHERE lower(trim(specialization)) LIKE ANY($1)
		ORDER BY last_name, first_name
	`
	return r.queryDoctors(ctx, query, patterns)
}

func (r *PostgresRepository) queryDoctors(ctx context.Context, query string, args ...any) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: query doctors: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("users: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: iterate doctors: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
