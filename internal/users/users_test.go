package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medcare-assistant/internal/identity"
)

func TestSpecializationMapper(t *testing.T) {
	m := NewSpecializationMapper()

	assert.Equal(t, "cardiologist", m.Canonical("Cardiology"))
	assert.Equal(t, "cardiologist", m.Canonical("  heart "))
	assert.Equal(t, "podiatrist", m.Canonical("Podiatrist"))
	assert.Equal(t, []string{"cardiologist", "cardiology", "heart"}, m.Terms("cardiologist"))
	assert.Equal(t, []string{"podiatrist"}, m.Terms("podiatrist"))
	assert.Equal(t, []string{"%cardiologist%", "%cardiology%", "%heart%"}, m.Patterns("heart"))
	assert.True(t, m.Matches(" Interventional Cardiology", "cardiologist"))
	assert.False(t, m.Matches("Dermatology", "cardiologist"))
	assert.Nil(t, m.Terms("  "))
}

func TestInMemoryRepository_Accounts(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	acct, err := repo.CreateAccount(ctx, NewAccount{Role: identity.RolePatient, Username: "jane", HashedPassword: "h", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)

	_, err = repo.CreateAccount(ctx, NewAccount{Role: identity.RolePatient, Username: "jane", HashedPassword: "h"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	// same username under another role is a different account
	_, err = repo.CreateAccount(ctx, NewAccount{Role: identity.RoleAdmin, Username: "jane", HashedPassword: "h"})
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, NewAccount{Role: identity.RoleDoctor, Username: "doc", HashedPassword: "h"})
	assert.ErrorIs(t, err, ErrMissingSpecialization)

	found, err := repo.FindAccount(ctx, identity.RolePatient, "jane")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, found.ID)

	_, err = repo.FindAccount(ctx, identity.RoleDoctor, "jane")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	phone := "555-0100"
	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	empty := ""
	updated, err := repo.UpdatePatient(ctx, acct.ID, PatientUpdate{PhoneNumber: &phone, DOB: &dob, FirstName: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, phone, updated.PhoneNumber)
	assert.Equal(t, dob, *updated.DOB)

	_, err = repo.GetPatient(ctx, "missing")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestDirectory_FindBySpecialization(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	for _, n := range []NewAccount{
		{Role: identity.RoleDoctor, Username: "a", HashedPassword: "h", FirstName: "Amy", LastName: "Heart", Specialization: "Cardiology"},
		{Role: identity.RoleDoctor, Username: "b", HashedPassword: "h", FirstName: "Bob", LastName: "Beat", Specialization: "cardiologist"},
		{Role: identity.RoleDoctor, Username: "c", HashedPassword: "h", FirstName: "Cat", LastName: "Skin", Specialization: "Dermatologist"},
	} {
		_, err := repo.CreateAccount(ctx, n)
		require.NoError(t, err)
	}

	dir := NewDirectory(repo, nil)
	doctors, err := dir.FindBySpecialization(ctx, "cardiologist")
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Bob Beat", doctors[0].FullName())
	assert.Equal(t, "Amy Heart", doctors[1].FullName())

	doctors, err = dir.FindBySpecialization(ctx, "neurologist")
	require.NoError(t, err)
	assert.Empty(t, doctors)
}

func TestPostgresRepository_FindDoctorsBySpecialization(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Now().UTC()
	mock.ExpectQuery("LIKE ANY").
		WithArgs([]string{"%cardiologist%", "%heart%"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "first_name", "last_name", "specialization", "phone_number", "created_at"}).
			AddRow("doc-1", "jsmith", "John", "Smith", "Cardiologist", "", created))

	repo := NewPostgresRepository(mock)
	doctors, err := repo.FindDoctorsBySpecialization(context.Background(), []string{"cardiologist", "heart"})
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "doc-1", doctors[0].ID)
	assert.Equal(t, "John Smith", doctors[0].FullName())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO doctors").
		WithArgs("jsmith", "hashed", "John", "Smith", "Cardiologist", "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("doc-1"))
	mock.ExpectQuery("INSERT INTO patients").
		WithArgs("jane", "hashed", "Jane", "Doe", "", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewPostgresRepository(mock)
	acct, err := repo.CreateAccount(context.Background(), NewAccount{
		Role: identity.RoleDoctor, Username: "jsmith", HashedPassword: "hashed",
		FirstName: "John", LastName: "Smith", Specialization: "Cardiologist",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", acct.ID)
	assert.Equal(t, identity.RoleDoctor, acct.Role)

	_, err = repo.CreateAccount(context.Background(), NewAccount{
		Role: identity.RolePatient, Username: "jane", HashedPassword: "hashed", FirstName: "Jane", LastName: "Doe",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM admins WHERE username").
		WithArgs("root").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "hashed_password"}).AddRow("adm-1", "root", "hashed"))
	mock.ExpectQuery("FROM patients WHERE username").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM doctors WHERE username").
		WithArgs("broken").
		WillReturnError(errors.New("connection reset"))

	repo := NewPostgresRepository(mock)
	acct, err := repo.FindAccount(context.Background(), identity.RoleAdmin, "root")
	require.NoError(t, err)
	assert.Equal(t, "adm-1", acct.ID)

	_, err = repo.FindAccount(context.Background(), identity.RolePatient, "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.FindAccount(context.Background(), identity.RoleDoctor, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.FindAccount(context.Background(), identity.Role("nurse"), "x")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
