package users

import "errors"

var (
	ErrMissingUsername       = errors.New("users: username is required")
	ErrMissingPassword       = errors.New("users: password is required")
	ErrMissingSpecialization = errors.New("users: specialization is required for doctors")

	// ErrUsernameTaken is returned when the username already exists for the role.
	ErrUsernameTaken = errors.New("users: username already exists")

	ErrAccountNotFound = errors.New("users: account not found")
	ErrPatientNotFound = errors.New("users: patient not found")
	ErrDoctorNotFound  = errors.New("users: doctor not found")
)
