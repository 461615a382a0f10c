package users

import (
	"strings"
	"time"

	"github.com/wolfman30/medcare-assistant/internal/identity"
)

// Account is the credential view of any user kind.
type Account struct {
	ID             string
	Role           identity.Role
	Username       string
	HashedPassword string
}

// NewAccount carries the fields accepted at registration. Specialization is
// only stored for doctors; PhoneNumber and DOB only for patients.
type NewAccount struct {
	Role           identity.Role
	Username       string
	HashedPassword string
	FirstName      string
	LastName       string
	PhoneNumber    string
	DOB            *time.Time
	Specialization string
}

// Validate checks the fields required for every role.
func (n NewAccount) Validate() error {
	if strings.TrimSpace(n.Username) == "" {
		return ErrMissingUsername
	}
	if n.HashedPassword == "" {
		return ErrMissingPassword
	}
	if n.Role == identity.RoleDoctor && strings.TrimSpace(n.Specialization) == "" {
		return ErrMissingSpecialization
	}
	return nil
}

type Patient struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	DOB         *time.Time `json:"dob,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Doctor struct {
	ID             string    `json:"id"`
	Username       string    `json:"username,omitempty"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Specialization string    `json:"specialization"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FullName is "First Last".
func (d Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// PatientUpdate lists the mutable profile fields; nil leaves a field as is.
type PatientUpdate struct {
	FirstName      *string    `json:"first_name,omitempty"`
	LastName       *string    `json:"last_name,omitempty"`
	PhoneNumber    *string    `json:"phone_number,omitempty"`
	DOB            *time.Time `json:"dob,omitempty"`
	HashedPassword *string    `json:"-"`
}

func (u PatientUpdate) apply(p *Patient) {
	if u.FirstName != nil && *u.FirstName != "" {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil && *u.LastName != "" {
		p.LastName = *u.LastName
	}
	if u.PhoneNumber != nil && *u.PhoneNumber != "" {
		p.PhoneNumber = *u.PhoneNumber
	}
	if u.DOB != nil {
		p.DOB = u.DOB
	}
}
