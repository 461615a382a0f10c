package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medcare-assistant/internal/identity"
)

// Repository stores patients, doctors and admins.
type Repository interface {
	CreateAccount(ctx context.Context, n NewAccount) (*Account, error)
	FindAccount(ctx context.Context, role identity.Role, username string) (*Account, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)
	UpdatePatient(ctx context.Context, id string, u PatientUpdate) (*Patient, error)
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	// FindDoctorsBySpecialization returns doctors whose normalized
	// specialization contains any of terms.
	FindDoctorsBySpecialization(ctx context.Context, terms []string) ([]Doctor, error)
}

type memoryAccount struct {
	Account
	patient *Patient
	doctor  *Doctor
}

// InMemoryRepository keeps users in process memory for development and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[identity.Role]map[string]*memoryAccount // role -> username
	byID     map[string]*memoryAccount
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[identity.Role]map[string]*memoryAccount),
		byID:     make(map[string]*memoryAccount),
	}
}

func (r *InMemoryRepository) CreateAccount(ctx context.Context, n NewAccount) (*Account, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.accounts[n.Role]
	if byName == nil {
		byName = make(map[string]*memoryAccount)
		r.accounts[n.Role] = byName
	}
	if _, exists := byName[n.Username]; exists {
		return nil, ErrUsernameTaken
	}

	now := time.Now().UTC()
	rec := &memoryAccount{Account: Account{
		ID:             uuid.New().String(),
		Role:           n.Role,
		Username:       n.Username,
		HashedPassword: n.HashedPassword,
	}}
	switch n.Role {
	case identity.RolePatient:
		rec.patient = &Patient{ID: rec.ID, Username: n.Username, FirstName: n.FirstName, LastName: n.LastName, PhoneNumber: n.PhoneNumber, DOB: n.DOB, CreatedAt: now}
	case identity.RoleDoctor:
		rec.doctor = &Doctor{ID: rec.ID, Username: n.Username, FirstName: n.FirstName, LastName: n.LastName, Specialization: n.Specialization, PhoneNumber: n.PhoneNumber, CreatedAt: now}
	}
	byName[n.Username] = rec
	r.byID[rec.ID] = rec

	acct := rec.Account
	return &acct, nil
}

func (r *InMemoryRepository) FindAccount(ctx context.Context, role identity.Role, username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.accounts[role][username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	acct := rec.Account
	return &acct, nil
}

func (r *InMemoryRepository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok || rec.patient == nil {
		return nil, ErrPatientNotFound
	}
	p := *rec.patient
	return &p, nil
}

func (r *InMemoryRepository) UpdatePatient(ctx context.Context, id string, u PatientUpdate) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.patient == nil {
		return nil, ErrPatientNotFound
	}
	u.apply(rec.patient)
	if u.HashedPassword != nil && *u.HashedPassword != "" {
		rec.HashedPassword = *u.HashedPassword
	}
	p := *rec.patient
	return &p, nil
}

func (r *InMemoryRepository) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok || rec.doctor == nil {
		return nil, ErrDoctorNotFound
	}
	d := *rec.doctor
	return &d, nil
}

func (r *InMemoryRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return r.filterDoctors(func(Doctor) bool { return true }), nil
}

func (r *InMemoryRepository) FindDoctorsBySpecialization(ctx context.Context, terms []string) ([]Doctor, error) {
	return r.filterDoctors(func(d Doctor) bool {
		stored := normalizeSpecialization(d.Specialization)
		for _, term := range terms {
			if term != "" && strings.Contains(stored, term) {
				return true
			}
		}
		return false
	}), nil
}

func (r *InMemoryRepository) filterDoctors(keep func(Doctor) bool) []Doctor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Doctor
	for _, rec := range r.byID {
		if rec.doctor != nil && keep(*rec.doctor) {
			out = append(out, *rec.doctor)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out
}
