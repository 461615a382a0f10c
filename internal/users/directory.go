package users

import (
	"context"
	"strings"

	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// Directory answers doctor lookups by specialization, expanding aliases such
// as "heart" or "cardiology" to the stored spellings.
type Directory struct {
	repo   Repository
	mapper *SpecializationMapper
	logger *logging.Logger
}

func NewDirectory(repo Repository, logger *logging.Logger) *Directory {
	if repo == nil {
		panic("users: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{repo: repo, mapper: NewSpecializationMapper(), logger: logger}
}

// FindBySpecialization returns an empty slice, not an error, when nobody matches.
func (d *Directory) FindBySpecialization(ctx context.Context, specialization string) ([]Doctor, error) {
	specialization = strings.TrimSpace(specialization)
	if specialization == "" {
		return nil, nil
	}
	terms := d.mapper.Terms(specialization)
	doctors, err := d.repo.FindDoctorsBySpecialization(ctx, terms)
	if err != nil {
		d.logger.Error("doctor lookup failed", "specialization", specialization, "error", err)
		return nil, err
	}
	d.logger.Debug("doctor lookup", "specialization", specialization, "terms", terms, "matches", len(doctors))
	return doctors, nil
}

// ListDoctors returns every doctor.
func (d *Directory) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return d.repo.ListDoctors(ctx)
}

func (d *Directory) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return d.repo.GetDoctor(ctx, id)
}
