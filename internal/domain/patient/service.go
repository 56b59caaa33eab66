package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	patients PatientRepository
	now      func() time.Time
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients, now: time.Now}
}

func (s *Service) withAge(p *Patient) *Patient {
	p.Age = p.AgeAt(s.now())
	return p
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.NationalID = strings.TrimSpace(p.NationalID)
	if errs := p.Validate(s.now()); errs.HasErrors() {
		return errs
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	s.withAge(p)
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if errs := p.Validate(s.now()); errs.HasErrors() {
		return errs
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	s.withAge(p)
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	filtered := make(map[string]string)
	for _, k := range []string{"name", "national_id"} {
		if v := strings.TrimSpace(params[k]); v != "" {
			filtered[k] = v
		}
	}
	items, total, err := s.patients.Search(ctx, filtered, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		s.withAge(p)
	}
	return items, total, nil
}
