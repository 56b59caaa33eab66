package medication

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/validation"
)

type Service struct {
	medications MedicationRepository
}

func NewService(medications MedicationRepository) *Service {
	return &Service{medications: medications}
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if errs := m.Validate(); errs.HasErrors() {
		return errs
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if errs := m.Validate(); errs.HasErrors() {
		return errs
	}
	return s.medications.Update(ctx, m)
}

// AdjustStock applies a dispensing or restocking delta.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	if delta == 0 {
		errs := validation.Errors{}
		errs.Add("delta", "La cantidad debe ser distinta de cero")
		return 0, errs
	}
	return s.medications.AdjustStock(ctx, id, delta)
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	return s.medications.Delete(ctx, id)
}

func (s *Service) SearchMedications(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	filtered := make(map[string]string)
	errs := validation.Errors{}
	if v := strings.TrimSpace(params["name"]); v != "" {
		filtered["name"] = v
	}
	for _, k := range []string{"max_stock", "min_stock"} {
		v := strings.TrimSpace(params[k])
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs.Add(k, "Debe ser un número entero no negativo")
			continue
		}
		filtered[k] = strconv.Itoa(n)
	}
	if errs.HasErrors() {
		return nil, 0, errs
	}
	return s.medications.Search(ctx, filtered, limit, offset)
}
