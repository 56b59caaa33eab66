package medication

import (
	"context"

	"github.com/google/uuid"
)

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	// AdjustStock changes stock by delta and returns the new level.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Search filters on name, max_stock and min_stock.
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error)
}
