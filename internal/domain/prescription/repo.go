package prescription

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	// Search filters on patient_id, physician_id and status.
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error)
}
