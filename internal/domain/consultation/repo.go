package consultation

import (
	"context"

	"github.com/google/uuid"
)

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Update(ctx context.Context, c *Consultation) error
	// Search filters on patient_id, physician_id, from and to (YYYY-MM-DD).
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Consultation, int, error)
}
