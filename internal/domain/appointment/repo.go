package appointment

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search filters on date (YYYY-MM-DD), status, patient_id and physician_id.
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}
