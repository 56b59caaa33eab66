package attendance

import (
	"context"

	"github.com/google/uuid"
)

type AttendanceRepository interface {
	Create(ctx context.Context, r *Record) error
	// OpenFor returns the employee's shift without a check-out.
	OpenFor(ctx context.Context, employeeID uuid.UUID) (*Record, error)
	Close(ctx context.Context, r *Record) error
	// Search filters on employee_id and date (AAAA-MM-DD).
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error)
}
