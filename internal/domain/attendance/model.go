package attendance

import (
	"time"

	"github.com/google/uuid"
)

// Record is one shift of one employee: open until CheckedOutAt is set.
type Record struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	EmployeeID   uuid.UUID  `db:"employee_id" json:"employee_id"`
	CheckedInAt  time.Time  `db:"checked_in_at" json:"checked_in_at"`
	CheckedOutAt *time.Time `db:"checked_out_at" json:"checked_out_at,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	EmployeeName string     `db:"-" json:"employee_name,omitempty"`
}

func (r *Record) Open() bool { return r.CheckedOutAt == nil }

// Hours worked, or nil while the shift is open.
func (r *Record) Hours() *float64 {
	if r.CheckedOutAt == nil {
		return nil
	}
	h := r.CheckedOutAt.Sub(r.CheckedInAt).Hours()
	return &h
}

type CheckRequest struct {
	Notes *string `json:"notes,omitempty"`
}
