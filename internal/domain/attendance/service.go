package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/validation"
)

var (
	ErrAlreadyCheckedIn = errors.New("Ya tiene una entrada registrada sin salida")
	ErrNotCheckedIn     = errors.New("No tiene una entrada registrada")
)

type Service struct {
	records AttendanceRepository
	now     func() time.Time
}

func NewService(records AttendanceRepository) *Service {
	return &Service{records: records, now: time.Now}
}

// CheckIn opens a shift. An employee has at most one open shift.
func (s *Service) CheckIn(ctx context.Context, employeeID uuid.UUID, req CheckRequest) (*Record, error) {
	open, err := s.records.OpenFor(ctx, employeeID)
	switch {
	case err == nil && open != nil:
		return nil, ErrAlreadyCheckedIn
	case err != nil && !errors.Is(err, db.ErrNotFound):
		return nil, err
	}
	rec := &Record{EmployeeID: employeeID, CheckedInAt: s.now().UTC(), Notes: req.Notes}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CheckOut closes the employee's open shift.
func (s *Service) CheckOut(ctx context.Context, employeeID uuid.UUID, req CheckRequest) (*Record, error) {
	rec, err := s.records.OpenFor(ctx, employeeID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotCheckedIn
	}
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	rec.CheckedOutAt = &now
	if req.Notes != nil {
		rec.Notes = req.Notes
	}
	if err := s.records.Close(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Current returns the open shift, or nil when the employee is checked out.
func (s *Service) Current(ctx context.Context, employeeID uuid.UUID) (*Record, error) {
	rec, err := s.records.OpenFor(ctx, employeeID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func (s *Service) SearchRecords(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	filtered := make(map[string]string)
	errs := validation.Errors{}
	if v := strings.TrimSpace(params["employee_id"]); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			errs.Add("employee_id", "Identificador no válido")
		} else {
			filtered["employee_id"] = v
		}
	}
	if v := strings.TrimSpace(params["date"]); v != "" {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			errs.Add("date", "Fecha no válida, use AAAA-MM-DD")
		} else {
			filtered["date"] = v
		}
	}
	if errs.HasErrors() {
		return nil, 0, errs
	}
	return s.records.Search(ctx, filtered, limit, offset)
}
