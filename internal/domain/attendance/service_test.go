package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/validation"
)

type mockAttendanceRepo struct {
	items    map[uuid.UUID]*Record
	searched map[string]string
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{items: make(map[uuid.UUID]*Record)}
}

func (m *mockAttendanceRepo) Create(_ context.Context, r *Record) error {
	r.ID = uuid.New()
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockAttendanceRepo) OpenFor(_ context.Context, employeeID uuid.UUID) (*Record, error) {
	for _, r := range m.items {
		if r.EmployeeID == employeeID && r.Open() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockAttendanceRepo) Close(_ context.Context, r *Record) error {
	stored, ok := m.items[r.ID]
	if !ok || !stored.Open() {
		return db.ErrNotFound
	}
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockAttendanceRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	m.searched = params
	var result []*Record
	for _, r := range m.items {
		if v, ok := params["employee_id"]; ok && r.EmployeeID.String() != v {
			continue
		}
		if v, ok := params["date"]; ok && r.CheckedInAt.Format("2006-01-02") != v {
			continue
		}
		result = append(result, r)
	}
	return result, len(result), nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService() (*Service, *mockAttendanceRepo, *clock) {
	repo := newMockAttendanceRepo()
	clk := &clock{t: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)}
	svc := NewService(repo)
	svc.now = clk.now
	return svc, repo, clk
}

func TestService_CheckInCheckOut(t *testing.T) {
	svc, _, clk := newTestService()
	ctx := context.Background()
	employee := uuid.New()

	in, err := svc.CheckIn(ctx, employee, CheckRequest{})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if !in.Open() || in.Hours() != nil {
		t.Errorf("expected open shift, got %+v", in)
	}

	clk.t = clk.t.Add(8*time.Hour + 30*time.Minute)
	out, err := svc.CheckOut(ctx, employee, CheckRequest{})
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if out.ID != in.ID {
		t.Errorf("expected the same shift closed")
	}
	if h := out.Hours(); h == nil || *h != 8.5 {
		t.Errorf("expected 8.5 hours, got %v", h)
	}

	current, err := svc.Current(ctx, employee)
	if err != nil || current != nil {
		t.Errorf("expected no open shift, got %+v (%v)", current, err)
	}
}

func TestService_CheckInTwice(t *testing.T) {
	svc, _, _ := newTestService()
	employee := uuid.New()
	if _, err := svc.CheckIn(context.Background(), employee, CheckRequest{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckIn(context.Background(), employee, CheckRequest{}); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("expected ErrAlreadyCheckedIn, got %v", err)
	}
	if _, err := svc.CheckIn(context.Background(), uuid.New(), CheckRequest{}); err != nil {
		t.Errorf("other employees are independent: %v", err)
	}
}

func TestService_CheckOutWithoutCheckIn(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.CheckOut(context.Background(), uuid.New(), CheckRequest{}); !errors.Is(err, ErrNotCheckedIn) {
		t.Errorf("expected ErrNotCheckedIn, got %v", err)
	}
}

func TestService_SearchRecords(t *testing.T) {
	svc, repo, _ := newTestService()
	employee := uuid.New()
	if _, err := svc.CheckIn(context.Background(), employee, CheckRequest{}); err != nil {
		t.Fatal(err)
	}

	items, total, err := svc.SearchRecords(context.Background(), map[string]string{
		"employee_id": employee.String(),
		"date":        "2024-06-15",
	}, 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || items[0].EmployeeID != employee {
		t.Errorf("unexpected result %d", total)
	}
	if repo.searched["date"] != "2024-06-15" {
		t.Errorf("unexpected filters %v", repo.searched)
	}

	_, _, err = svc.SearchRecords(context.Background(), map[string]string{"date": "15/06/2024", "employee_id": "x"}, 10, 0)
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["date"][0] != "Fecha no válida, use AAAA-MM-DD" || len(verrs["employee_id"]) != 1 {
		t.Errorf("expected filter errors, got %v", err)
	}
}
