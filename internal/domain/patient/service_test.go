package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/validation"
)

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return db.ErrNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if nid, ok := params["national_id"]; ok && p.NationalID != nid {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService() *Service {
	svc := NewService(newMockPatientRepo())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func strPtr(s string) *string { return &s }

func TestPatient_AgeAt(t *testing.T) {
	tests := []struct {
		name  string
		birth *time.Time
		want  int
	}{
		{"birthday passed", date(1990, 3, 1), 34},
		{"birthday today", date(1990, 6, 15), 34},
		{"birthday tomorrow", date(1990, 6, 16), 33},
		{"later month", date(2000, 12, 1), 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Patient{BirthDate: tt.birth}
			got := p.AgeAt(fixedNow)
			if got == nil || *got != tt.want {
				t.Errorf("AgeAt() = %v, want %d", got, tt.want)
			}
		})
	}

	if (&Patient{}).AgeAt(fixedNow) != nil {
		t.Error("expected nil age without a birth date")
	}
}

func TestService_CreatePatient(t *testing.T) {
	svc := newTestService()
	p := &Patient{FirstName: " Juan ", LastName: "Pérez", NationalID: "123", BirthDate: date(1980, 1, 2), BloodType: strPtr("O+")}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.FirstName != "Juan" {
		t.Errorf("expected trimmed name, got %q", p.FirstName)
	}
	if p.Age == nil || *p.Age != 44 {
		t.Errorf("expected derived age 44, got %v", p.Age)
	}
}

func TestService_CreatePatient_Validation(t *testing.T) {
	svc := newTestService()
	p := &Patient{BirthDate: date(2030, 1, 1), Gender: strPtr("X"), BloodType: strPtr("Z+")}

	var verrs validation.Errors
	if err := svc.CreatePatient(context.Background(), p); !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, field := range []string{"first_name", "last_name", "national_id", "birth_date", "gender", "blood_type"} {
		if len(verrs[field]) == 0 {
			t.Errorf("expected error on %s", field)
		}
	}
}

func TestService_UpdateAndDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := &Patient{FirstName: "Ana", LastName: "Gómez", NationalID: "456"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatal(err)
	}

	p.Allergies = strPtr("Penicilina")
	if err := svc.UpdatePatient(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil || got.Allergies == nil || *got.Allergies != "Penicilina" {
		t.Fatalf("unexpected patient %+v (%v)", got, err)
	}

	if err := svc.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetPatient(ctx, p.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestService_SearchPatientsDropsEmptyFilters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, nid := range []string{"1", "2"} {
		if err := svc.CreatePatient(ctx, &Patient{FirstName: "A", LastName: "B", NationalID: nid}); err != nil {
			t.Fatal(err)
		}
	}

	_, total, err := svc.SearchPatients(ctx, map[string]string{"national_id": "", "name": "  "}, 10, 0)
	if err != nil || total != 2 {
		t.Errorf("expected all patients, got %d (%v)", total, err)
	}
	_, total, _ = svc.SearchPatients(ctx, map[string]string{"national_id": "2"}, 10, 0)
	if total != 1 {
		t.Errorf("expected 1 patient, got %d", total)
	}
}
