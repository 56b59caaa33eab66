package staff

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/validation"
)

// -- Mock Repository --

type mockEmployeeRepo struct {
	employees map[uuid.UUID]*Employee
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{employees: make(map[uuid.UUID]*Employee)}
}

func (m *mockEmployeeRepo) Create(_ context.Context, e *Employee) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.employees[e.ID] = e
	return nil
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id uuid.UUID) (*Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return e, nil
}

func (m *mockEmployeeRepo) GetByEmail(_ context.Context, email string) (*Employee, error) {
	for _, e := range m.employees {
		if strings.EqualFold(e.Email, email) {
			return e, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockEmployeeRepo) Update(_ context.Context, e *Employee) error {
	if _, ok := m.employees[e.ID]; !ok {
		return db.ErrNotFound
	}
	m.employees[e.ID] = e
	return nil
}

func (m *mockEmployeeRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	e, ok := m.employees[id]
	if !ok {
		return db.ErrNotFound
	}
	e.PasswordHash = hash
	return nil
}

func (m *mockEmployeeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.employees[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.employees, id)
	return nil
}

func (m *mockEmployeeRepo) List(_ context.Context, params map[string]string, limit, offset int) ([]*Employee, int, error) {
	var result []*Employee
	for _, e := range m.employees {
		if role, ok := params["role"]; ok && e.Role != role {
			continue
		}
		result = append(result, e)
	}
	return result, len(result), nil
}

var testTokens = auth.JWTConfig{Issuer: "clinic-test", SigningKey: []byte("test-secret"), TTL: time.Hour}

func newTestService() (*Service, *mockEmployeeRepo) {
	repo := newMockEmployeeRepo()
	return NewService(repo, testTokens), repo
}

func registerNurse(t *testing.T, svc *Service) *Employee {
	t.Helper()
	emp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName:  "Laura",
		LastName:   "Méndez",
		NationalID: "1002003004",
		Role:       auth.RoleNurse,
		Email:      "Laura@Clinica.test",
		Password:   "secreta1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return emp
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	emp := registerNurse(t, svc)

	if emp.Email != "laura@clinica.test" {
		t.Errorf("expected normalized email, got %q", emp.Email)
	}
	if emp.PasswordHash == "" || emp.PasswordHash == "secreta1" {
		t.Error("expected a bcrypt hash to be stored")
	}

	resp, err := svc.Login(context.Background(), "LAURA@clinica.test", "secreta1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TokenType != "bearer" || resp.User.ID != emp.ID {
		t.Errorf("unexpected login response %+v", resp)
	}

	id, err := testTokens.Parse(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if id.ID != emp.ID.String() || id.Role != auth.RoleNurse || id.Name != "Laura Méndez" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestService_LoginRejects(t *testing.T) {
	svc, repo := newTestService()
	emp := registerNurse(t, svc)

	cases := []struct {
		name, email, password string
	}{
		{"wrong password", "laura@clinica.test", "otra-clave"},
		{"unknown email", "nadie@clinica.test", "secreta1"},
		{"empty email", "", "secreta1"},
		{"empty password", "laura@clinica.test", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	repo.employees[emp.ID].Active = false
	if _, err := svc.Login(context.Background(), "laura@clinica.test", "secreta1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected inactive employee to be rejected, got %v", err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), RegisterRequest{Role: "janitor", Email: "x", Password: "123"})

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, field := range []string{"first_name", "last_name", "national_id", "role", "email", "password"} {
		if _, ok := verrs[field]; !ok {
			t.Errorf("expected error on %s", field)
		}
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	registerNurse(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Otra", LastName: "Persona", NationalID: "9", Role: auth.RolePharmacist,
		Email: "laura@clinica.test", Password: "secreta1",
	})
	var verrs validation.Errors
	if !errors.As(err, &verrs) || len(verrs["email"]) != 1 {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestService_UpdateEmployee(t *testing.T) {
	svc, _ := newTestService()
	emp := registerNurse(t, svc)

	role := auth.RolePhysician
	phone := "555-0101"
	updated, err := svc.UpdateEmployee(context.Background(), emp.ID, UpdateRequest{Role: &role, Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != auth.RolePhysician || updated.Phone == nil || *updated.Phone != phone {
		t.Errorf("unexpected employee %+v", updated)
	}

	bad := "chef"
	if _, err := svc.UpdateEmployee(context.Background(), emp.ID, UpdateRequest{Role: &bad}); err == nil {
		t.Error("expected invalid role to be rejected")
	}
	if _, err := svc.UpdateEmployee(context.Background(), uuid.New(), UpdateRequest{}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newTestService()
	emp := registerNurse(t, svc)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, emp.ID, auth.PasswordChange{Current: "incorrecta", New: "nueva-clave", Confirm: "nueva-clave"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["current_password"][0] != "La contraseña actual es incorrecta" {
		t.Fatalf("expected wrong current password error, got %v", err)
	}

	if err := svc.ChangePassword(ctx, emp.ID, auth.PasswordChange{Current: "secreta1", New: "nueva-clave", Confirm: "nueva-clave"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(ctx, emp.Email, "nueva-clave"); err != nil {
		t.Errorf("expected login with the new password, got %v", err)
	}
	if _, err := svc.Login(ctx, emp.Email, "secreta1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("expected the old password to stop working")
	}
}

func TestService_ChangePasswordFormErrors(t *testing.T) {
	svc, _ := newTestService()
	emp := registerNurse(t, svc)

	err := svc.ChangePassword(context.Background(), emp.ID, auth.PasswordChange{Current: "secreta1", New: "abc", Confirm: "abd"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(verrs["new_password"]) == 0 || len(verrs["confirm_password"]) == 0 {
		t.Errorf("unexpected errors %v", verrs)
	}
}
