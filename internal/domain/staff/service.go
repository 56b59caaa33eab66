package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/validation"
)

// ErrInvalidCredentials covers unknown emails, wrong passwords and
// deactivated accounts alike.
var ErrInvalidCredentials = errors.New("Credenciales no válidas")

type TokenIssuer interface {
	Issue(id auth.Identity, now time.Time) (string, error)
}

type Service struct {
	employees EmployeeRepository
	tokens    TokenIssuer
	now       func() time.Time
}

func NewService(employees EmployeeRepository, tokens TokenIssuer) *Service {
	return &Service{employees: employees, tokens: tokens, now: time.Now}
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	emp, err := s.employees.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup employee: %w", err)
	}
	if !emp.Active || emp.PasswordHash == "" || !auth.CheckPassword(emp.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(emp.Identity(), s.now())
	if err != nil {
		return nil, err
	}
	return &LoginResponse{AccessToken: token, TokenType: "bearer", User: emp}, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Employee, error) {
	if errs := req.Validate(); errs.HasErrors() {
		return nil, errs
	}
	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	emp := &Employee{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		NationalID:   strings.TrimSpace(req.NationalID),
		Role:         req.Role,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.employees.Create(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, owner uuid.UUID) error {
	existing, err := s.employees.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != owner:
		errs := validation.Errors{}
		errs.Add("email", "El email ya está registrado")
		return errs
	}
	return nil
}

func (s *Service) GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return s.employees.GetByID(ctx, id)
}

var validListFilters = map[string]bool{"role": true, "q": true}

func (s *Service) ListEmployees(ctx context.Context, params map[string]string, limit, offset int) ([]*Employee, int, error) {
	filtered := make(map[string]string, len(params))
	for k, v := range params {
		if validListFilters[k] && v != "" {
			filtered[k] = v
		}
	}
	return s.employees.List(ctx, filtered, limit, offset)
}

func (s *Service) UpdateEmployee(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Employee, error) {
	if errs := req.Validate(); errs.HasErrors() {
		return nil, errs
	}
	emp, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		if err := s.ensureEmailFree(ctx, normalizeEmail(*req.Email), emp.ID); err != nil {
			return nil, err
		}
	}
	req.apply(emp)
	if err := s.employees.Update(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	return s.employees.Delete(ctx, id)
}

// ChangePassword replaces the caller's own password after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, form auth.PasswordChange) error {
	if errs := form.Validate(); errs.HasErrors() {
		return errs
	}
	emp, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(emp.PasswordHash, form.Current) {
		errs := validation.Errors{}
		errs.Add("current_password", "La contraseña actual es incorrecta")
		return errs
	}
	hash, err := auth.HashPassword(form.New)
	if err != nil {
		return err
	}
	return s.employees.UpdatePassword(ctx, id, hash)
}
