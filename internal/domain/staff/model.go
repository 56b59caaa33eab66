package staff

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/validation"
)

// Employee maps to the employees table. Every employee can sign in.
type Employee struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	NationalID   string    `db:"national_id" json:"national_id"`
	Role         string    `db:"role" json:"role"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Identity is what gets signed into the access token.
func (e *Employee) Identity() auth.Identity {
	return auth.Identity{
		ID:    e.ID.String(),
		Role:  e.Role,
		Name:  e.FullName(),
		Email: e.Email,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        *Employee `json:"user"`
}

// RegisterRequest creates an employee together with their credentials.
type RegisterRequest struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	NationalID string  `json:"national_id"`
	Role       string  `json:"role"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Password   string  `json:"password"`
}

func (r RegisterRequest) Validate() validation.Errors {
	errs := validation.Errors{}
	if strings.TrimSpace(r.FirstName) == "" {
		errs.Add("first_name", "El nombre es obligatorio")
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs.Add("last_name", "El apellido es obligatorio")
	}
	if strings.TrimSpace(r.NationalID) == "" {
		errs.Add("national_id", "La cédula es obligatoria")
	}
	if !auth.ValidRole(r.Role) {
		errs.Add("role", "Cargo no válido")
	}
	if !validEmail(r.Email) {
		errs.Add("email", "El email no es válido")
	}
	if len(r.Password) < auth.MinPasswordLength {
		errs.Add("password", "La contraseña debe tener al menos 6 caracteres")
	}
	return errs
}

// UpdateRequest carries the fields an administrator may change; nil fields
// are left as they are.
type UpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

func (u UpdateRequest) Validate() validation.Errors {
	errs := validation.Errors{}
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		errs.Add("first_name", "El nombre es obligatorio")
	}
	if u.LastName != nil && strings.TrimSpace(*u.LastName) == "" {
		errs.Add("last_name", "El apellido es obligatorio")
	}
	if u.Role != nil && !auth.ValidRole(*u.Role) {
		errs.Add("role", "Cargo no válido")
	}
	if u.Email != nil && !validEmail(*u.Email) {
		errs.Add("email", "El email no es válido")
	}
	return errs
}

func (u UpdateRequest) apply(e *Employee) {
	if u.FirstName != nil {
		e.FirstName = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		e.LastName = strings.TrimSpace(*u.LastName)
	}
	if u.Role != nil {
		e.Role = *u.Role
	}
	if u.Email != nil {
		e.Email = normalizeEmail(*u.Email)
	}
	if u.Phone != nil {
		e.Phone = u.Phone
	}
	if u.Active != nil {
		e.Active = *u.Active
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Name == ""
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
