package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinica/clinic/internal/platform/validation"
)

// MinPasswordLength is the shortest password accepted for staff accounts.
const MinPasswordLength = 6

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordChange is the change-own-password form.
type PasswordChange struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
	Confirm string `json:"confirm_password"`
}

func (p PasswordChange) Validate() validation.Errors {
	errs := validation.Errors{}

	if p.Current == "" {
		errs.Add("current_password", "La contraseña actual es obligatoria")
	}

	switch {
	case p.New == "":
		errs.Add("new_password", "La nueva contraseña es obligatoria")
	case len([]rune(p.New)) < MinPasswordLength:
		errs.Add("new_password", fmt.Sprintf("La contraseña debe tener al menos %d caracteres", MinPasswordLength))
	case p.New == p.Current:
		errs.Add("new_password", "La nueva contraseña debe ser diferente a la actual")
	}

	switch {
	case p.Confirm == "":
		errs.Add("confirm_password", "Debe confirmar la nueva contraseña")
	case p.Confirm != p.New:
		errs.Add("confirm_password", "Las contraseñas no coinciden")
	}

	return errs
}
