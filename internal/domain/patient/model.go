package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/validation"
)

// Patient maps to the patients table.
type Patient struct {
	ID                       uuid.UUID  `db:"id" json:"id"`
	FirstName                string     `db:"first_name" json:"first_name"`
	LastName                 string     `db:"last_name" json:"last_name"`
	NationalID               string     `db:"national_id" json:"national_id"`
	Email                    *string    `db:"email" json:"email,omitempty"`
	Phone                    *string    `db:"phone" json:"phone,omitempty"`
	Address                  *string    `db:"address" json:"address,omitempty"`
	BirthDate                *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender                   *string    `db:"gender" json:"gender,omitempty"`
	BloodType                *string    `db:"blood_type" json:"blood_type,omitempty"`
	Allergies                *string    `db:"allergies" json:"allergies,omitempty"`
	MedicalHistory           *string    `db:"medical_history" json:"medical_history,omitempty"`
	EmergencyContactName     *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string    `db:"emergency_contact_relation" json:"emergency_contact_relation,omitempty"`
	Age                      *int       `db:"-" json:"age,omitempty"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AgeAt returns the completed years at now, or nil without a birth date.
func (p *Patient) AgeAt(now time.Time) *int {
	if p.BirthDate == nil {
		return nil
	}
	b := p.BirthDate.UTC()
	n := now.UTC()
	age := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}

var validGenders = map[string]bool{"Masculino": true, "Femenino": true, "Otro": true}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

func (p *Patient) Validate(now time.Time) validation.Errors {
	errs := validation.Errors{}
	if strings.TrimSpace(p.FirstName) == "" {
		errs.Add("first_name", "El nombre es obligatorio")
	}
	if strings.TrimSpace(p.LastName) == "" {
		errs.Add("last_name", "El apellido es obligatorio")
	}
	if strings.TrimSpace(p.NationalID) == "" {
		errs.Add("national_id", "La cédula es obligatoria")
	}
	if p.BirthDate != nil && p.BirthDate.After(now) {
		errs.Add("birth_date", "La fecha de nacimiento no puede ser futura")
	}
	if p.Gender != nil && *p.Gender != "" && !validGenders[*p.Gender] {
		errs.Add("gender", "Género no válido")
	}
	if p.BloodType != nil && *p.BloodType != "" && !validBloodTypes[*p.BloodType] {
		errs.Add("blood_type", "Grupo sanguíneo no válido")
	}
	return errs
}
