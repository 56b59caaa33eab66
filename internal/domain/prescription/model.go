package prescription

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/validation"
)

const (
	StatusPending   = "pending"
	StatusDispensed = "dispensed"
	StatusPartial   = "partial"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusDispensed: true, StatusPartial: true, StatusCancelled: true,
}

// Prescription maps to the prescriptions table. Medications is the
// physician's free-text list, one medication per line.
type Prescription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	PhysicianID    uuid.UUID  `db:"physician_id" json:"physician_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	Medications    string     `db:"medications" json:"medications"`
	Instructions   *string    `db:"instructions" json:"instructions,omitempty"`
	Status         string     `db:"status" json:"status"`
	DispensedBy    *uuid.UUID `db:"dispensed_by" json:"dispensed_by,omitempty"`
	DispensedAt    *time.Time `db:"dispensed_at" json:"dispensed_at,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	IssuedAt       time.Time  `db:"issued_at" json:"issued_at"`
	PatientName    string     `db:"-" json:"patient_name,omitempty"`
	PhysicianName  string     `db:"-" json:"physician_name,omitempty"`
}

func (p *Prescription) Validate() validation.Errors {
	errs := validation.Errors{}
	if p.PatientID == uuid.Nil {
		errs.Add("patient_id", "El paciente es obligatorio")
	}
	if p.PhysicianID == uuid.Nil {
		errs.Add("physician_id", "El médico es obligatorio")
	}
	if strings.TrimSpace(p.Medications) == "" {
		errs.Add("medications", "Los medicamentos son obligatorios")
	}
	return errs
}

// DispenseRequest records a pharmacy hand-out; Status is dispensed or partial.
type DispenseRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type CancelRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// PatientInfo is the patient block printed on the prescription document.
type PatientInfo struct {
	Name       string
	NationalID string
	Age        *int
	Gender     string
	Address    string
	Phone      string
}
