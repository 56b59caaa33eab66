package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Consultation maps to the consultations table. Vitals are stored as JSONB.
type Consultation struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	AppointmentID      *uuid.UUID  `db:"appointment_id" json:"appointment_id,omitempty"`
	PatientID          uuid.UUID   `db:"patient_id" json:"patient_id"`
	PhysicianID        *uuid.UUID  `db:"physician_id" json:"physician_id,omitempty"`
	Vitals             *VitalSigns `db:"vitals" json:"vitals,omitempty"`
	Reason             *string     `db:"reason" json:"reason,omitempty"`
	CurrentIllness     *string     `db:"current_illness" json:"current_illness,omitempty"`
	PhysicalExam       *string     `db:"physical_exam" json:"physical_exam,omitempty"`
	Diagnosis          *string     `db:"diagnosis" json:"diagnosis,omitempty"`
	SecondaryDiagnoses *string     `db:"secondary_diagnoses" json:"secondary_diagnoses,omitempty"`
	Treatment          *string     `db:"treatment" json:"treatment,omitempty"`
	Instructions       *string     `db:"instructions" json:"instructions,omitempty"`
	RequestedExams     *string     `db:"requested_exams" json:"requested_exams,omitempty"`
	Prognosis          *string     `db:"prognosis" json:"prognosis,omitempty"`
	Notes              *string     `db:"notes" json:"notes,omitempty"`
	PatientName        string      `db:"-" json:"patient_name,omitempty"`
	ConsultedAt        time.Time   `db:"consulted_at" json:"consulted_at"`
}

// UpdateRequest carries the physician's clinical notes; nil fields are
// left unchanged.
type UpdateRequest struct {
	Vitals             *VitalSigns `json:"vitals,omitempty"`
	Reason             *string     `json:"reason,omitempty"`
	CurrentIllness     *string     `json:"current_illness,omitempty"`
	PhysicalExam       *string     `json:"physical_exam,omitempty"`
	Diagnosis          *string     `json:"diagnosis,omitempty"`
	SecondaryDiagnoses *string     `json:"secondary_diagnoses,omitempty"`
	Treatment          *string     `json:"treatment,omitempty"`
	Instructions       *string     `json:"instructions,omitempty"`
	RequestedExams     *string     `json:"requested_exams,omitempty"`
	Prognosis          *string     `json:"prognosis,omitempty"`
	Notes              *string     `json:"notes,omitempty"`
}

func (u UpdateRequest) apply(c *Consultation) {
	set := func(dst **string, v *string) {
		if v != nil {
			*dst = v
		}
	}
	if u.Vitals != nil {
		c.Vitals = u.Vitals
	}
	set(&c.Reason, u.Reason)
	set(&c.CurrentIllness, u.CurrentIllness)
	set(&c.PhysicalExam, u.PhysicalExam)
	set(&c.Diagnosis, u.Diagnosis)
	set(&c.SecondaryDiagnoses, u.SecondaryDiagnoses)
	set(&c.Treatment, u.Treatment)
	set(&c.Instructions, u.Instructions)
	set(&c.RequestedExams, u.RequestedExams)
	set(&c.Prognosis, u.Prognosis)
	set(&c.Notes, u.Notes)
}
