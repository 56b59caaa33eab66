package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/validation"
)

const (
	StatusScheduled      = "scheduled"
	StatusConfirmed      = "confirmed"
	StatusInConsultation = "in_consultation"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusNoShow         = "no_show"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusInConsultation: true,
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

var validTypes = map[string]bool{
	"consultation": true, "follow_up": true, "emergency": true,
}

// Appointment maps to the appointments table. PatientName is filled from
// the patients table on reads.
type Appointment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	PhysicianID       *uuid.UUID `db:"physician_id" json:"physician_id,omitempty"`
	ScheduledAt       time.Time  `db:"scheduled_at" json:"scheduled_at"`
	StartTime         *string    `db:"start_time" json:"start_time,omitempty"`
	EndTime           *string    `db:"end_time" json:"end_time,omitempty"`
	Reason            *string    `db:"reason" json:"reason,omitempty"`
	Status            string     `db:"status" json:"status"`
	Type              string     `db:"appointment_type" json:"appointment_type"`
	Room              *string    `db:"room" json:"room,omitempty"`
	CancellationNotes *string    `db:"cancellation_notes" json:"cancellation_notes,omitempty"`
	PatientName       string     `db:"-" json:"patient_name,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) Validate() validation.Errors {
	errs := validation.Errors{}
	if a.PatientID == uuid.Nil {
		errs.Add("patient_id", "El paciente es obligatorio")
	}
	if a.ScheduledAt.IsZero() {
		errs.Add("scheduled_at", "La fecha de la cita es obligatoria")
	}
	if !validStatuses[a.Status] {
		errs.Add("status", "Estado de cita no válido")
	}
	if !validTypes[a.Type] {
		errs.Add("appointment_type", "Tipo de cita no válido")
	}
	return errs
}

// physicianString is the assigned physician as a live-channel user id.
func (a *Appointment) physicianString() string {
	if a.PhysicianID == nil {
		return ""
	}
	return a.PhysicianID.String()
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	ScheduledAt       *time.Time `json:"scheduled_at,omitempty"`
	StartTime         *string    `json:"start_time,omitempty"`
	EndTime           *string    `json:"end_time,omitempty"`
	Reason            *string    `json:"reason,omitempty"`
	Status            *string    `json:"status,omitempty"`
	PhysicianID       *uuid.UUID `json:"physician_id,omitempty"`
	Room              *string    `json:"room,omitempty"`
	CancellationNotes *string    `json:"cancellation_notes,omitempty"`
}

func (u UpdateRequest) apply(a *Appointment) {
	if u.ScheduledAt != nil {
		a.ScheduledAt = *u.ScheduledAt
	}
	if u.StartTime != nil {
		a.StartTime = u.StartTime
	}
	if u.EndTime != nil {
		a.EndTime = u.EndTime
	}
	if u.Reason != nil {
		a.Reason = u.Reason
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.PhysicianID != nil {
		a.PhysicianID = u.PhysicianID
	}
	if u.Room != nil {
		a.Room = u.Room
	}
	if u.CancellationNotes != nil {
		a.CancellationNotes = u.CancellationNotes
	}
}

// CallRequest asks the patient of an appointment to come to a room.
type CallRequest struct {
	Room string `json:"room"`
}
