package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/validation"
)

type Notifier interface {
	NotifyPhysicians(ctx context.Context, title, message string, data interface{})
}

// AppointmentLookup resolves who an appointment belongs to.
type AppointmentLookup interface {
	Parties(ctx context.Context, appointmentID uuid.UUID) (patientID uuid.UUID, physicianID *uuid.UUID, err error)
}

type AppointmentLookupFunc func(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, *uuid.UUID, error)

func (f AppointmentLookupFunc) Parties(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
	return f(ctx, appointmentID)
}

// ReadyNotice is the payload of the "patient ready" physician notice.
type ReadyNotice struct {
	ConsultationID string `json:"consultation_id"`
	AppointmentID  string `json:"appointment_id,omitempty"`
	PatientID      string `json:"patient_id"`
	PhysicianID    string `json:"physician_id,omitempty"`
}

type Service struct {
	consultations ConsultationRepository
	appointments  AppointmentLookup
	notifier      Notifier
}

func NewService(consultations ConsultationRepository, appointments AppointmentLookup, notifier Notifier) *Service {
	return &Service{consultations: consultations, appointments: appointments, notifier: notifier}
}

// CreateConsultation stores the consultation. With vitals attached, the
// physicians are told the patient is ready to be seen.
func (s *Service) CreateConsultation(ctx context.Context, c *Consultation) (*Consultation, error) {
	if c.AppointmentID != nil {
		patientID, physicianID, err := s.appointments.Parties(ctx, *c.AppointmentID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				errs := validation.Errors{}
				errs.Add("appointment_id", "La cita no existe")
				return nil, errs
			}
			return nil, fmt.Errorf("lookup appointment: %w", err)
		}
		if c.PatientID == uuid.Nil {
			c.PatientID = patientID
		}
		if c.PhysicianID == nil {
			c.PhysicianID = physicianID
		}
	}
	if c.PatientID == uuid.Nil {
		errs := validation.Errors{}
		errs.Add("patient_id", "El paciente es obligatorio")
		return nil, errs
	}
	if c.Vitals != nil {
		if errs := c.Vitals.Validate(); errs.HasErrors() {
			return nil, errs
		}
		c.Vitals.ComputeBMI()
	}

	if err := s.consultations.Create(ctx, c); err != nil {
		return nil, err
	}
	created, err := s.consultations.GetByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	if created.Vitals != nil {
		s.notifyReady(ctx, created)
	}
	return created, nil
}

func (s *Service) notifyReady(ctx context.Context, c *Consultation) {
	notice := ReadyNotice{ConsultationID: c.ID.String(), PatientID: c.PatientID.String()}
	if c.AppointmentID != nil {
		notice.AppointmentID = c.AppointmentID.String()
	}
	if c.PhysicianID != nil {
		notice.PhysicianID = c.PhysicianID.String()
	}
	name := c.PatientName
	if name == "" {
		name = "El paciente"
	}
	s.notifier.NotifyPhysicians(ctx, "Paciente listo",
		fmt.Sprintf("%s tiene signos vitales registrados y está listo para consulta", name), notice)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.consultations.GetByID(ctx, id)
}

func (s *Service) UpdateConsultation(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Consultation, error) {
	if req.Vitals != nil {
		if errs := req.Vitals.Validate(); errs.HasErrors() {
			return nil, errs
		}
		req.Vitals.ComputeBMI()
	}
	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(c)
	if err := s.consultations.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SearchConsultations(ctx context.Context, params map[string]string, limit, offset int) ([]*Consultation, int, error) {
	filtered := make(map[string]string)
	errs := validation.Errors{}
	for _, k := range []string{"patient_id", "physician_id", "from", "to"} {
		v := strings.TrimSpace(params[k])
		if v == "" {
			continue
		}
		switch k {
		case "from", "to":
			if _, err := time.Parse("2006-01-02", v); err != nil {
				errs.Add(k, "Fecha no válida, use AAAA-MM-DD")
				continue
			}
		default:
			if _, err := uuid.Parse(v); err != nil {
				errs.Add(k, "Identificador no válido")
				continue
			}
		}
		filtered[k] = v
	}
	if errs.HasErrors() {
		return nil, 0, errs
	}
	return s.consultations.Search(ctx, filtered, limit, offset)
}
