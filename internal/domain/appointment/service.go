package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/notification"
	"github.com/clinica/clinic/internal/platform/validation"
)

// ErrNotAssigned is returned when a physician reaches for an appointment
// that belongs to someone else.
var ErrNotAssigned = errors.New("appointment is assigned to another physician")

// Notifier is the part of notification.Notifier appointments use.
type Notifier interface {
	AppointmentUpdated(ctx context.Context, change notification.AppointmentChange)
	PatientCalled(ctx context.Context, call notification.PatientCall)
}

type Service struct {
	appointments AppointmentRepository
	notifier     Notifier
}

func NewService(appointments AppointmentRepository, notifier Notifier) *Service {
	return &Service{appointments: appointments, notifier: notifier}
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Type == "" {
		a.Type = "consultation"
	}
	if errs := a.Validate(); errs.HasErrors() {
		return nil, errs
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	return s.appointments.GetByID(ctx, a.ID)
}

// GetAppointment returns the appointment; a non-nil physician limits the
// lookup to that physician's own appointments.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, physician *uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if physician != nil && (a.PhysicianID == nil || *a.PhysicianID != *physician) {
		return nil, ErrNotAssigned
	}
	return a, nil
}

var validFilters = map[string]bool{
	"date": true, "status": true, "patient_id": true, "physician_id": true,
}

func (s *Service) SearchAppointments(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	filtered := make(map[string]string)
	errs := validation.Errors{}
	for k, v := range params {
		v = strings.TrimSpace(v)
		if !validFilters[k] || v == "" {
			continue
		}
		switch k {
		case "date":
			if _, err := time.Parse("2006-01-02", v); err != nil {
				errs.Add("date", "Fecha no válida, use AAAA-MM-DD")
				continue
			}
		case "status":
			if !validStatuses[v] {
				errs.Add("status", "Estado de cita no válido")
				continue
			}
		case "patient_id", "physician_id":
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
	return s.appointments.Search(ctx, filtered, limit, offset)
}

// UpdateAppointment applies req and, when the status moved, tells the
// assigned physician and the nurses.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req UpdateRequest, physician *uuid.UUID) (*Appointment, error) {
	a, err := s.GetAppointment(ctx, id, physician)
	if err != nil {
		return nil, err
	}
	previous := a.Status
	req.apply(a)
	if errs := a.Validate(); errs.HasErrors() {
		return nil, errs
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	updated, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if updated.Status != previous {
		s.notifier.AppointmentUpdated(ctx, notification.AppointmentChange{
			AppointmentID: updated.ID.String(),
			PatientID:     updated.PatientID.String(),
			PatientName:   updated.PatientName,
			PhysicianID:   updated.physicianString(),
			Status:        updated.Status,
		})
	}
	return updated, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

// CallPatient records the room and announces the call to the nursing desk.
func (s *Service) CallPatient(ctx context.Context, id uuid.UUID, room string, physician *uuid.UUID) (*Appointment, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		errs := validation.Errors{}
		errs.Add("room", "La sala es obligatoria")
		return nil, errs
	}
	a, err := s.GetAppointment(ctx, id, physician)
	if err != nil {
		return nil, err
	}
	a.Room = &room
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}

	s.notifier.PatientCalled(ctx, notification.PatientCall{
		AppointmentID: a.ID.String(),
		PatientID:     a.PatientID.String(),
		PatientName:   a.PatientName,
		PhysicianID:   a.physicianString(),
		Room:          room,
	})
	return a, nil
}
