package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/notification"
	"github.com/clinica/clinic/internal/platform/validation"
)

// ErrInvalidTransition is returned when the prescription's current status
// does not allow the requested change.
var ErrInvalidTransition = errors.New("invalid prescription status transition")

type Notifier interface {
	NotifyPharmacists(ctx context.Context, title, message string, data interface{})
	PrescriptionReady(ctx context.Context, p notification.PrescriptionDispensed)
}

// PatientLookup loads the patient block for the printed document.
type PatientLookup interface {
	PatientInfo(ctx context.Context, id uuid.UUID) (*PatientInfo, error)
}

type PatientLookupFunc func(ctx context.Context, id uuid.UUID) (*PatientInfo, error)

func (f PatientLookupFunc) PatientInfo(ctx context.Context, id uuid.UUID) (*PatientInfo, error) {
	return f(ctx, id)
}

// NewPrescriptionNotice is the payload sent to the pharmacy on creation.
type NewPrescriptionNotice struct {
	PrescriptionID string `json:"prescription_id"`
	PatientID      string `json:"patient_id"`
	PatientName    string `json:"patient_name,omitempty"`
}

type Service struct {
	prescriptions PrescriptionRepository
	patients      PatientLookup
	notifier      Notifier
	now           func() time.Time
}

func NewService(prescriptions PrescriptionRepository, patients PatientLookup, notifier Notifier) *Service {
	return &Service{prescriptions: prescriptions, patients: patients, notifier: notifier, now: time.Now}
}

// CreatePrescription issues a pending prescription and tells the pharmacy.
func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) (*Prescription, error) {
	p.Status = StatusPending
	p.Medications = strings.TrimSpace(p.Medications)
	if errs := p.Validate(); errs.HasErrors() {
		return nil, errs
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, err
	}
	created, err := s.prescriptions.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	msg := "Hay una nueva receta pendiente de dispensar"
	if created.PatientName != "" {
		msg = fmt.Sprintf("Nueva receta pendiente para %s", created.PatientName)
	}
	s.notifier.NotifyPharmacists(ctx, "Nueva receta", msg, NewPrescriptionNotice{
		PrescriptionID: created.ID.String(),
		PatientID:      created.PatientID.String(),
		PatientName:    created.PatientName,
	})
	return created, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) SearchPrescriptions(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error) {
	filtered := make(map[string]string)
	errs := validation.Errors{}
	for _, k := range []string{"patient_id", "physician_id", "status"} {
		v := strings.TrimSpace(params[k])
		if v == "" {
			continue
		}
		if k == "status" {
			if !validStatuses[v] {
				errs.Add("status", "Estado de receta no válido")
				continue
			}
		} else if _, err := uuid.Parse(v); err != nil {
			errs.Add(k, "Identificador no válido")
			continue
		}
		filtered[k] = v
	}
	if errs.HasErrors() {
		return nil, 0, errs
	}
	return s.prescriptions.Search(ctx, filtered, limit, offset)
}

// Dispense records the hand-out and tells the prescribing physician.
// Pending and partially dispensed prescriptions can be dispensed.
func (s *Service) Dispense(ctx context.Context, id, pharmacist uuid.UUID, req DispenseRequest) (*Prescription, error) {
	if req.Status == "" {
		req.Status = StatusDispensed
	}
	if req.Status != StatusDispensed && req.Status != StatusPartial {
		errs := validation.Errors{}
		errs.Add("status", "El estado debe ser dispensed o partial")
		return nil, errs
	}

	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending && p.Status != StatusPartial {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, p.Status)
	}

	now := s.now().UTC()
	p.Status = req.Status
	p.DispensedBy = &pharmacist
	p.DispensedAt = &now
	if req.Notes != nil {
		p.Notes = req.Notes
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}

	s.notifier.PrescriptionReady(ctx, notification.PrescriptionDispensed{
		PrescriptionID: p.ID.String(),
		PatientID:      p.PatientID.String(),
		PatientName:    p.PatientName,
		PhysicianID:    p.PhysicianID.String(),
		Status:         p.Status,
	})
	return p, nil
}

// Cancel withdraws a prescription that has not been fully dispensed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusDispensed || p.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, p.Status)
	}
	p.Status = StatusCancelled
	if req.Notes != nil {
		p.Notes = req.Notes
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Document renders the prescription as a PDF.
func (s *Service) Document(ctx context.Context, id uuid.UUID) ([]byte, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.PatientInfo(ctx, p.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return RenderPDF(p, patient, s.now())
}
