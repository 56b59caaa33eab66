// Package notification turns record changes into typed live-channel
// messages and routes them to the staff who need to act on them.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/websocket"
)

// ---------------------------------------------------------------------------
// Message types
// ---------------------------------------------------------------------------

const (
	TypePatientCalled      = "patient_called"
	TypeAppointmentUpdated = "appointment_updated"
	TypePrescriptionReady  = "prescription_ready"
	TypePhysicianNotice    = "physician_notice"
	TypePharmacyNotice     = "pharmacy_notice"
)

// statusMessages is the text sent when an appointment reaches a status.
var statusMessages = map[string]string{
	"confirmed":       "La cita ha sido confirmada",
	"cancelled":       "La cita ha sido cancelada",
	"completed":       "La cita ha sido completada",
	"in_consultation": "La cita está en curso",
	"no_show":         "El paciente no asistió a la cita",
}

// StatusMessage returns the notice text for an appointment status.
func StatusMessage(status string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Estado actualizado a: %s", status)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

type PatientCall struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	PhysicianID   string `json:"physician_id,omitempty"`
	Room          string `json:"room"`
}

type AppointmentChange struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name,omitempty"`
	PhysicianID   string `json:"physician_id,omitempty"`
	Status        string `json:"status"`
}

type PrescriptionDispensed struct {
	PrescriptionID string `json:"prescription_id"`
	PatientID      string `json:"patient_id"`
	PatientName    string `json:"patient_name,omitempty"`
	PhysicianID    string `json:"physician_id"`
	Status         string `json:"status"`
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

// Notifier is best-effort: publish failures are logged and never fail the
// request that triggered them.
type Notifier struct {
	pub    websocket.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewNotifier(pub websocket.Publisher, logger zerolog.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger, now: time.Now}
}

func (n *Notifier) send(ctx context.Context, msg websocket.Message, data interface{}, topics ...string) {
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			n.logger.Error().Err(err).Str("type", msg.Type).Msg("marshal notification data")
			return
		}
		msg.Data = raw
	}
	msg.Timestamp = n.now().UTC()

	for _, topic := range topics {
		if err := n.pub.Publish(ctx, topic, msg); err != nil {
			n.logger.Warn().Err(err).Str("type", msg.Type).Str("topic", topic).Msg("live notification not delivered")
		}
	}
}

// PatientCalled tells the nursing desk and the administrators that a
// patient is being called into a room.
func (n *Notifier) PatientCalled(ctx context.Context, call PatientCall) {
	n.send(ctx, websocket.Message{
		Type:    TypePatientCalled,
		Title:   "Llamado a consulta",
		Message: fmt.Sprintf("%s, pase a %s", call.PatientName, call.Room),
	}, call, websocket.RoleTopic(auth.RoleNurse), websocket.RoleTopic(auth.RoleAdmin))
}

// AppointmentUpdated reaches the assigned physician and the nurses.
func (n *Notifier) AppointmentUpdated(ctx context.Context, change AppointmentChange) {
	topics := []string{websocket.RoleTopic(auth.RoleNurse)}
	if change.PhysicianID != "" {
		topics = append(topics, websocket.UserTopic(change.PhysicianID))
	}
	body := StatusMessage(change.Status)
	if change.PatientName != "" {
		body = fmt.Sprintf("%s: %s", change.PatientName, body)
	}
	n.send(ctx, websocket.Message{
		Type:    TypeAppointmentUpdated,
		Title:   "Actualización de cita",
		Message: body,
	}, change, topics...)
}

// PrescriptionReady tells the prescribing physician the pharmacy has
// dispensed the prescription.
func (n *Notifier) PrescriptionReady(ctx context.Context, p PrescriptionDispensed) {
	body := "La receta está lista en farmacia"
	if p.PatientName != "" {
		body = fmt.Sprintf("La receta de %s está lista en farmacia", p.PatientName)
	}
	n.send(ctx, websocket.Message{
		Type:    TypePrescriptionReady,
		Title:   "Receta lista",
		Message: body,
	}, p, websocket.UserTopic(p.PhysicianID))
}

func (n *Notifier) NotifyPhysicians(ctx context.Context, title, message string, data interface{}) {
	n.send(ctx, websocket.Message{Type: TypePhysicianNotice, Title: title, Message: message}, data,
		websocket.RoleTopic(auth.RolePhysician))
}

func (n *Notifier) NotifyPharmacists(ctx context.Context, title, message string, data interface{}) {
	n.send(ctx, websocket.Message{Type: TypePharmacyNotice, Title: title, Message: message}, data,
		websocket.RoleTopic(auth.RolePharmacist))
}

// ---------------------------------------------------------------------------
// Recording publisher
// ---------------------------------------------------------------------------

// Published is one message captured by a RecordingPublisher.
type Published struct {
	Topic   string
	Message websocket.Message
}

// RecordingPublisher keeps every published message in memory.
type RecordingPublisher struct {
	mu   sync.Mutex
	sent []Published
	Err  error
}

func (r *RecordingPublisher) Publish(_ context.Context, topic string, msg websocket.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Published{Topic: topic, Message: msg})
	return nil
}

func (r *RecordingPublisher) Sent() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.sent))
	copy(out, r.sent)
	return out
}
