package channel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinica/clinic/internal/desk/alert"
)

// Kind is the closed set of push message kinds the desk reacts to.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindConnectionEstablished
	KindPatientCalled
	KindAppointmentUpdated
	KindPrescriptionReady
	KindGenericNotice
)

// wireKinds maps the "type" member to a Kind. The Spanish names are what
// older servers send.
var wireKinds = map[string]Kind{
	"connection_established": KindConnectionEstablished,
	"patient_called":         KindPatientCalled,
	"llamada_paciente":       KindPatientCalled,
	"appointment_updated":    KindAppointmentUpdated,
	"cita_actualizada":       KindAppointmentUpdated,
	"prescription_ready":     KindPrescriptionReady,
	"receta_lista":           KindPrescriptionReady,
	"physician_notice":       KindGenericNotice,
	"notificacion_medico":    KindGenericNotice,
	"pharmacy_notice":        KindGenericNotice,
	"notificacion_farmacia":  KindGenericNotice,
}

// ParseKind maps a wire type, current or legacy, to its Kind.
func ParseKind(wire string) Kind {
	if k, ok := wireKinds[wire]; ok {
		return k
	}
	return KindUnrecognized
}

func (k Kind) String() string {
	switch k {
	case KindConnectionEstablished:
		return "connection-established"
	case KindPatientCalled:
		return "patient-called"
	case KindAppointmentUpdated:
		return "appointment-updated"
	case KindPrescriptionReady:
		return "prescription-ready"
	case KindGenericNotice:
		return "generic-notice"
	default:
		return "unrecognized"
	}
}

// Message is one push received on the channel.
type Message struct {
	Kind       Kind
	Type       string
	Title      string
	Body       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

type wireMessage struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode parses a raw frame. Any JSON object decodes; an unknown or missing
// type yields KindUnrecognized.
func Decode(raw []byte, at time.Time) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}, fmt.Errorf("decoding channel message: %w", err)
	}
	return Message{
		Kind:       ParseKind(w.Type),
		Type:       w.Type,
		Title:      w.Title,
		Body:       w.Message,
		Payload:    w.Data,
		ReceivedAt: at,
	}, nil
}

// AlertFor returns the alert raised for m, or false for kinds that are
// only logged.
func AlertFor(m Message) (alert.Alert, bool) {
	switch m.Kind {
	case KindConnectionEstablished:
		return alert.Alert{Style: alert.StyleInfo, Title: m.Title, Body: m.Body, Duration: alert.DefaultDuration}, true
	case KindPatientCalled:
		return alert.Alert{Style: alert.StyleHighlight, Title: m.Title, Body: m.Body, Duration: 10 * time.Second, Sound: true}, true
	case KindAppointmentUpdated:
		return alert.Alert{Style: alert.StyleInfo, Title: m.Title, Body: m.Body, Duration: 5 * time.Second}, true
	case KindPrescriptionReady:
		return alert.Alert{Style: alert.StyleSuccess, Title: m.Title, Body: m.Body, Duration: 7 * time.Second}, true
	case KindGenericNotice:
		return alert.Alert{Style: alert.StyleNeutral, Title: m.Title, Body: m.Body, Duration: 5 * time.Second}, true
	case KindUnrecognized:
		return alert.Alert{}, false
	}
	return alert.Alert{}, false
}
