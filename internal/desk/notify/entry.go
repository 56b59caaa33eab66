// Package notify builds the desk's notification panel: role-based
// summaries fetched from the records API, live pushes from the channel,
// and the read state the person at the desk keeps on them.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/desk/channel"
)

// Category drives how an entry is drawn.
type Category string

const (
	CategoryAlert   Category = "alert"
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
	CategorySuccess Category = "success"
)

// Ref points at the record an entry is about.
type Ref struct {
	Type string
	ID   string
}

// Entry is one row of the notification panel.
type Entry struct {
	ID        string
	Category  Category
	Title     string
	Message   string
	TimeLabel string
	Read      bool
	Ref       *Ref
	// Kind is set on entries that came from the live channel.
	Kind *channel.Kind
}

// AllClearID is the entry shown when there is nothing to report.
const AllClearID = "no-notifications"

func allClear() Entry {
	return Entry{
		ID:        AllClearID,
		Category:  CategoryInfo,
		Title:     "Todo al día",
		Message:   "No hay notificaciones pendientes en este momento",
		TimeLabel: "Ahora",
		Read:      true,
	}
}

// TimeLabel renders how long ago t was, relative to now.
func TimeLabel(now, t time.Time) string {
	if t.IsZero() {
		return "Ahora"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Ahora"
	case d < time.Hour:
		return "Hace " + plural(int(d/time.Minute), "minuto", "minutos")
	case d < 24*time.Hour:
		return "Hace " + plural(int(d/time.Hour), "hora", "horas")
	default:
		return t.Local().Format("02/01/2006")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

var liveCategories = map[channel.Kind]Category{
	channel.KindPatientCalled:      CategoryAlert,
	channel.KindAppointmentUpdated: CategoryInfo,
	channel.KindPrescriptionReady:  CategorySuccess,
	channel.KindGenericNotice:      CategoryInfo,
}

// EntryFromMessage turns a live push into an unread panel entry. Connection
// notices and unrecognized kinds have no entry.
func EntryFromMessage(m channel.Message) (Entry, bool) {
	cat, ok := liveCategories[m.Kind]
	if !ok {
		return Entry{}, false
	}
	kind := m.Kind
	e := Entry{
		ID:        "live-" + uuid.NewString(),
		Category:  cat,
		Title:     m.Title,
		Message:   m.Body,
		TimeLabel: m.ReceivedAt.Local().Format("15:04"),
		Kind:      &kind,
	}
	var payload struct {
		AppointmentID  string `json:"appointment_id"`
		PrescriptionID string `json:"prescription_id"`
		ConsultationID string `json:"consultation_id"`
	}
	if len(m.Payload) > 0 && json.Unmarshal(m.Payload, &payload) == nil {
		switch {
		case payload.PrescriptionID != "":
			e.Ref = &Ref{Type: "prescription", ID: payload.PrescriptionID}
		case payload.ConsultationID != "":
			e.Ref = &Ref{Type: "consultation", ID: payload.ConsultationID}
		case payload.AppointmentID != "":
			e.Ref = &Ref{Type: "appointment", ID: payload.AppointmentID}
		}
	}
	return e, true
}
