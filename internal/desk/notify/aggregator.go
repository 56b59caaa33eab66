package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinica/clinic/internal/desk/records"
	"github.com/clinica/clinic/internal/desk/session"
	"github.com/clinica/clinic/internal/domain/appointment"
	"github.com/clinica/clinic/internal/domain/medication"
	"github.com/clinica/clinic/internal/domain/prescription"
	"github.com/clinica/clinic/internal/platform/auth"
)

const (
	maxAppointmentEntries  = 3
	maxPrescriptionEntries = 2
	maxLowStockEntries     = 2
)

// Source is the slice of the records API the aggregator reads.
type Source interface {
	ListAppointments(ctx context.Context, f records.AppointmentFilter) (*records.Page[appointment.Appointment], error)
	ListPrescriptions(ctx context.Context, f records.PrescriptionFilter) (*records.Page[prescription.Prescription], error)
	ListMedications(ctx context.Context, f records.MedicationFilter) (*records.Page[medication.Medication], error)
}

// Result is one aggregation pass. Unread is the badge count: the sum of
// the category sizes, which can exceed the number of entries.
type Result struct {
	Unread  int
	Entries []Entry
	// Failed names the categories whose query failed.
	Failed []string
}

type category struct {
	name    string
	size    int
	entries []Entry
	err     error
}

type query func(ctx context.Context) category

// Aggregator builds the role's notification list from the records backend.
type Aggregator struct {
	src    Source
	logger zerolog.Logger
	now    func() time.Time
}

// NewAggregator reads from src.
func NewAggregator(src Source, logger zerolog.Logger) *Aggregator {
	return &Aggregator{src: src, logger: logger.With().Str("component", "aggregator").Logger(), now: time.Now}
}

// Collect runs the role's queries concurrently. A failed query is logged
// and skipped; the others still contribute.
func (a *Aggregator) Collect(ctx context.Context, sess *session.Session) Result {
	if sess == nil {
		return Result{}
	}
	queries := a.queriesFor(sess.Identity)
	results := make([]category, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = q(gctx)
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for _, c := range results {
		if c.err != nil {
			a.logger.Warn().Err(c.err).Str("category", c.name).Msg("notification query failed")
			res.Failed = append(res.Failed, c.name)
			continue
		}
		res.Unread += c.size
		res.Entries = append(res.Entries, c.entries...)
	}
	if len(res.Entries) == 0 {
		res.Entries = []Entry{allClear()}
	}
	return res
}

// Count is the badge number for sess.
func (a *Aggregator) Count(ctx context.Context, sess *session.Session) int {
	return a.Collect(ctx, sess).Unread
}

func (a *Aggregator) queriesFor(id session.Identity) []query {
	switch id.Role {
	case auth.RoleNurse:
		return []query{a.waitingPatients}
	case auth.RolePhysician:
		return []query{func(ctx context.Context) category { return a.readyPatients(ctx, id.ID) }}
	case auth.RolePharmacist:
		return []query{a.pendingPrescriptions, a.outOfStock, a.lowStock}
	default:
		return nil
	}
}

func (a *Aggregator) today() string {
	return a.now().Format("2006-01-02")
}

func (a *Aggregator) waitingPatients(ctx context.Context) category {
	c := category{name: "appointments"}
	page, err := a.src.ListAppointments(ctx, records.AppointmentFilter{
		Date:   a.today(),
		Status: appointment.StatusConfirmed,
		Limit:  maxAppointmentEntries,
	})
	if err != nil {
		c.err = err
		return c
	}
	c.size = page.Total
	if c.size == 0 {
		return c
	}
	c.entries = append(c.entries, Entry{
		ID:        "nurse-waiting",
		Category:  CategoryAlert,
		Title:     "Pacientes en espera",
		Message:   fmt.Sprintf("%s esperando registro de signos vitales", plural(c.size, "paciente", "pacientes")),
		TimeLabel: "Ahora",
	})
	now := a.now()
	for _, appt := range capped(page.Data, maxAppointmentEntries) {
		c.entries = append(c.entries, Entry{
			ID:        "appointment-" + appt.ID.String(),
			Category:  CategoryInfo,
			Title:     "Cita confirmada",
			Message:   fmt.Sprintf("%s - %s", orNA(appt.PatientName), appt.ScheduledAt.Local().Format("15:04")),
			TimeLabel: TimeLabel(now, appt.UpdatedAt),
			Ref:       &Ref{Type: "appointment", ID: appt.ID.String()},
		})
	}
	return c
}

func (a *Aggregator) readyPatients(ctx context.Context, physicianID string) category {
	c := category{name: "appointments"}
	page, err := a.src.ListAppointments(ctx, records.AppointmentFilter{
		Date:        a.today(),
		Status:      appointment.StatusInConsultation,
		PhysicianID: physicianID,
		Limit:       maxAppointmentEntries,
	})
	if err != nil {
		c.err = err
		return c
	}
	c.size = page.Total
	if c.size == 0 {
		return c
	}
	c.entries = append(c.entries, Entry{
		ID:        "physician-ready",
		Category:  CategoryAlert,
		Title:     "Pacientes listos para consulta",
		Message:   fmt.Sprintf("%s con signos vitales registrados", plural(c.size, "paciente", "pacientes")),
		TimeLabel: "Ahora",
	})
	now := a.now()
	for _, appt := range capped(page.Data, maxAppointmentEntries) {
		room := "Sin sala"
		if appt.Room != nil && *appt.Room != "" {
			room = *appt.Room
		}
		c.entries = append(c.entries, Entry{
			ID:        "ready-" + appt.ID.String(),
			Category:  CategoryInfo,
			Title:     "Paciente listo",
			Message:   fmt.Sprintf("%s - %s", orNA(appt.PatientName), room),
			TimeLabel: TimeLabel(now, appt.UpdatedAt),
			Ref:       &Ref{Type: "appointment", ID: appt.ID.String()},
		})
	}
	return c
}

func (a *Aggregator) pendingPrescriptions(ctx context.Context) category {
	c := category{name: "prescriptions"}
	page, err := a.src.ListPrescriptions(ctx, records.PrescriptionFilter{
		Status: prescription.StatusPending,
		Limit:  maxPrescriptionEntries,
	})
	if err != nil {
		c.err = err
		return c
	}
	c.size = page.Total
	if c.size == 0 {
		return c
	}
	word := "receta pendiente"
	if c.size != 1 {
		word = "recetas pendientes"
	}
	c.entries = append(c.entries, Entry{
		ID:        "pharmacy-pending",
		Category:  CategoryAlert,
		Title:     "Recetas pendientes",
		Message:   fmt.Sprintf("%d %s de despacho", c.size, word),
		TimeLabel: "Ahora",
	})
	now := a.now()
	for _, p := range capped(page.Data, maxPrescriptionEntries) {
		c.entries = append(c.entries, Entry{
			ID:        "prescription-" + p.ID.String(),
			Category:  CategoryInfo,
			Title:     "Receta #" + strings.ToUpper(p.ID.String()[:8]),
			Message:   fmt.Sprintf("Paciente: %s - Dr. %s", orNA(p.PatientName), orNA(p.PhysicianName)),
			TimeLabel: TimeLabel(now, p.IssuedAt),
			Ref:       &Ref{Type: "prescription", ID: p.ID.String()},
		})
	}
	return c
}

func (a *Aggregator) outOfStock(ctx context.Context) category {
	c := category{name: "out_of_stock"}
	none := 0
	page, err := a.src.ListMedications(ctx, records.MedicationFilter{MaxStock: &none, Limit: 1})
	if err != nil {
		c.err = err
		return c
	}
	c.size = page.Total
	if c.size == 0 {
		return c
	}
	c.entries = append(c.entries, Entry{
		ID:        "stock-out",
		Category:  CategoryAlert,
		Title:     "Stock agotado",
		Message:   fmt.Sprintf("%s sin stock", plural(c.size, "medicamento", "medicamentos")),
		TimeLabel: "Ahora",
	})
	return c
}

// lowStock lists running-out medications as already-read warnings; they
// do not count towards the badge.
func (a *Aggregator) lowStock(ctx context.Context) category {
	c := category{name: "low_stock"}
	lo, hi := 1, medication.LowStockThreshold-1
	page, err := a.src.ListMedications(ctx, records.MedicationFilter{MinStock: &lo, MaxStock: &hi, Limit: maxLowStockEntries})
	if err != nil {
		c.err = err
		return c
	}
	now := a.now()
	for _, m := range capped(page.Data, maxLowStockEntries) {
		name := m.Name
		if m.Content != nil && *m.Content != "" {
			name += " " + *m.Content
		}
		c.entries = append(c.entries, Entry{
			ID:        "low-stock-" + m.ID.String(),
			Category:  CategoryWarning,
			Title:     "Stock bajo",
			Message:   fmt.Sprintf("%s - %d unidades", name, m.Stock),
			TimeLabel: TimeLabel(now, m.UpdatedAt),
			Read:      true,
			Ref:       &Ref{Type: "medication", ID: m.ID.String()},
		})
	}
	return c
}

func capped[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
