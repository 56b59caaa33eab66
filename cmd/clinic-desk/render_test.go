package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/clinica/clinic/internal/desk/notify"
	"github.com/clinica/clinic/internal/platform/validation"
)

func TestBadgeLine(t *testing.T) {
	if got := badgeLine(0); !strings.Contains(got, "Sin notificaciones pendientes") {
		t.Errorf("unexpected empty badge %q", got)
	}
	if got := badgeLine(4); !strings.Contains(got, "4") || !strings.Contains(got, "notificaciones pendientes") {
		t.Errorf("unexpected badge %q", got)
	}
}

func TestEntryLine_MarksUnread(t *testing.T) {
	unread := entryLine(notify.Entry{Category: notify.CategoryAlert, Title: "Pacientes en espera", Message: "2 pacientes", TimeLabel: "Ahora"})
	if !strings.Contains(unread, "•") || !strings.Contains(unread, "Pacientes en espera") {
		t.Errorf("unexpected unread line %q", unread)
	}
	read := entryLine(notify.Entry{Category: notify.CategoryInfo, Title: "Todo al día", Read: true})
	if strings.Contains(read, "•") {
		t.Errorf("read entry must not carry the bullet: %q", read)
	}
}

func TestPrintPanel_ReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	printPanel(&buf, notify.Result{
		Unread:  1,
		Entries: []notify.Entry{{ID: "stock-out", Title: "Stock agotado", Message: "1 medicamento sin stock"}},
		Failed:  []string{"prescriptions"},
	})
	out := buf.String()
	if !strings.Contains(out, "Stock agotado") || !strings.Contains(out, "No se pudo consultar: prescriptions") {
		t.Errorf("unexpected panel output:\n%s", out)
	}
}

func TestPrintFieldErrors(t *testing.T) {
	errs := validation.Errors{}
	errs.Add("temperature", "La temperatura es obligatoria")
	errs.Add("blood_pressure", "Formato de presión arterial inválido (ej: 120/80)")

	var buf bytes.Buffer
	printFieldErrors(&buf, errs)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "blood_pressure: ") || !strings.HasPrefix(lines[1], "temperature: ") {
		t.Errorf("unexpected output %q", lines)
	}
}
