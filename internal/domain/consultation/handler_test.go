package consultation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/clinic/internal/platform/validation"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	return NewHandler(f.svc), f, echo.New()
}

func TestHandler_CreateConsultation(t *testing.T) {
	h, f, e := newTestHandler()
	apptID, _, _ := f.appointment("Juan Pérez")

	body := `{"appointment_id":"` + apptID.String() + `","vitals":{"blood_pressure":"120/80","heart_rate":72,` +
		`"respiratory_rate":16,"temperature":36.5,"oxygen_saturation":98,"weight":70,"height":1.75}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateConsultation(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"bmi":22.86`) {
		t.Errorf("expected BMI in body, got %s", rec.Body.String())
	}
}

func TestHandler_CreateConsultation_InvalidVitals(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","vitals":{"blood_pressure":"alta"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	var verrs validation.Errors
	if err := h.CreateConsultation(e.NewContext(req, httptest.NewRecorder())); !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if verrs["blood_pressure"][0] != "Formato de presión arterial inválido (ej: 120/80)" {
		t.Errorf("unexpected message %v", verrs["blood_pressure"])
	}
}

func TestHandler_GetConsultation_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	var he *echo.HTTPError
	if err := h.GetConsultation(c); !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListConsultations(t *testing.T) {
	h, f, e := newTestHandler()
	patientID := uuid.New()
	if _, err := f.svc.CreateConsultation(nil, &Consultation{PatientID: patientID}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?patient_id="+patientID.String(), nil), rec)
	if err := h.ListConsultations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
