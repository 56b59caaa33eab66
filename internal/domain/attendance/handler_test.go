package attendance

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/clinic/internal/platform/auth"
)

func asEmployee(req *http.Request, id uuid.UUID, role string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: id.String(), Role: role}))
}

func TestHandler_CheckInAndCurrent(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	employee := uuid.New()

	req := asEmployee(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), employee, auth.RoleNurse)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CheckIn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = asEmployee(httptest.NewRequest(http.MethodGet, "/", nil), employee, auth.RoleNurse)
	if err := h.Current(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"checked_in":true`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CheckOut_Conflict(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := asEmployee(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), uuid.New(), auth.RolePharmacist)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	var he *echo.HTTPError
	if err := h.CheckOut(e.NewContext(req, httptest.NewRecorder())); !errors.As(err, &he) || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_CheckIn_RequiresIdentity(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	var he *echo.HTTPError
	err := h.CheckIn(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder()))
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
