package staff

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/validation"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func withEmployee(req *http.Request, emp *Employee) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), emp.Identity()))
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler()
	registerNurse(t, h.svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"laura@clinica.test","password":"secreta1"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["token_type"] != "bearer" || body["access_token"] == "" {
		t.Errorf("unexpected body %v", body)
	}
	user, _ := body["user"].(map[string]interface{})
	if user["role"] != auth.RoleNurse {
		t.Errorf("expected user role nurse, got %v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash must never be serialized")
	}
}

func TestHandler_Login_InvalidCredentials(t *testing.T) {
	h, e := newTestHandler()
	registerNurse(t, h.svc)

	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"laura@clinica.test","password":"mala"}`), httptest.NewRecorder())
	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if he.Message != "Credenciales no válidas" {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler()
	body := `{"first_name":"Pedro","last_name":"Ruiz","national_id":"77","role":"pharmacist","email":"pedro@clinica.test","password":"farmacia"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_Register_Invalid(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"role":"pharmacist","password":"1"}`), httptest.NewRecorder())

	var verrs validation.Errors
	if err := h.Register(c); !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestHandler_ChangePassword(t *testing.T) {
	h, e := newTestHandler()
	emp := registerNurse(t, h.svc)

	body := `{"current_password":"secreta1","new_password":"otra-clave","confirm_password":"otra-clave"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(withEmployee(jsonRequest(http.MethodPut, body), emp), rec)
	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_ChangePassword_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPut, `{}`), httptest.NewRecorder())

	var he *echo.HTTPError
	if err := h.ChangePassword(c); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_Me(t *testing.T) {
	h, e := newTestHandler()
	emp := registerNurse(t, h.svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(withEmployee(httptest.NewRequest(http.MethodGet, "/", nil), emp), rec)
	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), emp.ID.String()) {
		t.Errorf("expected own record, got %s", rec.Body.String())
	}
}

func TestHandler_GetEmployee_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	var he *echo.HTTPError
	if err := h.GetEmployee(c); !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_GetEmployee_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.GetEmployee(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_ListAndDeleteEmployees(t *testing.T) {
	h, e := newTestHandler()
	emp := registerNurse(t, h.svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?role=nurse", nil), rec)
	if err := h.ListEmployees(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Errorf("expected 1 nurse, got %d", page.Total)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(emp.ID.String())
	if err := h.DeleteEmployee(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler()
	h.RegisterRoutes(e.Group(""), e.Group("/api"))

	want := map[string]bool{
		"POST /auth/login":          false,
		"POST /api/auth/register":   false,
		"PUT /api/auth/password":    false,
		"GET /api/auth/me":          false,
		"GET /api/employees":        false,
		"DELETE /api/employees/:id": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("expected route %s", route)
		}
	}
}
