package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRole(role string) context.Context {
	return WithIdentity(context.Background(), Identity{ID: "u-1", Role: role})
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		required []string
		allowed  bool
	}{
		{"physician allowed", RolePhysician, []string{RolePhysician}, true},
		{"nurse on medical staff", RoleNurse, MedicalStaff, true},
		{"pharmacist denied", RolePharmacist, []string{RolePhysician}, false},
		{"admin passes every check", RoleAdmin, []string{RolePharmacist}, true},
		{"no role", "", []string{RoleNurse}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(contextWithRole(tt.role))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			h := RequireRole(tt.required...)(func(c echo.Context) error {
				called = true
				return nil
			})
			err := h(c)

			if tt.allowed {
				if err != nil || !called {
					t.Fatalf("expected access, got err=%v called=%v", err, called)
				}
				return
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected echo.HTTPError, got %T", err)
			}
			if httpErr.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", httpErr.Code)
			}
			if called {
				t.Error("handler must not run when forbidden")
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range Roles {
		if !ValidRole(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if ValidRole("receptionist") {
		t.Error("expected receptionist to be invalid")
	}
}
