package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testJWT = JWTConfig{
	Issuer:     "clinic-test",
	SigningKey: []byte("test-secret-key-for-unit-tests-only"),
	TTL:        time.Hour,
}

func createTestToken(t *testing.T, id Identity) string {
	t.Helper()
	tokenStr, err := testJWT.Issue(id, time.Now())
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	err := JWTMiddleware(testJWT)(handler)(c)
	if err == nil {
		t.Fatal("expected error for missing header")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			}

			err := JWTMiddleware(testJWT)(handler)(c)
			if err == nil {
				t.Fatal("expected error for invalid format")
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected echo.HTTPError, got %T", err)
			}
			if httpErr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", httpErr.Code)
			}
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, Identity{ID: "user-123", Role: RolePhysician, Name: "Ana Ruiz"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var handlerCalled bool
	handler := func(c echo.Context) error {
		handlerCalled = true
		ctx := c.Request().Context()
		if got := UserIDFromContext(ctx); got != "user-123" {
			t.Errorf("expected user-123, got %q", got)
		}
		if got := RoleFromContext(ctx); got != RolePhysician {
			t.Errorf("expected physician, got %q", got)
		}
		if got := NameFromContext(ctx); got != "Ana Ruiz" {
			t.Errorf("expected name Ana Ruiz, got %q", got)
		}
		if c.Get("user_id") != "user-123" || c.Get("role") != RolePhysician {
			t.Errorf("expected identity on the echo context, got %v %v", c.Get("user_id"), c.Get("role"))
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := JWTMiddleware(testJWT)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("expected handler to be called")
	}
}

func TestJWTMiddleware_WrongSigningKey(t *testing.T) {
	other := JWTConfig{Issuer: testJWT.Issuer, SigningKey: []byte("another-key"), TTL: time.Hour}
	tokenStr, err := other.Issue(Identity{ID: "u", Role: RoleNurse}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	c := e.NewContext(req, httptest.NewRecorder())

	err = JWTMiddleware(testJWT)(func(c echo.Context) error { return nil })(c)
	if err == nil {
		t.Fatal("expected error for token signed with another key")
	}
}

func TestJWTConfig_ParseExpired(t *testing.T) {
	tokenStr, err := testJWT.Issue(Identity{ID: "u", Role: RoleNurse}, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := testJWT.Parse(tokenStr); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestJWTConfig_ParseUnknownRole(t *testing.T) {
	tokenStr, err := testJWT.Issue(Identity{ID: "u", Role: "janitor"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := testJWT.Parse(tokenStr); err == nil {
		t.Fatal("expected token with unknown role to be rejected")
	}
}

func TestJWTConfig_ParseEmpty(t *testing.T) {
	if _, err := testJWT.Parse(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}
