package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin      = "admin"
	RolePhysician  = "physician"
	RoleNurse      = "nurse"
	RolePharmacist = "pharmacist"
)

// Roles lists every staff role in display order.
var Roles = []string{RoleAdmin, RolePhysician, RoleNurse, RolePharmacist}

// MedicalStaff are the roles that work with patient records.
var MedicalStaff = []string{RolePhysician, RoleNurse}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether the caller holds one of roles. Admin holds all of them.
func HasRole(ctx context.Context, roles ...string) bool {
	has := RoleFromContext(ctx)
	if has == "" {
		return false
	}
	if has == RoleAdmin {
		return true
	}
	for _, required := range roles {
		if has == required {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(c.Request().Context(), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
