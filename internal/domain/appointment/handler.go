package appointment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.MedicalStaff...))
	staff.GET("/appointments", h.ListAppointments)
	staff.GET("/appointments/:id", h.GetAppointment)
	staff.POST("/appointments", h.CreateAppointment)
	staff.PUT("/appointments/:id", h.UpdateAppointment)
	staff.POST("/appointments/:id/call", h.CallPatient)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/appointments/:id", h.DeleteAppointment)
}

// ownScope returns the caller's id when they are a physician, so every
// lookup is limited to their own appointments.
func ownScope(c echo.Context) (*uuid.UUID, error) {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) != auth.RolePhysician {
		return nil, nil
	}
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return &id, nil
}

func lookupError(err error) error {
	if errors.Is(err, ErrNotAssigned) {
		return echo.NewHTTPError(http.StatusForbidden, "No tiene permiso para acceder a esta cita")
	}
	return db.HTTPError(err, "Cita no encontrada")
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	created, err := h.svc.CreateAppointment(c.Request().Context(), &a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scope, err := ownScope(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id, scope)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{
		"date":         c.QueryParam("date"),
		"status":       c.QueryParam("status"),
		"patient_id":   c.QueryParam("patient_id"),
		"physician_id": c.QueryParam("physician_id"),
	}
	scope, err := ownScope(c)
	if err != nil {
		return err
	}
	if scope != nil {
		params["physician_id"] = scope.String()
	}
	items, total, err := h.svc.SearchAppointments(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	scope, err := ownScope(c)
	if err != nil {
		return err
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), id, req, scope)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CallPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req CallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	scope, err := ownScope(c)
	if err != nil {
		return err
	}
	a, err := h.svc.CallPatient(c.Request().Context(), id, req.Room, scope)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return db.HTTPError(err, "Cita no encontrada")
	}
	return c.JSON(http.StatusOK, map[string]string{"detail": "Cita eliminada exitosamente"})
}
