package staff

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

// RegisterRoutes mounts login on the public group and everything else on
// the authenticated api group.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	public.POST("/auth/login", h.Login)

	api.GET("/auth/me", h.Me)
	api.PUT("/auth/password", h.ChangePassword)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/auth/register", h.Register)
	admin.GET("/employees", h.ListEmployees)
	admin.GET("/employees/:id", h.GetEmployee)
	admin.PUT("/employees/:id", h.UpdateEmployee)
	admin.DELETE("/employees/:id", h.DeleteEmployee)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	resp, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	emp, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, emp)
}

func (h *Handler) Me(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	emp, err := h.svc.GetEmployee(c.Request().Context(), id)
	if err != nil {
		return db.HTTPError(err, "Empleado no encontrado")
	}
	return c.JSON(http.StatusOK, emp)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	var form auth.PasswordChange
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), id, form); err != nil {
		return db.HTTPError(err, "Empleado no encontrado")
	}
	return c.JSON(http.StatusOK, map[string]string{"detail": "Contraseña actualizada exitosamente"})
}

func (h *Handler) ListEmployees(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{
		"role": c.QueryParam("role"),
		"q":    c.QueryParam("q"),
	}
	items, total, err := h.svc.ListEmployees(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetEmployee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	emp, err := h.svc.GetEmployee(c.Request().Context(), id)
	if err != nil {
		return db.HTTPError(err, "Empleado no encontrado")
	}
	return c.JSON(http.StatusOK, emp)
}

func (h *Handler) UpdateEmployee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	emp, err := h.svc.UpdateEmployee(c.Request().Context(), id, req)
	if err != nil {
		return db.HTTPError(err, "Empleado no encontrado")
	}
	return c.JSON(http.StatusOK, emp)
}

func (h *Handler) DeleteEmployee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteEmployee(c.Request().Context(), id); err != nil {
		return db.HTTPError(err, "Empleado no encontrado")
	}
	return c.NoContent(http.StatusNoContent)
}
