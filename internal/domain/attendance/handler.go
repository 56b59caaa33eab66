package attendance

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/attendance/check-in", h.CheckIn)
	api.POST("/attendance/check-out", h.CheckOut)
	api.GET("/attendance/me", h.Current)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/attendance", h.ListRecords)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return id, nil
}

func (h *Handler) CheckIn(c echo.Context) error {
	employee, err := callerID(c)
	if err != nil {
		return err
	}
	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.CheckIn(c.Request().Context(), employee, req)
	if errors.Is(err, ErrAlreadyCheckedIn) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) CheckOut(c echo.Context) error {
	employee, err := callerID(c)
	if err != nil {
		return err
	}
	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.CheckOut(c.Request().Context(), employee, req)
	if errors.Is(err, ErrNotCheckedIn) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Current(c echo.Context) error {
	employee, err := callerID(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.Current(c.Request().Context(), employee)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"checked_in": rec != nil, "record": rec})
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{
		"employee_id": c.QueryParam("employee_id"),
		"date":        c.QueryParam("date"),
	}
	items, total, err := h.svc.SearchRecords(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
