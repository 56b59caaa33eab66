package consultation

import (
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
	staff.GET("/consultations", h.ListConsultations)
	staff.GET("/consultations/:id", h.GetConsultation)
	staff.POST("/consultations", h.CreateConsultation)

	physicians := api.Group("", auth.RequireRole(auth.RolePhysician))
	physicians.PUT("/consultations/:id", h.UpdateConsultation)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	var cons Consultation
	if err := c.Bind(&cons); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	created, err := h.svc.CreateConsultation(c.Request().Context(), &cons)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cons, err := h.svc.GetConsultation(c.Request().Context(), id)
	if err != nil {
		return db.HTTPError(err, "Consulta no encontrada")
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{
		"patient_id":   c.QueryParam("patient_id"),
		"physician_id": c.QueryParam("physician_id"),
		"from":         c.QueryParam("from"),
		"to":           c.QueryParam("to"),
	}
	items, total, err := h.svc.SearchConsultations(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cons, err := h.svc.UpdateConsultation(c.Request().Context(), id, req)
	if err != nil {
		return db.HTTPError(err, "Consulta no encontrada")
	}
	return c.JSON(http.StatusOK, cons)
}
