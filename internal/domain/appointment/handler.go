package appointment

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/resource"
	"github.com/practice/practice/pkg/pagination"
)

const Resource = "appointments"

func Store(svc *Service) resource.Store {
	return resource.Adapt[Appointment]("Appointment", svc, func(a *Appointment, id uuid.UUID) { a.ID = id })
}

type Handler struct {
	*resource.Handler
	svc *Service
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange), svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	frontDesk := []echo.MiddlewareFunc{auth.RequireRole(auth.FrontDesk...)}
	api.GET("/patients/:id/appointments", h.ListForPatient, frontDesk...)
	api.GET("/appointments/availability", h.Availability, frontDesk...)
	h.Mount(api, frontDesk, frontDesk)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return resource.HTTPError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Availability handles GET /appointments/availability?doctorId=&date=&duration=.
func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	duration := 0
	if raw := c.QueryParam("duration"); raw != "" {
		if duration, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "duration must be a number of minutes")
		}
	}
	slots, err := h.svc.Availability(c.Request().Context(), doctorID, c.QueryParam("date"), duration)
	if err != nil {
		return resource.HTTPError(err)
	}
	return c.JSON(http.StatusOK, slots)
}
