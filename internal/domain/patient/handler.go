package patient

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/lookup"
	"github.com/practice/practice/internal/platform/resource"
	"github.com/practice/practice/pkg/pagination"
)

const Resource = "patients"

func Store(svc *Service) resource.Store {
	return resource.Adapt[Patient]("Patient", svc, func(p *Patient, id uuid.UUID) { p.ID = id })
}

type Handler struct {
	*resource.Handler
	svc *Service
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange), svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := []echo.MiddlewareFunc{auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor, auth.RoleAccountant)}
	write := []echo.MiddlewareFunc{auth.RequireRole(auth.FrontDesk...)}
	api.GET("/patients/search", h.SearchPatients, read...)
	h.Mount(api, read, write)
}

// SearchPatients matches q against names and phone numbers.
func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return resource.HTTPError(err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func Lookups() []lookup.List {
	return []lookup.List{{
		Name:      Resource,
		LabelKeys: []string{"firstName", "lastName"},
		Extra:     []string{"dateOfBirth", "phone"},
	}}
}
