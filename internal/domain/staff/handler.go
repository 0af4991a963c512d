package staff

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/lookup"
	"github.com/practice/practice/internal/platform/resource"
)

// Resource is the REST and persistence name of staff records.
const Resource = "staff"

// Store exposes the service as a record store.
func Store(svc *Service) resource.Store {
	return resource.Adapt[Staff]("Staff member", svc, func(s *Staff, id uuid.UUID) { s.ID = id })
}

type Handler struct {
	*resource.Handler
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange)}
}

// RegisterRoutes lets every signed-in user read staff; only admins write.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	h.Mount(api, nil, []echo.MiddlewareFunc{auth.RequireRole(auth.RoleAdmin)})
}

// Lookups are the dropdown lists backed by staff records.
func Lookups() []lookup.List {
	return []lookup.List{
		{
			Name:      "doctors",
			Resource:  Resource,
			LabelKeys: []string{"firstName", "lastName"},
			Extra:     []string{"specialty"},
			Where:     map[string]string{"role": RoleDoctor},
		},
		{
			Name:      "staff",
			Resource:  Resource,
			LabelKeys: []string{"firstName", "lastName"},
			Extra:     []string{"role", "baseSalary"},
		},
	}
}
