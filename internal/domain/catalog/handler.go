package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/lookup"
	"github.com/practice/practice/internal/platform/resource"
)

const Resource = "services"

func Store(svc *Service) resource.Store {
	return resource.Adapt[Item]("Service", svc, func(it *Item, id uuid.UUID) { it.ID = id })
}

type Handler struct {
	*resource.Handler
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange)}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	h.Mount(api, nil, []echo.MiddlewareFunc{auth.RequireRole(auth.RoleAdmin)})
}

// Lookups lists services by code, carrying price and duration.
func Lookups() []lookup.List {
	return []lookup.List{{
		Name:      Resource,
		ValueKey:  "code",
		LabelKeys: []string{"name"},
		Extra:     []string{"price", "durationMinutes"},
	}}
}
