package prescription

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/resource"
)

const Resource = "prescriptions"

func Store(svc *Service) resource.Store {
	return resource.Adapt[Prescription]("Prescription", svc, func(p *Prescription, id uuid.UUID) { p.ID = id })
}

type Handler struct {
	*resource.Handler
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange)}
}

// RegisterRoutes lets the front desk read prescriptions; only doctors write them.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	h.Mount(api,
		[]echo.MiddlewareFunc{auth.RequireRole(auth.FrontDesk...)},
		[]echo.MiddlewareFunc{auth.RequireRole(auth.Clinical...)},
	)
}
