package invoice

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/resource"
)

const Resource = "invoices"

func Store(svc *Service) resource.Store {
	return resource.Adapt[Invoice]("Invoice", svc, func(inv *Invoice, id uuid.UUID) { inv.ID = id })
}

type Handler struct {
	*resource.Handler
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange)}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	billing := []echo.MiddlewareFunc{auth.RequireRole(auth.Billing...)}
	h.Mount(api, billing, billing)
}
