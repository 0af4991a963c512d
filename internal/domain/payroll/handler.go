package payroll

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/resource"
)

const Resource = "payroll"

func Store(svc *Service) resource.Store {
	return resource.Adapt[Entry]("Payroll entry", svc, func(e *Entry, id uuid.UUID) { e.ID = id })
}

type Handler struct {
	*resource.Handler
}

func NewHandler(svc *Service, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{Handler: resource.NewHandler(Resource, Store(svc), onChange)}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	mw := []echo.MiddlewareFunc{auth.RequireRole(auth.Payroll...)}
	h.Mount(api, mw, mw)
}
