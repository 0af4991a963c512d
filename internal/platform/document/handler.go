package document

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/resource"
)

// Records reads stored records for the print routes.
type Records interface {
	Get(ctx context.Context, resource, id string) (map[string]any, error)
}

// Printable binds a resource to the document kind that prints it.
type Printable struct {
	Resource string
	Kind     string
}

// Handler serves rendered documents.
type Handler struct {
	renderer  *Renderer
	records   Records
	printable []Printable
}

// NewHandler creates a new Handler.
func NewHandler(r *Renderer, records Records, printable ...Printable) *Handler {
	return &Handler{renderer: r, records: records, printable: printable}
}

// RegisterRoutes registers POST /documents/:kind and
// GET /{resource}/:id/print for every printable resource.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/documents/:kind", h.RenderDocument)
	for _, p := range h.printable {
		p := p
		g.GET("/"+p.Resource+"/:id/print", func(c echo.Context) error {
			return h.PrintRecord(c, p)
		})
	}
}

// RenderDocument renders the posted snapshot.
func (h *Handler) RenderDocument(c echo.Context) error {
	var data map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&data); err != nil || data == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := h.renderer.Render(c.Param("kind"), data)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, out)
}

// PrintRecord renders a stored record, resolving patient and doctor names.
func (h *Handler) PrintRecord(c echo.Context, p Printable) error {
	ctx := c.Request().Context()
	rec, err := h.records.Get(ctx, p.Resource, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(resource.StatusOf(err), fmt.Sprintf("%s not found", strings.TrimSuffix(p.Resource, "s")))
	}
	h.resolveName(ctx, rec, "patientId", "patients", "patientName", "firstName", "lastName")
	h.resolveName(ctx, rec, "doctorId", "staff", "doctorName", "firstName", "lastName")
	out, err := h.renderer.Render(p.Kind, rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, out)
}

func (h *Handler) resolveName(ctx context.Context, rec map[string]any, idKey, res, nameKey string, labelKeys ...string) {
	if _, ok := rec[nameKey]; ok {
		return
	}
	id, _ := rec[idKey].(string)
	if id == "" {
		return
	}
	ref, err := h.records.Get(ctx, res, id)
	if err != nil {
		rec[nameKey] = id
		return
	}
	var parts []string
	for _, k := range labelKeys {
		if s, ok := ref[k].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	rec[nameKey] = strings.Join(parts, " ")
}
