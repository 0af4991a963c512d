package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practice/practice/pkg/pagination"
)

// Handler serves the REST surface of one resource over its Store.
type Handler struct {
	name     string
	store    Store
	onChange func(ctx context.Context, name string)
}

// NewHandler creates a Handler for the resource registered as name.
// onChange, when set, runs after every successful write.
func NewHandler(name string, store Store, onChange func(ctx context.Context, name string)) *Handler {
	return &Handler{name: name, store: store, onChange: onChange}
}

// Mount registers GET/POST /{name} and GET/PUT/PATCH/DELETE /{name}/:id.
func (h *Handler) Mount(g *echo.Group, read, write []echo.MiddlewareFunc) {
	r := g.Group("", read...)
	r.GET("/"+h.name, h.List)
	r.GET("/"+h.name+"/:id", h.Get)

	w := g.Group("", write...)
	w.POST("/"+h.name, h.Create)
	w.PUT("/"+h.name+"/:id", h.Update)
	w.PATCH("/"+h.name+"/:id", h.Patch)
	w.DELETE("/"+h.name+"/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.store.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return HTTPError(err)
	}
	if items == nil {
		items = []Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	rec, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Create(c echo.Context) error {
	body, err := bindRecord(c)
	if err != nil {
		return err
	}
	rec, err := h.store.Create(c.Request().Context(), body)
	if err != nil {
		return HTTPError(err)
	}
	h.changed(c)
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Update(c echo.Context) error {
	body, err := bindRecord(c)
	if err != nil {
		return err
	}
	rec, err := h.store.Update(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return HTTPError(err)
	}
	h.changed(c)
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Patch(c echo.Context) error {
	body, err := bindRecord(c)
	if err != nil {
		return err
	}
	rec, err := Patch(c.Request().Context(), h.store, c.Param("id"), body)
	if err != nil {
		return HTTPError(err)
	}
	h.changed(c)
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return HTTPError(err)
	}
	h.changed(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) changed(c echo.Context) {
	if h.onChange != nil {
		h.onChange(c.Request().Context(), h.name)
	}
}

func bindRecord(c echo.Context) (Record, error) {
	var body Record
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	}
	delete(body, "id")
	return body, nil
}

// HTTPError converts a store error to an echo error with a {"message": ...}
// body. Unclassified errors are reported without their internals.
func HTTPError(err error) error {
	var re *Error
	if errors.As(err, &re) {
		return echo.NewHTTPError(re.Status, re.Message)
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
