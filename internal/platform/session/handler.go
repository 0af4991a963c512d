package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
	"github.com/practice/practice/internal/platform/submission"
	"github.com/practice/practice/internal/platform/wizard"
)

// Handler exposes form definitions and sessions over HTTP.
type Handler struct {
	svc     *Service
	catalog *forms.Catalog
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service, catalog *forms.Catalog) *Handler {
	return &Handler{svc: svc, catalog: catalog}
}

// RegisterRoutes registers the form routes on g (mounted at /api/forms).
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListForms)
	g.GET("/:form", h.GetForm)
	g.POST("/:form/sessions", h.Open)
	g.GET("/sessions/:id", h.Get)
	g.DELETE("/sessions/:id", h.Close)
	g.PATCH("/sessions/:id/fields", h.SetFields)
	g.POST("/sessions/:id/rows/:key", h.AppendRow)
	g.PATCH("/sessions/:id/rows/:key/:row", h.SetRow)
	g.DELETE("/sessions/:id/rows/:key/:row", h.RemoveRow)
	g.POST("/sessions/:id/next", h.Next)
	g.POST("/sessions/:id/previous", h.Previous)
	g.POST("/sessions/:id/jump/:step", h.Jump)
	g.POST("/sessions/:id/submit", h.Submit)
	g.GET("/sessions/:id/notices", h.Notices)
	g.GET("/sessions/:id/lookups/:list", h.Lookup)
}

type formSummary struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Resource   string          `json:"resource"`
	Navigation form.Navigation `json:"navigation"`
	Steps      int             `json:"steps"`
}

func (h *Handler) ListForms(c echo.Context) error {
	entries := h.catalog.List()
	out := make([]formSummary, 0, len(entries))
	for _, e := range entries {
		def := e.Definition
		out = append(out, formSummary{
			ID:         def.ID,
			Title:      def.Title,
			Resource:   def.Resource,
			Navigation: def.Navigation,
			Steps:      len(def.Steps),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetForm(c echo.Context) error {
	e, ok := h.catalog.Get(c.Param("form"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "form not found")
	}
	return c.JSON(http.StatusOK, e.Definition)
}

func (h *Handler) Open(c echo.Context) error {
	var req OpenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v, err := h.svc.Open(c.Request().Context(), owner(c), c.Param("form"), req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	v, err := h.svc.Get(owner(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Close(c echo.Context) error {
	if err := h.svc.Close(owner(c), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type fieldsRequest struct {
	Values   map[string]any `json:"values"`
	Validate bool           `json:"validate"`
}

func (h *Handler) SetFields(c echo.Context) error {
	var req fieldsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "values are required")
	}
	v, err := h.svc.SetFields(owner(c), c.Param("id"), req.Values, req.Validate)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

type rowResponse struct {
	RowID   string `json:"row_id"`
	Session View   `json:"session"`
}

func (h *Handler) AppendRow(c echo.Context) error {
	var req fieldsRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	v, rowID, err := h.svc.AppendRow(owner(c), c.Param("id"), c.Param("key"), req.Values)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, rowResponse{RowID: rowID, Session: v})
}

func (h *Handler) SetRow(c echo.Context) error {
	var req fieldsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v, err := h.svc.SetRow(owner(c), c.Param("id"), c.Param("key"), c.Param("row"), req.Values, req.Validate)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) RemoveRow(c echo.Context) error {
	v, err := h.svc.RemoveRow(owner(c), c.Param("id"), c.Param("key"), c.Param("row"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Next(c echo.Context) error {
	v, err := h.svc.Next(owner(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Previous(c echo.Context) error {
	v, err := h.svc.Previous(owner(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Jump(c echo.Context) error {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "step must be a number")
	}
	v, err := h.svc.Jump(owner(c), c.Param("id"), step)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Submit(c echo.Context) error {
	res, err := h.svc.Submit(c.Request().Context(), owner(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	status := http.StatusOK
	if res.Outcome.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

func (h *Handler) Notices(c echo.Context) error {
	list, err := h.svc.Notices(c.Request().Context(), owner(c), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Lookup(c echo.Context) error {
	res, err := h.svc.Lookup(c.Request().Context(), owner(c), c.Param("id"), c.Param("list"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func owner(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

type validationBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Session View              `json:"session"`
}

// httpError maps service errors to HTTP errors. Validation failures are
// written directly so the body carries the field errors.
func httpError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, validationBody{
			Message: "Please correct the highlighted fields",
			Errors:  verr.Results.Errors(),
			Session: verr.View,
		})
	}
	var serr *submission.Error
	if errors.As(err, &serr) {
		status := http.StatusBadGateway
		var sc interface{ StatusCode() int }
		if errors.As(serr.Err, &sc) && sc.StatusCode() >= 400 {
			status = sc.StatusCode()
		}
		return echo.NewHTTPError(status, serr.Message)
	}

	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrFormNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, form.ErrRowNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrNotArray), errors.Is(err, wizard.ErrStepOutOfRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrStepLocked), errors.Is(err, submission.ErrInFlight), errors.Is(err, ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) && sc.StatusCode() >= 400 {
		return echo.NewHTTPError(sc.StatusCode(), err.Error())
	}
	return err
}
