package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

var wantSecurityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "0",
	"Content-Security-Policy":   "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "no-referrer",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	"Cache-Control":             "no-store",
}

func securityHeadersOf(rec *httptest.ResponseRecorder) map[string]string {
	got := make(map[string]string, len(wantSecurityHeaders))
	for k := range wantSecurityHeaders {
		got[k] = rec.Header().Get(k)
	}
	return got
}

func newSecurityEcho() *echo.Echo {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/api/patients", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{})
	})
	e.POST("/api/forms/sessions/:id/submit", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]any{"outcome": map[string]any{"created": true}})
	})
	e.GET("/api/invoices/:id/print", func(c echo.Context) error {
		return c.HTML(http.StatusOK, "<html><style>td{}</style></html>")
	})
	e.GET("/api/appointments/availability", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctorId")
	})
	return e
}

func TestSecurityHeaders_OnEveryRoute(t *testing.T) {
	e := newSecurityEcho()
	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"resource list", http.MethodGet, "/api/patients", http.StatusOK},
		{"form submit", http.MethodPost, "/api/forms/sessions/abc/submit", http.StatusCreated},
		{"printed document", http.MethodGet, "/api/invoices/6b1f0c9e-0000-4000-8000-000000000001/print", http.StatusOK},
		{"handler error", http.MethodGet, "/api/appointments/availability?doctorId=x", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if diff := cmp.Diff(wantSecurityHeaders, securityHeadersOf(rec)); diff != "" {
				t.Errorf("headers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSecurityHeaders_PassesHandlerErrorThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/patients/search", nil), httptest.NewRecorder())
	h := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
	})
	httpErr, ok := h(c).(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", httpErr)
	}
}
