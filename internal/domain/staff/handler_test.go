package staff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/lookup"
)

func setupServer(roles ...string) (*echo.Echo, *Service) {
	svc := newTestService()
	e := echo.New()
	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), "user-1", "default", roles...)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc, nil).RegisterRoutes(api)
	return e, svc
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AdminWrites(t *testing.T) {
	e, _ := setupServer(auth.RoleAdmin)
	rec := do(e, http.MethodPost, "/api/staff", `{"firstName":"Ravi","lastName":"Shah","role":"doctor","baseSalary":6100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["role"] != "doctor" || got["baseSalary"] != 6100.0 {
		t.Errorf("unexpected body %v", got)
	}
}

func TestHandler_InvalidRole(t *testing.T) {
	e, _ := setupServer(auth.RoleAdmin)
	rec := do(e, http.MethodPost, "/api/staff", `{"firstName":"Ravi","lastName":"Shah","role":"pilot"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid role: pilot") {
		t.Errorf("expected role message, got %s", rec.Body.String())
	}
}

func TestHandler_ReadOnlyForOthers(t *testing.T) {
	e, svc := setupServer(auth.RoleReceptionist)
	svc.Create(context.Background(), &Staff{FirstName: "Ann", LastName: "Berg", Role: RoleNurse})

	if rec := do(e, http.MethodGet, "/api/staff", ""); rec.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/api/staff", `{"firstName":"Eve","lastName":"Kim","role":"nurse"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("create: expected 403, got %d", rec.Code)
	}
}

func TestLookups_DoctorsOnly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.Create(ctx, &Staff{FirstName: "Ravi", LastName: "Shah", Role: RoleDoctor, Specialty: "Cardiology"})
	svc.Create(ctx, &Staff{FirstName: "Ann", LastName: "Berg", Role: RoleNurse})

	store := Store(svc)
	source := lookup.SourceFunc(func(ctx context.Context, _ string) ([]map[string]any, error) {
		recs, _, err := store.List(ctx, 100, 0)
		return recs, err
	})
	lk := lookup.NewService(source, nil, 0, zerolog.Nop(), Lookups()...)

	doctors := lk.Options(ctx, "doctors")
	if len(doctors.Items) != 1 || doctors.Items[0].Label != "Ravi Shah" {
		t.Fatalf("unexpected doctors %+v", doctors.Items)
	}
	if doctors.Items[0].Extra["specialty"] != "Cardiology" {
		t.Errorf("expected specialty extra, got %v", doctors.Items[0].Extra)
	}
	if all := lk.Options(ctx, "staff"); len(all.Items) != 2 {
		t.Errorf("expected 2 staff items, got %d", len(all.Items))
	}
}
