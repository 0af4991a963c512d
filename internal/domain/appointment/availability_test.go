package appointment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
)

func TestAvailability_SkipsBookedSlots(t *testing.T) {
	svc := NewService(newMockAppointmentRepo())
	svc.SetHours(Hours{Open: "09:00", Close: "11:00", Step: 30})
	ctx := context.Background()

	if err := svc.Create(ctx, booking("09:30", 45)); err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled := booking("10:30", 30)
	cancelled.Status = StatusCancelled
	if err := svc.Create(ctx, cancelled); err != nil {
		t.Fatalf("create cancelled: %v", err)
	}

	got, err := svc.Availability(ctx, testDoctor, "2026-11-02", 30)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	want := []Slot{
		{Time: "09:00", End: "09:30"},
		{Time: "10:30", End: "11:00"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
}

func TestAvailability_OtherDoctorUnaffected(t *testing.T) {
	svc := NewService(newMockAppointmentRepo())
	svc.SetHours(Hours{Open: "09:00", Close: "10:00", Step: 30})
	if err := svc.Create(context.Background(), booking("09:00", 60)); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Availability(context.Background(), uuid.New(), "2026-11-02", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 free slots, got %v", got)
	}
}

func TestAvailability_Validation(t *testing.T) {
	svc := NewService(newMockAppointmentRepo())
	if _, err := svc.Availability(context.Background(), uuid.Nil, "2026-11-02", 30); err == nil {
		t.Error("expected error without doctor")
	}
	if _, err := svc.Availability(context.Background(), testDoctor, "02/11/2026", 30); err == nil {
		t.Error("expected error for a bad date")
	}
}

func TestHandler_Availability(t *testing.T) {
	svc := NewService(newMockAppointmentRepo())
	e := echo.New()
	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), "u-1", "default", auth.RoleReceptionist)))
			return next(c)
		}
	})
	NewHandler(svc, nil).RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodGet, "/api/appointments/availability?doctorId="+testDoctor.String()+"&date=2026-11-02&duration=60", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/appointments/availability?doctorId=nope&date=2026-11-02", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
