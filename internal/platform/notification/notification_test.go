package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Template Engine Tests
// ---------------------------------------------------------------------------

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Level:   LevelInfo,
		Title:   "Hello {{name}}",
		Message: "Dear {{name}}, your code is {{code}}.",
	})

	got, err := eng.Render("test-tpl", map[string]string{
		"name": "Alice",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Hello Alice" {
		t.Errorf("title = %q, want %q", got.Title, "Hello Alice")
	}
	if got.Message != "Dear Alice, your code is 1234." {
		t.Errorf("message = %q, want %q", got.Message, "Dear Alice, your code is 1234.")
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	eng := NewTemplateEngine()
	if _, err := eng.Render("nonexistent", nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	eng := NewTemplateEngine()
	for _, id := range []string{"record-created", "record-updated", "record-deleted", "submission-failed", "list-unavailable"} {
		if _, err := eng.Render(id, map[string]string{"resource": "Patient", "message": "boom"}); err != nil {
			t.Errorf("built-in template %q not found: %v", id, err)
		}
	}
}

func TestTemplateEngine_RenderMissingKey(t *testing.T) {
	eng := NewTemplateEngine()
	got, err := eng.Render("record-created", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// unreplaced keys left as-is
	if got.Message != "{{resource}} created successfully" {
		t.Errorf("message = %q", got.Message)
	}
}

// ---------------------------------------------------------------------------
// Manager Tests
// ---------------------------------------------------------------------------

func TestManager_Notify(t *testing.T) {
	sink := &MockSink{}
	mgr := NewManager(nil, 0, sink)

	n := &Notice{SessionID: "s-1", Level: LevelSuccess, Message: "Saved"}
	if err := mgr.Notify(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID == "" || n.CreatedAt.IsZero() {
		t.Error("expected id and timestamp to be assigned")
	}
	if got := sink.Notices(); len(got) != 1 || got[0].Message != "Saved" {
		t.Errorf("expected sink delivery, got %v", got)
	}
	if got := mgr.ListBySession(context.Background(), "s-1"); len(got) != 1 {
		t.Errorf("expected 1 stored notice, got %d", len(got))
	}
}

func TestManager_NotifyTemplate(t *testing.T) {
	mgr := NewManager(NewTemplateEngine(), 10)
	n, err := mgr.NotifyTemplate(context.Background(), "s-1", "record-created", map[string]string{"resource": "Invoice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Level != LevelSuccess || n.Message != "Invoice created successfully" {
		t.Errorf("unexpected notice %+v", n)
	}
	if _, err := mgr.NotifyTemplate(context.Background(), "s-1", "nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestManager_LimitAndDrain(t *testing.T) {
	mgr := NewManager(nil, 3)
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c", "d"} {
		_ = mgr.Notify(ctx, &Notice{SessionID: "s-1", Message: msg})
	}
	got := mgr.ListBySession(ctx, "s-1")
	if len(got) != 3 || got[0].Message != "b" {
		t.Errorf("expected the 3 newest notices, got %v", got)
	}
	if drained := mgr.Drain(ctx, "s-1"); len(drained) != 3 {
		t.Errorf("expected drain to return 3, got %d", len(drained))
	}
	if got := mgr.ListBySession(ctx, "s-1"); len(got) != 0 {
		t.Errorf("expected empty feed after drain, got %v", got)
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	mgr := NewManager(nil, 10)
	ctx := context.Background()
	_ = mgr.Notify(ctx, &Notice{SessionID: "s-1", Message: "one"})
	_ = mgr.Notify(ctx, &Notice{SessionID: "s-2", Message: "two"})
	mgr.Forget("s-1")
	if len(mgr.ListBySession(ctx, "s-1")) != 0 || len(mgr.ListBySession(ctx, "s-2")) != 1 {
		t.Error("expected Forget to drop only s-1")
	}
}

func TestManager_ConcurrentNotify(t *testing.T) {
	mgr := NewManager(nil, 100, LogSink{Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	count := 50
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func() {
			defer wg.Done()
			_ = mgr.Notify(context.Background(), &Notice{SessionID: "s", Level: LevelError, Message: "x"})
		}()
	}
	wg.Wait()

	if stats := mgr.Stats(context.Background()); stats[LevelError] != count {
		t.Errorf("error = %d, want %d", stats[LevelError], count)
	}
}

// ---------------------------------------------------------------------------
// HTTP Handler Tests
// ---------------------------------------------------------------------------

func setupHandler() (*Handler, *Manager, *echo.Echo) {
	mgr := NewManager(NewTemplateEngine(), 10)
	return NewHandler(mgr), mgr, echo.New()
}

func TestHandler_List(t *testing.T) {
	h, mgr, e := setupHandler()
	_, _ = mgr.NotifyTemplate(context.Background(), "s-1", "record-updated", map[string]string{"resource": "Patient"})

	req := httptest.NewRequest(http.MethodGet, "/notices?session=s-1&drain=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleList(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got []Notice
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].Message != "Patient updated successfully" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if len(mgr.ListBySession(context.Background(), "s-1")) != 0 {
		t.Error("expected drain to clear the feed")
	}
}

func TestHandler_ListRequiresSession(t *testing.T) {
	h, _, e := setupHandler()
	req := httptest.NewRequest(http.MethodGet, "/notices", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleList(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Stats(t *testing.T) {
	h, mgr, e := setupHandler()
	for i := 0; i < 3; i++ {
		_ = mgr.Notify(context.Background(), &Notice{SessionID: "s", Level: LevelSuccess, Message: "ok"})
	}

	req := httptest.NewRequest(http.MethodGet, "/notices/stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/notices/stats")

	if err := h.HandleStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var stats map[string]int
	_ = json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats["success"] != 3 {
		t.Errorf("success = %d, want 3", stats["success"])
	}
}
