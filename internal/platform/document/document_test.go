package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/resource"
)

func mustRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("Sunrise Clinic")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRenderer_Kinds(t *testing.T) {
	r := mustRenderer(t)
	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != "invoice" || kinds[1] != "prescription" {
		t.Errorf("unexpected kinds %v", kinds)
	}
}

func TestRender_Invoice(t *testing.T) {
	r := mustRenderer(t)
	out, err := r.Render("invoice", map[string]any{
		"invoiceNumber": "INV-7",
		"patientName":   "Ada Lovelace",
		"items": []any{
			map[string]any{"description": "Consultation", "quantity": 2.0, "unitPrice": 10.0, "discountPercent": 0.0, "lineTotal": 20.0},
		},
		"subtotal": 22.5,
		"taxRate":  8.5,
		"total":    24.4125,
		"notes":    `<script>alert(1)</script><b>Paid</b>`,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)
	for _, want := range []string{"Sunrise Clinic", "INV-7", "Ada Lovelace", "Consultation", "22.50", "24.41", "8.5%", "<b>Paid</b>"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if strings.Contains(html, "<script>alert") {
		t.Error("expected script to be stripped from notes")
	}
}

func TestRender_UnknownKind(t *testing.T) {
	if _, err := mustRenderer(t).Render("receipt", nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSanitizeNotes(t *testing.T) {
	got := SanitizeNotes(`<a href="javascript:x">link</a> <em>ok</em>`)
	if got != "link <em>ok</em>" {
		t.Errorf("SanitizeNotes = %q", got)
	}
}

type mockRecords map[string]map[string]any

func (m mockRecords) Get(_ context.Context, res, id string) (map[string]any, error) {
	rec, ok := m[res+"/"+id]
	if !ok {
		return nil, resource.NotFound(res, id)
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func TestHandler_PrintRecord(t *testing.T) {
	records := mockRecords{
		"prescriptions/rx-1": {"patientId": "p-1", "doctorId": "d-1", "diagnosis": "Flu", "medications": []any{map[string]any{"name": "Oseltamivir", "durationDays": 5.0}}},
		"patients/p-1":       {"firstName": "Ada", "lastName": "Lovelace"},
		"staff/d-1":          {"firstName": "Meera", "lastName": "Rao"},
	}
	h := NewHandler(mustRenderer(t), records, Printable{Resource: "prescriptions", Kind: "prescription"})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("rx-1")

	if err := h.PrintRecord(c, h.printable[0]); err != nil {
		t.Fatalf("PrintRecord: %v", err)
	}
	body := rec.Body.String()
	for _, want := range []string{"Ada Lovelace", "Meera Rao", "Oseltamivir", "Flu"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in document", want)
		}
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.PrintRecord(c, h.printable[0])
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_RenderDocument(t *testing.T) {
	h := NewHandler(mustRenderer(t), mockRecords{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"invoiceNumber":"INV-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("kind")
	c.SetParamValues("invoice")

	if err := h.RenderDocument(c); err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "INV-1") {
		t.Error("expected invoice number in output")
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}
}
