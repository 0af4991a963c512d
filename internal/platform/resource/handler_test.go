package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func setupWidgetHandler() (*echo.Echo, *[]string) {
	e := echo.New()
	var changed []string
	h := NewHandler("widgets", newWidgetStore(), func(_ context.Context, name string) {
		changed = append(changed, name)
	})
	h.Mount(e.Group("/api"), nil, nil)
	return e, &changed
}

func send(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CRUD(t *testing.T) {
	e, changed := setupWidgetHandler()

	rec := send(e, http.MethodPost, "/api/widgets", `{"name":"gauze","count":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Record
	json.Unmarshal(rec.Body.Bytes(), &created)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("no id in %v", created)
	}

	if rec := send(e, http.MethodGet, "/api/widgets/"+id, ""); rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}

	rec = send(e, http.MethodPatch, "/api/widgets/"+id, `{"count":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", rec.Code)
	}
	var patched Record
	json.Unmarshal(rec.Body.Bytes(), &patched)
	if patched["name"] != "gauze" || patched["count"] != 5.0 {
		t.Errorf("patch lost fields: %v", patched)
	}

	rec = send(e, http.MethodGet, "/api/widgets?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var page struct {
		Data  []Record `json:"data"`
		Total int      `json:"total"`
		Limit int      `json:"limit"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 || len(page.Data) != 1 || page.Limit != 5 {
		t.Errorf("unexpected page %+v", page)
	}

	if rec := send(e, http.MethodDelete, "/api/widgets/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	if len(*changed) != 3 {
		t.Errorf("expected 3 change callbacks, got %v", *changed)
	}
}

func TestHandler_Errors(t *testing.T) {
	e, _ := setupWidgetHandler()

	rec := send(e, http.MethodPost, "/api/widgets", `{"count":1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid create: expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "name is required") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec := send(e, http.MethodGet, "/api/widgets/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
	if rec := send(e, http.MethodGet, "/api/widgets/7d3f7a52-5d0c-4a43-8f44-3b1f8e1f0a11", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", rec.Code)
	}
	if rec := send(e, http.MethodPut, "/api/widgets/7d3f7a52-5d0c-4a43-8f44-3b1f8e1f0a11", `{"name":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update missing: expected 404, got %d", rec.Code)
	}
	if rec := send(e, http.MethodPost, "/api/widgets", `{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", rec.Code)
	}
}
