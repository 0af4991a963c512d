package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("?limit=50&offset=10")
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_Page(t *testing.T) {
	p := paramsFor("?limit=10&page=3")
	if p.Offset != 20 {
		t.Errorf("expected offset 20, got %d", p.Offset)
	}
	p = paramsFor("?limit=10&page=3&offset=5")
	if p.Offset != 5 {
		t.Errorf("explicit offset should win, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := paramsFor("?limit=500")
	if p.Limit != MaxLimit {
		t.Errorf("expected max limit %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := paramsFor("?offset=-5")
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"a", "b", "c"}
	resp := NewResponse(data, 10, 3, 0)
	if resp.Total != 10 {
		t.Errorf("expected total 10, got %d", resp.Total)
	}
	if !resp.HasMore {
		t.Error("expected HasMore to be true")
	}
	resp = NewResponse(data, 3, 3, 0)
	if resp.HasMore {
		t.Error("expected HasMore to be false")
	}
}

func TestParams_Navigation(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		total   int
		hasNext bool
		hasPrev bool
		nextOff int
		prevOff int
	}{
		{"first page", Params{Limit: 10, Offset: 0}, 25, true, false, 10, 0},
		{"middle page", Params{Limit: 10, Offset: 10}, 25, true, true, 20, 0},
		{"last page", Params{Limit: 10, Offset: 20}, 25, false, true, 30, 10},
		{"short offset", Params{Limit: 10, Offset: 5}, 8, false, true, 15, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.HasNext(tt.total); got != tt.hasNext {
				t.Errorf("HasNext = %v, want %v", got, tt.hasNext)
			}
			if got := tt.p.HasPrevious(); got != tt.hasPrev {
				t.Errorf("HasPrevious = %v, want %v", got, tt.hasPrev)
			}
			if got := tt.p.NextOffset(); got != tt.nextOff {
				t.Errorf("NextOffset = %d, want %d", got, tt.nextOff)
			}
			if got := tt.p.PreviousOffset(); got != tt.prevOff {
				t.Errorf("PreviousOffset = %d, want %d", got, tt.prevOff)
			}
		})
	}
}
