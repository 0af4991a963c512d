package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type countingSource struct {
	calls   int
	records map[string][]map[string]any
	err     error
}

func (s *countingSource) List(_ context.Context, resource string) ([]map[string]any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records[resource], nil
}

var testLists = []List{
	{Name: "patients", LabelKeys: []string{"firstName", "lastName"}},
	{Name: "doctors", Resource: "staff", LabelKeys: []string{"name"}},
	{Name: "services", ValueKey: "code", LabelKeys: []string{"name"}, Extra: []string{"price"}},
}

func newSource() *countingSource {
	return &countingSource{records: map[string][]map[string]any{
		"patients": {
			{"id": "p-1", "firstName": "Ada", "lastName": "Lovelace"},
			{"id": "p-2", "firstName": "Alan"},
			{"firstName": "no id"},
		},
		"staff":    {{"id": "d-1", "name": "Dr. Rao"}},
		"services": {{"code": "consultation", "name": "Consultation", "price": 75.0}},
	}}
}

func TestOptions_MapsAndCaches(t *testing.T) {
	src := newSource()
	svc := NewService(src, NewMemoryCache(), time.Minute, zerolog.Nop(), testLists...)
	ctx := context.Background()

	res := svc.Options(ctx, "patients")
	want := []Item{{Value: "p-1", Label: "Ada Lovelace"}, {Value: "p-2", Label: "Alan"}}
	if diff := cmp.Diff(want, res.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	svc.Options(ctx, "patients")
	if src.calls != 1 {
		t.Errorf("expected cached second read, got %d source calls", src.calls)
	}

	svc.Invalidate(ctx, "patients")
	svc.Options(ctx, "patients")
	if src.calls != 2 {
		t.Errorf("expected refetch after invalidation, got %d source calls", src.calls)
	}

	svcs := svc.Options(ctx, "services")
	if len(svcs.Items) != 1 || svcs.Items[0].Extra["price"] != 75.0 {
		t.Errorf("expected price extra, got %+v", svcs.Items)
	}
}

func TestInvalidate_ByResource(t *testing.T) {
	src := newSource()
	svc := NewService(src, NewMemoryCache(), time.Minute, zerolog.Nop(), testLists...)
	ctx := context.Background()
	svc.Options(ctx, "doctors")
	svc.Invalidate(ctx, "staff")
	svc.Options(ctx, "doctors")
	if src.calls != 2 {
		t.Errorf("expected resource invalidation to drop doctors, got %d calls", src.calls)
	}
}

func TestOptions_DegradesOnFailure(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	svc := NewService(src, nil, 0, zerolog.Nop(), testLists...)

	res := svc.Options(context.Background(), "patients")
	if !res.Empty || res.Message != EmptyMessage || res.Err == nil {
		t.Errorf("expected degraded result, got %+v", res)
	}
	if res.Items == nil || len(res.Items) != 0 {
		t.Errorf("expected empty non-nil items, got %#v", res.Items)
	}

	unknown := svc.Options(context.Background(), "planets")
	if !unknown.Empty || unknown.Message != EmptyMessage {
		t.Errorf("expected unknown list to degrade, got %+v", unknown)
	}
}

func TestOptions_EmptyList(t *testing.T) {
	src := &countingSource{records: map[string][]map[string]any{}}
	svc := NewService(src, nil, 0, zerolog.Nop(), testLists...)
	res := svc.Options(context.Background(), "patients")
	if !res.Empty || res.Message != EmptyMessage || res.Err != nil {
		t.Errorf("expected empty result without error, got %+v", res)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "k", []Item{{Value: "1"}}, time.Second)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestOptions_UnreachableRedisFallsBackToSource(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	src := newSource()
	svc := NewService(src, NewRedisCache(client, ""), time.Minute, zerolog.Nop(), testLists...)

	res := svc.Options(context.Background(), "doctors")
	if res.Empty || len(res.Items) != 1 {
		t.Errorf("expected source data despite cache failure, got %+v", res)
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	if _, err := NewRedisClient("not a url"); err == nil {
		t.Error("expected parse error")
	}
}

func TestHandler_GetList(t *testing.T) {
	svc := NewService(newSource(), nil, time.Minute, zerolog.Nop(), testLists...)
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("list")
	c.SetParamValues("doctors")

	if err := h.GetList(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Result
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.List != "doctors" || len(got.Items) != 1 || got.Items[0].Label != "Dr. Rao" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestOptions_WhereFilter(t *testing.T) {
	src := &countingSource{records: map[string][]map[string]any{
		"staff": {
			{"id": "s-1", "lastName": "Rao", "role": "doctor"},
			{"id": "s-2", "lastName": "Kim", "role": "receptionist"},
		},
	}}
	svc := NewService(src, NewMemoryCache(), time.Minute, zerolog.Nop(),
		List{Name: "doctors", Resource: "staff", LabelKeys: []string{"lastName"}, Where: map[string]string{"role": "doctor"}},
		List{Name: "staff", LabelKeys: []string{"lastName"}},
	)
	ctx := context.Background()

	if diff := cmp.Diff([]Item{{Value: "s-1", Label: "Rao"}}, svc.Options(ctx, "doctors").Items); diff != "" {
		t.Errorf("doctors mismatch (-want +got):\n%s", diff)
	}
	if got := len(svc.Options(ctx, "staff").Items); got != 2 {
		t.Errorf("expected 2 staff, got %d", got)
	}
}

type practiceKey struct{}

func TestOptions_ScopedPerPractice(t *testing.T) {
	src := newSource()
	svc := NewService(src, NewMemoryCache(), time.Minute, zerolog.Nop(), testLists...).
		ScopeBy(func(ctx context.Context) string {
			p, _ := ctx.Value(practiceKey{}).(string)
			return p
		})
	north := context.WithValue(context.Background(), practiceKey{}, "north")
	south := context.WithValue(context.Background(), practiceKey{}, "south")

	svc.Options(north, "patients")
	svc.Options(north, "patients")
	svc.Options(south, "patients")
	if src.calls != 2 {
		t.Fatalf("expected one fetch per practice, got %d", src.calls)
	}

	svc.Invalidate(north, "patients")
	svc.Options(south, "patients")
	if src.calls != 2 {
		t.Errorf("invalidating one practice must keep the other cached, got %d fetches", src.calls)
	}
	svc.Options(north, "patients")
	if src.calls != 3 {
		t.Errorf("expected refetch after invalidation, got %d fetches", src.calls)
	}
}
