// Package lookup serves the read-only lists behind form dropdowns (patients,
// doctors, services) from a cache in front of the persistence collaborator.
package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// EmptyMessage is shown when a list has no entries or could not be loaded.
const EmptyMessage = "No records found"

// Source fetches the full record list of a resource.
type Source interface {
	List(ctx context.Context, resource string) ([]map[string]any, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, resource string) ([]map[string]any, error)

func (f SourceFunc) List(ctx context.Context, resource string) ([]map[string]any, error) {
	return f(ctx, resource)
}

// List describes how records of a resource become dropdown items.
type List struct {
	Name     string
	Resource string
	ValueKey string
	// LabelKeys are joined with a space to form the label.
	LabelKeys []string
	// Extra copies additional record fields onto each item (prices).
	Extra []string
	// Where keeps only records whose fields equal these values.
	Where map[string]string
}

// Item is one dropdown entry.
type Item struct {
	Value string         `json:"value"`
	Label string         `json:"label"`
	Extra map[string]any `json:"extra,omitempty"`
}

// Result is the state of a dropdown. A failed fetch degrades to an empty
// list with a message; Err keeps the cause for logging.
type Result struct {
	List    string `json:"list"`
	Items   []Item `json:"items"`
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Service resolves lists through the cache.
type Service struct {
	source Source
	cache  Cache
	ttl    time.Duration
	lists  map[string]List
	logger zerolog.Logger
	scope  func(ctx context.Context) string
}

// NewService constructs a Service for the given list definitions.
func NewService(source Source, cache Cache, ttl time.Duration, logger zerolog.Logger, lists ...List) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	byName := make(map[string]List, len(lists))
	for _, l := range lists {
		if l.Resource == "" {
			l.Resource = l.Name
		}
		if l.ValueKey == "" {
			l.ValueKey = "id"
		}
		byName[l.Name] = l
	}
	return &Service{source: source, cache: cache, ttl: ttl, lists: byName, logger: logger}
}

// ScopeBy partitions cached lists by the key fn derives from the request
// context (the practice), so tenants never see each other's records.
func (s *Service) ScopeBy(fn func(ctx context.Context) string) *Service {
	s.scope = fn
	return s
}

func (s *Service) cacheKey(ctx context.Context, name string) string {
	if s.scope == nil {
		return name
	}
	if p := s.scope(ctx); p != "" {
		return p + ":" + name
	}
	return name
}

// Options returns the items of list. It never fails: unknown lists and
// fetch failures come back empty with EmptyMessage.
func (s *Service) Options(ctx context.Context, name string) Result {
	l, ok := s.lists[name]
	if !ok {
		return s.degraded(name, fmt.Errorf("unknown list %q", name))
	}

	key := s.cacheKey(ctx, name)
	items, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("list", name).Msg("lookup cache read failed")
	}
	if !hit {
		records, err := s.source.List(ctx, l.Resource)
		if err != nil {
			return s.degraded(name, err)
		}
		items = l.items(records)
		if err := s.cache.Set(ctx, key, items, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("list", name).Msg("lookup cache write failed")
		}
	}

	res := Result{List: name, Items: items, Empty: len(items) == 0}
	if res.Empty {
		res.Message = EmptyMessage
		res.Items = []Item{}
	}
	return res
}

// Invalidate drops list, and every list backed by the same resource.
func (s *Service) Invalidate(ctx context.Context, name string) {
	for key, l := range s.lists {
		if key != name && l.Resource != name {
			continue
		}
		if err := s.cache.Delete(ctx, s.cacheKey(ctx, key)); err != nil {
			s.logger.Warn().Err(err).Str("list", key).Msg("lookup cache invalidation failed")
		}
	}
}

// Names returns the configured list names.
func (s *Service) Names() []string {
	out := make([]string, 0, len(s.lists))
	for n := range s.lists {
		out = append(out, n)
	}
	return out
}

func (s *Service) degraded(name string, err error) Result {
	s.logger.Warn().Err(err).Str("list", name).Msg("lookup list unavailable")
	return Result{List: name, Items: []Item{}, Empty: true, Message: EmptyMessage, Err: err}
}

func (l List) items(records []map[string]any) []Item {
	out := make([]Item, 0, len(records))
	for _, rec := range records {
		if !l.matches(rec) {
			continue
		}
		value := fmt.Sprint(rec[l.ValueKey])
		if rec[l.ValueKey] == nil || value == "" {
			continue
		}
		var parts []string
		for _, k := range l.LabelKeys {
			if v, ok := rec[k]; ok && v != nil {
				if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
					parts = append(parts, s)
				}
			}
		}
		label := strings.Join(parts, " ")
		if label == "" {
			label = value
		}
		item := Item{Value: value, Label: label}
		if len(l.Extra) > 0 {
			item.Extra = make(map[string]any, len(l.Extra))
			for _, k := range l.Extra {
				item.Extra[k] = rec[k]
			}
		}
		out = append(out, item)
	}
	return out
}

// Handler exposes lists over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers GET /lookups/:list.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/lookups/:list", h.GetList)
}

// GetList always answers 200; a degraded list is reported in the body.
func (h *Handler) GetList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Options(c.Request().Context(), c.Param("list")))
}

func (l List) matches(rec map[string]any) bool {
	for k, want := range l.Where {
		if fmt.Sprint(rec[k]) != want {
			return false
		}
	}
	return true
}
