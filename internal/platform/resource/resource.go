// Package resource is the in-process persistence collaborator: every practice
// resource (patients, appointments, invoices...) is reachable through a
// uniform JSON-record Store so form submissions, dropdown lists and printed
// documents do not depend on the concrete domain types.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Record is a JSON object keyed by form field names.
type Record = map[string]any

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Error is a failure with an HTTP status and a message fit for end users.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the message shown to the user.
func (e *Error) UserMessage() string { return e.Message }

// StatusCode returns the HTTP status.
func (e *Error) StatusCode() int { return e.Status }

// Invalid reports a request rejected by domain validation.
func Invalid(format string, args ...any) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing record.
func NotFound(kind, id string) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf("%s %s not found", kind, id), Err: ErrNotFound}
}

// StatusOf maps an error to an HTTP status.
func StatusOf(err error) int {
	var re *Error
	switch {
	case errors.As(err, &re):
		return re.Status
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Store is the record-level API of one resource.
type Store interface {
	List(ctx context.Context, limit, offset int) ([]Record, int, error)
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, body Record) (Record, error)
	Update(ctx context.Context, id string, body Record) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Patch merges body into the stored record and writes it back with Update.
func Patch(ctx context.Context, s Store, id string, body Record) (Record, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for k, v := range body {
		current[k] = v
	}
	return s.Update(ctx, id, current)
}

// Service is the typed CRUD surface a domain service exposes.
type Service[T any] interface {
	Create(ctx context.Context, v *T) error
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*T, int, error)
}

// Adapt exposes a typed domain service as a Store. setID assigns the path id
// to a decoded value before Update.
func Adapt[T any](kind string, svc Service[T], setID func(*T, uuid.UUID)) Store {
	return &typedStore[T]{kind: kind, svc: svc, setID: setID}
}

type typedStore[T any] struct {
	kind  string
	svc   Service[T]
	setID func(*T, uuid.UUID)
}

func (s *typedStore[T]) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	items, total, err := s.svc.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Record, 0, len(items))
	for _, it := range items {
		rec, err := Encode(it)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func (s *typedStore[T]) Get(ctx context.Context, id string) (Record, error) {
	uid, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	v, err := s.svc.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFound(s.kind, id)
		}
		return nil, err
	}
	return Encode(v)
}

func (s *typedStore[T]) Create(ctx context.Context, body Record) (Record, error) {
	v, err := Decode[T](body)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Create(ctx, v); err != nil {
		return nil, err
	}
	return Encode(v)
}

func (s *typedStore[T]) Update(ctx context.Context, id string, body Record) (Record, error) {
	uid, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.svc.Get(ctx, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFound(s.kind, id)
		}
		return nil, err
	}
	v, err := Decode[T](body)
	if err != nil {
		return nil, err
	}
	s.setID(v, uid)
	if err := s.svc.Update(ctx, v); err != nil {
		return nil, err
	}
	return Encode(v)
}

func (s *typedStore[T]) Delete(ctx context.Context, id string) error {
	uid, err := s.parseID(id)
	if err != nil {
		return err
	}
	return s.svc.Delete(ctx, uid)
}

func (s *typedStore[T]) parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, &Error{Status: http.StatusBadRequest, Message: "invalid id", Err: err}
	}
	return uid, nil
}

// Decode converts a record into T through its JSON form.
func Decode[T any](body Record) (*T, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: "invalid request body", Err: err}
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: "invalid request body", Err: err}
	}
	return &v, nil
}

// Encode converts v into a record through its JSON form.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return rec, nil
}

// Registry resolves resource names to stores.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

// Register adds or replaces the store for name.
func (r *Registry) Register(name string, s Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = s
}

// Store returns the store registered for name.
func (r *Registry) Store(name string) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[name]
	if !ok {
		return nil, &Error{Status: http.StatusNotFound, Message: fmt.Sprintf("unknown resource %q", name)}
	}
	return s, nil
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for n := range r.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Create stores a new record of the named resource.
func (r *Registry) Create(ctx context.Context, name string, body Record) (Record, error) {
	s, err := r.Store(name)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, body)
}

// Update replaces a record of the named resource.
func (r *Registry) Update(ctx context.Context, name, id string, body Record) (Record, error) {
	s, err := r.Store(name)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, body)
}

// Patch merges body into a record of the named resource.
func (r *Registry) Patch(ctx context.Context, name, id string, body Record) (Record, error) {
	s, err := r.Store(name)
	if err != nil {
		return nil, err
	}
	return Patch(ctx, s, id, body)
}

// Get reads one record of the named resource.
func (r *Registry) Get(ctx context.Context, name, id string) (Record, error) {
	s, err := r.Store(name)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ListAll returns up to limit records of the named resource.
func (r *Registry) ListAll(ctx context.Context, name string, limit int) ([]Record, error) {
	s, err := r.Store(name)
	if err != nil {
		return nil, err
	}
	items, _, err := s.List(ctx, limit, 0)
	return items, err
}
