package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrNotArray     = errors.New("field is not a list")
	ErrRowNotFound  = errors.New("row not found")
)

// Snapshot is the complete value set of a form at a point in time. Array
// fields hold Rows, object fields hold nested maps, numbers are float64.
type Snapshot map[string]any

// NewSnapshot populates every field of def from existing (a record being
// edited) or from the field defaults, coercing values on the way in.
func NewSnapshot(def *Definition, existing map[string]any) Snapshot {
	s := make(Snapshot, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		v, ok := existing[f.Key]
		if !ok {
			v = defaultValue(f)
		}
		s[f.Key] = Coerce(f, v)
	}
	return s
}

// Get resolves a dotted key through nested objects. Missing keys report
// false.
func (s Snapshot) Get(key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = map[string]any(s)
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set coerces raw for the field named by key and stores it.
func (s Snapshot) Set(def *Definition, key string, raw any) error {
	f, err := s.settable(def, key)
	if err != nil {
		return err
	}
	return s.Put(key, Coerce(f, raw))
}

// CheckSettable reports the error Set would return for key without storing
// anything.
func (s Snapshot) CheckSettable(def *Definition, key string) error {
	_, err := s.settable(def, key)
	return err
}

func (s Snapshot) settable(def *Definition, key string) (*FieldSpec, error) {
	f, ok := def.Field(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if strings.Contains(key, ".") {
		if _, isRow := s.rowsAbove(key); isRow {
			return nil, fmt.Errorf("%w: %s is a row field", ErrUnknownField, key)
		}
	}
	return f, nil
}

// Put stores v under key without coercion, creating intermediate objects.
func (s Snapshot) Put(key string, v any) error {
	parts := strings.Split(key, ".")
	m := map[string]any(s)
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(m[p])
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
	return nil
}

// rowsAbove reports whether any prefix of key holds Rows.
func (s Snapshot) rowsAbove(key string) (string, bool) {
	parts := strings.Split(key, ".")
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		if v, ok := s.Get(prefix); ok {
			if _, isRows := v.(Rows); isRows {
				return prefix, true
			}
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Rows:
		rows := make(Rows, len(t))
		for i, r := range t {
			rows[i] = Row(cloneMap(r))
		}
		return rows
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = cloneValue(el)
		}
		return out
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Plain converts the snapshot into JSON-shaped maps and slices. Row ids are
// kept.
func (s Snapshot) Plain() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = plainValue(v)
	}
	return out
}

// Payload is the request body sent to the persistence layer: the plain
// snapshot without row ids.
func (s Snapshot) Payload() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = payloadValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case Rows:
		out := make([]any, len(t))
		for i, r := range t {
			out[i] = plainValue(map[string]any(r))
		}
		return out
	case Row:
		return plainValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = plainValue(el)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = plainValue(el)
		}
		return out
	}
	return v
}

func payloadValue(v any) any {
	switch t := v.(type) {
	case Rows:
		out := make([]any, len(t))
		for i, r := range t {
			m := make(map[string]any, len(r))
			for k, el := range r {
				if k == RowIDKey {
					continue
				}
				m[k] = payloadValue(el)
			}
			out[i] = m
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = payloadValue(el)
		}
		return out
	}
	return v
}
