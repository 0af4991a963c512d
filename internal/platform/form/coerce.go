package form

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CoerceNumber converts raw input to a finite float64. Empty, unparsable and
// non-finite input becomes 0.
func CoerceNumber(raw any) float64 {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		f, _ = strconv.ParseFloat(v.String(), 64)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return f
}

// Coerce normalizes raw input for the field: numbers are parsed (and
// clamped for percentages), booleans parsed from strings, arrays turned into
// Rows with stable ids and objects filled with their child defaults. Input
// that cannot be normalized is returned unchanged so validation reports it.
func Coerce(f *FieldSpec, raw any) any {
	switch f.Kind {
	case KindNumber:
		n := CoerceNumber(raw)
		if f.Format == FormatPercent {
			n = ClampPercent(n)
		}
		return n
	case KindBoolean:
		switch v := raw.(type) {
		case nil:
			return false
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
			if strings.EqualFold(strings.TrimSpace(v), "on") {
				return true
			}
		}
		return raw
	case KindString, KindDate, KindEnum:
		if raw == nil {
			return ""
		}
		return raw
	case KindArray:
		return coerceRows(f, raw)
	case KindObject:
		return coerceObject(f, raw)
	}
	return raw
}

func coerceRows(f *FieldSpec, raw any) any {
	var items []map[string]any
	switch v := raw.(type) {
	case nil:
		return Rows{}
	case Rows:
		for _, r := range v {
			items = append(items, r)
		}
	case []Row:
		for _, r := range v {
			items = append(items, r)
		}
	case []map[string]any:
		items = v
	case []any:
		for _, el := range v {
			m, ok := asMap(el)
			if !ok {
				return raw
			}
			items = append(items, m)
		}
	default:
		return raw
	}
	rows := make(Rows, 0, len(items))
	for _, item := range items {
		rows = append(rows, newRow(f, item))
	}
	return rows
}

func newRow(f *FieldSpec, values map[string]any) Row {
	row := make(Row, len(f.Fields)+1)
	for i := range f.Fields {
		child := &f.Fields[i]
		v, ok := values[child.Key]
		if !ok {
			v = defaultValue(child)
		}
		row[child.Key] = Coerce(child, v)
	}
	if id, ok := values[RowIDKey].(string); ok && id != "" {
		row[RowIDKey] = id
	} else {
		row[RowIDKey] = uuid.NewString()
	}
	return row
}

func coerceObject(f *FieldSpec, raw any) any {
	var values map[string]any
	if raw != nil {
		m, ok := asMap(raw)
		if !ok {
			return raw
		}
		values = m
	}
	out := make(map[string]any, len(f.Fields))
	for i := range f.Fields {
		child := &f.Fields[i]
		v, ok := values[child.Key]
		if !ok {
			v = defaultValue(child)
		}
		out[child.Key] = Coerce(child, v)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Row:
		return m, true
	case Snapshot:
		return m, true
	}
	return nil, false
}

// defaultValue returns the declared default or the zero value of the kind.
func defaultValue(f *FieldSpec) any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case KindNumber:
		return 0.0
	case KindBoolean:
		return false
	case KindArray:
		return Rows{}
	case KindObject:
		return nil
	}
	return ""
}
