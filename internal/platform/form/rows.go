package form

import "fmt"

// RowIDKey holds the stable identifier of a row inside an array field.
const RowIDKey = "_rowId"

// Row is one entry of an array field (an allergy, a medication, an invoice
// line).
type Row map[string]any

// ID returns the stable row identifier.
func (r Row) ID() string {
	id, _ := r[RowIDKey].(string)
	return id
}

// Rows is an ordered list of rows. Positions shift on removal; callers
// address rows by ID.
type Rows []Row

// Index returns the position of the row with the given id, or -1.
func (rs Rows) Index(id string) int {
	for i, r := range rs {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// Rows returns the rows stored under key.
func (s Snapshot) Rows(key string) (Rows, error) {
	v, ok := s.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	rows, ok := v.(Rows)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, key)
	}
	return rows, nil
}

// AppendRow adds a row built from values (child defaults for missing keys)
// at the end of the list and returns its id.
func (s Snapshot) AppendRow(def *Definition, key string, values map[string]any) (string, error) {
	f, ok := def.Field(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if f.Kind != KindArray {
		return "", fmt.Errorf("%w: %s", ErrNotArray, key)
	}
	rows, err := s.Rows(key)
	if err != nil {
		return "", err
	}
	clean := make(map[string]any, len(values))
	for k, v := range values {
		if k == RowIDKey {
			continue
		}
		if _, known := f.Child(k); !known {
			return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, key, k)
		}
		clean[k] = v
	}
	row := newRow(f, clean)
	next := make(Rows, len(rows), len(rows)+1)
	copy(next, rows)
	_ = s.Put(key, append(next, row))
	return row.ID(), nil
}

// RemoveRow deletes the row with the given id.
func (s Snapshot) RemoveRow(key, rowID string) error {
	rows, err := s.Rows(key)
	if err != nil {
		return err
	}
	i := rows.Index(rowID)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrRowNotFound, key, rowID)
	}
	next := make(Rows, 0, len(rows)-1)
	next = append(next, rows[:i]...)
	next = append(next, rows[i+1:]...)
	return s.Put(key, next)
}

// SetRowField coerces raw for the child field and stores it in the row.
func (s Snapshot) SetRowField(def *Definition, key, rowID, field string, raw any) error {
	f, ok := def.Field(key)
	if !ok || f.Kind != KindArray {
		return fmt.Errorf("%w: %s", ErrNotArray, key)
	}
	child, ok := f.Child(field)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, key, field)
	}
	rows, err := s.Rows(key)
	if err != nil {
		return err
	}
	i := rows.Index(rowID)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrRowNotFound, key, rowID)
	}
	rows[i][field] = Coerce(child, raw)
	return nil
}
