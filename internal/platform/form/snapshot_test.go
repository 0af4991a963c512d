package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSnapshot_Defaults(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, nil)

	if s["firstName"] != "" {
		t.Errorf("expected empty string default, got %#v", s["firstName"])
	}
	if s["age"] != 0.0 {
		t.Errorf("expected 0 number default, got %#v", s["age"])
	}
	if s["consent"] != false {
		t.Errorf("expected false boolean default, got %#v", s["consent"])
	}
	rows, err := s.Rows("allergies")
	if err != nil || len(rows) != 0 {
		t.Errorf("expected empty rows, got %v %v", rows, err)
	}
	if city, ok := s.Get("address.city"); !ok || city != "" {
		t.Errorf("expected nested default, got %#v %v", city, ok)
	}
}

func TestSnapshot_SetCoerces(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, nil)

	if err := s.Set(def, "age", "42"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s["age"] != 42.0 {
		t.Errorf("expected 42, got %#v", s["age"])
	}
	if err := s.Set(def, "age", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s["age"] != 0.0 {
		t.Errorf("expected unparsable number to become 0, got %#v", s["age"])
	}
	if err := s.Set(def, "consent", "on"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s["consent"] != true {
		t.Errorf("expected true, got %#v", s["consent"])
	}
	if err := s.Set(def, "address.city", "Pune"); err != nil {
		t.Fatalf("Set nested: %v", err)
	}
	if v, _ := s.Get("address.city"); v != "Pune" {
		t.Errorf("expected Pune, got %#v", v)
	}
}

func TestSnapshot_SetUnknownField(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, nil)
	if err := s.Set(def, "unknown", 1); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if err := s.Set(def, "allergies.substance", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected row fields to be rejected by Set, got %v", err)
	}
}

func TestSnapshot_Rows(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, nil)

	first, err := s.AppendRow(def, "allergies", map[string]any{"substance": "Dust"})
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	second, _ := s.AppendRow(def, "allergies", map[string]any{"substance": "Pollen"})
	if first == second || first == "" {
		t.Fatalf("expected distinct row ids, got %q %q", first, second)
	}

	rows, _ := s.Rows("allergies")
	if rows[0]["severity"] != "mild" {
		t.Errorf("expected child default, got %#v", rows[0]["severity"])
	}

	if err := s.RemoveRow("allergies", first); err != nil {
		t.Fatalf("RemoveRow: %v", err)
	}
	rows, _ = s.Rows("allergies")
	if len(rows) != 1 || rows.Index(second) != 0 {
		t.Errorf("expected surviving row to keep its id, got %v", rows)
	}
	if err := s.RemoveRow("allergies", first); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
	if _, err := s.AppendRow(def, "firstName", nil); !errors.Is(err, ErrNotArray) {
		t.Errorf("expected ErrNotArray, got %v", err)
	}
	if _, err := s.AppendRow(def, "allergies", map[string]any{"colour": "red"}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, nil)
	id, _ := s.AppendRow(def, "allergies", map[string]any{"substance": "Dust"})

	c := s.Clone()
	_ = c.SetRowField(def, "allergies", id, "substance", "Latex")
	_ = c.Set(def, "address.city", "Mumbai")

	rows, _ := s.Rows("allergies")
	if rows[0]["substance"] != "Dust" {
		t.Errorf("expected original row untouched, got %#v", rows[0]["substance"])
	}
	if v, _ := s.Get("address.city"); v != "" {
		t.Errorf("expected original object untouched, got %#v", v)
	}
}

func TestSnapshot_PayloadStripsRowIDs(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, map[string]any{"firstName": "Ada"})
	_, _ = s.AppendRow(def, "allergies", map[string]any{"substance": "Dust"})

	p := s.Payload()
	got := p["allergies"].([]any)[0].(map[string]any)
	want := map[string]any{"substance": "Dust", "severity": "mild"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload row mismatch (-want +got):\n%s", diff)
	}

	plain := s.Plain()
	row := plain["allergies"].([]any)[0].(map[string]any)
	if _, ok := row[RowIDKey]; !ok {
		t.Error("expected Plain to keep row ids")
	}
}

func TestNewSnapshot_KeepsExistingRowIDs(t *testing.T) {
	def := mustDefinition(t)
	s := NewSnapshot(def, map[string]any{
		"allergies": []any{map[string]any{RowIDKey: "r-1", "substance": "Dust"}},
	})
	rows, _ := s.Rows("allergies")
	if rows.Index("r-1") != 0 {
		t.Errorf("expected row id r-1 to survive, got %v", rows)
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"12.5", 12.5},
		{" 7 ", 7},
		{"", 0},
		{"x", 0},
		{nil, 0},
		{int64(3), 3},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		if got := CoerceNumber(tt.in); got != tt.want {
			t.Errorf("CoerceNumber(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
