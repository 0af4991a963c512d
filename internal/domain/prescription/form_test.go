package prescription

import (
	"testing"

	"github.com/practice/practice/internal/platform/form"
)

func TestForm_FreeNavigation(t *testing.T) {
	entry, err := Form()
	if err != nil {
		t.Fatalf("load form: %v", err)
	}
	if entry.Definition.Navigation != form.NavigationFree {
		t.Errorf("expected free navigation, got %s", entry.Definition.Navigation)
	}
}

func TestForm_ExpirationCheck(t *testing.T) {
	entry, _ := Form()
	def := entry.Definition
	tests := []struct {
		effective, expiration string
		msg                   string
	}{
		{"2026-10-01", "2026-10-15", ""},
		{"2026-10-01", "2026-10-01", "Expiration date must be after the effective date"},
		{"2026-10-01", "2026-09-01", "Expiration date must be after the effective date"},
	}
	for _, tt := range tests {
		s := form.NewSnapshot(def, map[string]any{"effectiveDate": tt.effective, "expirationDate": tt.expiration})
		got := form.Validate(def, s, []string{"expirationDate"}).Errors()["expirationDate"]
		if got != tt.msg {
			t.Errorf("%s..%s: got %q, want %q", tt.effective, tt.expiration, got, tt.msg)
		}
	}
}

func TestForm_MedicationsRequired(t *testing.T) {
	entry, _ := Form()
	def := entry.Definition
	s := form.NewSnapshot(def, nil)
	if got := form.ValidateStep(def, s, 1).Errors()["medications"]; got != "Medications is required" {
		t.Errorf("unexpected error %q", got)
	}

	id, err := s.AppendRow(def, "medications", map[string]any{"name": "Ibuprofen"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	errs := form.ValidateStep(def, s, 1).Errors()
	if errs["medications."+id+".dosage"] != "Dosage is required" {
		t.Errorf("expected dosage error, got %v", errs)
	}
	if errs["medications"] != "Medications has invalid entries" {
		t.Errorf("expected row summary error, got %q", errs["medications"])
	}
}
