package patient

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/practice/practice/internal/platform/form"
)

func TestForm_Steps(t *testing.T) {
	entry, err := Form()
	if err != nil {
		t.Fatalf("load form: %v", err)
	}
	def := entry.Definition
	if def.Navigation != form.NavigationSequential {
		t.Errorf("expected sequential navigation, got %s", def.Navigation)
	}
	var ids []string
	for _, st := range def.Steps {
		ids = append(ids, st.ID)
	}
	if diff := cmp.Diff([]string{"personal", "contact", "medical", "review"}, ids); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestForm_EmptySnapshotErrors(t *testing.T) {
	entry, _ := Form()
	def := entry.Definition
	res := form.ValidateAll(def, form.NewSnapshot(def, nil))
	want := map[string]string{
		"firstName":    "First name is required",
		"lastName":     "Last name is required",
		"dateOfBirth":  "Date of birth is required",
		"gender":       "Gender is required",
		"phone":        "Phone is required",
		"address":      "Address has invalid fields",
		"address.city": "City is required",
		"consent":      "Consent must be given",
	}
	if diff := cmp.Diff(want, res.Errors()); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestForm_PayloadCreatesPatient(t *testing.T) {
	entry, _ := Form()
	def := entry.Definition
	s := form.NewSnapshot(def, map[string]any{
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"dateOfBirth": "1985-12-10",
		"gender":      "female",
		"phone":       "+44 20 7946 0958",
		"address":     map[string]any{"city": "London", "postalCode": "NW1 6XE"},
		"allergies":   []any{map[string]any{"substance": "Latex"}},
		"consent":     true,
	})
	if res := form.ValidateAll(def, s); !res.Valid() {
		t.Fatalf("expected valid snapshot, got %v", res.Errors())
	}

	store := Store(NewService(newMockPatientRepo()))
	rec, err := store.Create(context.Background(), s.Payload())
	if err != nil {
		t.Fatalf("create from payload: %v", err)
	}
	allergies, _ := rec["allergies"].([]any)
	if len(allergies) != 1 {
		t.Fatalf("expected one allergy, got %v", rec["allergies"])
	}
	if a := allergies[0].(map[string]any); a["severity"] != "mild" {
		t.Errorf("expected default severity mild, got %v", a["severity"])
	}
	if _, ok := allergies[0].(map[string]any)[form.RowIDKey]; ok {
		t.Error("row ids must not reach the store")
	}
}
