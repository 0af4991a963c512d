package wizard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/practice/practice/internal/platform/form"
)

const wizardYAML = `
id: booking
resource: appointments
fields:
  - {key: patientId, label: Patient, kind: string, required: true}
  - {key: serviceType, label: Service, kind: string, required: true}
  - {key: date, label: Date, kind: date, required: true}
  - {key: notes, label: Notes, kind: string}
steps:
  - {id: patient, fields: [patientId]}
  - {id: service, fields: [serviceType]}
  - {id: schedule, fields: [date]}
  - {id: review, fields: [notes]}
`

func setup(t *testing.T, policy form.Navigation) (*form.Definition, *Controller, form.Snapshot) {
	t.Helper()
	def, err := form.LoadDefinition([]byte(wizardYAML))
	if err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}
	return def, New(def, policy), form.NewSnapshot(def, nil)
}

func TestNew_InitialState(t *testing.T) {
	_, c, _ := setup(t, "")
	want := State{Current: 0, Completed: []int{}, Total: 4}
	if diff := cmp.Diff(want, c.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if c.Policy() != form.NavigationSequential {
		t.Errorf("expected sequential policy from definition, got %q", c.Policy())
	}
}

func TestNext_GatesOnValidation(t *testing.T) {
	def, c, s := setup(t, "")

	res, ok := c.Next(s)
	if ok {
		t.Fatal("expected Next to fail with empty patient")
	}
	if c.Current() != 0 {
		t.Errorf("expected to stay on step 0, got %d", c.Current())
	}
	if res.Errors()["patientId"] != "Patient is required" {
		t.Errorf("unexpected errors %v", res.Errors())
	}

	_ = s.Set(def, "patientId", "p-1")
	if _, ok := c.Next(s); !ok {
		t.Fatal("expected Next to succeed")
	}
	if c.Current() != 1 || !c.Completed(0) {
		t.Errorf("expected step 1 with step 0 completed, got %+v", c.State())
	}
}

func TestNext_StaysOnLastStep(t *testing.T) {
	def, c, s := setup(t, form.NavigationFree)
	_ = s.Set(def, "patientId", "p-1")
	if err := c.JumpTo(3); err != nil {
		t.Fatalf("JumpTo: %v", err)
	}
	if _, ok := c.Next(s); !ok {
		t.Fatal("expected last step to validate")
	}
	if c.Current() != 3 || !c.Completed(3) {
		t.Errorf("expected to remain on last step and mark it, got %+v", c.State())
	}
}

func TestPrevious(t *testing.T) {
	def, c, s := setup(t, "")
	c.Previous()
	if c.Current() != 0 {
		t.Errorf("expected no-op at step 0, got %d", c.Current())
	}
	_ = s.Set(def, "patientId", "p-1")
	c.Next(s)
	c.Previous()
	if c.Current() != 0 {
		t.Errorf("expected step 0, got %d", c.Current())
	}
	if !c.Completed(0) {
		t.Error("expected completed steps to be kept when going back")
	}
}

func TestJumpTo_Sequential(t *testing.T) {
	def, c, s := setup(t, "")

	if err := c.JumpTo(2); !errors.Is(err, ErrStepLocked) {
		t.Errorf("expected ErrStepLocked, got %v", err)
	}
	if err := c.JumpTo(4); !errors.Is(err, ErrStepOutOfRange) {
		t.Errorf("expected ErrStepOutOfRange, got %v", err)
	}
	if err := c.JumpTo(-1); !errors.Is(err, ErrStepOutOfRange) {
		t.Errorf("expected ErrStepOutOfRange, got %v", err)
	}

	_ = s.Set(def, "patientId", "p-1")
	c.Next(s)
	if !c.CanJump(1) {
		t.Error("expected step 1 reachable after completing step 0")
	}
	if c.CanJump(2) {
		t.Error("expected step 2 locked while step 1 is incomplete")
	}
	if err := c.JumpTo(0); err != nil {
		t.Errorf("expected jump back to be allowed, got %v", err)
	}
	if err := c.JumpTo(1); err != nil {
		t.Errorf("expected jump forward over completed steps, got %v", err)
	}
}

func TestJumpTo_Free(t *testing.T) {
	_, c, _ := setup(t, form.NavigationFree)
	if err := c.JumpTo(3); err != nil {
		t.Fatalf("expected free jump, got %v", err)
	}
	if c.Current() != 3 {
		t.Errorf("expected step 3, got %d", c.Current())
	}
	if c.Completed(0) {
		t.Error("jumping must not complete skipped steps")
	}
}

func TestValidateAll_MovesToFirstFailingStep(t *testing.T) {
	def, c, s := setup(t, form.NavigationFree)
	_ = s.Set(def, "patientId", "p-1")
	_ = s.Set(def, "serviceType", "consultation")
	_ = c.JumpTo(3)

	res, first := c.ValidateAll(s)
	if first != 2 {
		t.Fatalf("expected first failing step 2, got %d", first)
	}
	if c.Current() != 2 {
		t.Errorf("expected controller on step 2, got %d", c.Current())
	}
	if res.Valid() {
		t.Error("expected invalid results")
	}

	_ = s.Set(def, "date", "2026-05-01")
	if _, first := c.ValidateAll(s); first != -1 {
		t.Errorf("expected all steps valid, got first failing %d", first)
	}
}

func TestEndToEnd_FourStepWizard(t *testing.T) {
	def, c, s := setup(t, "")

	_ = s.Set(def, "patientId", "p-1")
	if _, ok := c.Next(s); !ok || c.Current() != 1 || !c.Completed(0) {
		t.Fatalf("expected step 1 with step 0 completed, got %+v", c.State())
	}
	res, ok := c.Next(s)
	if ok || c.Current() != 1 {
		t.Fatalf("expected to remain on step 1, got %+v", c.State())
	}
	if res.Errors()["serviceType"] != "Service is required" {
		t.Errorf("expected required error, got %v", res.Errors())
	}
	_ = s.Set(def, "serviceType", "consultation")
	c.Next(s)
	_ = s.Set(def, "date", "2026-05-01")
	c.Next(s)
	if !c.IsLast() {
		t.Fatalf("expected last step, got %+v", c.State())
	}
	if _, first := c.ValidateAll(s); first != -1 {
		t.Errorf("expected submit validation to pass, got step %d", first)
	}
	c.Reset()
	if diff := cmp.Diff(State{Current: 0, Completed: []int{}, Total: 4}, c.State()); diff != "" {
		t.Errorf("reset mismatch (-want +got):\n%s", diff)
	}
}
