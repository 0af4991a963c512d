package prescription

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/resource"
)

type mockPrescriptionRepo struct {
	store map[uuid.UUID]*Prescription
}

func newMockPrescriptionRepo() *mockPrescriptionRepo {
	return &mockPrescriptionRepo{store: make(map[uuid.UUID]*Prescription)}
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	m.store[p.ID] = p
	return nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return p, nil
}

func (m *mockPrescriptionRepo) Update(_ context.Context, p *Prescription) error {
	if _, ok := m.store[p.ID]; !ok {
		return resource.ErrNotFound
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockPrescriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockPrescriptionRepo) List(_ context.Context, limit, offset int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.store {
		out = append(out, p)
	}
	return out, len(out), nil
}

func validPrescription() *Prescription {
	return &Prescription{
		PatientID:      uuid.New(),
		DoctorID:       uuid.New(),
		Diagnosis:      "Acute sinusitis",
		EffectiveDate:  "2026-10-01",
		ExpirationDate: "2026-10-15",
		Medications:    []Medication{{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", DurationDays: 10}},
	}
}

func TestCreatePrescription(t *testing.T) {
	svc := NewService(newMockPrescriptionRepo())
	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusActive {
		t.Errorf("expected default status active, got %s", p.Status)
	}
}

func TestCreatePrescription_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Prescription)
		msg    string
	}{
		{"patient", func(p *Prescription) { p.PatientID = uuid.Nil }, "Patient is required"},
		{"doctor", func(p *Prescription) { p.DoctorID = uuid.Nil }, "Prescriber is required"},
		{"diagnosis", func(p *Prescription) { p.Diagnosis = "  " }, "Diagnosis is required"},
		{"same day", func(p *Prescription) { p.ExpirationDate = p.EffectiveDate }, "Expiration date must be after the effective date"},
		{"before", func(p *Prescription) { p.ExpirationDate = "2026-09-30" }, "Expiration date must be after the effective date"},
		{"no medications", func(p *Prescription) { p.Medications = nil }, "At least one medication is required"},
		{"no dosage", func(p *Prescription) { p.Medications[0].Dosage = "" }, "Every medication needs a name and dosage"},
		{"status", func(p *Prescription) { p.Status = "paused" }, "Invalid status: paused"},
	}
	svc := NewService(newMockPrescriptionRepo())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPrescription()
			tt.mutate(p)
			err := svc.Create(context.Background(), p)
			var re *resource.Error
			if !errors.As(err, &re) || re.Message != tt.msg {
				t.Errorf("expected %q, got %v", tt.msg, err)
			}
		})
	}
}
