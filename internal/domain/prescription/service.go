package prescription

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/resource"
)

type Service struct {
	repo PrescriptionRepository
}

func NewService(repo PrescriptionRepository) *Service {
	return &Service{repo: repo}
}

func validate(p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return resource.Invalid("Patient is required")
	}
	if p.DoctorID == uuid.Nil {
		return resource.Invalid("Prescriber is required")
	}
	p.Diagnosis = strings.TrimSpace(p.Diagnosis)
	if p.Diagnosis == "" {
		return resource.Invalid("Diagnosis is required")
	}
	from, err := time.Parse("2006-01-02", p.EffectiveDate)
	if err != nil {
		return resource.Invalid("Effective date must be a valid date")
	}
	until, err := time.Parse("2006-01-02", p.ExpirationDate)
	if err != nil {
		return resource.Invalid("Expiration date must be a valid date")
	}
	if !until.After(from) {
		return resource.Invalid("Expiration date must be after the effective date")
	}
	if len(p.Medications) == 0 {
		return resource.Invalid("At least one medication is required")
	}
	for _, m := range p.Medications {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" {
			return resource.Invalid("Every medication needs a name and dosage")
		}
		if m.DurationDays < 0 {
			return resource.Invalid("Medication duration cannot be negative")
		}
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !validStatuses[p.Status] {
		return resource.Invalid("Invalid status: %s", p.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, limit, offset)
}
