package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/resource"
)

type Service struct {
	repo PatientRepository
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo}
}

func validate(p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return resource.Invalid("First and last name are required")
	}
	if p.Gender != "" && !validGenders[p.Gender] {
		return resource.Invalid("Invalid gender: %s", p.Gender)
	}
	if p.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", p.DateOfBirth)
		if err != nil {
			return resource.Invalid("Date of birth must be a valid date")
		}
		if dob.After(time.Now()) {
			return resource.Invalid("Date of birth cannot be in the future")
		}
	}
	for _, a := range p.Allergies {
		if strings.TrimSpace(a.Substance) == "" {
			return resource.Invalid("Allergy substance is required")
		}
		if !validSeverities[a.Severity] {
			return resource.Invalid("Invalid allergy severity: %s", a.Severity)
		}
	}
	for _, m := range p.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return resource.Invalid("Medication name is required")
		}
	}
	if !p.Consent {
		return resource.Invalid("Patient consent is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, strings.TrimSpace(query), limit, offset)
}
