package staff

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/resource"
)

type Service struct {
	repo StaffRepository
}

func NewService(repo StaffRepository) *Service {
	return &Service{repo: repo}
}

func validate(s *Staff) error {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	if s.FirstName == "" {
		return resource.Invalid("First name is required")
	}
	if s.LastName == "" {
		return resource.Invalid("Last name is required")
	}
	if !validRoles[s.Role] {
		return resource.Invalid("Invalid role: %s", s.Role)
	}
	if s.BaseSalary < 0 {
		return resource.Invalid("Base salary cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, st *Staff) error {
	if err := validate(st); err != nil {
		return err
	}
	return s.repo.Create(ctx, st)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, st *Staff) error {
	if err := validate(st); err != nil {
		return err
	}
	return s.repo.Update(ctx, st)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.repo.List(ctx, limit, offset)
}
