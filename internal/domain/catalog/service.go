package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/resource"
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

type Service struct {
	repo ItemRepository
}

func NewService(repo ItemRepository) *Service {
	return &Service{repo: repo}
}

func validate(it *Item) error {
	it.Code = strings.ToLower(strings.TrimSpace(it.Code))
	it.Name = strings.TrimSpace(it.Name)
	if !codePattern.MatchString(it.Code) {
		return resource.Invalid("Service code must be lowercase letters, digits or dashes")
	}
	if it.Name == "" {
		return resource.Invalid("Service name is required")
	}
	if it.Price < 0 {
		return resource.Invalid("Price cannot be negative")
	}
	if it.DurationMinutes < 0 {
		return resource.Invalid("Duration cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, it *Item) error {
	if err := validate(it); err != nil {
		return err
	}
	return s.repo.Create(ctx, it)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, it *Item) error {
	if err := validate(it); err != nil {
		return err
	}
	return s.repo.Update(ctx, it)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return s.repo.List(ctx, limit, offset)
}
