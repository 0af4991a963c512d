package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/resource"
)

type Service struct {
	repo EntryRepository
}

func NewService(repo EntryRepository) *Service {
	return &Service{repo: repo}
}

func validate(e *Entry) error {
	if e.EmployeeID == uuid.Nil {
		return resource.Invalid("Employee is required")
	}
	start, err := time.Parse("2006-01-02", e.PeriodStart)
	if err != nil {
		return resource.Invalid("Period start must be a valid date")
	}
	end, err := time.Parse("2006-01-02", e.PeriodEnd)
	if err != nil {
		return resource.Invalid("Period end must be a valid date")
	}
	if end.Before(start) {
		return resource.Invalid("Period end cannot be before period start")
	}
	for _, v := range []float64{e.BaseSalary, e.Allowances, e.OvertimeHours, e.OvertimeRate, e.OtherDeductions} {
		if v < 0 {
			return resource.Invalid("Amounts cannot be negative")
		}
	}
	if e.TaxPercent < 0 || e.TaxPercent > 100 {
		return resource.Invalid("Tax must be between 0 and 100 percent")
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if !validStatuses[e.Status] {
		return resource.Invalid("Invalid status: %s", e.Status)
	}
	return nil
}

func recompute(e *Entry) {
	pay := derive.Payroll(e.BaseSalary, e.Allowances, e.OvertimeHours, e.OvertimeRate, e.TaxPercent, e.OtherDeductions)
	e.GrossPay, e.NetPay = pay.Gross, pay.Net
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	recompute(e)
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, e *Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if current.Status == StatusPaid {
		return resource.Invalid("Paid payroll cannot be changed")
	}
	recompute(e)
	return s.repo.Update(ctx, e)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, limit, offset)
}
