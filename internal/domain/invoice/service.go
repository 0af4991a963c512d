package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/resource"
)

type Service struct {
	repo InvoiceRepository
}

func NewService(repo InvoiceRepository) *Service {
	return &Service{repo: repo}
}

// NextNumber formats an invoice number from the invoice date and id.
func NextNumber(date time.Time, id uuid.UUID) string {
	return fmt.Sprintf("INV-%s-%s", date.Format("20060102"), strings.ToUpper(id.String()[:6]))
}

func validate(inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return resource.Invalid("Patient is required")
	}
	issued, err := time.Parse("2006-01-02", inv.InvoiceDate)
	if err != nil {
		return resource.Invalid("Invoice date must be a valid date")
	}
	due, err := time.Parse("2006-01-02", inv.DueDate)
	if err != nil {
		return resource.Invalid("Due date must be a valid date")
	}
	if due.Before(issued) {
		return resource.Invalid("Due date cannot be before the invoice date")
	}
	if len(inv.Items) == 0 {
		return resource.Invalid("At least one line item is required")
	}
	for _, it := range inv.Items {
		if strings.TrimSpace(it.Description) == "" {
			return resource.Invalid("Every line item needs a description")
		}
		if it.Quantity <= 0 {
			return resource.Invalid("Quantity must be greater than zero")
		}
		if it.UnitPrice < 0 {
			return resource.Invalid("Unit price cannot be negative")
		}
	}
	if inv.DiscountAmount < 0 {
		return resource.Invalid("Discount cannot be negative")
	}
	if inv.TaxRate < 0 || inv.TaxRate > 100 {
		return resource.Invalid("Tax rate must be between 0 and 100")
	}
	if inv.Status == "" {
		inv.Status = StatusDraft
	}
	if !validStatuses[inv.Status] {
		return resource.Invalid("Invalid status: %s", inv.Status)
	}
	return nil
}

// recompute derives line totals and invoice totals from the line inputs.
func recompute(inv *Invoice) {
	lines := make([]float64, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		it.DiscountPercent = form.ClampPercent(it.DiscountPercent)
		it.LineTotal = derive.LineTotal(it.Quantity, it.UnitPrice, it.DiscountPercent)
		lines[i] = it.LineTotal
	}
	t := derive.InvoiceTotals(lines, inv.DiscountAmount, inv.TaxRate)
	inv.Subtotal, inv.TaxAmount, inv.Total = t.Subtotal, t.TaxAmount, t.Total
}

func (s *Service) Create(ctx context.Context, inv *Invoice) error {
	if err := validate(inv); err != nil {
		return err
	}
	recompute(inv)
	if inv.Total < 0 {
		return resource.Invalid("Discount cannot exceed the subtotal")
	}
	if inv.Number == "" {
		issued, _ := time.Parse("2006-01-02", inv.InvoiceDate)
		inv.Number = NextNumber(issued, uuid.New())
	}
	return s.repo.Create(ctx, inv)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, inv *Invoice) error {
	if err := validate(inv); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, inv.ID)
	if err != nil {
		return err
	}
	if current.Status == StatusVoid {
		return resource.Invalid("A void invoice cannot be changed")
	}
	recompute(inv)
	if inv.Total < 0 {
		return resource.Invalid("Discount cannot exceed the subtotal")
	}
	if inv.Number == "" {
		inv.Number = current.Number
	}
	return s.repo.Update(ctx, inv)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.List(ctx, limit, offset)
}
