package appointment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/resource"
)

// ErrSlotTaken is returned when the doctor already has an overlapping booking.
var ErrSlotTaken = &resource.Error{Status: http.StatusConflict, Message: "Doctor is already booked at that time"}

type Service struct {
	repo  AppointmentRepository
	hours Hours
}

func NewService(repo AppointmentRepository) *Service {
	return &Service{repo: repo, hours: DefaultHours}
}

func validate(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return resource.Invalid("Patient is required")
	}
	if a.DoctorID == uuid.Nil {
		return resource.Invalid("Doctor is required")
	}
	a.ServiceType = strings.TrimSpace(a.ServiceType)
	if a.ServiceType == "" {
		return resource.Invalid("Service type is required")
	}
	if _, err := time.Parse("2006-01-02", a.Date); err != nil {
		return resource.Invalid("Date must be a valid date")
	}
	if _, err := time.Parse("15:04", a.Time); err != nil {
		return resource.Invalid("Time must be a valid time (HH:MM)")
	}
	if a.Duration == 0 {
		a.Duration = 30
	}
	if a.Duration < 0 {
		return resource.Invalid("Duration must be positive")
	}
	if a.Fee < 0 {
		return resource.Invalid("Fee cannot be negative")
	}
	a.CouponCode = derive.NormalizeCode(a.CouponCode)
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return resource.Invalid("Invalid status: %s", a.Status)
	}
	return nil
}

// checkSlot rejects a booking overlapping another live booking of the doctor.
func (s *Service) checkSlot(ctx context.Context, a *Appointment) error {
	if a.Status == StatusCancelled {
		return nil
	}
	booked, err := s.repo.ListByDoctorDate(ctx, a.DoctorID, a.Date)
	if err != nil {
		return err
	}
	for _, b := range booked {
		if a.Overlaps(b) {
			return ErrSlotTaken
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	if err := s.checkSlot(ctx, a); err != nil {
		return err
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	if err := s.checkSlot(ctx, a); err != nil {
		return err
	}
	return s.repo.Update(ctx, a)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
