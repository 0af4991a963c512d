package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patientId"`
	DoctorID    uuid.UUID `json:"doctorId"`
	ServiceType string    `json:"serviceType"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Duration    int       `json:"duration"`
	CouponCode  string    `json:"couponCode"`
	Fee         float64   `json:"fee"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

// window returns the start and end minute of the appointment within its day.
func (a *Appointment) window() (int, int, bool) {
	t, err := time.Parse("15:04", a.Time)
	if err != nil {
		return 0, 0, false
	}
	start := t.Hour()*60 + t.Minute()
	return start, start + a.Duration, true
}

// Overlaps reports whether a and b occupy the same doctor at the same time.
// Cancelled appointments never overlap.
func (a *Appointment) Overlaps(b *Appointment) bool {
	if a.ID == b.ID || a.DoctorID != b.DoctorID || a.Date != b.Date {
		return false
	}
	if a.Status == StatusCancelled || b.Status == StatusCancelled {
		return false
	}
	as, ae, ok1 := a.window()
	bs, be, ok2 := b.window()
	return ok1 && ok2 && as < be && bs < ae
}
