package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practice/practice/internal/platform/resource"
)

// Hours are the bookable hours of a day, offered in Step-minute increments.
type Hours struct {
	Open  string
	Close string
	Step  int
}

// DefaultHours is a 09:00-17:00 day in half-hour steps.
var DefaultHours = Hours{Open: "09:00", Close: "17:00", Step: 30}

// Slot is a start time at which a doctor is free for the requested duration.
type Slot struct {
	Time string `json:"time"`
	End  string `json:"end"`
}

// SetHours replaces the bookable hours.
func (s *Service) SetHours(h Hours) { s.hours = h }

// Availability returns the free start times of doctorID on date for a booking
// of duration minutes, earliest first.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date string, duration int) ([]Slot, error) {
	if doctorID == uuid.Nil {
		return nil, resource.Invalid("Doctor is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, resource.Invalid("Date must be a valid date")
	}
	if duration <= 0 {
		duration = 30
	}
	open, err := minuteOfDay(s.hours.Open)
	if err != nil {
		return nil, err
	}
	closing, err := minuteOfDay(s.hours.Close)
	if err != nil {
		return nil, err
	}
	step := s.hours.Step
	if step <= 0 {
		step = 30
	}

	booked, err := s.repo.ListByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	slots := []Slot{}
	for start := open; start+duration <= closing; start += step {
		candidate := &Appointment{DoctorID: doctorID, Date: date, Time: clock(start), Duration: duration}
		free := true
		for _, b := range booked {
			if candidate.Overlaps(b) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{Time: candidate.Time, End: clock(start + duration)})
		}
	}
	return slots, nil
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid clinic hours %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
