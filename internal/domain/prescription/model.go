package prescription

import (
	"time"

	"github.com/google/uuid"
)

type Prescription struct {
	ID             uuid.UUID    `json:"id"`
	PatientID      uuid.UUID    `json:"patientId"`
	DoctorID       uuid.UUID    `json:"doctorId"`
	Diagnosis      string       `json:"diagnosis"`
	EffectiveDate  string       `json:"effectiveDate"`
	ExpirationDate string       `json:"expirationDate"`
	Medications    []Medication `json:"medications"`
	Status         string       `json:"status"`
	Notes          string       `json:"notes"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Medication is one prescribed drug.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"durationDays"`
}

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{StatusActive: true, StatusCompleted: true, StatusCancelled: true}
