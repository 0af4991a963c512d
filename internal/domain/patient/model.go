package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. Address, allergies and medications are
// stored as JSONB.
type Patient struct {
	ID          uuid.UUID    `json:"id"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	DateOfBirth string       `json:"dateOfBirth"`
	Gender      string       `json:"gender"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Address     Address      `json:"address"`
	BloodType   string       `json:"bloodType"`
	Allergies   []Allergy    `json:"allergies"`
	Medications []Medication `json:"medications"`
	Consent     bool         `json:"consent"`
	Notes       string       `json:"notes"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Allergy struct {
	Substance string `json:"substance"`
	Severity  string `json:"severity"`
}

type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

var (
	validGenders    = map[string]bool{"male": true, "female": true, "other": true}
	validSeverities = map[string]bool{"": true, "mild": true, "moderate": true, "severe": true}
)
