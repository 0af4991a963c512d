package staff

import (
	"time"

	"github.com/google/uuid"
)

// Staff maps to the staff table. Doctors are staff with RoleDoctor.
type Staff struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Role       string    `json:"role"`
	Specialty  string    `json:"specialty,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	BaseSalary float64   `json:"baseSalary"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

const (
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RoleAccountant   = "accountant"
	RoleAdmin        = "admin"
)

var validRoles = map[string]bool{
	RoleDoctor: true, RoleNurse: true, RoleReceptionist: true, RoleAccountant: true, RoleAdmin: true,
}

// FullName returns "First Last".
func (s *Staff) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
