package payroll

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the pay of one employee for one period.
type Entry struct {
	ID              uuid.UUID `json:"id"`
	EmployeeID      uuid.UUID `json:"employeeId"`
	PeriodStart     string    `json:"periodStart"`
	PeriodEnd       string    `json:"periodEnd"`
	BaseSalary      float64   `json:"baseSalary"`
	Allowances      float64   `json:"allowances"`
	OvertimeHours   float64   `json:"overtimeHours"`
	OvertimeRate    float64   `json:"overtimeRate"`
	GrossPay        float64   `json:"grossPay"`
	TaxPercent      float64   `json:"taxPercent"`
	OtherDeductions float64   `json:"otherDeductions"`
	NetPay          float64   `json:"netPay"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusPaid     = "paid"
)

var validStatuses = map[string]bool{StatusPending: true, StatusApproved: true, StatusPaid: true}
