package invoice

import (
	"time"

	"github.com/google/uuid"
)

type Invoice struct {
	ID             uuid.UUID  `json:"id"`
	Number         string     `json:"invoiceNumber"`
	PatientID      uuid.UUID  `json:"patientId"`
	InvoiceDate    string     `json:"invoiceDate"`
	DueDate        string     `json:"dueDate"`
	Items          []LineItem `json:"items"`
	DiscountAmount float64    `json:"discountAmount"`
	TaxRate        float64    `json:"taxRate"`
	Subtotal       float64    `json:"subtotal"`
	TaxAmount      float64    `json:"taxAmount"`
	Total          float64    `json:"total"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type LineItem struct {
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	LineTotal       float64 `json:"lineTotal"`
}

const (
	StatusDraft  = "draft"
	StatusIssued = "issued"
	StatusPaid   = "paid"
	StatusVoid   = "void"
)

var validStatuses = map[string]bool{StatusDraft: true, StatusIssued: true, StatusPaid: true, StatusVoid: true}
