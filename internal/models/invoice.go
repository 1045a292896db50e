package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus values are free text on the wire; these are the ones the
// dashboard groups on.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "Draft"
	InvoiceStatusSent    InvoiceStatus = "Sent"
	InvoiceStatusPaid    InvoiceStatus = "Paid"
	InvoiceStatusOverdue InvoiceStatus = "Overdue"
)

// LineItem is a billable line on an invoice. Amount is always recomputed
// from quantity and unit price, never trusted from input.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// TaxEntry is a computed tax line (e.g. VAT) on an invoice.
type TaxEntry struct {
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"` // percent, e.g. 15 for 15%
	Amount float64 `json:"amount"`
}

// InvoiceDocument is the rich document body stored in the invoice_data
// column. Totals are derived fields; the invoices service recomputes them
// whenever line items or the owning company's VAT settings change.
type InvoiceDocument struct {
	LineItems []LineItem    `json:"line_items"`
	Taxes     []TaxEntry    `json:"taxes"`
	Subtotal  float64       `json:"subtotal"`
	TaxTotal  float64       `json:"tax_total"`
	Total     float64       `json:"total"`
	Notes     string        `json:"notes,omitempty"`
	Terms     string        `json:"terms,omitempty"`
	Status    InvoiceStatus `json:"status"`
	IssueDate time.Time     `json:"issue_date"`
	DueDate   time.Time     `json:"due_date"`
}

// Invoice is a billing document derived from a job card.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	JobID uuid.UUID `gorm:"type:uuid;index;not null" json:"job_id"`
	Job   *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`

	InvoiceNumber   string  `gorm:"size:50;uniqueIndex" json:"invoice_number"`
	BillDescription string  `gorm:"size:500" json:"bill_description,omitempty"`
	BillAmount      float64 `gorm:"type:decimal(10,2);default:0" json:"bill_amount"`
	Total           float64 `gorm:"type:decimal(10,2);default:0" json:"total"`

	// Data holds the full document body as JSON.
	Data InvoiceDocument `gorm:"serializer:json" json:"invoice_data"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// Subtotal returns the sum of line amounts from the document body.
func (i *Invoice) Subtotal() float64 {
	return i.Data.Subtotal
}

// IsPaid returns true once the invoice has been settled.
func (i *Invoice) IsPaid() bool {
	return i.Data.Status == InvoiceStatusPaid
}
