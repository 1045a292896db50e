package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the canonical lifecycle state of a job card.
type JobStatus string

const (
	JobStatusInProgress      JobStatus = "In Progress"
	JobStatusCompleted       JobStatus = "Completed"
	JobStatusWaitingForParts JobStatus = "Waiting for Parts"
)

// Job represents a repair ticket (job card).
// Customer and device attributes are flattened into columns; the jobs
// package maps them to and from the nested domain shape.
// Implements the Ownable interface for ownership-based authorization.
type Job struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this job (for multi-tenant isolation)
	UserID uint `gorm:"uniqueIndex:idx_jobs_user_number,priority:1;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// JobCardNumber is the human-readable identifier, unique per owner and
	// allocated in strictly increasing order at creation time.
	JobCardNumber string `gorm:"size:20;not null;uniqueIndex:idx_jobs_user_number,priority:2" json:"job_card_number"`

	// Customer
	CustomerName  string  `gorm:"size:50;not null" json:"customer_name"`
	CustomerPhone string  `gorm:"size:30;not null" json:"customer_phone"`
	CustomerEmail *string `gorm:"size:100" json:"customer_email,omitempty"`

	// Device
	DeviceName      string `gorm:"size:50" json:"device_name"`
	DeviceModel     string `gorm:"size:50" json:"device_model"`
	DeviceCondition string `gorm:"type:text" json:"device_condition"`

	// Details
	Problem      string    `gorm:"size:500" json:"problem"`
	Status       JobStatus `gorm:"size:30;default:'In Progress'" json:"status"`
	HandlingFees float64   `gorm:"type:decimal(10,2);default:0" json:"handling_fees"`

	// Optional company association used for document branding.
	CompanyID *uint    `gorm:"index" json:"company_id,omitempty"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (j *Job) GetUserID() uint {
	return j.UserID
}

// BeforeCreate assigns the row id when none was provided.
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// IsOpen returns true while the job still needs work.
func (j *Job) IsOpen() bool {
	return j.Status != JobStatusCompleted
}

// JobCounter holds the per-user allocation state for job-card numbers.
// It is mutated only through the sequence allocator's atomic increment;
// nothing else reads or writes it.
type JobCounter struct {
	UserID     uint `gorm:"primaryKey" json:"user_id"`
	LastNumber int  `gorm:"not null;default:0" json:"last_number"`
}
