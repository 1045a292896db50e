package models

import (
	"time"

	"gorm.io/gorm"
)

// Company represents the user's shop profile used for job-card and invoice
// branding. Each user owns at most one company; jobs may reference it.
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this company profile
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Address string `gorm:"size:500" json:"address,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Email   string `gorm:"size:255" json:"email,omitempty"`

	// Branding
	LogoURL string `gorm:"size:500" json:"logo_url,omitempty"`

	// VAT configuration. When VATEnabled is false the rate and number are
	// kept but ignored by invoice total computation.
	VATEnabled bool    `gorm:"default:false" json:"vat_enabled"`
	VATRate    float64 `gorm:"type:decimal(5,2);default:0" json:"vat_rate"`
	VATNumber  string  `gorm:"size:50" json:"vat_number,omitempty"`
}

// GetUserID implements the Ownable interface.
func (c *Company) GetUserID() uint {
	return c.UserID
}
