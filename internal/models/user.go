package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an authenticated shop account in the system.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	// PublicID is the stable opaque identifier exposed outside the service.
	// Its first four characters seed the job-card number prefix.
	PublicID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"public_id"`
	Email    string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name     string    `gorm:"size:255" json:"name,omitempty"`
	Password string    `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	// ProfileID links the user to an authorization profile.
	// A nil value means the user has no profile assigned (limited access).
	ProfileID *uint    `gorm:"index" json:"profile_id,omitempty"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// BeforeCreate assigns the public id when none was provided.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.PublicID == uuid.Nil {
		u.PublicID = uuid.New()
	}
	return nil
}

// NumberPrefix returns the four-character prefix used in job-card numbers.
func (u *User) NumberPrefix() string {
	return u.PublicID.String()[:4]
}
