package contact

import (
	"time"

	"gorm.io/gorm"
)

// Contact represents a single address-book entry owned by a user.
type Contact struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"index;not null;size:36" json:"user_id"`
	FirstName   string         `gorm:"size:100;not null" json:"first_name"`
	LastName    string         `gorm:"size:100;not null" json:"last_name"`
	Email       string         `gorm:"size:250" json:"email"`
	PhoneNumber string         `gorm:"size:50" json:"phone_number"`
	BirthDate   time.Time      `json:"birth_date"`
	Notes       string         `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for the Contact entity.
func (Contact) TableName() string {
	return "contacts"
}
