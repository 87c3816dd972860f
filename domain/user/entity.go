package user

import (
	"time"
)

// User represents a registered account in the system.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"size:50;not null"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	AvatarURL    string `gorm:"size:255"`
	RefreshToken string `gorm:"type:text"`
	Confirmed    bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims represents the identity extracted from a validated access token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
