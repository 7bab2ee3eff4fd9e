package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"uniqueIndex;not null;size:50" json:"username"`
	Password string `gorm:"column:password_hash;not null" json:"-"` // never serialized
	FullName string `gorm:"not null;size:100" json:"full_name"`
	IsAdmin  bool   `gorm:"default:false;not null" json:"is_admin"`

	// federated identity linkage, populated by an external provider integration
	OAuthProvider *string `gorm:"column:oauth_provider" json:"oauth_provider,omitempty"`
	OAuthID       *string `gorm:"column:oauth_id;uniqueIndex" json:"oauth_id,omitempty"`
	Email         *string `gorm:"uniqueIndex" json:"email,omitempty"`
	ProfileImage  *string `json:"profile_image,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// BeforeSave keeps usernames trimmed; uniqueness is enforced case-insensitively
// at the service layer.
func (user *User) BeforeSave(tx *gorm.DB) (err error) {
	user.Username = strings.TrimSpace(user.Username)
	return
}

func (User) TableName() string {
	return "users"
}
