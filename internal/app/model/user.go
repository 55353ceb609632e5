package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser      UserRole = "user"      // regular user
	RoleModerator UserRole = "moderator" // can moderate photos and venues
	RoleAdmin     UserRole = "admin"     // full access
)

// IsPrivileged reports whether the role bypasses content moderation.
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleModerator
}

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	ProfileImage string         `json:"profile_image"`
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
