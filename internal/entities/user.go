package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"  // Manages the catalog, sees the dashboard
	UserRoleMember UserRole = "member" // Borrows and returns titles
)

type User struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	Username      string   `gorm:"uniqueIndex;size:64" json:"username"`
	Email         string   `gorm:"uniqueIndex;size:255" json:"email"`
	FullName      string   `gorm:"size:256" json:"fullName"`
	ContactNumber string   `gorm:"size:32" json:"contactNumber,omitempty"`
	Role          UserRole `gorm:"size:20;default:'member'" json:"role"`
	PasswordHash  string   `gorm:"size:255" json:"-"`

	// API token, only the SHA-256 hash is stored
	TokenHash      string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt *time.Time `json:"-"`

	FailedLoginCount int            `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user may manage the catalog.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
