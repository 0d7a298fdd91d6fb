package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account in the directory. Phone numbers are unique and are
// the lookup key for starting conversations with people outside the
// local contact list.
type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `gorm:"uniqueIndex;not null" json:"phone"`
	PasswordHash string `gorm:"not null" json:"-"`
	AvatarURL    string `json:"avatar_url"`

	IsOnline bool       `gorm:"-" json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
