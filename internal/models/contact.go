package models

import "time"

// Contact links a user-chosen display name and phone number to a
// remote user identity. One contact maps to at most one user.
type Contact struct {
	ID            string `gorm:"primaryKey" json:"id"`
	OwnerID       string `gorm:"not null;uniqueIndex:idx_owner_contact_user" json:"owner_id"`
	ContactUserID string `gorm:"not null;uniqueIndex:idx_owner_contact_user" json:"contact_user_id"`
	Name          string `gorm:"not null" json:"name"`
	Phone         string `json:"phone"`
	IsFavorite    bool   `gorm:"default:false" json:"is_favorite"`
	IsBlocked     bool   `gorm:"default:false" json:"is_blocked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// User carries the linked account when loaded with contact data.
	// Not persisted as part of the contact row.
	User *User `gorm:"-" json:"user,omitempty"`
}

func (Contact) TableName() string {
	return "contacts"
}
