package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupSettings controls which operations are restricted to admins.
type GroupSettings struct {
	OnlyAdminsCanMessage    bool `json:"only_admins_can_message"`
	OnlyAdminsCanEditInfo   bool `json:"only_admins_can_edit_info"`
	OnlyAdminsCanAddMembers bool `json:"only_admins_can_add_members"`
}

// DefaultGroupSettings is applied to every newly created group.
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		OnlyAdminsCanMessage:    false,
		OnlyAdminsCanEditInfo:   true,
		OnlyAdminsCanAddMembers: true,
	}
}

// Group is a named multi-member conversation entity. Members and admins
// are stored as ordered sets of user IDs; admins must always be a
// non-empty subset of members while the group is active.
type Group struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`

	Members []string `gorm:"serializer:json" json:"members"`
	Admins  []string `gorm:"serializer:json" json:"admins"`

	// CreatedBy is immutable after creation. The creator holds exclusive
	// delete rights and can never be demoted.
	CreatedBy string        `gorm:"not null" json:"created_by"`
	Settings  GroupSettings `gorm:"serializer:json" json:"settings"`

	IsDeleted bool       `gorm:"default:false" json:"is_deleted"`
	DeletedBy string     `json:"deleted_by,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Group) TableName() string {
	return "groups"
}

// NewID allocates a collision-safe identifier for any domain entity.
func NewID() string {
	return uuid.NewString()
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return contains(g.Members, userID)
}

// HasAdmin reports whether userID is an admin of the group.
func (g *Group) HasAdmin(userID string) bool {
	return contains(g.Admins, userID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
