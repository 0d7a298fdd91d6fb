package models

import "time"

// Conversation types.
const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

// Conversation is a de-duplicated channel between the current user and
// a counterpart. Private conversations are keyed by their participant
// set, group conversations by GroupID; display names never identify a
// conversation.
type Conversation struct {
	ID           string   `gorm:"primaryKey" json:"id"`
	Type         string   `gorm:"not null" json:"type"`
	Participants []string `gorm:"serializer:json" json:"participants,omitempty"`
	GroupID      string   `gorm:"index" json:"group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return contains(c.Participants, userID)
}

// EnrichedConversation is the view-model projection handed to the UI.
// The display fields are merged in from the associated contact, group
// or user at resolution time and are never persisted.
type EnrichedConversation struct {
	Conversation

	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Description string     `json:"description,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	IsOnline    bool       `json:"is_online"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`

	Contact *Contact `json:"contact,omitempty"`
	Group   *Group   `json:"group,omitempty"`
	User    *User    `json:"user,omitempty"`
}
