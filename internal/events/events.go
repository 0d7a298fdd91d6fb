package events

import "github.com/dembasy/jokko/internal/models"

// Type names every event the session core can publish. The set is
// closed: subscribers switch on Type and payloads are the structs
// below, never loose maps.
type Type string

const (
	GroupsLoaded         Type = "groups:loaded"
	GroupCreated         Type = "group:created"
	GroupUpdated         Type = "group:updated"
	GroupMembersAdded    Type = "group:membersAdded"
	GroupMembersRemoved  Type = "group:membersRemoved"
	GroupAdminPromoted   Type = "group:adminPromoted"
	GroupAdminDemoted    Type = "group:adminDemoted"
	GroupLeft            Type = "group:left"
	GroupDeleted         Type = "group:deleted"
	ConversationSelected Type = "conversation:selected"

	ContactsLoaded         Type = "contacts:loaded"
	ContactAdded           Type = "contact:added"
	ContactBlocked         Type = "contact:blocked"
	ContactUnblocked       Type = "contact:unblocked"
	ContactDeleted         Type = "contact:deleted"
	ContactFavoriteToggled Type = "contact:favoriteToggled"

	PresenceChanged Type = "presence:changed"
)

// Event pairs a type with its payload.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// MembersAddedPayload carries enough state for observers to update
// derived views without re-fetching the group.
type MembersAddedPayload struct {
	GroupID    string   `json:"group_id"`
	NewMembers []string `json:"new_members"`
}

// MembersRemovedPayload mirrors MembersAddedPayload for removals.
type MembersRemovedPayload struct {
	GroupID        string   `json:"group_id"`
	RemovedMembers []string `json:"removed_members"`
}

// AdminPromotedPayload identifies a member granted admin rights.
type AdminPromotedPayload struct {
	GroupID  string `json:"group_id"`
	MemberID string `json:"member_id"`
}

// AdminDemotedPayload identifies an admin stripped of admin rights.
type AdminDemotedPayload struct {
	GroupID string `json:"group_id"`
	AdminID string `json:"admin_id"`
}

// PresencePayload reports a user's online transition.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// NewGroupCreated wraps a created group.
func NewGroupCreated(g *models.Group) Event {
	return Event{Type: GroupCreated, Payload: g}
}

// NewGroupUpdated wraps an updated group.
func NewGroupUpdated(g *models.Group) Event {
	return Event{Type: GroupUpdated, Payload: g}
}

// NewConversationSelected wraps the enriched projection of a resolved
// conversation.
func NewConversationSelected(c *models.EnrichedConversation) Event {
	return Event{Type: ConversationSelected, Payload: c}
}
