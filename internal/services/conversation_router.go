package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/pkg/bloom"
	"github.com/dembasy/jokko/pkg/logger"
)

// ConversationRouter maps a chat intent (contact, group or raw phone
// number) to a single de-duplicated conversation, merges in display
// metadata and publishes the selection. Lookup is always by stable
// identity, never by display name, so at most one conversation exists
// per counterpart. Conversation creation is the last step of every
// path and is never retried.
type ConversationRouter struct {
	store    ConversationStore
	contacts *ContactManager
	groups   *GroupManager
	users    UserDirectory
	presence PresenceReader
	identity Identity
	confirm  Confirmer
	bus      *events.Bus
	log      *logger.Logger

	// phones is a negative cache over the registered phone directory:
	// a miss proves the number is unknown without a store round-trip.
	// Optional; nil disables the shortcut.
	phones *bloom.Filter
}

func NewConversationRouter(
	store ConversationStore,
	contacts *ContactManager,
	groups *GroupManager,
	users UserDirectory,
	presence PresenceReader,
	identity Identity,
	confirm Confirmer,
	bus *events.Bus,
	log *logger.Logger,
) *ConversationRouter {
	if confirm == nil {
		confirm = DeclineAll
	}
	return &ConversationRouter{
		store:    store,
		contacts: contacts,
		groups:   groups,
		users:    users,
		presence: presence,
		identity: identity,
		confirm:  confirm,
		bus:      bus,
		log:      log,
	}
}

// SetPhoneFilter installs the phone directory filter.
func (r *ConversationRouter) SetPhoneFilter(f *bloom.Filter) {
	r.phones = f
}

// StartWithContact resolves or creates the private conversation with
// the contact's linked user and publishes the selection.
func (r *ConversationRouter) StartWithContact(ctx context.Context, contactID string) (*models.EnrichedConversation, error) {
	contact := r.contacts.ContactByID(contactID)
	if contact == nil {
		return nil, apperrors.NotFound("contact %s", contactID)
	}

	conversation, err := r.resolvePrivate(ctx, contact.ContactUserID)
	if err != nil {
		r.log.Error("failed to start conversation with contact",
			zap.String("contact_id", contactID), zap.Error(err))
		return nil, err
	}

	enriched := &models.EnrichedConversation{
		Conversation: *conversation,
		Name:         contact.Name,
		Phone:        contact.Phone,
		Contact:      contact,
	}
	if contact.User != nil {
		enriched.AvatarURL = contact.User.AvatarURL
		enriched.LastSeen = contact.User.LastSeen
	}
	r.attachPresence(ctx, enriched, contact.ContactUserID)

	r.bus.Publish(events.NewConversationSelected(enriched))
	return enriched, nil
}

// StartWithGroup resolves or creates the conversation for a group the
// caller belongs to and publishes the selection. The membership check
// runs before any store call.
func (r *ConversationRouter) StartWithGroup(ctx context.Context, groupID string) (*models.EnrichedConversation, error) {
	group, ok := r.groups.GroupByID(groupID)
	if !ok {
		return nil, apperrors.NotFound("group %s", groupID)
	}

	me := r.identity.CurrentUser().ID
	// Only member groups get cached, but a cached roster can go stale
	// between refreshes when another admin removes the user.
	if !group.HasMember(me) {
		return nil, apperrors.Permission("you are not a member of this group")
	}

	conversation, err := r.findOrCreate(ctx,
		func(c *models.Conversation) bool {
			return c.Type == models.ConversationGroup && c.GroupID == groupID
		},
		&models.Conversation{
			ID:      models.NewID(),
			Type:    models.ConversationGroup,
			GroupID: groupID,
		},
	)
	if err != nil {
		r.log.Error("failed to start group conversation",
			zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	enriched := &models.EnrichedConversation{
		Conversation: *conversation,
		Name:         group.Name,
		AvatarURL:    group.AvatarURL,
		Description:  group.Description,
		Group:        &group,
	}

	r.bus.Publish(events.NewConversationSelected(enriched))
	return enriched, nil
}

// StartWithPhone resolves a user by exact phone match and routes to the
// right conversation. When the user is already a contact this delegates
// to StartWithContact; otherwise the caller is offered to add them
// first, and on decline (or add failure) a direct private conversation
// is created against the bare user id.
func (r *ConversationRouter) StartWithPhone(ctx context.Context, phone string) (*models.EnrichedConversation, error) {
	phone = NormalizePhone(phone)
	if r.phones != nil && !r.phones.TestString(phone) {
		return nil, apperrors.NotFound("no user with phone %s", phone)
	}

	user, err := r.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	if existing := r.contacts.ContactByUserID(user.ID); existing != nil {
		return r.StartWithContact(ctx, existing.ID)
	}

	prompt := fmt.Sprintf("%s (%s) is not in your contacts. Add them before starting the conversation?",
		user.FullName(), phone)
	accepted, err := r.confirm(ctx, prompt)
	if err != nil {
		r.log.Warn("confirmation prompt failed, continuing without contact", zap.Error(err))
	}
	if accepted {
		contact, err := r.contacts.AddContact(ctx, user.FullName(), user.Phone)
		if err == nil {
			return r.StartWithContact(ctx, contact.ID)
		}
		// Adding the contact is best-effort; fall through to a direct
		// conversation against the resolved user.
		r.log.Warn("failed to add contact, starting direct conversation",
			zap.String("phone", phone), zap.Error(err))
	}

	conversation, err := r.resolvePrivate(ctx, user.ID)
	if err != nil {
		r.log.Error("failed to start conversation by phone", zap.Error(err))
		return nil, err
	}

	enriched := &models.EnrichedConversation{
		Conversation: *conversation,
		Name:         user.FullName(),
		AvatarURL:    user.AvatarURL,
		Phone:        user.Phone,
		LastSeen:     user.LastSeen,
		User:         user,
	}
	r.attachPresence(ctx, enriched, user.ID)

	r.bus.Publish(events.NewConversationSelected(enriched))
	return enriched, nil
}

// Conversations lists the caller's conversations, private and group.
func (r *ConversationRouter) Conversations(ctx context.Context) ([]models.Conversation, error) {
	me := r.identity.CurrentUser().ID
	out, err := r.store.ListForUser(ctx, me, r.groups.GroupIDs())
	if err != nil {
		return nil, ensureRemote(err, "list conversations")
	}
	return out, nil
}

// resolvePrivate finds the existing private conversation with userID or
// creates one.
func (r *ConversationRouter) resolvePrivate(ctx context.Context, userID string) (*models.Conversation, error) {
	me := r.identity.CurrentUser().ID
	return r.findOrCreate(ctx,
		func(c *models.Conversation) bool {
			return c.Type == models.ConversationPrivate && c.HasParticipant(userID)
		},
		&models.Conversation{
			ID:           models.NewID(),
			Type:         models.ConversationPrivate,
			Participants: []string{me, userID},
		},
	)
}

func (r *ConversationRouter) findOrCreate(ctx context.Context, match func(*models.Conversation) bool, fresh *models.Conversation) (*models.Conversation, error) {
	me := r.identity.CurrentUser().ID

	existing, err := r.store.ListForUser(ctx, me, r.groups.GroupIDs())
	if err != nil {
		return nil, ensureRemote(err, "list conversations")
	}
	for i := range existing {
		if match(&existing[i]) {
			return &existing[i], nil
		}
	}

	if err := ensureRemote(r.store.Create(ctx, fresh), "create conversation"); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *ConversationRouter) attachPresence(ctx context.Context, c *models.EnrichedConversation, userID string) {
	if r.presence == nil {
		return
	}
	online, err := r.presence.IsOnline(ctx, userID)
	if err != nil {
		r.log.Warn("failed to read presence", zap.String("user_id", userID), zap.Error(err))
		return
	}
	c.IsOnline = online
	if !online {
		if seen, err := r.presence.LastSeen(ctx, userID); err == nil && seen != nil {
			c.LastSeen = seen
		}
	}
}
