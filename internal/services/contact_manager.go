package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/pkg/logger"
)

// ContactManager owns the session's contact directory: the active and
// blocked lists, plus the add/block/favorite lifecycle. Mutations go
// through the store first and update the cache on success.
type ContactManager struct {
	store    ContactStore
	users    UserDirectory
	bus      *events.Bus
	identity Identity
	log      *logger.Logger

	mu      sync.RWMutex
	active  []models.Contact
	blocked []models.Contact
}

func NewContactManager(store ContactStore, users UserDirectory, bus *events.Bus, identity Identity, log *logger.Logger) *ContactManager {
	return &ContactManager{
		store:    store,
		users:    users,
		bus:      bus,
		identity: identity,
		log:      log,
	}
}

// LoadContacts replaces both cached lists from the store.
func (m *ContactManager) LoadContacts(ctx context.Context) error {
	me := m.identity.CurrentUser().ID

	active, err := m.store.ListActive(ctx, me)
	if err != nil {
		err = ensureRemote(err, "load contacts")
		m.log.Error("failed to load contacts", zap.String("user_id", me), zap.Error(err))
		return err
	}
	blocked, err := m.store.ListBlocked(ctx, me)
	if err != nil {
		err = ensureRemote(err, "load blocked contacts")
		m.log.Error("failed to load blocked contacts", zap.String("user_id", me), zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.active = active
	m.blocked = blocked
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.ContactsLoaded, Payload: m.Contacts()})
	return nil
}

// AddContact resolves phone to an account and links it under the given
// display name.
func (m *ContactManager) AddContact(ctx context.Context, name, phone string) (*models.Contact, error) {
	me := m.identity.CurrentUser().ID

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("contact name is required")
	}
	phone = NormalizePhone(phone)
	if phone == "" {
		return nil, apperrors.Validation("contact phone is required")
	}

	user, err := m.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user.ID == me {
		return nil, apperrors.Validation("you cannot add yourself as a contact")
	}
	if existing := m.ContactByUserID(user.ID); existing != nil {
		return nil, apperrors.Validation("this user is already in your contacts")
	}
	for _, c := range m.BlockedContacts() {
		if c.ContactUserID == user.ID {
			return nil, apperrors.Validation("this user is in your blocked contacts")
		}
	}

	contact := &models.Contact{
		ID:            models.NewID(),
		OwnerID:       me,
		ContactUserID: user.ID,
		Name:          name,
		Phone:         user.Phone,
		User:          user,
	}
	if err := ensureRemote(m.store.Create(ctx, contact), "create contact"); err != nil {
		m.log.Error("failed to add contact", zap.String("phone", phone), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.active = append(m.active, *contact)
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.ContactAdded, Payload: contact})
	return contact, nil
}

// BlockContact moves a contact to the blocked list.
func (m *ContactManager) BlockContact(ctx context.Context, contactID string) error {
	contact := m.ContactByID(contactID)
	if contact == nil {
		return apperrors.NotFound("contact %s", contactID)
	}
	if contact.IsBlocked {
		return apperrors.Validation("contact is already blocked")
	}

	contact.IsBlocked = true
	if err := ensureRemote(m.store.Update(ctx, contact), "block contact"); err != nil {
		m.log.Error("failed to block contact", zap.String("contact_id", contactID), zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.active = removeContact(m.active, contactID)
	m.blocked = append(m.blocked, *contact)
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.ContactBlocked, Payload: contactID})
	return nil
}

// UnblockContact moves a contact back to the active list.
func (m *ContactManager) UnblockContact(ctx context.Context, contactID string) error {
	contact := m.ContactByID(contactID)
	if contact == nil {
		return apperrors.NotFound("contact %s", contactID)
	}
	if !contact.IsBlocked {
		return apperrors.Validation("contact is not blocked")
	}

	contact.IsBlocked = false
	if err := ensureRemote(m.store.Update(ctx, contact), "unblock contact"); err != nil {
		m.log.Error("failed to unblock contact", zap.String("contact_id", contactID), zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.blocked = removeContact(m.blocked, contactID)
	m.active = append(m.active, *contact)
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.ContactUnblocked, Payload: contactID})
	return nil
}

// DeleteContact removes a contact from both lists and the store.
func (m *ContactManager) DeleteContact(ctx context.Context, contactID string) error {
	if m.ContactByID(contactID) == nil {
		return apperrors.NotFound("contact %s", contactID)
	}
	if err := ensureRemote(m.store.Delete(ctx, contactID), "delete contact"); err != nil {
		m.log.Error("failed to delete contact", zap.String("contact_id", contactID), zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.active = removeContact(m.active, contactID)
	m.blocked = removeContact(m.blocked, contactID)
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.ContactDeleted, Payload: contactID})
	return nil
}

// ToggleFavorite flips the favorite flag.
func (m *ContactManager) ToggleFavorite(ctx context.Context, contactID string) (*models.Contact, error) {
	contact := m.ContactByID(contactID)
	if contact == nil {
		return nil, apperrors.NotFound("contact %s", contactID)
	}

	contact.IsFavorite = !contact.IsFavorite
	if err := ensureRemote(m.store.Update(ctx, contact), "toggle favorite"); err != nil {
		m.log.Error("failed to toggle favorite", zap.String("contact_id", contactID), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	for i := range m.active {
		if m.active[i].ID == contactID {
			m.active[i] = *contact
		}
	}
	for i := range m.blocked {
		if m.blocked[i].ID == contactID {
			m.blocked[i] = *contact
		}
	}
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.ContactFavoriteToggled, Payload: contact})
	return contact, nil
}

// SearchContacts filters the active list by name, phone or the linked
// user's names, case-insensitive.
func (m *ContactManager) SearchContacts(query string) []models.Contact {
	q := strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Contact
	for _, c := range m.active {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(c.Phone, query) {
			out = append(out, c)
			continue
		}
		if c.User != nil &&
			(strings.Contains(strings.ToLower(c.User.FirstName), q) ||
				strings.Contains(strings.ToLower(c.User.LastName), q)) {
			out = append(out, c)
		}
	}
	return out
}

// ContactByID finds a contact in either list. Returns a copy.
func (m *ContactManager) ContactByID(contactID string) *models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, list := range [][]models.Contact{m.active, m.blocked} {
		for i := range list {
			if list[i].ID == contactID {
				c := list[i]
				return &c
			}
		}
	}
	return nil
}

// ContactByUserID finds the active contact linked to a user, if any.
func (m *ContactManager) ContactByUserID(userID string) *models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.active {
		if m.active[i].ContactUserID == userID {
			c := m.active[i]
			return &c
		}
	}
	return nil
}

// Contacts returns a copy of the active list.
func (m *ContactManager) Contacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Contact{}, m.active...)
}

// BlockedContacts returns a copy of the blocked list.
func (m *ContactManager) BlockedContacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Contact{}, m.blocked...)
}

// FavoriteContacts returns the active contacts marked favorite.
func (m *ContactManager) FavoriteContacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Contact
	for _, c := range m.active {
		if c.IsFavorite {
			out = append(out, c)
		}
	}
	return out
}

func removeContact(list []models.Contact, contactID string) []models.Contact {
	for i := range list {
		if list[i].ID == contactID {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
