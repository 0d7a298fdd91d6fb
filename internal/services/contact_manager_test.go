package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/pkg/logger"
)

func newContactEnv(t *testing.T, me string, dir *fakeUserDirectory, seed ...models.Contact) (*ContactManager, *fakeContactStore, func() []events.Event) {
	t.Helper()
	store := newFakeContactStore(seed...)
	bus := events.NewBus()
	drain := recordedEvents(bus)
	m := NewContactManager(store, dir, bus, StaticIdentity{User: testUser(me)}, logger.NewNop())
	require.NoError(t, m.LoadContacts(context.Background()))
	drain()
	return m, store, drain
}

func seedContact(id, owner, userID, name, phone string) models.Contact {
	return models.Contact{ID: id, OwnerID: owner, ContactUserID: userID, Name: name, Phone: phone}
}

func TestAddContact(t *testing.T) {
	ctx := context.Background()
	bob := &models.User{ID: "bob", FirstName: "Bob", LastName: "Ba", Phone: "+221770000002"}
	alice := &models.User{ID: "alice", FirstName: "Alice", LastName: "Sy", Phone: "+221770000001"}
	dir := newFakeUserDirectory(alice, bob)

	t.Run("validates name and phone", func(t *testing.T) {
		m, _, _ := newContactEnv(t, "alice", dir)
		_, err := m.AddContact(ctx, "  ", bob.Phone)
		assert.True(t, apperrors.IsValidation(err))
		_, err = m.AddContact(ctx, "Bob", " ")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown phone", func(t *testing.T) {
		m, _, _ := newContactEnv(t, "alice", dir)
		_, err := m.AddContact(ctx, "Nobody", "+221779999999")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("self and duplicates are rejected", func(t *testing.T) {
		m, _, _ := newContactEnv(t, "alice", dir)
		_, err := m.AddContact(ctx, "Me", alice.Phone)
		assert.True(t, apperrors.IsValidation(err))

		_, err = m.AddContact(ctx, "Bob", bob.Phone)
		require.NoError(t, err)
		_, err = m.AddContact(ctx, "Bob again", bob.Phone)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("blocked users cannot be re-added", func(t *testing.T) {
		m, store, _ := newContactEnv(t, "alice", dir)
		c, err := m.AddContact(ctx, "Bob", bob.Phone)
		require.NoError(t, err)
		require.NoError(t, m.BlockContact(ctx, c.ID))

		before := len(store.contacts)
		_, err = m.AddContact(ctx, "Bob again", bob.Phone)
		assert.True(t, apperrors.IsValidation(err))
		assert.Len(t, store.contacts, before, "the store is never reached")
	})

	t.Run("links the resolved account", func(t *testing.T) {
		m, _, drain := newContactEnv(t, "alice", dir)
		c, err := m.AddContact(ctx, "Bobby", bob.Phone)
		require.NoError(t, err)

		assert.Equal(t, "bob", c.ContactUserID)
		assert.Equal(t, "alice", c.OwnerID)
		assert.Equal(t, bob.Phone, c.Phone)
		assert.Equal(t, []events.Type{events.ContactAdded}, eventTypes(drain()))
		assert.NotNil(t, m.ContactByUserID("bob"))
	})
}

func TestBlockUnblockContact(t *testing.T) {
	ctx := context.Background()
	dir := newFakeUserDirectory()
	m, store, drain := newContactEnv(t, "alice", dir,
		seedContact("c1", "alice", "bob", "Bob", "+221770000002"))

	require.NoError(t, m.BlockContact(ctx, "c1"))
	assert.Empty(t, m.Contacts())
	require.Len(t, m.BlockedContacts(), 1)
	assert.True(t, store.contacts["c1"].IsBlocked)
	assert.True(t, apperrors.IsValidation(m.BlockContact(ctx, "c1")))

	require.NoError(t, m.UnblockContact(ctx, "c1"))
	assert.Len(t, m.Contacts(), 1)
	assert.Empty(t, m.BlockedContacts())
	assert.True(t, apperrors.IsValidation(m.UnblockContact(ctx, "c1")))

	assert.Equal(t, []events.Type{events.ContactBlocked, events.ContactUnblocked}, eventTypes(drain()))
	assert.True(t, apperrors.IsNotFound(m.BlockContact(ctx, "missing")))
}

func TestDeleteContact(t *testing.T) {
	ctx := context.Background()
	m, store, drain := newContactEnv(t, "alice", newFakeUserDirectory(),
		seedContact("c1", "alice", "bob", "Bob", "+221770000002"))

	require.NoError(t, m.DeleteContact(ctx, "c1"))
	assert.Empty(t, m.Contacts())
	assert.NotContains(t, store.contacts, "c1")
	assert.Equal(t, []events.Type{events.ContactDeleted}, eventTypes(drain()))

	assert.True(t, apperrors.IsNotFound(m.DeleteContact(ctx, "c1")))
}

func TestToggleFavorite(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newContactEnv(t, "alice", newFakeUserDirectory(),
		seedContact("c1", "alice", "bob", "Bob", "+221770000002"))

	c, err := m.ToggleFavorite(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.IsFavorite)
	assert.Len(t, m.FavoriteContacts(), 1)

	c, err = m.ToggleFavorite(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, c.IsFavorite)
	assert.Empty(t, m.FavoriteContacts())
}

func TestSearchContacts(t *testing.T) {
	bob := seedContact("c1", "alice", "bob", "Bobby", "+221770000002")
	bob.User = &models.User{ID: "bob", FirstName: "Boubacar", LastName: "Ba"}
	m, _, _ := newContactEnv(t, "alice", newFakeUserDirectory(),
		bob,
		seedContact("c2", "alice", "carol", "Carol", "+221770000003"))

	assert.Len(t, m.SearchContacts("bob"), 1)
	assert.Len(t, m.SearchContacts("boubacar"), 1, "matches the linked account name")
	assert.Len(t, m.SearchContacts("0003"), 1, "matches by phone fragment")
	assert.Len(t, m.SearchContacts(""), 2)
	assert.Empty(t, m.SearchContacts("zyx"))
}
