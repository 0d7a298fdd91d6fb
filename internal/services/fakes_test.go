package services

import (
	"context"
	"sync"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/internal/repositories"
)

// fakeGroupStore keeps groups in memory and applies patches the same
// way the real repository does.
type fakeGroupStore struct {
	mu      sync.Mutex
	groups  map[string]*models.Group
	failErr error
	patches int
	creates int
}

func newFakeGroupStore(seed ...models.Group) *fakeGroupStore {
	s := &fakeGroupStore{groups: make(map[string]*models.Group)}
	for i := range seed {
		g := seed[i]
		s.groups[g.ID] = &g
	}
	return s
}

func (s *fakeGroupStore) List(ctx context.Context) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, *g)
	}
	return out, nil
}

func (s *fakeGroupStore) Create(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.creates++
	g := *group
	s.groups[g.ID] = &g
	return nil
}

func (s *fakeGroupStore) Patch(ctx context.Context, id string, patch repositories.GroupPatch) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, apperrors.NotFound("group %s", id)
	}
	s.patches++
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	if patch.AvatarURL != nil {
		g.AvatarURL = *patch.AvatarURL
	}
	if patch.Members != nil {
		g.Members = append([]string{}, *patch.Members...)
	}
	if patch.Admins != nil {
		g.Admins = append([]string{}, *patch.Admins...)
	}
	if patch.Settings != nil {
		g.Settings = *patch.Settings
	}
	if patch.IsDeleted != nil {
		g.IsDeleted = *patch.IsDeleted
	}
	if patch.DeletedBy != nil {
		g.DeletedBy = *patch.DeletedBy
	}
	if patch.DeletedAt != nil {
		g.DeletedAt = patch.DeletedAt
	}
	g.UpdatedAt = patch.UpdatedAt
	out := *g
	return &out, nil
}

type fakeContactStore struct {
	mu       sync.Mutex
	contacts map[string]*models.Contact
	failErr  error
}

func newFakeContactStore(seed ...models.Contact) *fakeContactStore {
	s := &fakeContactStore{contacts: make(map[string]*models.Contact)}
	for i := range seed {
		c := seed[i]
		s.contacts[c.ID] = &c
	}
	return s
}

func (s *fakeContactStore) list(ownerID string, blocked bool) []models.Contact {
	var out []models.Contact
	for _, c := range s.contacts {
		if c.OwnerID == ownerID && c.IsBlocked == blocked {
			out = append(out, *c)
		}
	}
	return out
}

func (s *fakeContactStore) ListActive(ctx context.Context, ownerID string) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.list(ownerID, false), nil
}

func (s *fakeContactStore) ListBlocked(ctx context.Context, ownerID string) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.list(ownerID, true), nil
}

func (s *fakeContactStore) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, apperrors.NotFound("contact %s", id)
	}
	out := *c
	return &out, nil
}

func (s *fakeContactStore) Create(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	c := *contact
	s.contacts[c.ID] = &c
	return nil
}

func (s *fakeContactStore) Update(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	if _, ok := s.contacts[contact.ID]; !ok {
		return apperrors.NotFound("contact %s", contact.ID)
	}
	c := *contact
	s.contacts[c.ID] = &c
	return nil
}

func (s *fakeContactStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.contacts, id)
	return nil
}

type fakeConversationStore struct {
	mu            sync.Mutex
	conversations []models.Conversation
	failErr       error
	creates       int
}

func (s *fakeConversationStore) ListForUser(ctx context.Context, userID string, groupIDs []string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	allowed := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		allowed[id] = struct{}{}
	}
	var out []models.Conversation
	for _, c := range s.conversations {
		switch c.Type {
		case models.ConversationPrivate:
			if c.HasParticipant(userID) {
				out = append(out, c)
			}
		case models.ConversationGroup:
			if _, ok := allowed[c.GroupID]; ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (s *fakeConversationStore) Create(ctx context.Context, conversation *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.creates++
	s.conversations = append(s.conversations, *conversation)
	return nil
}

type fakeUserDirectory struct {
	users map[string]*models.User // keyed by ID
}

func newFakeUserDirectory(users ...*models.User) *fakeUserDirectory {
	d := &fakeUserDirectory{users: make(map[string]*models.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeUserDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, apperrors.NotFound("user %s", id)
}

func (d *fakeUserDirectory) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, u := range d.users {
		if u.Phone == phone {
			out := *u
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("no user with phone %s", phone)
}

// recordedEvents subscribes to everything on the bus and returns a
// drain func that collects whatever was published so far.
func recordedEvents(bus *events.Bus) func() []events.Event {
	ch, _ := bus.Subscribe(128)
	return func() []events.Event {
		var out []events.Event
		for {
			select {
			case ev := <-ch:
				out = append(out, ev)
			default:
				return out
			}
		}
	}
}

func eventTypes(evs []events.Event) []events.Type {
	out := make([]events.Type, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}
