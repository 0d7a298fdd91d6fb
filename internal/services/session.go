package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/pkg/bloom"
	"github.com/dembasy/jokko/pkg/logger"
)

// Session bundles the per-user managers around one identity and one
// event bus. All state the managers cache belongs to this session; two
// sessions for the same user are independent.
type Session struct {
	User     *models.User
	Bus      *events.Bus
	Groups   *GroupManager
	Contacts *ContactManager
	Router   *ConversationRouter
}

// SessionDeps carries the shared backends a session is built from.
type SessionDeps struct {
	Groups        GroupStore
	Contacts      ContactStore
	Conversations ConversationStore
	Users         UserDirectory
	Presence      PresenceReader
	Confirm       Confirmer
	PhoneFilter   *bloom.Filter
	Log           *logger.Logger

	// OnSession runs once per freshly built session, before it is
	// published. Infrastructure taps the session bus here.
	OnSession func(*Session)
}

// SessionManager creates and caches one Session per user id.
type SessionManager struct {
	deps SessionDeps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	return &SessionManager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for user, building and loading it on
// first use. The initial group and contact loads run before the session
// is published so callers never see an empty cache for a user with
// data.
func (sm *SessionManager) GetOrCreate(ctx context.Context, user *models.User) (*Session, error) {
	sm.mu.Lock()
	if s, ok := sm.sessions[user.ID]; ok {
		sm.mu.Unlock()
		return s, nil
	}
	sm.mu.Unlock()

	s, err := sm.build(ctx, user)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if existing, ok := sm.sessions[user.ID]; ok {
		// Another request won the race; drop ours.
		s.Bus.Close()
		return existing, nil
	}
	sm.sessions[user.ID] = s
	return s, nil
}

// Get returns the session for user, or nil when none exists.
func (sm *SessionManager) Get(userID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.sessions[userID]
}

// Drop discards the session for user, if any.
func (sm *SessionManager) Drop(userID string) {
	sm.mu.Lock()
	s := sm.sessions[userID]
	delete(sm.sessions, userID)
	sm.mu.Unlock()
	if s != nil {
		s.Bus.Close()
	}
}

// Sessions returns a snapshot of all live sessions.
func (sm *SessionManager) Sessions() []*Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s)
	}
	return out
}

func (sm *SessionManager) build(ctx context.Context, user *models.User) (*Session, error) {
	bus := events.NewBus()
	identity := StaticIdentity{User: user}

	groups := NewGroupManager(sm.deps.Groups, bus, identity, sm.deps.Log)
	contacts := NewContactManager(sm.deps.Contacts, sm.deps.Users, bus, identity, sm.deps.Log)
	router := NewConversationRouter(
		sm.deps.Conversations, contacts, groups, sm.deps.Users,
		sm.deps.Presence, identity, sm.deps.Confirm, bus, sm.deps.Log,
	)
	if sm.deps.PhoneFilter != nil {
		router.SetPhoneFilter(sm.deps.PhoneFilter)
	}

	if err := groups.LoadGroups(ctx); err != nil {
		bus.Close()
		return nil, err
	}
	if err := contacts.LoadContacts(ctx); err != nil {
		bus.Close()
		return nil, err
	}

	s := &Session{
		User:     user,
		Bus:      bus,
		Groups:   groups,
		Contacts: contacts,
		Router:   router,
	}
	if sm.deps.OnSession != nil {
		sm.deps.OnSession(s)
	}

	sm.deps.Log.Info("session started", zap.String("user_id", user.ID))
	return s, nil
}
