package services

import (
	"context"
	"time"

	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/internal/repositories"
)

// GroupStore is the remote-store surface the group manager mutates.
// Implemented by repositories.GroupRepository; tests use fakes.
type GroupStore interface {
	List(ctx context.Context) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Patch(ctx context.Context, id string, patch repositories.GroupPatch) (*models.Group, error)
}

// ContactStore persists the per-user contact directory.
type ContactStore interface {
	ListActive(ctx context.Context, ownerID string) ([]models.Contact, error)
	ListBlocked(ctx context.Context, ownerID string) ([]models.Contact, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id string) error
}

// ConversationStore persists conversations.
type ConversationStore interface {
	ListForUser(ctx context.Context, userID string, groupIDs []string) ([]models.Conversation, error)
	Create(ctx context.Context, conversation *models.Conversation) error
}

// UserDirectory resolves accounts for contact linking and
// search-by-phone.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
}

// Identity names the current session user. Managers never hold the user
// directly so tests and the server can inject their own notion of who
// is calling.
type Identity interface {
	CurrentUser() *models.User
}

// StaticIdentity is the trivial Identity for a session bound to one
// loaded user.
type StaticIdentity struct {
	User *models.User
}

func (s StaticIdentity) CurrentUser() *models.User { return s.User }

// Confirmer asks the user a yes/no question. The router uses it before
// adding an unknown phone-number match to the contact list.
type Confirmer func(ctx context.Context, prompt string) (bool, error)

// DeclineAll is the Confirmer used when no prompt channel exists.
func DeclineAll(context.Context, string) (bool, error) { return false, nil }

type confirmAnswerKey struct{}

// WithConfirmAnswer pre-answers the next confirmation prompt on ctx.
// The HTTP layer uses this to carry the client's choice into the
// router.
func WithConfirmAnswer(ctx context.Context, answer bool) context.Context {
	return context.WithValue(ctx, confirmAnswerKey{}, answer)
}

// ContextConfirmer answers prompts from the value stored by
// WithConfirmAnswer, declining when none is present.
func ContextConfirmer(ctx context.Context, _ string) (bool, error) {
	answer, _ := ctx.Value(confirmAnswerKey{}).(bool)
	return answer, nil
}

// PresenceReader supplies online state for conversation enrichment.
type PresenceReader interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	LastSeen(ctx context.Context, userID string) (*time.Time, error)
}
