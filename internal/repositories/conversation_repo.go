package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/models"
)

// ConversationRepository persists conversations in PostgreSQL.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// ListForUser returns userID's private conversations plus the group
// conversations for the given group memberships.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string, groupIDs []string) ([]models.Conversation, error) {
	var conversations []models.Conversation

	query := r.db.WithContext(ctx).
		Where("type = ? AND jsonb_exists(participants::jsonb, ?)", models.ConversationPrivate, userID)
	if len(groupIDs) > 0 {
		query = query.Or("type = ? AND group_id IN ?", models.ConversationGroup, groupIDs)
	}

	if err := query.Find(&conversations).Error; err != nil {
		return nil, apperrors.Remote(err, "list conversations for %s", userID)
	}
	return conversations, nil
}

// Create inserts a new conversation.
func (r *ConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return apperrors.Remote(err, "create conversation")
	}
	return nil
}
