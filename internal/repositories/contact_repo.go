package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/models"
)

// ContactRepository persists the per-user contact directory.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListActive returns ownerID's unblocked contacts with their linked
// users attached.
func (r *ContactRepository) ListActive(ctx context.Context, ownerID string) ([]models.Contact, error) {
	return r.list(ctx, ownerID, false)
}

// ListBlocked returns ownerID's blocked contacts.
func (r *ContactRepository) ListBlocked(ctx context.Context, ownerID string) ([]models.Contact, error) {
	return r.list(ctx, ownerID, true)
}

func (r *ContactRepository) list(ctx context.Context, ownerID string, blocked bool) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_blocked = ?", ownerID, blocked).
		Find(&contacts).Error
	if err != nil {
		return nil, apperrors.Remote(err, "list contacts for %s", ownerID)
	}
	if err := r.attachUsers(ctx, contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// GetByID loads one contact with its linked user.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("contact %s", id)
	}
	if err != nil {
		return nil, apperrors.Remote(err, "get contact %s", id)
	}
	contacts := []models.Contact{contact}
	if err := r.attachUsers(ctx, contacts); err != nil {
		return nil, err
	}
	return &contacts[0], nil
}

// Create inserts a new contact.
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return apperrors.Remote(err, "create contact")
	}
	return nil
}

// Update saves an existing contact.
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	if err := r.db.WithContext(ctx).Save(contact).Error; err != nil {
		return apperrors.Remote(err, "update contact %s", contact.ID)
	}
	return nil
}

// Delete removes a contact permanently.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.Contact{}, "id = ?", id).Error; err != nil {
		return apperrors.Remote(err, "delete contact %s", id)
	}
	return nil
}

// attachUsers fills Contact.User for each contact in one query. The
// link is kept out of the gorm schema so the contact row stays a plain
// (owner, user, name, phone) record.
func (r *ContactRepository) attachUsers(ctx context.Context, contacts []models.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ContactUserID)
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return apperrors.Remote(err, "load contact users")
	}

	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range contacts {
		contacts[i].User = byID[contacts[i].ContactUserID]
	}
	return nil
}
