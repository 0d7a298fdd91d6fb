package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/models"
)

// GroupPatch carries the fields of a partial group update. Nil fields
// are left untouched; UpdatedAt is always stamped by the caller.
type GroupPatch struct {
	Name        *string
	Description *string
	AvatarURL   *string
	Members     *[]string
	Admins      *[]string
	Settings    *models.GroupSettings
	IsDeleted   *bool
	DeletedBy   *string
	DeletedAt   *time.Time
	UpdatedAt   time.Time
}

// GroupRepository persists groups in PostgreSQL.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns every group in the store, deleted ones included. The
// session manager filters to the caller's active memberships.
func (r *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Find(&groups).Error; err != nil {
		return nil, apperrors.Remote(err, "list groups")
	}
	return groups, nil
}

// GetByID loads a single group.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("group %s", id)
	}
	if err != nil {
		return nil, apperrors.Remote(err, "get group %s", id)
	}
	return &group, nil
}

// Create inserts a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return apperrors.Remote(err, "create group")
	}
	return nil
}

// Patch applies the non-nil fields of patch to the stored group and
// returns the updated record.
func (r *GroupRepository) Patch(ctx context.Context, id string, patch GroupPatch) (*models.Group, error) {
	group, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		group.Name = *patch.Name
	}
	if patch.Description != nil {
		group.Description = *patch.Description
	}
	if patch.AvatarURL != nil {
		group.AvatarURL = *patch.AvatarURL
	}
	if patch.Members != nil {
		group.Members = *patch.Members
	}
	if patch.Admins != nil {
		group.Admins = *patch.Admins
	}
	if patch.Settings != nil {
		group.Settings = *patch.Settings
	}
	if patch.IsDeleted != nil {
		group.IsDeleted = *patch.IsDeleted
	}
	if patch.DeletedBy != nil {
		group.DeletedBy = *patch.DeletedBy
	}
	if patch.DeletedAt != nil {
		group.DeletedAt = patch.DeletedAt
	}
	if !patch.UpdatedAt.IsZero() {
		group.UpdatedAt = patch.UpdatedAt
	}

	if err := r.db.WithContext(ctx).Save(group).Error; err != nil {
		return nil, apperrors.Remote(err, "patch group %s", id)
	}
	return group, nil
}
