package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/models"
)

// UserRepository persists the account directory.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return apperrors.Remote(err, "create user")
	}
	return nil
}

// GetByID loads one account.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user %s", id)
	}
	if err != nil {
		return nil, apperrors.Remote(err, "get user %s", id)
	}
	return &user, nil
}

// GetByPhone resolves an account by exact phone match.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("no user with phone %s", phone)
	}
	if err != nil {
		return nil, apperrors.Remote(err, "get user by phone")
	}
	return &user, nil
}

// ListPhones returns every registered phone number. Used to seed the
// phone directory filter at startup.
func (r *UserRepository) ListPhones(ctx context.Context) ([]string, error) {
	var phones []string
	err := r.db.WithContext(ctx).Model(&models.User{}).Pluck("phone", &phones).Error
	if err != nil {
		return nil, apperrors.Remote(err, "list phones")
	}
	return phones, nil
}

// UpdateLastSeen stamps the user's last-seen time.
func (r *UserRepository) UpdateLastSeen(ctx context.Context, id string, t time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("last_seen", t).Error
	if err != nil {
		return apperrors.Remote(err, "update last seen for %s", id)
	}
	return nil
}
