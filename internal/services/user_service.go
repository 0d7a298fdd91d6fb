package services

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/pkg/bloom"
	"github.com/dembasy/jokko/pkg/logger"
	"github.com/dembasy/jokko/pkg/token"
)

// UserStore is the account surface the user service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateLastSeen(ctx context.Context, id string, t time.Time) error
}

// UserService handles registration and login.
type UserService struct {
	store UserStore
	log   *logger.Logger

	// phones mirrors the registered phone directory; every new account
	// is added so lookups seeded at startup stay complete.
	phones *bloom.Filter
}

func NewUserService(store UserStore, log *logger.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// SetPhoneFilter installs the phone directory filter kept in sync on
// registration.
func (s *UserService) SetPhoneFilter(f *bloom.Filter) {
	s.phones = f
}

// Register creates an account and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, firstName, lastName, phone, password string) (*models.User, string, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	phone = NormalizePhone(phone)

	if firstName == "" {
		return nil, "", apperrors.Validation("first name is required")
	}
	if phone == "" {
		return nil, "", apperrors.Validation("phone number is required")
	}
	if len(password) < 6 {
		return nil, "", apperrors.Validation("password must be at least 6 characters")
	}

	if _, err := s.store.GetByPhone(ctx, phone); err == nil {
		return nil, "", apperrors.Validation("phone number is already registered")
	} else if !apperrors.IsNotFound(err) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperrors.Remote(err, "hash password")
	}

	user := &models.User{
		ID:           models.NewID(),
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        phone,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, "", err
	}
	if s.phones != nil {
		s.phones.AddString(user.Phone)
	}

	tok, err := token.Generate(user.ID, user.Phone, user.FullName())
	if err != nil {
		return nil, "", apperrors.Remote(err, "issue token")
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, tok, nil
}

// Login verifies phone and password and returns the account with a
// fresh token. Wrong phone and wrong password report the same error so
// the response does not reveal which part failed.
func (s *UserService) Login(ctx context.Context, phone, password string) (*models.User, string, error) {
	phone = NormalizePhone(phone)

	user, err := s.store.GetByPhone(ctx, phone)
	if apperrors.IsNotFound(err) {
		return nil, "", apperrors.Permission("invalid phone number or password")
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", apperrors.Permission("invalid phone number or password")
	}

	tok, err := token.Generate(user.ID, user.Phone, user.FullName())
	if err != nil {
		return nil, "", apperrors.Remote(err, "issue token")
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID))
	return user, tok, nil
}

// Get loads one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetByID(ctx, id)
}

// TouchLastSeen stamps the user's last-seen time, best effort.
func (s *UserService) TouchLastSeen(ctx context.Context, id string) {
	if err := s.store.UpdateLastSeen(ctx, id, time.Now()); err != nil {
		s.log.Warn("failed to update last seen", zap.String("user_id", id), zap.Error(err))
	}
}

// NormalizePhone strips everything but digits and a leading plus so
// lookups match regardless of input formatting.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
