package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/models"
	"github.com/dembasy/jokko/pkg/bloom"
	"github.com/dembasy/jokko/pkg/logger"
	"github.com/dembasy/jokko/pkg/token"
)

type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, apperrors.NotFound("user %s", id)
}

func (s *fakeUserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, u := range s.users {
		if u.Phone == phone {
			out := *u
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("no user with phone %s", phone)
}

func (s *fakeUserStore) UpdateLastSeen(ctx context.Context, id string, t time.Time) error {
	if u, ok := s.users[id]; ok {
		u.LastSeen = &t
	}
	return nil
}

func newUserService(t *testing.T) (*UserService, *fakeUserStore) {
	t.Helper()
	token.Configure("test-secret", time.Hour)
	store := newFakeUserStore()
	return NewUserService(store, logger.NewNop()), store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("validates input", func(t *testing.T) {
		svc, _ := newUserService(t)
		_, _, err := svc.Register(ctx, " ", "Sy", "+221770000001", "secret1")
		assert.True(t, apperrors.IsValidation(err))
		_, _, err = svc.Register(ctx, "Alice", "Sy", " ", "secret1")
		assert.True(t, apperrors.IsValidation(err))
		_, _, err = svc.Register(ctx, "Alice", "Sy", "+221770000001", "short")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("creates the account and issues a token", func(t *testing.T) {
		svc, store := newUserService(t)
		user, tok, err := svc.Register(ctx, "Alice", "Sy", "+221 77 000 00 01", "secret1")
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "+221770000001", user.Phone, "phone is normalized before storage")
		assert.NotEqual(t, "secret1", user.PasswordHash)
		assert.Contains(t, store.users, user.ID)

		claims, err := token.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("adds the phone to the directory filter", func(t *testing.T) {
		svc, _ := newUserService(t)
		f := bloom.New(100, 0.01)
		svc.SetPhoneFilter(f)
		require.False(t, f.TestString("+221770000001"))

		_, _, err := svc.Register(ctx, "Alice", "Sy", "+221 77 000 00 01", "secret1")
		require.NoError(t, err)
		assert.True(t, f.TestString("+221770000001"), "the filter learns the normalized phone")
	})

	t.Run("rejects a registered phone", func(t *testing.T) {
		svc, _ := newUserService(t)
		_, _, err := svc.Register(ctx, "Alice", "Sy", "+221770000001", "secret1")
		require.NoError(t, err)
		_, _, err = svc.Register(ctx, "Imposter", "X", "+221770000001", "secret2")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)
	_, _, err := svc.Register(ctx, "Alice", "Sy", "+221770000001", "secret1")
	require.NoError(t, err)

	user, tok, err := svc.Login(ctx, "+221 770 000 001", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
	assert.NotEmpty(t, tok)

	_, _, err = svc.Login(ctx, "+221770000001", "wrong")
	assert.True(t, apperrors.IsPermission(err))
	_, _, err = svc.Login(ctx, "+221779999999", "secret1")
	assert.True(t, apperrors.IsPermission(err), "unknown phone reports the same error as a bad password")
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+221770000001", NormalizePhone("+221 77 000-00-01"))
	assert.Equal(t, "221770000001", NormalizePhone("221 (77) 000.00.01"))
	assert.Equal(t, "+33612345678", NormalizePhone("+33 6 12 34 56 78"))
	assert.Equal(t, "", NormalizePhone("abc"))
}
