package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/security"
)

type stubProfileRepo struct {
	users map[uuid.UUID]*models.User
}

func newStubProfileRepo(seed ...*models.User) *stubProfileRepo {
	repo := &stubProfileRepo{users: map[uuid.UUID]*models.User{}}
	for _, user := range seed {
		repo.users[user.ID] = user
	}
	return repo
}

func (s *stubProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubProfileRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfileRepo) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	user, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := columns["name"].(string); ok {
		user.Name = name
	}
	if email, ok := columns["email"].(string); ok {
		user.Email = email
	}
	if address, ok := columns["address"].(string); ok {
		user.Address = &address
	}
	if phone, ok := columns["phone"].(string); ok {
		user.Phone = &phone
	}
	return nil
}

func (s *stubProfileRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	user, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = hash
	return nil
}

func assertUserErrCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, code, coded.Code())
}

func seedUser(email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     "lucia",
		PasswordHash: "hash",
		Name:         "Lucia",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestServiceGetProfile(t *testing.T) {
	user := seedUser("lucia@example.com")
	svc, err := NewService(newStubProfileRepo(user), config.PasswordConfig{})
	require.NoError(t, err)

	dto, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, dto.Email)
	assert.Equal(t, user.Username, dto.Username)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	assertUserErrCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.GetProfile(context.Background(), uuid.Nil)
	assertUserErrCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceUpdateProfile_partialFields(t *testing.T) {
	user := seedUser("lucia@example.com")
	repo := newStubProfileRepo(user)
	svc, err := NewService(repo, config.PasswordConfig{})
	require.NoError(t, err)

	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Name:  ptr("Lucia Moreno"),
		Phone: ptr("555 0123"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lucia Moreno", dto.Name)
	require.NotNil(t, dto.Phone)
	assert.Equal(t, "555 0123", *dto.Phone)
	assert.Equal(t, "lucia@example.com", dto.Email)
}

func TestServiceUpdateProfile_emailRules(t *testing.T) {
	user := seedUser("lucia@example.com")
	other := seedUser("taken@example.com")
	svc, err := NewService(newStubProfileRepo(user, other), config.PasswordConfig{})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Email: ptr("not-an-email")})
	assertUserErrCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Email: ptr("taken@example.com")})
	assertUserErrCode(t, err, pkgerrors.CodeConflict)

	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Email: ptr("  Nueva@Example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "nueva@example.com", dto.Email)
}

func TestServiceUpdateProfile_password(t *testing.T) {
	user := seedUser("lucia@example.com")
	repo := newStubProfileRepo(user)
	svc, err := NewService(repo, config.PasswordConfig{})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Password: ptr("short")})
	assertUserErrCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Password: ptr("unacontrasena")})
	require.NoError(t, err)

	valid, err := security.VerifyPassword("unacontrasena", repo.users[user.ID].PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)
}
