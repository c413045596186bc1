package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/internal/users"
	pkgauth "github.com/luciamoreno/gemashop-backend/pkg/auth"
	"github.com/luciamoreno/gemashop-backend/pkg/auth/session"
	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	"github.com/luciamoreno/gemashop-backend/pkg/enums"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "gemashop",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type stubUserRepo struct {
	byEmail    map[string]*models.User
	byUsername map[string]*models.User
	lastLogin  map[uuid.UUID]time.Time
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		byEmail:    map[string]*models.User{},
		byUsername: map[string]*models.User{},
		lastLogin:  map[uuid.UUID]time.Time{},
	}
	for _, user := range seed {
		repo.byEmail[strings.ToLower(user.Email)] = user
		repo.byUsername[strings.ToLower(user.Username)] = user
	}
	return repo
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	s.byEmail[strings.ToLower(user.Email)] = user
	s.byUsername[strings.ToLower(user.Username)] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := session.NewAccessID()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func assertAuthErrCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, code, coded.Code())
}

func newTestUser(t *testing.T, email, username, password string) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Name:         "Test User",
		Role:         enums.RoleUser,
		IsActive:     true,
	}
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return svc
}

func TestServiceLogin(t *testing.T) {
	user := newTestUser(t, "lucia@example.com", "lucia", "supersecreta")
	repo := newStubUserRepo(user)
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " Lucia@Example.com ", Password: "supersecreta"})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, user.Email, resp.User.Email)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.RoleUser, claims.Role)
	require.Len(t, sessions.generated, 1)
	assert.Equal(t, sessions.generated[0], claims.ID)

	_, ok := repo.lastLogin[user.ID]
	assert.True(t, ok)
}

func TestServiceLogin_rejections(t *testing.T) {
	user := newTestUser(t, "lucia@example.com", "lucia", "supersecreta")
	inactive := newTestUser(t, "inactivo@example.com", "inactivo", "supersecreta")
	inactive.IsActive = false
	svc := newTestService(t, newStubUserRepo(user, inactive), &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "lucia@example.com", Password: "wrong"})
	assertAuthErrCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nadie@example.com", Password: "supersecreta"})
	assertAuthErrCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "inactivo@example.com", Password: "supersecreta"})
	assertAuthErrCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceRegister_autoLogin(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Ana Prueba",
		Username: "AnaP",
		Email:    " Ana@Example.com ",
		Password: "unacontrasena",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, "anap", resp.User.Username)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.Len(t, sessions.generated, 1)
}

func TestServiceRegister_conflictsAndValidation(t *testing.T) {
	existing := newTestUser(t, "lucia@example.com", "lucia", "supersecreta")
	svc := newTestService(t, newStubUserRepo(existing), &stubSessionManager{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name: "X", Username: "otra", Email: "lucia@example.com", Password: "unacontrasena",
	})
	assertAuthErrCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Name: "X", Username: "Lucia", Email: "otra@example.com", Password: "unacontrasena",
	})
	assertAuthErrCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Name: "X", Username: "nueva", Email: "nueva@example.com", Password: "corta",
	})
	assertAuthErrCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceRefresh(t *testing.T) {
	user := newTestUser(t, "lucia@example.com", "lucia", "supersecreta")
	sessions := &stubSessionManager{}
	svc := newTestService(t, newStubUserRepo(user), sessions)

	issuedAt := time.Now().UTC().Add(-time.Hour)
	expired, err := pkgauth.MintAccessToken(testJWTConfig, issuedAt, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   enums.RoleUser,
		JTI:    "old-access-id",
	})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: expired, RefreshToken: "refresh-old"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.NotEqual(t, "old-access-id", claims.ID)
}

func TestServiceRefresh_invalid(t *testing.T) {
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newTestService(t, newStubUserRepo(), sessions)

	_, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: "garbage", RefreshToken: "x"})
	assertAuthErrCode(t, err, pkgerrors.CodeUnauthorized)

	user := newTestUser(t, "lucia@example.com", "lucia", "supersecreta")
	expired, mintErr := pkgauth.MintAccessToken(testJWTConfig, time.Now().UTC().Add(-time.Hour), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   enums.RoleUser,
		JTI:    "old-access-id",
	})
	require.NoError(t, mintErr)

	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: expired, RefreshToken: "stale"})
	assertAuthErrCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceLogout(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newTestService(t, newStubUserRepo(), sessions)

	require.NoError(t, svc.Logout(context.Background(), "access-id"))
	assert.Equal(t, []string{"access-id"}, sessions.revoked)

	err := svc.Logout(context.Background(), "  ")
	assertAuthErrCode(t, err, pkgerrors.CodeUnauthorized)
}
