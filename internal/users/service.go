package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/security"
)

const minPasswordLength = 8

// Service exposes profile reads and partial profile updates.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

// UpdateProfileInput carries the optional fields a shopper can change.
type UpdateProfileInput struct {
	Name     *string
	Email    *string
	Address  *string
	Phone    *string
	Password *string
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type service struct {
	repo        profileRepository
	passwordCfg config.PasswordConfig
}

// NewService constructs a users service instance.
func NewService(repo profileRepository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:        repo,
		passwordCfg: passwordCfg,
	}, nil
}

// GetProfile returns the authenticated user's profile.
func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateProfile applies the provided fields and returns the refreshed profile.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	columns := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		columns["name"] = name
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
		}
		if !strings.EqualFold(email, user.Email) {
			if err := s.ensureEmailAvailable(ctx, email); err != nil {
				return nil, err
			}
		}
		columns["email"] = email
	}

	if input.Address != nil {
		columns["address"] = strings.TrimSpace(*input.Address)
	}
	if input.Phone != nil {
		columns["phone"] = strings.TrimSpace(*input.Phone)
	}

	if len(columns) > 0 {
		columns["updated_at"] = time.Now().UTC()
		if err := s.repo.UpdateColumns(ctx, userID, columns); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
	}

	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
		hash, err := security.HashPassword(*input.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
		}
	}

	refreshed, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(refreshed), nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email availability")
	}
}
