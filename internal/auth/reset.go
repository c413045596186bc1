package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
	"github.com/luciamoreno/gemashop-backend/pkg/mailer"
	"github.com/luciamoreno/gemashop-backend/pkg/security"
)

const (
	resetCodeDigits   = 6
	resetTokenBytes   = 32
	invalidCodeReason = "invalid or expired code"
)

// ResetService implements the emailed-code password recovery flow.
type ResetService interface {
	RequestReset(ctx context.Context, req ForgotPasswordRequest) error
	VerifyCode(ctx context.Context, req VerifyResetCodeRequest) (*VerifyResetCodeResponse, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type resetKeyer interface {
	ResetCodeKey(email string) string
	ResetAttemptsKey(email string) string
	ResetTokenKey(email string) string
}

type resetService struct {
	users       resetUserRepository
	store       resetStore
	keyer       resetKeyer
	mail        mailer.Mailer
	cfg         config.PasswordResetConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// ResetServiceParams bundles the dependencies of the recovery flow.
type ResetServiceParams struct {
	UserRepo       resetUserRepository
	Store          resetStore
	Keyer          resetKeyer
	Mailer         mailer.Mailer
	ResetConfig    config.PasswordResetConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

// NewResetService constructs the password recovery service.
func NewResetService(params ResetServiceParams) (ResetService, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Store == nil || params.Keyer == nil {
		return nil, fmt.Errorf("reset store and keyer are required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	cfg := params.ResetConfig
	if cfg.CodeTTL <= 0 || cfg.TokenTTL <= 0 || cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("reset ttls and max attempts must be positive")
	}
	return &resetService{
		users:       params.UserRepo,
		store:       params.Store,
		keyer:       params.Keyer,
		mail:        params.Mailer,
		cfg:         cfg,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

// RequestReset emails a short-lived 6-digit code. Unknown emails succeed
// silently so the endpoint does not reveal account existence.
func (s *resetService) RequestReset(ctx context.Context, req ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logg != nil {
				s.logg.Info(ctx, "password reset requested for unknown email")
			}
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil
	}

	code, err := security.GenerateNumericCode(resetCodeDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset code")
	}

	if err := s.store.Set(ctx, s.keyer.ResetCodeKey(email), hashCode(code), s.cfg.CodeTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset code")
	}
	if err := s.store.Del(ctx, s.keyer.ResetAttemptsKey(email)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear attempts counter")
	}

	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(s.cfg.CodeTTL.Minutes()))
	if err := s.mail.Send(ctx, user.Email, "Password reset code", body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send reset email")
	}
	return nil
}

// VerifyCode exchanges a valid code for a one-shot reset token. Each email
// gets a bounded number of attempts per code.
func (s *resetService) VerifyCode(ctx context.Context, req VerifyResetCodeRequest) (*VerifyResetCodeResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeReason)
	}

	stored, err := s.store.Get(ctx, s.keyer.ResetCodeKey(email))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeReason)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset code")
	}

	attempts, err := s.store.IncrWithTTL(ctx, s.keyer.ResetAttemptsKey(email), s.cfg.CodeTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count attempts")
	}
	if attempts > int64(s.cfg.MaxAttempts) {
		if err := s.store.Del(ctx, s.keyer.ResetCodeKey(email)); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "failed to burn reset code after too many attempts")
		}
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, request a new code")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashCode(code))) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeReason)
	}

	token, err := security.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.store.Set(ctx, s.keyer.ResetTokenKey(email), token, s.cfg.TokenTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}
	if err := s.store.Del(ctx, s.keyer.ResetCodeKey(email), s.keyer.ResetAttemptsKey(email)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset code")
	}

	return &VerifyResetCodeResponse{ResetToken: token}, nil
}

// ResetPassword consumes the token and replaces the stored credential.
func (s *resetService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.ResetToken) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}
	if len(req.NewPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	stored, err := s.store.Get(ctx, s.keyer.ResetTokenKey(email))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.ResetToken)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}

	if err := s.store.Del(ctx, s.keyer.ResetTokenKey(email)); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to consume reset token")
	}
	return nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
