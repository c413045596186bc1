package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	PasswordReset PasswordResetConfig
	Cart          CartConfig
	Payments      PaymentsConfig
	SMTP          SMTPConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEMASHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"GEMASHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GEMASHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEMASHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GEMASHOP_DB_DSN" required:"true"`
	Driver string `envconfig:"GEMASHOP_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"GEMASHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEMASHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEMASHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEMASHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GEMASHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GEMASHOP_REDIS_ADDR"`
	Password     string        `envconfig:"GEMASHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEMASHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEMASHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEMASHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEMASHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEMASHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEMASHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GEMASHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GEMASHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GEMASHOP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GEMASHOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GEMASHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GEMASHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GEMASHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GEMASHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GEMASHOP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_RESET_WINDOW" default:"5m"`
	ResetEmailLimit    int           `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"GEMASHOP_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type PasswordResetConfig struct {
	CodeTTL     time.Duration `envconfig:"GEMASHOP_PASSWORD_RESET_CODE_TTL" default:"10m"`
	TokenTTL    time.Duration `envconfig:"GEMASHOP_PASSWORD_RESET_TOKEN_TTL" default:"15m"`
	MaxAttempts int           `envconfig:"GEMASHOP_PASSWORD_RESET_MAX_ATTEMPTS" default:"5"`
}

type CartConfig struct {
	SnapshotTTL time.Duration `envconfig:"GEMASHOP_CART_SNAPSHOT_TTL" default:"72h"`
}

type PaymentsConfig struct {
	APIKey   string `envconfig:"GEMASHOP_PAYMENTS_API_KEY" required:"true"`
	Env      string `envconfig:"GEMASHOP_PAYMENTS_ENV" default:"test"`
	BaseURL  string `envconfig:"GEMASHOP_PAYMENTS_BASE_URL" default:"https://api.stripe.com"`
	Currency string `envconfig:"GEMASHOP_PAYMENTS_CURRENCY" default:"usd"`
}

func (p PaymentsConfig) Environment() string {
	return strings.TrimSpace(strings.ToLower(p.Env))
}

type SMTPConfig struct {
	Host     string `envconfig:"GEMASHOP_SMTP_HOST"`
	Port     int    `envconfig:"GEMASHOP_SMTP_PORT" default:"587"`
	Username string `envconfig:"GEMASHOP_SMTP_USERNAME"`
	Password string `envconfig:"GEMASHOP_SMTP_PASSWORD"`
	From     string `envconfig:"GEMASHOP_SMTP_FROM"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GEMASHOP_AUTO_MIGRATE" default:"false"`
}
