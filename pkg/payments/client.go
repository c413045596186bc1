package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/luciamoreno/gemashop-backend/pkg/config"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired    = errors.New("payments api key is required")
	errInvalidPayEnv     = fmt.Errorf("payments environment must be %q or %q", testEnv, liveEnv)
	errCurrencyRequired  = errors.New("payments currency is required")
	errInvalidBaseURL    = errors.New("payments base url must be http(s)")
	defaultStripeBaseURL = "https://api.stripe.com"
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	environment string
	currency    string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.PaymentsConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(strings.ToLower(cfg.Currency))
	if currency == "" {
		return nil, errCurrencyRequired
	}

	stripe.Key = apiKey

	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" && baseURL != defaultStripeBaseURL {
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			return nil, errInvalidBaseURL
		}
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{URL: stripe.String(baseURL)})
		stripe.SetBackend(stripe.APIBackend, backend)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("payments client initialized (%s)", env))
	}

	return &Client{
		environment: env,
		currency:    currency,
	}, nil
}

// Environment reports the normalized payments environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Currency returns the ISO currency code charges are created in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidPayEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("payments environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("payments environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidPayEnv
	}
}
