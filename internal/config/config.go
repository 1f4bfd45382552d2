// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host    string `mapstructure:"APP_HOST"`
	Port    string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"APP_ENV"` // "development", "production", "testing"
	BaseURL string `mapstructure:"APP_BASE_URL"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// PostgreSQL connection
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Valkey (Redis-compatible cache)
	ValkeyHost     string `mapstructure:"VALKEY_HOST"`
	ValkeyPort     string `mapstructure:"VALKEY_PORT"`
	ValkeyPassword string `mapstructure:"VALKEY_PASSWORD"`

	// AI provider settings
	AIProvider      string `mapstructure:"AI_PROVIDER"`       // text/plan provider
	AIImageProvider string `mapstructure:"AI_IMAGE_PROVIDER"` // image provider, defaults to AIProvider

	OpenAIKey        string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel      string `mapstructure:"OPENAI_MODEL"`
	OpenAIImageModel string `mapstructure:"OPENAI_IMAGE_MODEL"`
	OpenAIBaseURL    string `mapstructure:"OPENAI_BASE_URL"`

	GeminiKey        string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string `mapstructure:"GEMINI_MODEL"`
	GeminiImageModel string `mapstructure:"GEMINI_MODEL_IMAGE"`
	GeminiBaseURL    string `mapstructure:"GEMINI_BASE_URL"`

	ClaudeKey     string `mapstructure:"CLAUDE_API_KEY"`
	ClaudeModel   string `mapstructure:"CLAUDE_MODEL"`
	ClaudeBaseURL string `mapstructure:"CLAUDE_BASE_URL"`

	MistralKey     string `mapstructure:"MISTRAL_API_KEY"`
	MistralModel   string `mapstructure:"MISTRAL_MODEL"`
	MistralBaseURL string `mapstructure:"MISTRAL_BASE_URL"`

	// Pipeline limits
	PlanTimeout      time.Duration `mapstructure:"PLAN_TIMEOUT"`
	ImageTimeout     time.Duration `mapstructure:"IMAGE_TIMEOUT"`
	GenerationLimit  int           `mapstructure:"GENERATION_LIMIT"`
	GenerationWindow time.Duration `mapstructure:"GENERATION_WINDOW"`

	// Billing (Stripe)
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripePriceID       string `mapstructure:"STRIPE_PRICE_ID"`
	StripeTrialDays     int64  `mapstructure:"STRIPE_TRIAL_DAYS"`

	// Identity provider (Clerk)
	ClerkPublishableKey string `mapstructure:"CLERK_PUBLISHABLE_KEY"`
	ClerkSecretKey      string `mapstructure:"CLERK_SECRET_KEY"`
	ClerkJWKSURL        string `mapstructure:"CLERK_JWKS_URL"`
	ClerkIssuer         string `mapstructure:"CLERK_ISSUER"`

	// S3-compatible object storage (optional)
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3PublicURL string `mapstructure:"S3_PUBLIC_URL"`

	// RabbitMQ (optional)
	AMQPURL string `mapstructure:"AMQP_URL"`

	// Scheduled jobs
	SubscriptionSweepSchedule string `mapstructure:"SUBSCRIPTION_SWEEP_SCHEDULE"`
}

var defaults = map[string]any{
	"APP_HOST":             "0.0.0.0",
	"APP_PORT":             "8080",
	"APP_ENV":              "development",
	"APP_BASE_URL":         "http://localhost:5173",
	"CORS_ALLOWED_ORIGINS": "http://localhost:5173",

	"VALKEY_HOST": "localhost",
	"VALKEY_PORT": "6379",

	"AI_PROVIDER":        "openai",
	"OPENAI_MODEL":       "gpt-5",
	"OPENAI_IMAGE_MODEL": "gpt-image-1",
	"OPENAI_BASE_URL":    "https://api.openai.com/v1",
	"GEMINI_MODEL":       "gemini-2.5-pro",
	"GEMINI_MODEL_IMAGE": "gemini-2.5-flash-image",
	"GEMINI_BASE_URL":    "https://generativelanguage.googleapis.com",
	"CLAUDE_MODEL":       "claude-sonnet-4-6",
	"CLAUDE_BASE_URL":    "https://api.anthropic.com",
	"MISTRAL_MODEL":      "mistral-large-latest",
	"MISTRAL_BASE_URL":   "https://api.mistral.ai/v1",

	"PLAN_TIMEOUT":      "90s",
	"IMAGE_TIMEOUT":     "90s",
	"GENERATION_LIMIT":  20,
	"GENERATION_WINDOW": "1h",

	"STRIPE_TRIAL_DAYS": 30,

	"S3_REGION": "fsn1",
	"S3_BUCKET": "partybloom-public",

	"SUBSCRIPTION_SWEEP_SCHEDULE": "@every 15m",
}

// Load reads configuration from environment variables (and a .env file when
// present), applying defaults for development where appropriate. Returns an
// error if critical values are missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv only resolves keys viper already knows about; bind the
	// ones without defaults so Unmarshal sees them.
	for _, key := range envKeys() {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.AIImageProvider == "" {
		cfg.AIImageProvider = cfg.AIProvider
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces required settings. The database URL is always required;
// provider credentials are only mandatory in production.
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}
	if c.Env != "production" {
		return nil
	}

	var missing []string
	if c.providerKey(c.AIProvider) == "" {
		missing = append(missing, strings.ToUpper(c.AIProvider)+"_API_KEY")
	}
	if c.AIImageProvider != c.AIProvider && c.providerKey(c.AIImageProvider) == "" {
		missing = append(missing, strings.ToUpper(c.AIImageProvider)+"_API_KEY")
	}
	required := map[string]string{
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
		"STRIPE_PRICE_ID":       c.StripePriceID,
		"CLERK_PUBLISHABLE_KEY": c.ClerkPublishableKey,
		"CLERK_SECRET_KEY":      c.ClerkSecretKey,
		"CLERK_JWKS_URL":        c.ClerkJWKSURL,
	}
	for _, key := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_PRICE_ID", "CLERK_PUBLISHABLE_KEY", "CLERK_SECRET_KEY", "CLERK_JWKS_URL"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration in production: %s", strings.Join(missing, ", "))
	}
	return nil
}

// providerKey returns the API key configured for a named AI provider.
func (c *Config) providerKey(name string) string {
	switch name {
	case "openai":
		return c.OpenAIKey
	case "gemini":
		return c.GeminiKey
	case "claude":
		return c.ClaudeKey
	case "mistral":
		return c.MistralKey
	}
	return ""
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CORSOrigins splits the comma-separated allowed origins list.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// envKeys lists every mapstructure key of Config.
func envKeys() []string {
	return []string{
		"APP_HOST", "APP_PORT", "APP_ENV", "APP_BASE_URL", "CORS_ALLOWED_ORIGINS",
		"DATABASE_URL",
		"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD",
		"AI_PROVIDER", "AI_IMAGE_PROVIDER",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_IMAGE_MODEL", "OPENAI_BASE_URL",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_MODEL_IMAGE", "GEMINI_BASE_URL",
		"CLAUDE_API_KEY", "CLAUDE_MODEL", "CLAUDE_BASE_URL",
		"MISTRAL_API_KEY", "MISTRAL_MODEL", "MISTRAL_BASE_URL",
		"PLAN_TIMEOUT", "IMAGE_TIMEOUT", "GENERATION_LIMIT", "GENERATION_WINDOW",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_PRICE_ID", "STRIPE_TRIAL_DAYS",
		"CLERK_PUBLISHABLE_KEY", "CLERK_SECRET_KEY", "CLERK_JWKS_URL", "CLERK_ISSUER",
		"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_PUBLIC_URL",
		"AMQP_URL",
		"SUBSCRIPTION_SWEEP_SCHEDULE",
	}
}
