// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads. Empty values are treated as
// unset, so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys() {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error should mention DATABASE_URL, got %q", err.Error())
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/partybloom")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	check := func(field, got, want string) {
		t.Helper()
		if got != want {
			t.Errorf("%s: got %q, want %q", field, got, want)
		}
	}

	check("Host", cfg.Host, "0.0.0.0")
	check("Port", cfg.Port, "8080")
	check("Env", cfg.Env, "development")
	check("ValkeyHost", cfg.ValkeyHost, "localhost")
	check("ValkeyPort", cfg.ValkeyPort, "6379")
	check("AIProvider", cfg.AIProvider, "openai")
	check("AIImageProvider", cfg.AIImageProvider, "openai")
	check("OpenAIModel", cfg.OpenAIModel, "gpt-5")
	check("OpenAIImageModel", cfg.OpenAIImageModel, "gpt-image-1")
	check("OpenAIBaseURL", cfg.OpenAIBaseURL, "https://api.openai.com/v1")
	check("SubscriptionSweepSchedule", cfg.SubscriptionSweepSchedule, "@every 15m")

	if cfg.ImageTimeout != 90*time.Second {
		t.Errorf("ImageTimeout: got %v, want 90s", cfg.ImageTimeout)
	}
	if cfg.PlanTimeout != 90*time.Second {
		t.Errorf("PlanTimeout: got %v, want 90s", cfg.PlanTimeout)
	}
	if cfg.GenerationLimit != 20 {
		t.Errorf("GenerationLimit: got %d, want 20", cfg.GenerationLimit)
	}
	if cfg.GenerationWindow != time.Hour {
		t.Errorf("GenerationWindow: got %v, want 1h", cfg.GenerationWindow)
	}
	if cfg.StripeTrialDays != 30 {
		t.Errorf("StripeTrialDays: got %d, want 30", cfg.StripeTrialDays)
	}
	if !cfg.IsDev() {
		t.Error("IsDev() should be true by default")
	}
}

func TestLoad_ImageProviderOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/partybloom")
	t.Setenv("AI_PROVIDER", "claude")
	t.Setenv("AI_IMAGE_PROVIDER", "gemini")
	t.Setenv("IMAGE_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AIProvider != "claude" || cfg.AIImageProvider != "gemini" {
		t.Errorf("providers: got %q/%q, want claude/gemini", cfg.AIProvider, cfg.AIImageProvider)
	}
	if cfg.ImageTimeout != 45*time.Second {
		t.Errorf("ImageTimeout: got %v, want 45s", cfg.ImageTimeout)
	}
}

func TestLoad_ProductionRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/partybloom")
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for production without credentials")
	}
	for _, key := range []string{"OPENAI_API_KEY", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "CLERK_JWKS_URL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should mention %s, got %q", key, err.Error())
		}
	}
}

func TestLoad_ProductionComplete(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/partybloom")
	t.Setenv("APP_ENV", "production")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("STRIPE_PRICE_ID", "price_123")
	t.Setenv("CLERK_PUBLISHABLE_KEY", "pk_test")
	t.Setenv("CLERK_SECRET_KEY", "sk_clerk")
	t.Setenv("CLERK_JWKS_URL", "https://clerk.example.com/.well-known/jwks.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev() should be false in production")
	}
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://a.example.com, ,https://b.example.com "}
	got := cfg.CORSOrigins()
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins() = %v", got)
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: "9000"}
	if got := cfg.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:9000")
	}
}
