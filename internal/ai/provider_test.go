// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"
)

// TestProvidersLive asks every provider with a key in the environment for a
// small JSON object, the same call shape the theme planner uses. Providers
// without a key are skipped.
func TestProvidersLive(t *testing.T) {
	providers := []struct {
		name, keyEnv, modelEnv, model string
	}{
		{"openai", "OPENAI_API_KEY", "OPENAI_MODEL", "gpt-4o"},
		{"gemini", "GEMINI_API_KEY", "GEMINI_MODEL", "gemini-2.5-flash"},
		{"claude", "CLAUDE_API_KEY", "CLAUDE_MODEL", "claude-sonnet-4-6"},
		{"mistral", "MISTRAL_API_KEY", "MISTRAL_MODEL", "mistral-large-latest"},
	}

	for _, p := range providers {
		t.Run(p.name, func(t *testing.T) {
			key := os.Getenv(p.keyEnv)
			if key == "" {
				t.Skipf("%s not set", p.keyEnv)
			}
			model := os.Getenv(p.modelEnv)
			if model == "" {
				model = p.model
			}

			reg := NewRegistry(p.name, "", map[string]ProviderConfig{
				p.name: {APIKey: key, Model: model},
			})

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			out, err := reg.Complete(ctx, Request{
				System: `Respond with a JSON object {"title": string, "colors": [string]} only.`,
				User:   "Name a pirate birthday party theme and give three hex colors.",
				JSON:   true,
			})
			if err != nil {
				t.Fatalf("Complete failed: %v", err)
			}

			var plan struct {
				Title  string   `json:"title"`
				Colors []string `json:"colors"`
			}
			out = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(out), "```json"), "```"))
			if err := json.Unmarshal([]byte(out), &plan); err != nil {
				t.Fatalf("response is not JSON: %v\n%s", err, out)
			}
			if plan.Title == "" {
				t.Errorf("empty title in %s", out)
			}
			t.Logf("%s: %s %v", p.name, plan.Title, plan.Colors)
		})
	}
}

// TestRegistryBasics tests registry provider management without API calls.
func TestRegistryBasics(t *testing.T) {
	reg := NewRegistry("gemini", "", map[string]ProviderConfig{
		"openai":  {APIKey: "test-key", Model: "gpt-4o"},
		"gemini":  {APIKey: "test-key", Model: "gemini-pro"},
		"claude":  {APIKey: "", Model: "claude-sonnet"}, // No key, skipped.
		"mistral": {APIKey: "test-key", Model: "mistral-large"},
	})

	if reg.ActiveName() != "gemini" {
		t.Errorf("expected active=gemini, got %s", reg.ActiveName())
	}

	if reg.HasProvider("claude") {
		t.Error("claude should not be available (no API key)")
	}

	available := reg.Available()
	if len(available) != 3 {
		t.Errorf("expected 3 available providers, got %d: %v", len(available), available)
	}

	if err := reg.SetActive("openai"); err != nil {
		t.Errorf("SetActive(openai) failed: %v", err)
	}
	if reg.ActiveName() != "openai" {
		t.Errorf("expected active=openai after switch, got %s", reg.ActiveName())
	}

	if err := reg.SetActive("claude"); err == nil {
		t.Error("SetActive(claude) should fail (no API key)")
	}

	if reg.ImageProviderName() != "gemini" {
		t.Errorf("image provider should default to the text provider, got %s", reg.ImageProviderName())
	}
	if err := reg.SetImageProvider("mistral"); err == nil {
		t.Error("SetImageProvider(mistral) should fail (text-only)")
	}
	if err := reg.SetImageProvider("openai"); err != nil {
		t.Errorf("SetImageProvider(openai): %v", err)
	}
}

// TestOpenAIImageLive generates a square image against the real API.
// Skipped unless OPENAI_API_KEY and AI_LIVE_IMAGES are set.
func TestOpenAIImageLive(t *testing.T) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" || os.Getenv("AI_LIVE_IMAGES") == "" {
		t.Skip("OPENAI_API_KEY or AI_LIVE_IMAGES not set")
	}

	reg := NewRegistry("openai", "openai", map[string]ProviderConfig{
		"openai": {APIKey: key, Model: "gpt-4o"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	img, err := reg.GenerateImage(ctx, "A balloon arch in pastel colors", AspectSquare)
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if img.Src() == "" {
		t.Fatal("GenerateImage returned an empty image")
	}
}
