// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// mockProvider is a test double implementing the Provider interface.
// It records calls and returns configurable responses.
type mockProvider struct {
	name       string
	response   string
	err        error
	callCount  int
	lastSystem string
	lastUser   string
	mu         sync.Mutex
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.response, m.err
}

// structuredMock also implements StructuredGenerator and ImageGenerator.
type structuredMock struct {
	mockProvider
	lastRequest Request
	image       *Image
	lastAspect  Aspect
}

func (m *structuredMock) GenerateStructured(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.lastRequest = req
	return m.response, m.err
}

func (m *structuredMock) GenerateImage(ctx context.Context, prompt string, aspect Aspect) (*Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUser = prompt
	m.lastAspect = aspect
	return m.image, m.err
}

type stubModerator struct {
	result *ModerationResult
	err    error
	calls  int
}

func (m *stubModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	m.calls++
	return m.result, m.err
}

func newTestRegistry(active, image string, providers map[string]Provider) *Registry {
	return &Registry{providers: providers, active: active, activeImage: image}
}

// ---------- Registry.Generate ----------

func TestRegistryGenerate(t *testing.T) {
	t.Run("delegates to active provider", func(t *testing.T) {
		mock := &mockProvider{name: "test", response: "Hello from mock"}
		reg := newTestRegistry("test", "", map[string]Provider{"test": mock})

		result, err := reg.Generate(context.Background(), "system", "user")
		if err != nil {
			t.Fatalf("Generate: unexpected error: %v", err)
		}
		if result != "Hello from mock" {
			t.Errorf("result: got %q, want %q", result, "Hello from mock")
		}
		if mock.lastSystem != "system" || mock.lastUser != "user" {
			t.Errorf("prompts: got %q/%q", mock.lastSystem, mock.lastUser)
		}
	})

	t.Run("propagates provider error", func(t *testing.T) {
		mock := &mockProvider{name: "test", err: fmt.Errorf("api failure")}
		reg := newTestRegistry("test", "", map[string]Provider{"test": mock})

		if _, err := reg.Generate(context.Background(), "system", "user"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("error when active name does not match", func(t *testing.T) {
		reg := newTestRegistry("missing", "", map[string]Provider{})
		if _, err := reg.Generate(context.Background(), "s", "u"); err == nil {
			t.Fatal("expected error for missing provider")
		}
	})
}

// ---------- Registry.Complete ----------

func TestRegistryComplete(t *testing.T) {
	t.Run("uses structured generator when available", func(t *testing.T) {
		mock := &structuredMock{mockProvider: mockProvider{name: "s", response: `{"ok":true}`}}
		reg := newTestRegistry("s", "", map[string]Provider{"s": mock})

		req := Request{System: "sys", User: "usr", JSON: true, Images: []Attachment{{MimeType: "image/png", Data: []byte{1}}}}
		got, err := reg.Complete(context.Background(), req)
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if got != `{"ok":true}` {
			t.Errorf("got %q", got)
		}
		if !mock.lastRequest.JSON || len(mock.lastRequest.Images) != 1 {
			t.Errorf("request not forwarded intact: %+v", mock.lastRequest)
		}
	})

	t.Run("falls back to Generate for plain providers", func(t *testing.T) {
		mock := &mockProvider{name: "plain", response: "text"}
		reg := newTestRegistry("plain", "", map[string]Provider{"plain": mock})

		got, err := reg.Complete(context.Background(), Request{System: "sys", User: "usr", JSON: true})
		if err != nil || got != "text" {
			t.Fatalf("Complete = %q, %v", got, err)
		}
		if mock.lastSystem != "sys" || mock.lastUser != "usr" {
			t.Errorf("prompts: got %q/%q", mock.lastSystem, mock.lastUser)
		}
	})

	t.Run("plain providers reject images", func(t *testing.T) {
		mock := &mockProvider{name: "plain"}
		reg := newTestRegistry("plain", "", map[string]Provider{"plain": mock})

		_, err := reg.Complete(context.Background(), Request{Images: []Attachment{{MimeType: "image/png"}}})
		if !errors.Is(err, ErrImagesUnsupported) {
			t.Fatalf("expected ErrImagesUnsupported, got %v", err)
		}
		if mock.callCount != 0 {
			t.Error("provider should not be called")
		}
	})
}

// ---------- Image provider selection ----------

func TestRegistryGenerateImage(t *testing.T) {
	text := &mockProvider{name: "text"}
	img := &structuredMock{
		mockProvider: mockProvider{name: "img"},
		image:        &Image{URL: "https://img.example.com/a.png"},
	}
	reg := newTestRegistry("text", "img", map[string]Provider{"text": text, "img": img})

	got, err := reg.GenerateImage(context.Background(), "balloons", AspectPortrait)
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if got.Src() != "https://img.example.com/a.png" {
		t.Errorf("Src = %q", got.Src())
	}
	if img.lastAspect != AspectPortrait || img.lastUser != "balloons" {
		t.Errorf("image call not forwarded: %q %v", img.lastUser, img.lastAspect)
	}
	if !reg.SupportsImageGeneration() {
		t.Error("SupportsImageGeneration should be true")
	}

	reg.activeImage = "text"
	if _, err := reg.GenerateImage(context.Background(), "x", AspectSquare); err == nil {
		t.Error("text-only provider should not generate images")
	}
	if reg.SupportsImageGeneration() {
		t.Error("SupportsImageGeneration should be false for text-only provider")
	}
}

func TestImageSrc(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
		want string
	}{
		{"nil", nil, ""},
		{"url wins", &Image{URL: "https://x/y.png", Data: []byte("abc")}, "https://x/y.png"},
		{"data uri", &Image{Data: []byte("abc"), MimeType: "image/webp"}, "data:image/webp;base64,YWJj"},
		{"default mime", &Image{Data: []byte("abc")}, "data:image/png;base64,YWJj"},
		{"empty", &Image{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.img.Src(); got != tt.want {
				t.Errorf("Src() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------- Moderation ----------

func TestRegistryCheckPrompt(t *testing.T) {
	t.Run("no moderator is safe", func(t *testing.T) {
		reg := newTestRegistry("x", "", map[string]Provider{})
		res, err := reg.CheckPrompt(context.Background(), "anything")
		if err != nil || !res.Safe {
			t.Fatalf("CheckPrompt = %+v, %v", res, err)
		}
	})

	t.Run("delegates to moderator", func(t *testing.T) {
		mod := &stubModerator{result: &ModerationResult{Safe: false, Categories: []string{"violence"}}}
		reg := newTestRegistry("x", "", map[string]Provider{})
		reg.SetModerator(mod)

		res, err := reg.CheckPrompt(context.Background(), "bad")
		if err != nil {
			t.Fatalf("CheckPrompt: %v", err)
		}
		if res.Safe || len(res.Categories) != 1 || mod.calls != 1 {
			t.Errorf("unexpected result %+v (calls %d)", res, mod.calls)
		}
	})
}

func TestFallbackModerator(t *testing.T) {
	t.Run("primary success skips secondary", func(t *testing.T) {
		primary := &stubModerator{result: &ModerationResult{Safe: true}}
		secondary := &stubModerator{result: &ModerationResult{Safe: false}}
		res, err := newFallbackModerator(primary, secondary).CheckSafety(context.Background(), "x")
		if err != nil || !res.Safe || secondary.calls != 0 {
			t.Fatalf("got %+v, %v, secondary calls %d", res, err, secondary.calls)
		}
	})

	t.Run("primary error uses secondary", func(t *testing.T) {
		primary := &stubModerator{err: errors.New("401")}
		secondary := &stubModerator{result: &ModerationResult{Safe: false, Categories: []string{"hate"}}}
		res, err := newFallbackModerator(primary, secondary).CheckSafety(context.Background(), "x")
		if err != nil || res.Safe {
			t.Fatalf("got %+v, %v", res, err)
		}
	})

	t.Run("both fail", func(t *testing.T) {
		primary := &stubModerator{err: errors.New("401")}
		secondary := &stubModerator{err: errors.New("503")}
		if _, err := newFallbackModerator(primary, secondary).CheckSafety(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	})
}

// ---------- Construction ----------

func TestNewRegistrySkipsEmptyAPIKey(t *testing.T) {
	reg := NewRegistry("openai", "", map[string]ProviderConfig{
		"openai": {APIKey: ""},
		"gemini": {APIKey: "k"},
		"bogus":  {APIKey: "k"},
	})
	if reg.HasProvider("openai") || reg.HasProvider("bogus") {
		t.Errorf("unexpected providers: %v", reg.Available())
	}
	if !reg.HasProvider("gemini") {
		t.Error("gemini should be registered")
	}
	if reg.ImageProviderName() != "openai" {
		t.Errorf("image provider default: got %q", reg.ImageProviderName())
	}
}

func TestNewRegistryModeratorSelection(t *testing.T) {
	tests := []struct {
		name    string
		configs map[string]ProviderConfig
		check   func(Moderator) bool
	}{
		{"none", map[string]ProviderConfig{"gemini": {APIKey: "k"}}, func(m Moderator) bool { return m == nil }},
		{"openai", map[string]ProviderConfig{"openai": {APIKey: "k"}}, func(m Moderator) bool { _, ok := m.(*openAIModerator); return ok }},
		{"mistral", map[string]ProviderConfig{"mistral": {APIKey: "k"}}, func(m Moderator) bool { _, ok := m.(*mistralModerator); return ok }},
		{"both", map[string]ProviderConfig{"openai": {APIKey: "k"}, "mistral": {APIKey: "k"}}, func(m Moderator) bool { _, ok := m.(*fallbackModerator); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry("openai", "", tt.configs)
			if !tt.check(reg.moderator) {
				t.Errorf("unexpected moderator %T", reg.moderator)
			}
		})
	}
}

func TestRegistryConcurrency(t *testing.T) {
	reg := newTestRegistry("a", "a", map[string]Provider{
		"a": &mockProvider{name: "a"},
		"b": &mockProvider{name: "b"},
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := "a"
			if i%2 == 0 {
				name = "b"
			}
			_ = reg.SetActive(name)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = reg.Active()
			_ = reg.Available()
			_ = reg.HasProvider("a")
		}()
	}
	wg.Wait()
}
