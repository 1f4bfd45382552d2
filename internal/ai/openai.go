// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openAIProvider implements the Provider interface using the OpenAI
// chat completions API (POST /v1/chat/completions) and the image
// generation API (POST /v1/images/generations).
type openAIProvider struct {
	name   string
	config ProviderConfig
	client *http.Client
}

// newOpenAI creates a new OpenAI provider.
func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.ModelImage == "" {
		cfg.ModelImage = "gpt-image-1"
	}
	return &openAIProvider{
		name:   "openai",
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *openAIProvider) Name() string { return "openai" }

// Generate sends a chat completion request to OpenAI and returns the
// assistant's response text.
func (p *openAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.GenerateStructured(ctx, Request{System: systemPrompt, User: userPrompt})
}

// GenerateStructured sends a chat completion with optional image parts and
// JSON-object output mode.
func (p *openAIProvider) GenerateStructured(ctx context.Context, req Request) (string, error) {
	return p.doChat(ctx, buildOpenAIRequest(p.config.Model, req))
}

// buildOpenAIRequest converts a Request to the chat completions format.
// Shared between OpenAI and Mistral.
func buildOpenAIRequest(model string, req Request) openAIRequest {
	var user any = req.User
	if len(req.Images) > 0 {
		parts := []openAIContentPart{{Type: "text", Text: req.User}}
		for _, img := range req.Images {
			parts = append(parts, openAIContentPart{
				Type: "image_url",
				ImageURL: &openAIImageURL{
					URL: "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}
		user = parts
	}

	body := openAIRequest{
		Model: model,
		Messages: []openAIRequestMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: user},
		},
	}
	if req.JSON {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}
	return body
}

// doChat performs the HTTP call to the chat completions endpoint.
// Shared between OpenAI and Mistral (same API format).
func (p *openAIProvider) doChat(ctx context.Context, body openAIRequest) (string, error) {
	var result openAIResponse
	if err := p.post(ctx, "/chat/completions", body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", p.label())
	}
	return result.Choices[0].Message.Content, nil
}

// GenerateImage creates an image with the images API. Portrait requests use
// 1024x1536; everything else is square.
func (p *openAIProvider) GenerateImage(ctx context.Context, prompt string, aspect Aspect) (*Image, error) {
	size := "1024x1024"
	if aspect == AspectPortrait {
		size = "1024x1536"
	}
	body := openAIImageRequest{
		Model:  p.config.ModelImage,
		Prompt: prompt,
		Size:   size,
		N:      1,
	}

	var result openAIImageResponse
	if err := p.post(ctx, "/images/generations", body, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("openai image: no data returned")
	}

	d := result.Data[0]
	if d.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai image decode base64: %w", err)
		}
		return &Image{Data: raw, MimeType: "image/png"}, nil
	}
	if d.URL != "" {
		return &Image{URL: d.URL}, nil
	}
	return nil, fmt.Errorf("openai image: empty image in response")
}

// post marshals body, sends it to path and decodes a 200 response into out.
func (p *openAIProvider) post(ctx context.Context, path string, body, out any) error {
	label := p.label()
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", label, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s http: %w", label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read body: %w", label, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (status %d): %s", label, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s unmarshal: %w", label, err)
	}
	return nil
}

// label names the backend in error messages; Mistral reuses this client.
func (p *openAIProvider) label() string {
	if p.name == "" {
		return "openai"
	}
	return p.name
}

// --- OpenAI-compatible request/response types ---
// Used by both OpenAI and Mistral providers.

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequestMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openAIContentPart
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                 `json:"model"`
	Messages       []openAIRequestMessage `json:"messages"`
	ResponseFormat *openAIResponseFormat  `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type openAIImageResponse struct {
	Data []openAIImageData `json:"data"`
}

type openAIImageData struct {
	B64JSON string `json:"b64_json"`
	URL     string `json:"url"`
}
