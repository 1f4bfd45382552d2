// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ModerationResult contains the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool     // true if the prompt passes moderation
	Categories []string // flagged category names, sorted (empty when safe)
}

// Moderator checks user prompts for policy violations before sending
// them to AI generation endpoints.
type Moderator interface {
	// CheckSafety evaluates a text prompt and returns whether it is safe
	// to send to an AI provider. If not safe, Categories lists the reasons.
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// childSafeThresholds lowers the bar for categories that must never reach a
// kids' party theme. A category whose score reaches its threshold is flagged
// even when the provider did not flag it. Keys are normalized category names.
var childSafeThresholds = map[string]float64{
	"sexual":                         0.2,
	"sexual minors":                  0.05,
	"violence":                       0.5,
	"violence graphic":               0.2,
	"violence and threats":           0.4,
	"hate threatening":               0.2,
	"illicit violent":                0.2,
	"self harm":                      0.2,
	"selfharm":                       0.2,
	"dangerous and criminal content": 0.3,
}

const moderationTimeout = 15 * time.Second

// moderationScores is what both moderation APIs return per input.
type moderationScores struct {
	Flagged    bool               `json:"flagged"`
	Categories map[string]bool    `json:"categories"`
	Scores     map[string]float64 `json:"category_scores"`
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []moderationScores `json:"results"`
}

// postModeration sends one moderation request and returns the first result,
// or nil when the API returned none.
func postModeration(ctx context.Context, client *http.Client, label, url, apiKey, model, text string) (*moderationScores, error) {
	payload, err := json.Marshal(moderationRequest{Model: model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", label, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s http: %w", label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", label, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", label, resp.StatusCode, string(respBody))
	}

	var result moderationResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%s unmarshal: %w", label, err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}

// verdict merges the provider's own flags with the child-safe thresholds.
func (s *moderationScores) verdict() *ModerationResult {
	if s == nil {
		return &ModerationResult{Safe: true}
	}

	seen := make(map[string]bool)
	for cat, flagged := range s.Categories {
		if flagged {
			seen[displayCategory(cat)] = true
		}
	}
	for cat, score := range s.Scores {
		name := displayCategory(cat)
		if limit, ok := childSafeThresholds[normalizeCategory(cat)]; ok && score >= limit {
			seen[name] = true
		}
	}

	if s.Flagged && len(seen) == 0 {
		seen["policy violation"] = true
	}

	flagged := make([]string, 0, len(seen))
	for name := range seen {
		flagged = append(flagged, name)
	}
	sort.Strings(flagged)
	return &ModerationResult{Safe: len(flagged) == 0, Categories: flagged}
}

// displayCategory turns "hate/threatening" into "hate (threatening)" and
// "violence_and_threats" into "violence and threats".
func displayCategory(cat string) string {
	display := cat
	if head, tail, ok := strings.Cut(cat, "/"); ok {
		display = head + " (" + tail + ")"
	}
	display = strings.ReplaceAll(display, "-", " ")
	return strings.ReplaceAll(display, "_", " ")
}

// normalizeCategory maps both providers' spellings onto one key space:
// "sexual/minors" and "self-harm" become "sexual minors" and "self harm".
func normalizeCategory(cat string) string {
	r := strings.NewReplacer("/", " ", "-", " ", "_", " ")
	return r.Replace(strings.ToLower(cat))
}

// --- OpenAI Moderation (free endpoint) ---

// openAIModerator uses the OpenAI Moderation API (POST /v1/moderations)
// which is free for all OpenAI API key holders.
type openAIModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// newOpenAIModerator creates a moderator that uses OpenAI's free moderation API.
func newOpenAIModerator(apiKey, baseURL string) *openAIModerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIModerator{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: moderationTimeout},
	}
}

func (m *openAIModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	scores, err := postModeration(ctx, m.client, "moderation", m.baseURL+"/moderations", m.apiKey, "omni-moderation-latest", text)
	if err != nil {
		return nil, err
	}
	return scores.verdict(), nil
}

// --- Mistral Moderation (paid, fallback) ---

// mistralModerator uses the Mistral Moderation API (POST /v1/moderations).
// Mistral has no top-level "flagged"; categories and scores decide.
type mistralModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// newMistralModerator creates a moderator using Mistral's classification endpoint.
func newMistralModerator(apiKey, baseURL string) *mistralModerator {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	return &mistralModerator{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: moderationTimeout},
	}
}

func (m *mistralModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	scores, err := postModeration(ctx, m.client, "mistral moderation", m.baseURL+"/v1/moderations", m.apiKey, "mistral-moderation-latest", text)
	if err != nil {
		return nil, err
	}
	return scores.verdict(), nil
}

// --- Fallback ---

// fallbackModerator tries primary first and switches to secondary when the
// primary endpoint errors (for example project-scoped keys that cannot
// reach the moderation API).
type fallbackModerator struct {
	primary   Moderator
	secondary Moderator
}

func newFallbackModerator(primary, secondary Moderator) *fallbackModerator {
	return &fallbackModerator{primary: primary, secondary: secondary}
}

func (m *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	res, err := m.primary.CheckSafety(ctx, text)
	if err == nil {
		return res, nil
	}
	res, err2 := m.secondary.CheckSafety(ctx, text)
	if err2 != nil {
		return nil, fmt.Errorf("moderation: primary: %v; fallback: %w", err, err2)
	}
	return res, nil
}
