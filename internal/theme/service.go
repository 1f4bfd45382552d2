// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"partybloom/internal/ai"
	"partybloom/internal/models"
)

// moderationTimeout bounds the moderation check, primary and fallback
// together.
const moderationTimeout = 20 * time.Second

// Moderator screens user-supplied text. *ai.Registry satisfies it.
type Moderator interface {
	CheckPrompt(ctx context.Context, prompt string) (*ai.ModerationResult, error)
}

// Service runs the whole pipeline: compose, moderate, plan, synthesize,
// assemble.
type Service struct {
	moderator Moderator
	planner   *Planner
	synth     *Synthesizer
}

// NewService wires a pipeline. moderator may be nil.
func NewService(moderator Moderator, planner *Planner, synth *Synthesizer) *Service {
	return &Service{moderator: moderator, planner: planner, synth: synth}
}

// MaxDuration is the longest Generate can take: moderation, then the text
// call, then one round of parallel image calls.
func (s *Service) MaxDuration() time.Duration {
	d := s.planner.timeout + s.synth.timeout
	if s.moderator != nil {
		d += moderationTimeout
	}
	return d
}

// Generate produces a theme for one request. Image failures never fail the
// call; only invalid input and text-model failures do.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*models.ThemeResult, error) {
	instruction, err := Compose(req)
	if err != nil {
		return nil, err
	}

	var attachments []ai.Attachment
	if req.Mode == ModeUpload && strings.TrimSpace(req.Payload) != "" {
		att, err := DecodeDataURI(req.Payload)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}

	if err := s.moderate(ctx, req); err != nil {
		return nil, err
	}

	start := time.Now()
	plan, err := s.planner.Generate(ctx, instruction, attachments)
	if err != nil {
		return nil, err
	}

	images := s.synth.Synthesize(ctx, plan)
	result := Assemble(plan, images)

	slog.Info("theme generated",
		"title", result.Title,
		"hero", result.HeroImage != "",
		"moodboard", len(result.MoodboardImages),
		"duration", time.Since(start),
	)
	return &result, nil
}

// moderate checks the vision text and, in template mode, the template
// description. Upload payloads are image bytes and skip this check.
// Moderation outages fail open.
func (s *Service) moderate(ctx context.Context, req GenerationRequest) error {
	if s.moderator == nil {
		return nil
	}
	text := strings.TrimSpace(req.Vision)
	if req.Mode != ModeUpload {
		text = strings.TrimSpace(text + "\n" + strings.TrimSpace(req.Payload))
	}
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, moderationTimeout)
	defer cancel()

	result, err := s.moderator.CheckPrompt(ctx, text)
	if err != nil {
		slog.Warn("moderation check failed, allowing prompt", "error", err)
		return nil
	}
	if result.Safe {
		return nil
	}

	categories := strings.Join(result.Categories, ", ")
	slog.Warn("prompt flagged by moderation", "categories", categories)
	return &InvalidInputError{Message: fmt.Sprintf(
		"Your prompt was flagged for: %s. Please reformulate your request and try again.", categories,
	)}
}
