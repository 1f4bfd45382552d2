// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"partybloom/internal/events"
	"partybloom/internal/middleware"
	"partybloom/internal/models"
	"partybloom/internal/theme"
)

// An upload is at most theme.MaxUploadBytes; base64 adds a third.
const maxGenerateBody = theme.MaxUploadBytes*4/3 + 64<<10

// ThemeGenerator runs the generation pipeline. *theme.Service satisfies it.
type ThemeGenerator interface {
	Generate(ctx context.Context, req theme.GenerationRequest) (*models.ThemeResult, error)
}

// Theme serves theme generation.
type Theme struct {
	generator ThemeGenerator
	events    events.Publisher
}

// NewTheme creates the theme handler.
func NewTheme(generator ThemeGenerator, pub events.Publisher) *Theme {
	return &Theme{generator: generator, events: pub}
}

type generateRequest struct {
	Prompt             string `json:"prompt" validate:"max=2000"`
	InspirationType    string `json:"inspirationType" validate:"omitempty,oneof=template upload"`
	InspirationContent string `json:"inspirationContent"`
}

// Generate handles POST /generate-theme.
func (h *Theme) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, maxGenerateBody, &req); err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.generator.Generate(r.Context(), theme.GenerationRequest{
		Vision:  req.Prompt,
		Mode:    theme.InspirationMode(req.InspirationType),
		Payload: req.InspirationContent,
	})
	if err != nil {
		var invalid *theme.InvalidInputError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, invalid.Message)
			return
		}
		slog.Error("theme generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate theme. Please try again.")
		return
	}

	if user := middleware.UserFromCtx(r.Context()); user != nil {
		events.Emit(r.Context(), h.events, events.ThemeGenerated, map[string]any{
			"userId":          user.ID,
			"title":           result.Title,
			"inspirationType": req.InspirationType,
			"moodboardImages": len(result.MoodboardImages),
			"hasHeroImage":    result.HeroImage != "",
		})
	}
	writeJSON(w, http.StatusOK, result)
}
