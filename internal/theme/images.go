// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"partybloom/internal/ai"
)

const (
	heroPrefix      = "A beautiful photorealistic kids birthday party room fully decorated: "
	moodboardPrefix = "Photorealistic decorated party area: "
	styleSuffix     = ". Professional party photography, vibrant colors, celebration atmosphere, high quality, no text, no watermarks, no people."

	// DefaultImageTimeout bounds one image call.
	DefaultImageTimeout = 90 * time.Second
)

// ImageGenerator is the image-model call the synthesizer depends on.
// *ai.Registry satisfies it.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, aspect ai.Aspect) (*ai.Image, error)
}

// Images is the output of one synthesis. Moodboard never holds empty strings.
type Images struct {
	Hero      string
	Moodboard []string
}

// Synthesizer renders the hero and moodboard images of a plan.
type Synthesizer struct {
	gen     ImageGenerator
	timeout time.Duration
}

// NewSynthesizer creates a Synthesizer. A non-positive timeout uses
// DefaultImageTimeout.
func NewSynthesizer(gen ImageGenerator, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	return &Synthesizer{gen: gen, timeout: timeout}
}

// Synthesize issues the hero call and up to four moodboard calls at once and
// waits for all of them. Each call has its own deadline and is attempted
// once. A failed call leaves its slot empty: the hero becomes "" and failed
// moodboard slots are dropped.
func (s *Synthesizer) Synthesize(ctx context.Context, plan *Plan) Images {
	prompts := plan.MoodboardPrompts
	if len(prompts) > maxMoodboardPrompts {
		prompts = prompts[:maxMoodboardPrompts]
	}

	var hero string
	slots := make([]string, len(prompts))

	// No task returns an error; the group is only a join point.
	var g errgroup.Group
	if plan.HeroImagePrompt != "" {
		g.Go(func() error {
			hero = s.render(ctx, "hero", heroPrefix+plan.HeroImagePrompt+styleSuffix, ai.AspectPortrait)
			return nil
		})
	}
	for i, p := range prompts {
		g.Go(func() error {
			slots[i] = s.render(ctx, "moodboard", moodboardPrefix+p+styleSuffix, ai.AspectSquare)
			return nil
		})
	}
	_ = g.Wait()

	moodboard := make([]string, 0, len(slots))
	for _, src := range slots {
		if src != "" {
			moodboard = append(moodboard, src)
		}
	}
	return Images{Hero: hero, Moodboard: moodboard}
}

// render performs one image call and reduces every failure to "".
func (s *Synthesizer) render(ctx context.Context, kind, prompt string, aspect ai.Aspect) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	img, err := s.gen.GenerateImage(ctx, prompt, aspect)
	if err != nil {
		slog.Warn("image generation failed", "kind", kind, "error", err, "duration", time.Since(start))
		return ""
	}
	src := img.Src()
	if src == "" {
		slog.Warn("image generation returned no payload", "kind", kind)
	}
	return src
}
