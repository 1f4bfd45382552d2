// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"partybloom/internal/ai"
	"partybloom/internal/models"
)

const (
	maxMoodboardPrompts = 4
	maxHeroPromptLen    = 350
	maxMoodPromptLen    = 300
	maxColors           = 5
	maxDecorItems       = 10
)

// SystemPrompt frames the text model as a party planner and pins the JSON
// shape the plan decoder expects.
const SystemPrompt = `You are a professional party planner specializing in kids' birthday party decorations.
Generate a complete party decoration plan in JSON format with the following structure:
{
  "title": "Theme name (e.g., 'Enchanted Princess Castle')",
  "description": "A 2-3 sentence description of the theme and its mood",
  "colors": ["#hex1", "#hex2", "#hex3", "#hex4"] (4-5 theme colors as hex codes),
  "heroImagePrompt": "A detailed prompt for generating the main hero image - a beautifully decorated party room showing the overall theme. Maximum 350 characters.",
  "moodboardPrompts": [
    "Prompt for decorated dessert/cake table with theme elements",
    "Prompt for balloon arch or backdrop setup",
    "Prompt for table setting with themed tableware and centerpieces",
    "Prompt for party favor/gift area with themed decorations"
  ] (4 distinct prompts, each max 300 characters, showing different decorated areas of a party room),
  "decorItems": [
    {
      "name": "Item name",
      "priceRange": "$X-$Y",
      "retailer": "Amazon/Party City/Target/etc",
      "link": "https://www.amazon.com/s?k=search+terms"
    }
  ] (5-10 decoration items with realistic price ranges),
  "totalCostRange": "$XX-$XXX"
}

Important:
- Respond with the JSON object only
- All image prompts should describe photorealistic, beautifully decorated party spaces
- Each moodboard prompt should focus on a different area: dessert table, balloon display, table settings, favor area
- Include theme-specific colors, decorations, and elements in each prompt
- Price ranges should be realistic for party decorations
- Include a mix of essentials (balloons, banners, tableware) and theme-specific items
- Total cost should accurately sum the individual item ranges
- Retailer links should be real search URLs for those items`

// Plan is the decoded, normalized output of the text model.
type Plan struct {
	Title            string
	Description      string
	Colors           []string
	HeroImagePrompt  string
	MoodboardPrompts []string
	DecorItems       []models.DecorItem
	TotalCostRange   string
}

// rawPlan mirrors the JSON the model is asked for. themeImagePrompt is
// accepted as an alias of heroImagePrompt.
type rawPlan struct {
	Title            string         `json:"title" validate:"required"`
	Description      string         `json:"description"`
	Colors           []string       `json:"colors"`
	HeroImagePrompt  string         `json:"heroImagePrompt"`
	ThemeImagePrompt string         `json:"themeImagePrompt"`
	MoodboardPrompts []string       `json:"moodboardPrompts"`
	DecorItems       []rawDecorItem `json:"decorItems" validate:"required,min=1"`
	TotalCostRange   string         `json:"totalCostRange"`
}

type rawDecorItem struct {
	Name       string `json:"name"`
	PriceRange string `json:"priceRange"`
	Retailer   string `json:"retailer"`
	Link       string `json:"link"`
}

var (
	planValidate = newPlanValidator()
	hexColor     = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// newPlanValidator reports fields by their JSON names.
func newPlanValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParsePlan decodes and normalizes a model response. It fails with an
// *UpstreamFormatError naming every problem it finds.
func ParsePlan(text string) (*Plan, error) {
	text = stripCodeFences(text)
	if text == "" {
		return nil, &UpstreamFormatError{Problems: []string{"empty response"}}
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &UpstreamFormatError{Problems: []string{"response is not a JSON object"}, Err: err}
	}

	raw.Title = strings.TrimSpace(raw.Title)

	if err := planValidate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &UpstreamFormatError{Err: err}
		}
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
		return nil, &UpstreamFormatError{Problems: problems}
	}

	plan := normalizePlan(raw)
	if len(plan.DecorItems) == 0 {
		return nil, &UpstreamFormatError{Problems: []string{"decorItems: no item has a name"}}
	}
	return plan, nil
}

// describeFieldError turns "rawPlan.decorItems" into
// "decorItems: required".
func describeFieldError(fe validator.FieldError) string {
	_, field, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		field = fe.Field()
	}
	if fe.Tag() == "min" {
		return fmt.Sprintf("%s: must have at least %s entries", field, fe.Param())
	}
	return fmt.Sprintf("%s: %s", field, fe.Tag())
}

func normalizePlan(raw rawPlan) *Plan {
	p := &Plan{
		Title:          raw.Title,
		Description:    strings.TrimSpace(raw.Description),
		TotalCostRange: strings.TrimSpace(raw.TotalCostRange),
	}

	p.Colors = make([]string, 0, maxColors)
	for _, c := range raw.Colors {
		c = strings.TrimSpace(c)
		if hexColor.MatchString(c) && len(p.Colors) < maxColors {
			p.Colors = append(p.Colors, c)
		}
	}

	hero := raw.HeroImagePrompt
	if strings.TrimSpace(hero) == "" {
		hero = raw.ThemeImagePrompt
	}
	p.HeroImagePrompt = truncateRunes(strings.TrimSpace(hero), maxHeroPromptLen)

	p.MoodboardPrompts = make([]string, 0, maxMoodboardPrompts)
	for _, mp := range raw.MoodboardPrompts {
		if len(p.MoodboardPrompts) == maxMoodboardPrompts {
			break
		}
		if mp = strings.TrimSpace(mp); mp != "" {
			p.MoodboardPrompts = append(p.MoodboardPrompts, truncateRunes(mp, maxMoodPromptLen))
		}
	}

	// Nameless items are dropped rather than failing the plan.
	p.DecorItems = make([]models.DecorItem, 0, maxDecorItems)
	for _, it := range raw.DecorItems {
		if len(p.DecorItems) == maxDecorItems {
			break
		}
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		p.DecorItems = append(p.DecorItems, models.DecorItem{
			Name:       name,
			PriceRange: strings.TrimSpace(it.PriceRange),
			Retailer:   strings.TrimSpace(it.Retailer),
			Link:       safeLink(it.Link),
		})
	}
	return p
}

// safeLink keeps only absolute http(s) URLs.
func safeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return raw
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// stripCodeFences removes a surrounding ```json ... ``` block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// Completer is the text-model call the planner depends on. *ai.Registry
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// DefaultPlanTimeout bounds the text-model call.
const DefaultPlanTimeout = 90 * time.Second

// Planner asks the text model for a Plan. It never retries.
type Planner struct {
	llm     Completer
	timeout time.Duration
}

// NewPlanner creates a Planner. A non-positive timeout uses
// DefaultPlanTimeout.
func NewPlanner(llm Completer, timeout time.Duration) *Planner {
	if timeout <= 0 {
		timeout = DefaultPlanTimeout
	}
	return &Planner{llm: llm, timeout: timeout}
}

// Generate performs one round trip. Call failures are
// *UpstreamUnavailableError; undecodable answers are *UpstreamFormatError.
func (p *Planner) Generate(ctx context.Context, instruction string, images []ai.Attachment) (*Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.llm.Complete(ctx, ai.Request{
		System: SystemPrompt,
		User:   instruction,
		Images: images,
		JSON:   true,
	})
	if err != nil {
		return nil, &UpstreamUnavailableError{Err: err}
	}

	plan, err := ParsePlan(text)
	if err != nil {
		return nil, err
	}
	slog.Debug("theme plan generated",
		"title", plan.Title,
		"moodboard_prompts", len(plan.MoodboardPrompts),
		"decor_items", len(plan.DecorItems),
		"duration", time.Since(start),
	)
	return plan, nil
}
