// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import "partybloom/internal/models"

// Assemble merges a plan with its images. It is pure: the same inputs always
// give an equal result, and list fields are never nil.
func Assemble(plan *Plan, images Images) models.ThemeResult {
	return models.ThemeResult{
		Title:           plan.Title,
		Description:     plan.Description,
		Colors:          cloneOrEmpty(plan.Colors),
		HeroImage:       images.Hero,
		MoodboardImages: cloneOrEmpty(images.Moodboard),
		DecorItems:      cloneOrEmpty(plan.DecorItems),
		TotalCostRange:  plan.TotalCostRange,
	}
}

func cloneOrEmpty[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
