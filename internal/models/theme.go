// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// DecorItem is one entry of a theme's shopping list.
type DecorItem struct {
	Name       string `json:"name"`
	PriceRange string `json:"priceRange"`
	Retailer   string `json:"retailer"`
	Link       string `json:"link"`
}

// ThemeResult is the response contract of a theme generation. Image fields
// hold either a fetchable URL or a data: URI and may be empty.
type ThemeResult struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Colors          []string    `json:"colors"`
	HeroImage       string      `json:"heroImage"`
	MoodboardImages []string    `json:"moodboardImages"`
	DecorItems      []DecorItem `json:"decorItems"`
	TotalCostRange  string      `json:"totalCostRange"`
}

// Favorite is an immutable, user-owned snapshot of a ThemeResult.
type Favorite struct {
	ID     int64  `json:"id"`
	UserID string `json:"userId"`
	ThemeResult
	CreatedAt time.Time `json:"createdAt"`
}
