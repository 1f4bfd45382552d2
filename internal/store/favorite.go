// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"partybloom/internal/models"
)

// FavoriteStore handles saved theme persistence.
type FavoriteStore struct {
	db *sql.DB
}

// NewFavoriteStore creates a new FavoriteStore.
func NewFavoriteStore(db *sql.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

const favoriteColumns = `id, user_id, title, description, colors, hero_image,
	moodboard_images, decor_items, total_cost_range, created_at`

func scanFavorite(row rowScanner) (*models.Favorite, error) {
	f := &models.Favorite{}
	var colors, moodboard, decor []byte
	err := row.Scan(
		&f.ID, &f.UserID, &f.Title, &f.Description, &colors, &f.HeroImage,
		&moodboard, &decor, &f.TotalCostRange, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(colors, &f.Colors); err != nil {
		return nil, fmt.Errorf("decode colors: %w", err)
	}
	if err := json.Unmarshal(moodboard, &f.MoodboardImages); err != nil {
		return nil, fmt.Errorf("decode moodboard images: %w", err)
	}
	if err := json.Unmarshal(decor, &f.DecorItems); err != nil {
		return nil, fmt.Errorf("decode decor items: %w", err)
	}
	normalizeLists(&f.ThemeResult)
	return f, nil
}

// normalizeLists replaces nil slices with empty ones so they encode as [].
func normalizeLists(t *models.ThemeResult) {
	if t.Colors == nil {
		t.Colors = []string{}
	}
	if t.MoodboardImages == nil {
		t.MoodboardImages = []string{}
	}
	if t.DecorItems == nil {
		t.DecorItems = []models.DecorItem{}
	}
}

// List returns the user's favorites, newest first. Never returns a nil slice.
func (s *FavoriteStore) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favorites rows: %w", err)
	}
	return favorites, nil
}

// Create saves a theme snapshot for the user. The title must be non-blank.
func (s *FavoriteStore) Create(ctx context.Context, userID string, theme models.ThemeResult) (*models.Favorite, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "is required"}
	}
	if strings.TrimSpace(theme.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	normalizeLists(&theme)

	colors, err := json.Marshal(theme.Colors)
	if err != nil {
		return nil, fmt.Errorf("encode colors: %w", err)
	}
	moodboard, err := json.Marshal(theme.MoodboardImages)
	if err != nil {
		return nil, fmt.Errorf("encode moodboard images: %w", err)
	}
	decor, err := json.Marshal(theme.DecorItems)
	if err != nil {
		return nil, fmt.Errorf("encode decor items: %w", err)
	}

	f, err := scanFavorite(s.db.QueryRowContext(ctx, `
		INSERT INTO favorites (user_id, title, description, colors, hero_image,
			moodboard_images, decor_items, total_cost_range)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+favoriteColumns,
		userID, theme.Title, theme.Description, string(colors), theme.HeroImage,
		string(moodboard), string(decor), theme.TotalCostRange,
	))
	if err != nil {
		return nil, fmt.Errorf("create favorite: %w", err)
	}
	return f, nil
}

// Get returns a favorite owned by the user, or nil if it does not exist or
// belongs to someone else.
func (s *FavoriteStore) Get(ctx context.Context, id int64, userID string) (*models.Favorite, error) {
	f, err := scanFavorite(s.db.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get favorite: %w", err)
	}
	return f, nil
}

// Delete removes a favorite if, and only if, the user owns it. Reports
// whether a row was removed; a missing or foreign id yields false.
func (s *FavoriteStore) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete favorite begin: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM favorites WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete favorite lookup: %w", err)
	}
	if owner != userID {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete favorite commit: %w", err)
	}
	return true, nil
}
