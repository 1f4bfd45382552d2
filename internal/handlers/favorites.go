// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"partybloom/internal/events"
	"partybloom/internal/middleware"
	"partybloom/internal/models"
	"partybloom/internal/store"
)

// Favorites carry up to five inline images.
const maxFavoriteBody = 48 << 20

// FavoriteRepository is the favorites storage. *store.FavoriteStore satisfies it.
type FavoriteRepository interface {
	List(ctx context.Context, userID string) ([]models.Favorite, error)
	Create(ctx context.Context, userID string, theme models.ThemeResult) (*models.Favorite, error)
	Get(ctx context.Context, id int64, userID string) (*models.Favorite, error)
	Delete(ctx context.Context, id int64, userID string) (bool, error)
}

// ImageHost moves inline images to object storage. *storage.Client satisfies it.
type ImageHost interface {
	RehostTheme(ctx context.Context, userID string, t *models.ThemeResult) error
	DeleteThemeImages(ctx context.Context, t models.ThemeResult)
}

// Favorites serves the saved-theme endpoints.
type Favorites struct {
	repo   FavoriteRepository
	images ImageHost
	events events.Publisher
}

// NewFavorites creates the favorites handler. images may be nil, in which
// case themes are stored exactly as received.
func NewFavorites(repo FavoriteRepository, images ImageHost, pub events.Publisher) *Favorites {
	return &Favorites{repo: repo, images: images, events: pub}
}

type favoriteRequest struct {
	Title           string             `json:"title" validate:"required,max=200"`
	Description     string             `json:"description" validate:"max=5000"`
	Colors          []string           `json:"colors" validate:"max=10"`
	HeroImage       string             `json:"heroImage"`
	MoodboardImages []string           `json:"moodboardImages" validate:"max=4"`
	DecorItems      []models.DecorItem `json:"decorItems" validate:"max=20"`
	TotalCostRange  string             `json:"totalCostRange" validate:"max=100"`
}

// List handles GET /favorites.
func (h *Favorites) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	favorites, err := h.repo.List(r.Context(), user.ID)
	if err != nil {
		slog.Error("list favorites failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch favorites")
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

// Create handles POST /favorites.
func (h *Favorites) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	var req favoriteRequest
	if err := decodeJSON(w, r, maxFavoriteBody, &req); err != nil {
		badRequest(w, err)
		return
	}
	result := models.ThemeResult(req)

	if h.images != nil {
		if err := h.images.RehostTheme(r.Context(), user.ID, &result); err != nil {
			slog.Warn("rehost favorite images failed, storing inline", "user_id", user.ID, "error", err)
		}
	}

	fav, err := h.repo.Create(r.Context(), user.ID, result)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		slog.Error("create favorite failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save favorite")
		return
	}

	slog.Info("favorite saved", "user_id", user.ID, "favorite_id", fav.ID)
	events.Emit(r.Context(), h.events, events.FavoriteCreated, map[string]any{
		"userId": user.ID, "favoriteId": fav.ID, "title": fav.Title,
	})
	writeJSON(w, http.StatusOK, fav)
}

// Delete handles DELETE /favorites/{id}.
func (h *Favorites) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid favorite ID")
		return
	}

	// Snapshot the hosted images before the row goes away.
	var snapshot *models.Favorite
	if h.images != nil {
		if snapshot, err = h.repo.Get(r.Context(), id, user.ID); err != nil {
			slog.Error("load favorite failed", "favorite_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete favorite")
			return
		}
	}

	deleted, err := h.repo.Delete(r.Context(), id, user.ID)
	if err != nil {
		slog.Error("delete favorite failed", "favorite_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete favorite")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Favorite not found")
		return
	}

	if snapshot != nil {
		h.images.DeleteThemeImages(r.Context(), snapshot.ThemeResult)
	}
	slog.Info("favorite deleted", "user_id", user.ID, "favorite_id", id)
	events.Emit(r.Context(), h.events, events.FavoriteDeleted, map[string]any{
		"userId": user.ID, "favoriteId": id,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
