// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"partybloom/internal/middleware"
	"partybloom/internal/models"
)

// UserSyncer writes identity attributes to storage. *store.UserStore satisfies it.
type UserSyncer interface {
	Upsert(ctx context.Context, in models.UpsertUser) (*models.User, error)
}

// SubscriptionFinder loads a user's subscription. *store.SubscriptionStore satisfies it.
type SubscriptionFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}

// Account serves the signed-in user's profile.
type Account struct {
	users UserSyncer
	subs  SubscriptionFinder
}

// NewAccount creates the account handler.
func NewAccount(users UserSyncer, subs SubscriptionFinder) *Account {
	return &Account{users: users, subs: subs}
}

type userResponse struct {
	*models.User
	Subscription *models.Subscription `json:"subscription"`
	IsSubscribed bool                 `json:"isSubscribed"`
}

// User handles GET /auth/user. It refreshes the stored profile from the
// token claims on every call.
func (h *Account) User(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())

	user, err := h.users.Upsert(r.Context(), identity.UpsertUser())
	if err != nil {
		slog.Error("sync user failed", "subject", identity.Subject, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	sub, err := h.subs.FindByUserID(r.Context(), user.ID)
	if err != nil {
		slog.Error("load subscription failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user, Subscription: sub, IsSubscribed: sub.IsEntitled()})
}
