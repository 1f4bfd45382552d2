// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"partybloom/internal/models"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	identityKey contextKey = "identity"
	userKey     contextKey = "user"
)

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// UserResolver maps an identity to a stored user.
type UserResolver interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Upsert(ctx context.Context, in models.UpsertUser) (*models.User, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				slog.Debug("token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

// ResolveUser loads the stored user for the authenticated identity, creating
// it on first sight. Must be applied after Authenticate.
func ResolveUser(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromCtx(r.Context())
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := users.FindByExternalID(r.Context(), identity.Subject)
			if err == nil && user == nil {
				user, err = users.Upsert(r.Context(), identity.UpsertUser())
			}
			if err != nil {
				slog.Error("resolve user failed", "subject", identity.Subject, "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// UpsertUser converts the identity into the attributes synced to storage.
func (i *Identity) UpsertUser() models.UpsertUser {
	return models.UpsertUser{
		ExternalID:      i.Subject,
		Email:           optional(i.Email),
		FirstName:       optional(i.FirstName),
		LastName:        optional(i.LastName),
		ProfileImageURL: optional(i.ImageURL),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IdentityFromCtx returns the verified identity, or nil.
func IdentityFromCtx(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// WithIdentity stores an identity in ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// UserFromCtx returns the resolved user, or nil.
func UserFromCtx(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// WithUser stores a user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}
