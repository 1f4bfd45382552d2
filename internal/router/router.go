// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// Party Bloom API. Routes live under /api and are split into a public group
// (health, billing webhooks) and an authenticated group.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"partybloom/internal/handlers"
	"partybloom/internal/middleware"
)

// Deps bundles everything the router needs. Limiter may be nil, which
// disables rate limiting.
type Deps struct {
	Verifier       middleware.TokenVerifier
	Users          middleware.UserResolver
	Limiter        middleware.Allower
	AllowedOrigins []string
	DB             handlers.Pinger

	Account   *handlers.Account
	Theme     *handlers.Theme
	Favorites *handlers.Favorites
	Billing   *handlers.Billing
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health(d.DB))

		// Signed by the payment provider, not by a user token.
		r.Post("/webhooks/stripe", d.Billing.Webhook)

		// Identity only: this endpoint creates the user row.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Verifier))
			r.Get("/auth/user", d.Account.User)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Verifier))
			r.Use(middleware.ResolveUser(d.Users))

			r.With(rateLimit(d.Limiter, "generate")).Post("/generate-theme", d.Theme.Generate)

			r.Get("/favorites", d.Favorites.List)
			r.Post("/favorites", d.Favorites.Create)
			r.Delete("/favorites/{id}", d.Favorites.Delete)

			r.Route("/subscription", func(r chi.Router) {
				r.Post("/create-checkout", d.Billing.CreateCheckout)
				r.Post("/confirm", d.Billing.Confirm)
				r.Post("/create-portal", d.Billing.Portal)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not found"}`))
	})

	return r
}

func rateLimit(limiter middleware.Allower, scope string) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(limiter, scope)
}
