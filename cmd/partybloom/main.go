// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the Party Bloom API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partybloom/internal/ai"
	"partybloom/internal/billing"
	"partybloom/internal/cache"
	"partybloom/internal/config"
	"partybloom/internal/database"
	"partybloom/internal/events"
	"partybloom/internal/handlers"
	"partybloom/internal/middleware"
	"partybloom/internal/router"
	"partybloom/internal/scheduler"
	"partybloom/internal/storage"
	"partybloom/internal/store"
	"partybloom/internal/theme"
)

// webhookDedupeTTL is how long a processed webhook event id is remembered.
const webhookDedupeTTL = 24 * time.Hour

func main() {
	// Load configuration from environment variables and .env.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON otherwise.
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(logHandler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	userStore := store.NewUserStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	favoriteStore := store.NewFavoriteStore(db)

	// Valkey backs rate limiting and webhook dedupe. Both degrade gracefully,
	// so the API still starts without it.
	var (
		limiter middleware.Allower
		dedupe  billing.Deduper
	)
	if cfg.ValkeyHost != "" {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Warn("valkey unavailable, rate limiting disabled", "error", err)
		} else {
			defer valkeyClient.Close()
			limiter = cache.NewLimiter(valkeyClient, "partybloom:rate_limit", cfg.GenerationLimit, cfg.GenerationWindow)
			dedupe = cache.NewDedupe(valkeyClient, webhookDedupeTTL)
		}
	} else {
		slog.Warn("valkey not configured, rate limiting disabled")
	}

	// Initialize the AI provider registry with all configured providers.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, cfg.AIImageProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, ModelImage: cfg.OpenAIImageModel, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, ModelImage: cfg.GeminiImageModel, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})

	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"image", aiRegistry.ImageProviderName(),
		"available", aiRegistry.Available(),
	)
	if !aiRegistry.SupportsImageGeneration() {
		slog.Warn("image provider unavailable, themes will have no images", "provider", aiRegistry.ImageProviderName())
	}

	themeService := theme.NewService(
		aiRegistry,
		theme.NewPlanner(aiRegistry, cfg.PlanTimeout),
		theme.NewSynthesizer(aiRegistry, cfg.ImageTimeout),
	)

	// Connect to S3-compatible object storage (optional, favorites keep
	// inline images without it).
	var imageHost handlers.ImageHost
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		imageHost = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	} else {
		slog.Warn("s3 storage not configured, favorite images stored inline")
	}

	// Domain events go to RabbitMQ when configured.
	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.AMQPURL)
		if err != nil {
			slog.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			publisher = rabbit
		}
	}
	defer publisher.Close()

	var gateway billing.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = billing.NewStripeGateway(cfg.StripeSecretKey)
	} else {
		slog.Warn("stripe not configured, subscription endpoints disabled")
	}
	billingService := billing.NewService(gateway, userStore, subscriptionStore, dedupe, publisher, billing.Config{
		PriceID:       cfg.StripePriceID,
		TrialDays:     cfg.StripeTrialDays,
		WebhookSecret: cfg.StripeWebhookSecret,
		BaseURL:       cfg.BaseURL,
	})

	// Background jobs.
	jobs := scheduler.New(subscriptionStore)
	if err := jobs.Start(cfg.SubscriptionSweepSchedule); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Deps{
		Verifier:       middleware.NewJWKSVerifier(cfg.ClerkJWKSURL, cfg.ClerkIssuer),
		Users:          userStore,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSOrigins(),
		DB:             db,
		Account:        handlers.NewAccount(userStore, subscriptionStore),
		Theme:          handlers.NewTheme(themeService, publisher),
		Favorites:      handlers.NewFavorites(favoriteStore, imageHost, publisher),
		Billing:        handlers.NewBilling(billingService),
	})

	// WriteTimeout covers the slowest theme generation: moderation, the text
	// call and one round of image calls, each bounded by its own timeout.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: themeService.MaxDuration() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	select {
	case <-jobs.Stop().Done():
	case <-ctx.Done():
		slog.Warn("scheduled jobs still running at shutdown")
	}

	slog.Info("server stopped gracefully")
}
