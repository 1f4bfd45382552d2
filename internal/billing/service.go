// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"

	"partybloom/internal/events"
	"partybloom/internal/models"
	"partybloom/internal/store"
)

var (
	// ErrNotConfigured is returned when no billing provider is set up.
	ErrNotConfigured = errors.New("billing is not configured")
	// ErrNoCustomer is returned when the user has never started a checkout.
	ErrNoCustomer = errors.New("no billing account found")
	// ErrSessionNotOwned is returned when a checkout session belongs to someone else.
	ErrSessionNotOwned = errors.New("checkout session does not belong to this user")
	// ErrSessionIncomplete is returned when a checkout has not been paid.
	ErrSessionIncomplete = errors.New("checkout session is not complete")
	// ErrInvalidSignature is returned for webhook payloads that fail verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// UserRepository is the user storage billing needs.
type UserRepository interface {
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) (*models.User, error)
}

// SubscriptionRepository is the subscription storage billing needs.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, upd models.SubscriptionUpdate) (*models.Subscription, error)
	FindByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}

// Deduper remembers processed webhook deliveries.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Config holds billing settings.
type Config struct {
	PriceID       string
	TrialDays     int64
	WebhookSecret string
	BaseURL       string // public URL of the web client, used for redirects
}

// Service implements the subscription flows.
type Service struct {
	gateway Gateway
	users   UserRepository
	subs    SubscriptionRepository
	dedupe  Deduper
	events  events.Publisher
	cfg     Config
}

// NewService creates a billing service. A nil gateway disables billing.
func NewService(gateway Gateway, users UserRepository, subs SubscriptionRepository, dedupe Deduper, pub events.Publisher, cfg Config) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if dedupe == nil {
		dedupe = noDedupe{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{gateway: gateway, users: users, subs: subs, dedupe: dedupe, events: pub, cfg: cfg}
}

// CreateCheckout starts a subscription checkout for user and returns the
// hosted checkout URL. The billing customer is created on first use.
func (s *Service) CreateCheckout(ctx context.Context, user *models.User) (string, error) {
	if s.gateway == nil {
		return "", ErrNotConfigured
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		UserID:     user.ID,
		PriceID:    s.cfg.PriceID,
		TrialDays:  s.cfg.TrialDays,
		SuccessURL: s.cfg.BaseURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.BaseURL + "/subscription/cancel",
	})
	if err != nil {
		return "", err
	}
	slog.Info("checkout session created", "user_id", user.ID, "session_id", session.ID)
	return session.URL, nil
}

func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	var email string
	if user.Email != nil {
		email = *user.Email
	}
	customerID, err := s.gateway.CreateCustomer(ctx, user.ID, email, user.DisplayName())
	if err != nil {
		return "", err
	}
	if _, err := s.users.UpdateStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("store customer id: %w", err)
	}
	user.StripeCustomerID = &customerID
	return customerID, nil
}

// Confirm verifies a finished checkout for user and records the subscription.
func (s *Service) Confirm(ctx context.Context, user *models.User, sessionID string) (*models.Subscription, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ClientReferenceID != user.ID {
		return nil, ErrSessionNotOwned
	}
	if session.Status != "complete" || session.PaymentStatus == "unpaid" || session.SubscriptionID == "" {
		return nil, ErrSessionIncomplete
	}

	remote, err := s.gateway.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return nil, err
	}
	remote.UserID = user.ID
	if remote.CustomerID == "" {
		remote.CustomerID = session.CustomerID
	}
	return s.save(ctx, remote)
}

// Portal returns a customer portal URL for user.
func (s *Service) Portal(ctx context.Context, user *models.User) (string, error) {
	if s.gateway == nil {
		return "", ErrNotConfigured
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}
	return s.gateway.CreatePortalSession(ctx, *user.StripeCustomerID, s.cfg.BaseURL+"/billing")
}

// HandleWebhook verifies and applies one billing notification. Deliveries
// already processed are acknowledged without side effects.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		slog.Warn("webhook verification failed", "error", err)
		return ErrInvalidSignature
	}

	fresh, err := s.dedupe.Claim(ctx, event.ID)
	if err != nil {
		// Valkey outage: process anyway, handlers are idempotent.
		slog.Warn("webhook dedupe unavailable", "event_id", event.ID, "error", err)
		fresh = true
	}
	if !fresh {
		slog.Debug("duplicate webhook ignored", "event_id", event.ID, "type", event.Type)
		return nil
	}

	if err := s.apply(ctx, event); err != nil {
		if rerr := s.dedupe.Release(ctx, event.ID); rerr != nil {
			slog.Warn("webhook dedupe release failed", "event_id", event.ID, "error", rerr)
		}
		return fmt.Errorf("webhook %s (%s): %w", event.ID, event.Type, err)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		remote := fromStripeSubscription(&sub)
		if event.Type == "customer.subscription.deleted" {
			remote.Status = string(models.StatusCanceled)
		}
		return s.sync(ctx, remote, event.Type == "customer.subscription.deleted")

	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		session := fromStripeSession(&cs)
		if session.SubscriptionID == "" || session.ClientReferenceID == "" || s.gateway == nil {
			return nil
		}
		remote, err := s.gateway.GetSubscription(ctx, session.SubscriptionID)
		if err != nil {
			return err
		}
		remote.UserID = session.ClientReferenceID
		if remote.CustomerID == "" {
			remote.CustomerID = session.CustomerID
		}
		_, err = s.save(ctx, remote)
		return err
	}

	slog.Debug("webhook event ignored", "type", event.Type)
	return nil
}

// sync applies a subscription change by billing reference. An unknown
// subscription only creates a row from metadata when it would not replace an
// entitled subscription the user already holds; deletions of unknown
// subscriptions are dropped.
func (s *Service) sync(ctx context.Context, remote *Subscription, deleted bool) error {
	status := models.SubscriptionStatus(remote.Status)
	upd := models.SubscriptionUpdate{
		Status:            &status,
		CancelAtPeriodEnd: &remote.CancelAtPeriodEnd,
	}
	if !remote.CurrentPeriodStart.IsZero() {
		upd.CurrentPeriodStart = &remote.CurrentPeriodStart
	}
	if !remote.CurrentPeriodEnd.IsZero() {
		upd.CurrentPeriodEnd = &remote.CurrentPeriodEnd
	}

	saved, err := s.subs.UpdateByStripeID(ctx, remote.ID, upd)
	if errors.Is(err, store.ErrNotFound) {
		if deleted || remote.UserID == "" {
			slog.Warn("webhook for unknown subscription ignored", "subscription_id", remote.ID, "deleted", deleted)
			return nil
		}
		current, err := s.subs.FindByUserID(ctx, remote.UserID)
		if err != nil {
			return err
		}
		if current.IsEntitled() {
			slog.Warn("stale subscription webhook ignored",
				"user_id", remote.UserID, "subscription_id", remote.ID, "current_status", current.Status)
			return nil
		}
		_, err = s.save(ctx, remote)
		return err
	}
	if err != nil {
		return err
	}
	s.publish(ctx, saved)
	return nil
}

func (s *Service) save(ctx context.Context, remote *Subscription) (*models.Subscription, error) {
	sub := &models.Subscription{
		UserID:               remote.UserID,
		StripeSubscriptionID: &remote.ID,
		Status:               models.SubscriptionStatus(remote.Status),
		CancelAtPeriodEnd:    remote.CancelAtPeriodEnd,
	}
	if remote.CustomerID != "" {
		sub.StripeCustomerID = &remote.CustomerID
	}
	if !remote.CurrentPeriodStart.IsZero() {
		sub.CurrentPeriodStart = timePtr(remote.CurrentPeriodStart)
	}
	if !remote.CurrentPeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = timePtr(remote.CurrentPeriodEnd)
	}

	saved, err := s.subs.Upsert(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, saved)
	return saved, nil
}

func (s *Service) publish(ctx context.Context, sub *models.Subscription) {
	slog.Info("subscription updated", "user_id", sub.UserID, "status", sub.Status)
	events.Emit(ctx, s.events, events.SubscriptionUpdated, map[string]any{
		"userId":            sub.UserID,
		"status":            sub.Status,
		"cancelAtPeriodEnd": sub.CancelAtPeriodEnd,
		"currentPeriodEnd":  sub.CurrentPeriodEnd,
	})
}

type noDedupe struct{}

func (noDedupe) Claim(context.Context, string) (bool, error) { return true, nil }
func (noDedupe) Release(context.Context, string) error       { return nil }

func timePtr(t time.Time) *time.Time { return &t }
