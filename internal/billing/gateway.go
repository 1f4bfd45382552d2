// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package billing manages paid subscriptions through Stripe: checkout,
// confirmation, the customer portal and webhook notifications.
package billing

import (
	"context"
	"time"
)

// CheckoutParams describes a subscription checkout for one user.
type CheckoutParams struct {
	CustomerID string
	UserID     string
	PriceID    string
	TrialDays  int64
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the part of a hosted checkout the app relies on.
type CheckoutSession struct {
	ID                string
	URL               string
	ClientReferenceID string
	CustomerID        string
	SubscriptionID    string
	Status            string // open, complete, expired
	PaymentStatus     string // paid, unpaid, no_payment_required
}

// Subscription is the provider's view of a subscription.
type Subscription struct {
	ID                 string
	CustomerID         string
	UserID             string // from metadata, may be empty
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// Gateway is the billing provider.
type Gateway interface {
	CreateCustomer(ctx context.Context, userID, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
