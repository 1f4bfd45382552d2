// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"partybloom/internal/models"
)

// SubscriptionStore handles subscription persistence. Each user owns at
// most one subscription row.
type SubscriptionStore struct {
	db *sql.DB
}

// NewSubscriptionStore creates a new SubscriptionStore.
func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionColumns = `id, user_id, stripe_subscription_id, stripe_customer_id, status,
	current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.StripeSubscriptionID, &sub.StripeCustomerID, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FindByUserID returns the user's subscription, or nil if they have none.
func (s *SubscriptionStore) FindByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription by user: %w", err)
	}
	return sub, nil
}

// Upsert creates the user's subscription or replaces its billing fields.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if sub.UserID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "is required"}
	}
	status := sub.Status
	if status == "" {
		status = models.StatusTrialing
	}

	saved, err := scanSubscription(s.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (user_id, stripe_subscription_id, stripe_customer_id, status,
			current_period_start, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_customer_id     = EXCLUDED.stripe_customer_id,
			status                 = EXCLUDED.status,
			current_period_start   = EXCLUDED.current_period_start,
			current_period_end     = EXCLUDED.current_period_end,
			cancel_at_period_end   = EXCLUDED.cancel_at_period_end,
			updated_at             = NOW()
		RETURNING `+subscriptionColumns,
		sub.UserID, sub.StripeSubscriptionID, sub.StripeCustomerID, status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return saved, nil
}

// UpdateByStripeID applies a billing status change to the subscription with
// the given billing reference. Returns ErrNotFound if no row matches.
func (s *SubscriptionStore) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}

	sub, err := scanSubscription(s.db.QueryRowContext(ctx, `
		UPDATE subscriptions SET
			status               = COALESCE($1, status),
			current_period_start = COALESCE($2, current_period_start),
			current_period_end   = COALESCE($3, current_period_end),
			cancel_at_period_end = COALESCE($4, cancel_at_period_end),
			updated_at           = NOW()
		WHERE stripe_subscription_id = $5
		RETURNING `+subscriptionColumns,
		status, upd.CurrentPeriodStart, upd.CurrentPeriodEnd, upd.CancelAtPeriodEnd, stripeSubscriptionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update subscription by stripe id: %w", err)
	}
	return sub, nil
}

// ExpireLapsed marks subscriptions scheduled to cancel at period end as
// canceled once that period is over. Returns the number of rows changed.
func (s *SubscriptionStore) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1, updated_at = NOW()
		WHERE cancel_at_period_end
		  AND current_period_end < $2
		  AND status <> $1
	`, string(models.StatusCanceled), now)
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	return res.RowsAffected()
}
