// Package models defines the data structures that map to database tables
// and the JSON contracts shared between the API and its clients.
package models

import (
	"strings"
	"time"
)

// User is a Party Bloom account. ID is our own opaque identifier; ExternalID
// is the identity provider's subject and may change when an account is
// re-linked under the same email.
type User struct {
	ID               string    `json:"id"`
	ExternalID       string    `json:"-"`
	Email            *string   `json:"email"`
	FirstName        *string   `json:"firstName"`
	LastName         *string   `json:"lastName"`
	ProfileImageURL  *string   `json:"profileImageUrl"`
	StripeCustomerID *string   `json:"stripeCustomerId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DisplayName joins the first and last name, falling back to the email.
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if u.Email != nil {
		return *u.Email
	}
	return ""
}

// UpsertUser carries the identity attributes synced from the identity
// provider on every authenticated visit. Nil fields leave stored values alone.
type UpsertUser struct {
	ExternalID      string
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// SubscriptionStatus mirrors the billing provider's subscription states.
type SubscriptionStatus string

const (
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusActive            SubscriptionStatus = "active"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusUnpaid            SubscriptionStatus = "unpaid"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// Subscription tracks a user's paid plan. There is at most one per user.
type Subscription struct {
	ID                   int64              `json:"id"`
	UserID               string             `json:"userId"`
	StripeSubscriptionID *string            `json:"stripeSubscriptionId"`
	StripeCustomerID     *string            `json:"stripeCustomerId"`
	Status               SubscriptionStatus `json:"status"`
	CurrentPeriodStart   *time.Time         `json:"currentPeriodStart"`
	CurrentPeriodEnd     *time.Time         `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// IsEntitled reports whether the subscription grants access right now.
func (s *Subscription) IsEntitled() bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// SubscriptionUpdate holds the fields a billing notification may change.
// Nil pointers are left untouched.
type SubscriptionUpdate struct {
	Status             *SubscriptionStatus
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  *bool
}
