// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"partybloom/internal/billing"
	"partybloom/internal/middleware"
	"partybloom/internal/models"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 1 << 20

// BillingService runs subscription flows. *billing.Service satisfies it.
type BillingService interface {
	CreateCheckout(ctx context.Context, user *models.User) (string, error)
	Confirm(ctx context.Context, user *models.User, sessionID string) (*models.Subscription, error)
	Portal(ctx context.Context, user *models.User) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Billing serves the subscription endpoints and the billing webhook.
type Billing struct {
	svc BillingService
}

// NewBilling creates the billing handler.
func NewBilling(svc BillingService) *Billing {
	return &Billing{svc: svc}
}

type confirmRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=255"`
}

// CreateCheckout handles POST /subscription/create-checkout.
func (h *Billing) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	url, err := h.svc.CreateCheckout(r.Context(), user)
	if err != nil {
		h.fail(w, err, user, "Failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Confirm handles POST /subscription/confirm.
func (h *Billing) Confirm(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	var req confirmRequest
	if err := decodeJSON(w, r, 4<<10, &req); err != nil {
		badRequest(w, err)
		return
	}

	sub, err := h.svc.Confirm(r.Context(), user, req.SessionID)
	if err != nil {
		h.fail(w, err, user, "Failed to confirm subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}

// Portal handles POST /subscription/create-portal.
func (h *Billing) Portal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	url, err := h.svc.Portal(r.Context(), user)
	if err != nil {
		h.fail(w, err, user, "Failed to create billing portal session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook handles POST /webhooks/stripe. The body is read raw because the
// signature covers the exact bytes.
func (h *Billing) Webhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		writeError(w, http.StatusBadRequest, "Missing stripe-signature")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), payload, signature); err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			writeError(w, http.StatusBadRequest, "Webhook signature verification failed")
			return
		}
		slog.Error("webhook processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Webhook processing error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// fail maps billing errors to responses. Unknown errors are logged and
// reported with fallback.
func (h *Billing) fail(w http.ResponseWriter, err error, user *models.User, fallback string) {
	switch {
	case errors.Is(err, billing.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Billing is not available")
	case errors.Is(err, billing.ErrNoCustomer):
		writeError(w, http.StatusBadRequest, "No billing account found")
	case errors.Is(err, billing.ErrSessionNotOwned):
		writeError(w, http.StatusForbidden, "Checkout session does not belong to this account")
	case errors.Is(err, billing.ErrSessionIncomplete):
		writeError(w, http.StatusBadRequest, "Payment not completed")
	default:
		slog.Error("billing request failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
