package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"partybloom/internal/models"
)

func TestSubscriptionUpsertAndFind(t *testing.T) {
	db := testDB(t)
	subs := NewSubscriptionStore(db)
	ctx := context.Background()
	u := createTestUser(t, db)

	none, err := subs.FindByUserID(ctx, u.ID)
	if err != nil || none != nil {
		t.Fatalf("FindByUserID before upsert = %+v, %v", none, err)
	}

	end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	saved, err := subs.Upsert(ctx, &models.Subscription{
		UserID:               u.ID,
		StripeSubscriptionID: strPtr("sub_" + uniq(t)),
		StripeCustomerID:     strPtr("cus_1"),
		CurrentPeriodEnd:     &end,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.Status != models.StatusTrialing {
		t.Errorf("default status = %q, want trialing", saved.Status)
	}

	saved.Status = models.StatusActive
	again, err := subs.Upsert(ctx, saved)
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if again.ID != saved.ID || again.Status != models.StatusActive {
		t.Errorf("upsert should update in place: %+v", again)
	}

	found, err := subs.FindByUserID(ctx, u.ID)
	if err != nil || found == nil || !found.IsEntitled() {
		t.Errorf("FindByUserID = %+v, %v", found, err)
	}
}

func TestSubscriptionUpdateByStripeID(t *testing.T) {
	db := testDB(t)
	subs := NewSubscriptionStore(db)
	ctx := context.Background()
	u := createTestUser(t, db)

	stripeID := "sub_" + uniq(t)
	if _, err := subs.Upsert(ctx, &models.Subscription{UserID: u.ID, StripeSubscriptionID: &stripeID}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	status := models.StatusPastDue
	cancel := true
	updated, err := subs.UpdateByStripeID(ctx, stripeID, models.SubscriptionUpdate{Status: &status, CancelAtPeriodEnd: &cancel})
	if err != nil {
		t.Fatalf("UpdateByStripeID: %v", err)
	}
	if updated.Status != models.StatusPastDue || !updated.CancelAtPeriodEnd {
		t.Errorf("update not applied: %+v", updated)
	}

	if _, err := subs.UpdateByStripeID(ctx, "sub_missing", models.SubscriptionUpdate{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscriptionExpireLapsed(t *testing.T) {
	db := testDB(t)
	subs := NewSubscriptionStore(db)
	ctx := context.Background()
	u := createTestUser(t, db)

	past := time.Now().Add(-time.Hour)
	if _, err := subs.Upsert(ctx, &models.Subscription{
		UserID:            u.ID,
		Status:            models.StatusActive,
		CurrentPeriodEnd:  &past,
		CancelAtPeriodEnd: true,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := subs.ExpireLapsed(ctx, time.Now())
	if err != nil {
		t.Fatalf("ExpireLapsed: %v", err)
	}
	if n < 1 {
		t.Errorf("expired rows = %d, want >= 1", n)
	}

	got, _ := subs.FindByUserID(ctx, u.ID)
	if got == nil || got.Status != models.StatusCanceled {
		t.Errorf("status after sweep = %+v, want canceled", got)
	}
}
