// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package events publishes domain events to a RabbitMQ topic exchange.
// Publishing is best effort: failures are logged and never reach clients.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Exchange is the topic exchange every event is published to.
const Exchange = "partybloom.events"

// Routing keys.
const (
	ThemeGenerated      = "theme.generated"
	FavoriteCreated     = "favorite.created"
	FavoriteDeleted     = "favorite.deleted"
	SubscriptionUpdated = "subscription.updated"
)

// Event is the envelope written to the exchange.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// New wraps data in an envelope with a fresh id.
func New(eventType string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Emit builds and publishes an event, logging instead of returning failures.
func Emit(ctx context.Context, p Publisher, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, New(eventType, data)); err != nil {
		slog.Warn("event publish failed", "type", eventType, "error", err)
	}
}
