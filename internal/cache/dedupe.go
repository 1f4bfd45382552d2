// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix = "webhook:"

	// DefaultDedupeTTL is how long a processed delivery id is remembered.
	DefaultDedupeTTL = 24 * time.Hour
)

// Dedupe remembers processed delivery ids in Valkey.
type Dedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupe creates a Dedupe. A nil client makes every id look fresh.
func NewDedupe(client *redis.Client, ttl time.Duration) *Dedupe {
	if ttl == 0 {
		ttl = DefaultDedupeTTL
	}
	return &Dedupe{client: client, ttl: ttl}
}

// Claim records id and reports whether it was seen for the first time.
func (d *Dedupe) Claim(ctx context.Context, id string) (bool, error) {
	if d == nil || d.client == nil || id == "" {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe claim: %w", err)
	}
	return ok, nil
}

// Release forgets id so a failed delivery can be retried.
func (d *Dedupe) Release(ctx context.Context, id string) error {
	if d == nil || d.client == nil || id == "" {
		return nil
	}
	if err := d.client.Del(ctx, dedupeKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("dedupe release: %w", err)
	}
	return nil
}
