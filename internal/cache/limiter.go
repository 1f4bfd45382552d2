// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the window on the
// first hit. Returns {count, remaining ttl in ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// refundScript hands one hit back without resurrecting an expired window.
var refundScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current > 0 then
  return redis.call("DECR", KEYS[1])
end
return 0
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// Limiter is a distributed fixed-window counter keyed by scope and subject.
type Limiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter allowing limit hits per window. A nil client
// or non-positive limit disables limiting.
func NewLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *Limiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "partybloom:rate_limit"
	}
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow consumes one hit for subject in scope.
func (l *Limiter) Allow(ctx context.Context, scope, subject string) (Decision, error) {
	if l == nil || l.client == nil || l.limit <= 0 || l.window <= 0 {
		return Decision{Allowed: true}, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return Decision{Allowed: true}, nil
	}

	windowMs := l.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.key(scope, subject)}, windowMs).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Decision{}, fmt.Errorf("unexpected rate limit response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected rate limit count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected rate limit ttl type: %T", values[1])
	}

	d := Decision{Count: int(count), Limit: l.limit, Allowed: int(count) <= l.limit}
	if !d.Allowed {
		secs := int(math.Ceil(float64(ttlMs) / 1000))
		if secs < 1 {
			secs = 1
		}
		d.RetryAfter = time.Duration(secs) * time.Second
	}
	return d, nil
}

// Refund gives back one hit previously consumed by Allow for subject in
// scope. The window's expiry is left untouched.
func (l *Limiter) Refund(ctx context.Context, scope, subject string) error {
	if l == nil || l.client == nil || l.limit <= 0 || l.window <= 0 {
		return nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return nil
	}
	if err := refundScript.Run(ctx, l.client, []string{l.key(scope, subject)}).Err(); err != nil {
		return fmt.Errorf("rate limit refund: %w", err)
	}
	return nil
}

func (l *Limiter) key(scope, subject string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject)
}
