// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"partybloom/internal/cache"
)

// Allower decides whether a subject may make another request in scope.
type Allower interface {
	Allow(ctx context.Context, scope, subject string) (cache.Decision, error)
}

// Refunder is implemented by limiters that can hand a consumed hit back.
type Refunder interface {
	Refund(ctx context.Context, scope, subject string) error
}

// RateLimit limits requests per user (or per client IP for anonymous
// requests) within scope. Limiter outages let requests through. When the
// limiter is a Refunder, a request the handler rejects with 400 does not
// count against the subject.
func RateLimit(limiter Allower, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := "ip:" + clientIP(r)
			if user := UserFromCtx(r.Context()); user != nil {
				subject = "user:" + user.ID
			}

			d, err := limiter.Allow(r.Context(), scope, subject)
			if err != nil {
				slog.Warn("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				seconds := int(math.Ceil(d.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			refunder, ok := limiter.(Refunder)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			if rw.statusCode == http.StatusBadRequest {
				if err := refunder.Refund(context.WithoutCancel(r.Context()), scope, subject); err != nil {
					slog.Warn("rate limit refund failed", "scope", scope, "error", err)
				}
			}
		})
	}
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
