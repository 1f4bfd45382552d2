// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run of a job.
const jobTimeout = 2 * time.Minute

// SubscriptionExpirer cancels subscriptions whose paid period has lapsed.
type SubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron          *cron.Cron
	subscriptions SubscriptionExpirer
	now           func() time.Time
}

// New creates a scheduler. Panicking jobs are recovered and logged.
func New(subscriptions SubscriptionExpirer) *Scheduler {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	return &Scheduler{
		cron:          cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

// Start registers the subscription sweep on schedule and starts the runner.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.SweepSubscriptions); err != nil {
		return fmt.Errorf("schedule subscription sweep %q: %w", schedule, err)
	}
	slog.Info("scheduled subscription sweep", "schedule", schedule)
	s.cron.Start()
	return nil
}

// Stop stops the runner. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// SweepSubscriptions marks lapsed cancel-at-period-end subscriptions canceled.
func (s *Scheduler) SweepSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.subscriptions.ExpireLapsed(ctx, s.now())
	if err != nil {
		slog.Error("subscription sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("subscriptions expired", "count", n)
	}
}
