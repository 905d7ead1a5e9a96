// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/metrics"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/ranking"
)

// DefaultRankingSchedule recomputes ranking scores hourly.
const DefaultRankingSchedule = "@every 1h"

// jobTimeout bounds a single run of a job.
const jobTimeout = 2 * time.Minute

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron     *cron.Cron
	rankings ranking.Store
	logger   *slog.Logger
}

// New creates a scheduler that recomputes app-store ranking scores.
func New(rankings ranking.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		rankings: rankings,
		logger:   logger,
	}
}

// Start registers the ranking job on the given cron spec and starts the
// runner. An empty spec uses DefaultRankingSchedule.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultRankingSchedule
	}
	if _, err := s.cron.AddFunc(spec, s.recomputeRankings); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "ranking_schedule", spec)
	return nil
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) recomputeRankings() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := ranking.Recompute(ctx, s.rankings)
	metrics.RankingRun(err == nil)
	if err != nil {
		s.logger.Error("failed to recompute ranking scores", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("ranking scores updated", "stores", n)
	}
}
