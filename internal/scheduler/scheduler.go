// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a schedulable task.
type Job func(ctx context.Context) error

// jobTimeout bounds a single job run so a stuck rebuild cannot pile up
// behind the next tick.
const jobTimeout = 10 * time.Minute

// Scheduler wraps robfig/cron with structured logging and per-run timeouts.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	logger zerolog.Logger
}

// New creates a scheduler. Jobs run in UTC.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		jobs:   make(map[string]cron.EntryID),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a job under a cron spec. Specs accept the standard five
// fields plus descriptors like "@every 30m".
func (s *Scheduler) AddJob(name, spec string, job Job) error {
	entryID, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		s.logger.Info().Str("job", name).Msg("job started")

		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		s.logger.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("job completed")
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info().Str("job", name).Str("spec", spec).Msg("job registered")
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once any
// running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info().Msg("scheduler stopping")
	return s.cron.Stop()
}

// NextRun reports when the named job fires next. The zero time means the
// job is unknown or the scheduler has not started.
func (s *Scheduler) NextRun(name string) time.Time {
	entryID, ok := s.jobs[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(entryID).Next
}
