/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron          *cron.Cron
	jobs          *Jobs
	log           *zap.Logger
	sweepSchedule string
	purgeSchedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, log *zap.Logger, sweepSchedule, purgeSchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:          c,
		jobs:          jobs,
		log:           log,
		sweepSchedule: sweepSchedule,
		purgeSchedule: purgeSchedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.sweepSchedule, s.jobs.SweepSuspicious); err != nil {
		s.log.Error("failed to schedule suspicious sweep job", zap.Error(err))
	} else {
		s.log.Info("scheduled suspicious sweep job", zap.String("schedule", s.sweepSchedule))
	}

	if _, err := s.cron.AddFunc(s.purgeSchedule, s.jobs.PurgeExpiredTickets); err != nil {
		s.log.Error("failed to schedule ticket purge job", zap.Error(err))
	} else {
		s.log.Info("scheduled ticket purge job", zap.String("schedule", s.purgeSchedule))
	}

	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
