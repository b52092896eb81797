// Package scheduler runs periodic jobs such as dataset refreshes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobFunc is a scheduled unit of work. It receives a context that is
// cancelled after the job timeout or when the scheduler stops.
type JobFunc func(ctx context.Context) error

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewScheduler creates a new scheduler running in UTC.
// Overlapping runs of the same job are skipped.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      4 * time.Hour,
		gracefulTimeout: 30 * time.Second,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// SetJobTimeout sets the deadline applied to every job run
func (s *Scheduler) SetJobTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobTimeout = d
}

// Schedule adds a named job using a standard five-field cron expression or
// a descriptor such as "@daily" or "@every 1h".
func (s *Scheduler) Schedule(name, expr string, job JobFunc) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot schedule job while scheduler is running")
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	entryID := s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(name, job) }))
	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": expr}).Info("Scheduled job")

	return entryID, nil
}

func (s *Scheduler) run(name string, job JobFunc) {
	s.mu.RLock()
	timeout := s.jobTimeout
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	log := s.logger.WithField("job", name)
	log.Info("Starting scheduled job")

	if err := job(ctx); err != nil {
		log.WithError(err).WithField("duration", time.Since(start).String()).Error("Scheduled job failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Info("Scheduled job completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop cancels running jobs and waits up to the graceful timeout for them
// to return. A stopped scheduler cannot be restarted.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	stopped := s.cron.Stop()
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler did not stop within %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
