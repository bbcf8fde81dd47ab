package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner executes one valuation run.
type Runner interface {
	Run(ctx context.Context, date *time.Time) (*RunSummary, error)
}

// SchedulerStatus is the snapshot served by the status endpoint.
type SchedulerStatus struct {
	Scheduled   bool              `json:"scheduled"`
	Schedule    string            `json:"schedule"`
	Running     bool              `json:"running"`
	NextRun     *time.Time        `json:"nextRun,omitempty"`
	LastRunAt   *time.Time        `json:"lastRunAt,omitempty"`
	LastSummary *RunSummary       `json:"lastSummary,omitempty"`
	LastError   string            `json:"lastError,omitempty"`
	Breakers    map[string]string `json:"breakers,omitempty"`
}

// Scheduler runs the pipeline on a cron schedule and on demand. At most
// one run is active at a time.
type Scheduler struct {
	runner   Runner
	schedule string
	breakers *CircuitBreakerService
	logger   *logrus.Logger
	cron     *cron.Cron
	entryID  cron.EntryID

	mu          sync.Mutex
	scheduled   bool
	running     bool
	lastRunAt   *time.Time
	lastSummary *RunSummary
	lastErr     error
}

// NewScheduler creates a scheduler. breakers may be nil.
func NewScheduler(runner Runner, schedule string, breakers *CircuitBreakerService, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		breakers: breakers,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start begins the scheduled runs
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduled {
		return fmt.Errorf("scheduler is already running")
	}

	id, err := s.cron.AddFunc(s.schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to schedule valuation run: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.scheduled = true

	s.logger.WithField("schedule", s.schedule).Info("Valuation scheduler started")
	return nil
}

// Stop halts scheduling and waits for an in-flight scheduled run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("Valuation scheduler stopped")
}

func (s *Scheduler) runScheduled() {
	if _, err := s.RunNow(context.Background(), nil); err != nil && !errors.Is(err, ErrRunInProgress) {
		s.logger.WithError(err).Error("Scheduled valuation run failed")
	}
}

// RunNow executes a run immediately. It returns ErrRunInProgress when
// another run is active.
func (s *Scheduler) RunNow(ctx context.Context, date *time.Time) (*RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Valuation run requested while another is in progress")
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	summary, err := s.runner.Run(ctx, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.running = false
	s.lastRunAt = &now
	s.lastSummary = summary
	s.lastErr = err

	return summary, err
}

// Status reports the scheduler state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	status := SchedulerStatus{
		Scheduled:   s.scheduled,
		Schedule:    s.schedule,
		Running:     s.running,
		LastRunAt:   s.lastRunAt,
		LastSummary: s.lastSummary,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	scheduled := s.scheduled
	s.mu.Unlock()

	if scheduled {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	if s.breakers != nil {
		status.Breakers = s.breakers.States()
	}
	return status
}
