// Package maintenance runs periodic flush and prune on a cron schedule.
package maintenance

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is the periodic work, typically Recorder.Maintain.
type Job func() error

// Scheduler owns a cron instance with a single maintenance entry. The
// schedule can be swapped at runtime.
type Scheduler struct {
	job    Job
	logger *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	schedule string
	entry    cron.EntryID
}

// New builds a stopped scheduler for job on spec (standard cron syntax or a
// descriptor such as "@every 1m").
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		job:    job,
		logger: logger.With("component", "maintenance"),
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if err := s.setLocked(spec); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) setLocked(spec string) error {
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", spec, err)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.schedule = spec
	return nil
}

// Reschedule replaces the schedule. An invalid spec leaves the old one.
func (s *Scheduler) Reschedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == s.schedule {
		return nil
	}
	if err := s.setLocked(spec); err != nil {
		return err
	}
	s.logger.Info("maintenance rescheduled", "schedule", spec)
	return nil
}

// Schedule returns the active schedule.
func (s *Scheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}

func (s *Scheduler) run() {
	if err := s.job(); err != nil {
		s.logger.Warn("maintenance run failed", "err", err)
		return
	}
	s.logger.Debug("maintenance run complete")
}

// RunNow executes the job synchronously, outside the schedule.
func (s *Scheduler) RunNow() error {
	return s.job()
}

// Start begins running the job on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "schedule", s.Schedule())
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
