package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic maintenance jobs against the engine. Today that
// is the schedule resync, which picks up trackers changed outside this
// process.
type Scheduler struct {
	cron    *cron.Cron
	engine  *Engine
	log     *slog.Logger
	timeout time.Duration
}

// NewScheduler creates a Scheduler that resyncs eng every resyncInterval.
func NewScheduler(
	eng *Engine,
	resyncInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		engine:  eng,
		log:     log,
		timeout: resyncInterval,
	}

	if _, err := c.AddFunc(
		"@every "+resyncInterval.String(),
		s.runResync,
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runResync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.engine.Resync(ctx); err != nil {
		s.log.Error("schedule resync failed", "error", err)
		return
	}
	s.log.Debug("schedule resynced", "trackers", s.engine.Scheduled())
}
