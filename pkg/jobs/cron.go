package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// SessionSweeper closes sessions whose agent went silent.
type SessionSweeper interface {
	CloseStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// LeadCounter reports lead counts per lifecycle state.
type LeadCounter interface {
	CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error)
}

// Scheduler runs the background jobs: draining the queued backlog,
// sweeping stale sessions, and logging the daily distribution summary.
type Scheduler struct {
	cron        *cron.Cron
	distributor *distribution.Service
	sessions    SessionSweeper
	leads       LeadCounter
	staleness   time.Duration
	log         logger.Logger
}

// NewScheduler creates the job scheduler.
func NewScheduler(distributor *distribution.Service, sessions SessionSweeper, leads LeadCounter, staleness time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		distributor: distributor,
		sessions:    sessions,
		leads:       leads,
		staleness:   staleness,
		log:         log,
	}
}

// Start registers and starts all jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("*/5 * * * *", s.drainQueuedBacklog); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("* * * * *", s.sweepStaleSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("59 23 * * *", s.logDailyStats); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("background jobs started")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("background jobs stopped")
}

// drainQueuedBacklog retries queued leads; agents may have come online
// since they were parked.
func (s *Scheduler) drainQueuedBacklog() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.distributor.BatchAssign(ctx, models.StatusQueued, true)
	if err != nil {
		s.log.Error("queued backlog drain failed", "error", err)
		return
	}
	if result.Assigned > 0 || result.Errors > 0 {
		s.log.Info("queued backlog drained",
			"assigned", result.Assigned, "queued", result.Queued, "errors", result.Errors)
	}

	counts, err := s.leads.CountByStatus(ctx)
	if err != nil {
		s.log.Error("queue depth refresh failed", "error", err)
		return
	}
	metrics.QueueDepth.Set(float64(counts[models.StatusQueued]))
}

func (s *Scheduler) sweepStaleSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	closed, err := s.sessions.CloseStale(ctx, time.Now().Add(-s.staleness))
	if err != nil {
		s.log.Error("stale session sweep failed", "error", err)
		return
	}
	if closed > 0 {
		s.log.Info("closed stale sessions", "count", closed)
	}
}

func (s *Scheduler) logDailyStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := s.distributor.Stats(ctx)
	if err != nil {
		s.log.Error("daily stats collection failed", "error", err)
		return
	}
	s.log.Info("daily distribution summary",
		"total", stats.Total, "automatic", stats.Automatic, "manual", stats.Manual)
}
