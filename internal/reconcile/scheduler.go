package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/metrics"
)

// Scheduler runs the invariant check on a cron schedule and keeps the
// latest report.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	db       *db.DB
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration

	mu   sync.RWMutex
	last *Report
}

// NewScheduler creates a scheduler. schedule is a standard five-field cron
// expression or a descriptor such as "@every 1h".
func NewScheduler(database *db.DB, schedule string, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		db:       database,
		metrics:  m,
		logger:   logger,
		timeout:  time.Minute,
	}
}

// Start schedules the check and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("scheduling reconciliation %q: %w", s.schedule, err)
	}
	s.logger.Info("starting reconciliation scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop stops the runner and waits for a running check to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping reconciliation scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce checks the ledger now, records the outcome and logs every
// violation.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	start := time.Now()
	report, err := Run(ctx, s.db)
	if err != nil {
		s.metrics.ObserveReconcile(0, err)
		s.logger.Error("reconciliation failed", zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveReconcile(len(report.Violations), nil)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if report.OK() {
		s.logger.Info("reconciliation clean",
			zap.Int("items", len(report.Items)),
			zap.Int("units", report.Units),
			zap.Duration("duration", time.Since(start)),
		)
		return report, nil
	}
	for _, v := range report.Violations {
		s.logger.Warn("ledger drift",
			zap.String("rule", v.Rule),
			zap.Int64("item_id", v.ItemID),
			zap.Int64("unit_id", v.UnitID),
			zap.String("detail", v.Detail),
		)
	}
	return report, nil
}

// Last returns the most recent report, or nil before the first run.
func (s *Scheduler) Last() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
