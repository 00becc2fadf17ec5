package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"cryptoSignalDash/internal/ports"
	"cryptoSignalDash/internal/verifier"
)

// Scheduler drives the verification engine on a repeating interval.
// Overlap protection lives in the engine itself (single-flight); the
// scheduler just fires triggers.
type Scheduler struct {
	cron     *cron.Cron
	engine   *verifier.Engine
	logger   ports.Logger
	interval time.Duration
	ctx      context.Context
}

// New creates a scheduler for the given verification engine.
func New(ctx context.Context, engine *verifier.Engine, logger ports.Logger, interval time.Duration) (*Scheduler, error) {
	if engine == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for scheduler")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("verification interval must be positive")
	}
	return &Scheduler{
		cron:     cron.New(),
		engine:   engine,
		logger:   logger,
		interval: interval,
		ctx:      ctx,
	}, nil
}

// Start registers the repeating verification task and runs one pass
// immediately, mirroring the on-load check of the dashboard.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.verificationTask); err != nil {
		return fmt.Errorf("register verification task: %w", err)
	}
	s.cron.Start()
	s.logger.Info(s.ctx, "Scheduler started", map[string]interface{}{"interval": s.interval.String()})

	// Run once at startup so restarts don't wait a full interval.
	go s.verificationTask()
	return nil
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info(s.ctx, "Scheduler stopped")
}

func (s *Scheduler) verificationTask() {
	// Each cycle is independent: an error never terminates the schedule.
	if _, err := s.engine.RunOnce(s.ctx); err != nil {
		s.logger.Error(s.ctx, err, "Verification pass failed")
	}
}
