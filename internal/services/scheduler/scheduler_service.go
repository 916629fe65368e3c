// Package scheduler runs the pipeline repeatedly on a cron schedule for
// unattended execution.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Service wraps a cron scheduler around a run handler. Ticks that arrive
// while a run is still in progress are skipped, never queued: the pipeline
// is single-writer and a run is resumable, so skipping is safe.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	handler func(ctx context.Context) error

	mu      sync.Mutex
	running bool
	busy    bool
}

// NewService creates a scheduler around the given run handler.
func NewService(handler func(ctx context.Context) error, logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		logger:  logger,
		handler: handler,
	}
}

// Start begins scheduling runs with the given cron expression.
func (s *Service) Start(ctx context.Context, cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if cronExpr == "" {
		cronExpr = "0 * * * *" // Default: hourly
	}

	_, err := s.cron.AddFunc(cronExpr, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Msg("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) tick(ctx context.Context) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping tick")
		return
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if err := s.handler(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed")
	}
}
