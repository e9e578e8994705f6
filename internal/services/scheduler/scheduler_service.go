// -----------------------------------------------------------------------
// Cleanup Scheduler - Cron-driven pruning of finished job records
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/interfaces"
)

// Service prunes terminal job records past the retention window on a
// cron schedule. Schedules use six fields (with seconds).
type Service struct {
	cron      *cron.Cron
	storage   interfaces.JobStorage
	logger    arbor.ILogger
	schedule  string
	retention time.Duration

	mu      sync.Mutex
	running bool
	entryID cron.EntryID
	lastRun *time.Time
}

// NewService creates the cleanup scheduler
func NewService(cfg *common.CleanupConfig, storage interfaces.JobStorage, logger arbor.ILogger) *Service {
	return &Service{
		cron:      cron.New(cron.WithSeconds()),
		storage:   storage,
		logger:    logger,
		schedule:  cfg.Schedule,
		retention: cfg.RetentionDuration(),
	}
}

// Start registers the cleanup entry and begins the cron loop
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	id, err := s.cron.AddFunc(s.schedule, s.runCleanup)
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Str("retention", s.retention.String()).
		Msg("Cleanup scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for an in-flight run to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Cleanup scheduler stopped")
}

// RunNow triggers one cleanup pass outside the schedule
func (s *Service) RunNow() {
	s.runCleanup()
}

// LastRun reports when cleanup last executed, if ever
func (s *Service) LastRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Service) runCleanup() {
	now := time.Now()
	cutoff := now.Add(-s.retention)

	deleted, err := s.storage.DeleteTerminalOlderThan(context.Background(), cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Job record cleanup failed")
	} else if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Job record cleanup complete")
	}

	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()
}
