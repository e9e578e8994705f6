// -----------------------------------------------------------------------
// Status Service - Persists job transitions and tracks last-known states
// -----------------------------------------------------------------------

package status

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
)

// Service is the status-persistence sink the runner reports into. It
// keeps an in-memory view of the last-known state per job name and writes
// every transition through to storage so the run history survives
// restarts. Storage failures are logged, never surfaced to the monitor.
type Service struct {
	mu      sync.RWMutex
	latest  map[string]models.Job // last snapshot per job name
	storage interfaces.JobStorage
	logger  arbor.ILogger
}

// NewService creates a new status service. storage may be nil, in which
// case transitions are only held in memory.
func NewService(storage interfaces.JobStorage, logger arbor.ILogger) *Service {
	return &Service{
		latest:  make(map[string]models.Job),
		storage: storage,
		logger:  logger,
	}
}

// JobUpdated records a non-terminal snapshot
func (s *Service) JobUpdated(ctx context.Context, job models.Job) {
	s.record(ctx, job)
}

// JobEnded records the terminal snapshot for a run
func (s *Service) JobEnded(ctx context.Context, job models.Job) {
	s.record(ctx, job)

	s.logger.Info().
		Str("job", job.Name).
		Str("status", string(job.Status)).
		Msg("Job reached terminal state")
}

func (s *Service) record(ctx context.Context, job models.Job) {
	s.mu.Lock()
	s.latest[job.Name] = job
	s.mu.Unlock()

	if s.storage == nil {
		return
	}
	if err := s.storage.SaveJob(ctx, &job); err != nil {
		s.logger.Warn().Err(err).Str("job", job.Name).Msg("Failed to persist job status")
	}
}

// Latest returns the last-known snapshot for a job name
func (s *Service) Latest(name string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.latest[name]
	return job, ok
}

// All returns the last-known snapshot of every job seen this session
func (s *Service) All() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]models.Job, 0, len(s.latest))
	for _, job := range s.latest {
		jobs = append(jobs, job)
	}
	return jobs
}
