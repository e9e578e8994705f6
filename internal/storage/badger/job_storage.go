package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
)

// JobStorage implements the JobStorage interface for Badger. Records are
// keyed by run ID so a reused job name keeps its run history.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(status).SortBy("StartedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("job not found: %s", id)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) CountByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

// DeleteTerminalOlderThan removes finished job records that ended before
// the cutoff. Active records are never touched.
func (s *JobStorage) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	terminal := []models.JobStatus{
		models.JobStatusCompleted,
		models.JobStatusCancelled,
		models.JobStatusError,
	}

	deleted := 0
	for _, status := range terminal {
		var jobs []models.Job
		query := badgerhold.Where("Status").Eq(status).And("EndedAt").Lt(cutoff)
		if err := s.db.Store().Find(&jobs, query); err != nil {
			return deleted, fmt.Errorf("failed to find expired jobs: %w", err)
		}
		for i := range jobs {
			if err := s.db.Store().Delete(jobs[i].ID, &models.Job{}); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to delete expired job record")
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Expired job records removed")
	}
	return deleted, nil
}
