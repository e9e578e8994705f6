package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/hydrun/internal/models"
)

// JobStorage - interface for simulation job persistence
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status models.JobStatus) (int, error)

	// DeleteTerminalOlderThan removes completed/failed/cancelled records
	// that ended before the cutoff, returning the number removed.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	Close() error
}
