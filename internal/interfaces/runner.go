package interfaces

import (
	"context"

	"github.com/ternarybob/hydrun/internal/models"
)

// JobObserver receives job snapshots as the monitor observes changes.
// Observers for a job run synchronously in registration order; a panic in
// one observer does not prevent the others from running.
type JobObserver func(job models.Job)

// SimulationRunner launches and supervises solver processes. Jobs are
// keyed by caller-supplied name; a name is active from Start until the
// monitor releases it after the terminal notification.
type SimulationRunner interface {
	// Start launches the solver described by the job and begins
	// monitoring. Fails if the name is already active. The returned
	// snapshot carries the assigned run ID and PID.
	Start(ctx context.Context, job *models.Job) (*models.Job, error)

	// Cancel requests termination of an active job: terminate signal,
	// grace period, then kill. The job always ends cancelled regardless
	// of how the process exits.
	Cancel(name string) error

	// Get returns a snapshot of an active job
	Get(name string) (models.Job, error)

	// List returns snapshots of all active jobs
	List() []models.Job

	// Subscribe registers an observer for one job's updates, returning a
	// subscription ID usable with Unsubscribe.
	Subscribe(name string, observer JobObserver) (string, error)

	// Unsubscribe removes a per-job observer
	Unsubscribe(name, subscriptionID string) error
}

// StatusSink receives authoritative job state transitions for persistence
// and broadcast. For a given job the monitor goroutine is the only caller.
type StatusSink interface {
	JobUpdated(ctx context.Context, job models.Job)
	JobEnded(ctx context.Context, job models.Job)
}

// SolverCatalog resolves registered solver definitions by name
type SolverCatalog interface {
	Get(name string) (*models.SolverDefinition, error)
	List() []*models.SolverDefinition
	Reload() error
}
