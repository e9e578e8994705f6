// -----------------------------------------------------------------------
// Job Registry - Mutex-guarded table of active jobs and their observers
// -----------------------------------------------------------------------

package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
)

// jobEntry is one active job. The monitor goroutine is the sole writer of
// the job struct; all reads go through snapshot() under the entry lock.
type jobEntry struct {
	mu  sync.RWMutex
	job *models.Job

	cancelMonitor context.CancelFunc
	cancelled     atomic.Bool

	subMu    sync.Mutex
	subs     map[string]interfaces.JobObserver
	subOrder []string
}

func (e *jobEntry) snapshot() models.Job {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.job
}

func (e *jobEntry) update(fn func(*models.Job)) {
	e.mu.Lock()
	fn(e.job)
	e.mu.Unlock()
}

// Registry tracks active jobs by caller-supplied name. It is safe for
// concurrent use by caller threads (Start/Cancel/Query) and each job's
// monitor goroutine (updates, final removal).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*jobEntry
	logger  arbor.ILogger
}

func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		entries: make(map[string]*jobEntry),
		logger:  logger,
	}
}

// add registers a new entry, failing if the name is already active
func (r *Registry) add(job *models.Job, cancelMonitor context.CancelFunc) (*jobEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[job.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrJobAlreadyActive, job.Name)
	}
	entry := &jobEntry{
		job:           job,
		cancelMonitor: cancelMonitor,
		subs:          make(map[string]interfaces.JobObserver),
	}
	r.entries[job.Name] = entry
	return entry, nil
}

// remove releases a job. Called exactly once per job, from its monitor
// goroutine, after the terminal notification.
func (r *Registry) remove(name string) {
	r.mu.Lock()
	delete(r.entries, name)
	r.mu.Unlock()
}

func (r *Registry) get(name string) (*jobEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// Get returns a snapshot of an active job
func (r *Registry) Get(name string) (models.Job, error) {
	entry, ok := r.get(name)
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return entry.snapshot(), nil
}

// List returns snapshots of all active jobs
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	entries := make([]*jobEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	jobs := make([]models.Job, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, entry.snapshot())
	}
	return jobs
}

// Subscribe appends an observer to the job's list. Observers run
// synchronously from the monitor goroutine in registration order.
func (r *Registry) Subscribe(name string, observer interfaces.JobObserver) (string, error) {
	entry, ok := r.get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	entry.subMu.Lock()
	defer entry.subMu.Unlock()
	id := uuid.New().String()
	entry.subs[id] = observer
	entry.subOrder = append(entry.subOrder, id)
	return id, nil
}

// Unsubscribe removes a per-job observer by subscription ID
func (r *Registry) Unsubscribe(name, subscriptionID string) error {
	entry, ok := r.get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	entry.subMu.Lock()
	defer entry.subMu.Unlock()
	if _, exists := entry.subs[subscriptionID]; !exists {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}
	delete(entry.subs, subscriptionID)
	for i, id := range entry.subOrder {
		if id == subscriptionID {
			entry.subOrder = append(entry.subOrder[:i], entry.subOrder[i+1:]...)
			break
		}
	}
	return nil
}

// notify delivers a snapshot to the job's observers in registration
// order. A panic in one observer is recovered and logged so the rest
// still run and the monitor loop is never broken.
func (r *Registry) notify(entry *jobEntry, snapshot models.Job) {
	entry.subMu.Lock()
	order := make([]string, len(entry.subOrder))
	copy(order, entry.subOrder)
	subs := make(map[string]interfaces.JobObserver, len(entry.subs))
	for id, fn := range entry.subs {
		subs[id] = fn
	}
	entry.subMu.Unlock()

	for _, id := range order {
		observer, ok := subs[id]
		if !ok {
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warn().
						Str("job", snapshot.Name).
						Str("subscription", id).
						Str("panic", fmt.Sprintf("%v", rec)).
						Msg("Observer panicked, continuing with remaining observers")
				}
			}()
			observer(snapshot)
		}()
	}
}
