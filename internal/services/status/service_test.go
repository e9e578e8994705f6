package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/models"
)

// memStorage is a minimal in-memory JobStorage for sink tests
type memStorage struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
	fail bool
}

func newMemStorage() *memStorage {
	return &memStorage{jobs: make(map[string]*models.Job)}
}

func (m *memStorage) SaveJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("storage offline")
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (m *memStorage) ListJobs(ctx context.Context) ([]*models.Job, error) { return nil, nil }
func (m *memStorage) ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	return nil, nil
}
func (m *memStorage) DeleteJob(ctx context.Context, id string) error { return nil }
func (m *memStorage) CountByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	return 0, nil
}
func (m *memStorage) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func TestJobUpdated_PersistsSnapshot(t *testing.T) {
	storage := newMemStorage()
	s := NewService(storage, arbor.NewLogger())

	job := models.Job{ID: "run_1", Name: "sim-a", Status: models.JobStatusRunning}
	s.JobUpdated(context.Background(), job)

	saved, err := storage.GetJob(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("expected persisted record: %v", err)
	}
	if saved.Status != models.JobStatusRunning {
		t.Errorf("expected running, got %s", saved.Status)
	}

	latest, ok := s.Latest("sim-a")
	if !ok || latest.Status != models.JobStatusRunning {
		t.Errorf("expected in-memory snapshot, got %+v ok=%v", latest, ok)
	}
}

func TestJobEnded_OverwritesLatest(t *testing.T) {
	s := NewService(newMemStorage(), arbor.NewLogger())
	ctx := context.Background()

	s.JobUpdated(ctx, models.Job{ID: "run_1", Name: "sim-a", Status: models.JobStatusRunning})
	s.JobEnded(ctx, models.Job{ID: "run_1", Name: "sim-a", Status: models.JobStatusCompleted})

	latest, ok := s.Latest("sim-a")
	if !ok || latest.Status != models.JobStatusCompleted {
		t.Errorf("expected completed snapshot, got %+v ok=%v", latest, ok)
	}
}

func TestRecord_StorageFailureIsAbsorbed(t *testing.T) {
	storage := newMemStorage()
	storage.fail = true
	s := NewService(storage, arbor.NewLogger())

	// Must not panic or surface the error
	s.JobUpdated(context.Background(), models.Job{ID: "run_1", Name: "sim-a", Status: models.JobStatusRunning})

	if _, ok := s.Latest("sim-a"); !ok {
		t.Fatal("in-memory snapshot should be kept even when storage fails")
	}
}

func TestAll_ReturnsEveryJobSeen(t *testing.T) {
	s := NewService(nil, arbor.NewLogger())
	ctx := context.Background()

	s.JobUpdated(ctx, models.Job{ID: "run_1", Name: "a", Status: models.JobStatusRunning})
	s.JobUpdated(ctx, models.Job{ID: "run_2", Name: "b", Status: models.JobStatusRunning})

	if got := len(s.All()); got != 2 {
		t.Fatalf("expected 2 jobs, got %d", got)
	}
}
