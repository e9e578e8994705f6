package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/hydrun/internal/models"
)

func addTestJob(t *testing.T, r *Registry, name string) *jobEntry {
	t.Helper()
	entry, err := r.add(&models.Job{Name: name, Status: models.JobStatusPreparing}, func() {})
	if err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	return entry
}

func TestRegistry_RejectsDuplicateName(t *testing.T) {
	r := NewRegistry(testLogger())
	addTestJob(t, r, "sim-1")

	_, err := r.add(&models.Job{Name: "sim-1"}, func() {})
	if !errors.Is(err, ErrJobAlreadyActive) {
		t.Fatalf("expected ErrJobAlreadyActive, got %v", err)
	}
}

func TestRegistry_RemoveFreesName(t *testing.T) {
	r := NewRegistry(testLogger())
	addTestJob(t, r, "sim-1")
	r.remove("sim-1")

	if _, err := r.Get("sim-1"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound after removal, got %v", err)
	}
	if _, err := r.add(&models.Job{Name: "sim-1"}, func() {}); err != nil {
		t.Fatalf("name should be reusable after removal: %v", err)
	}
}

func TestRegistry_ListSnapshots(t *testing.T) {
	r := NewRegistry(testLogger())
	addTestJob(t, r, "a")
	addTestJob(t, r, "b")

	jobs := r.List()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestRegistry_NotifyOrderAndIsolation(t *testing.T) {
	r := NewRegistry(testLogger())
	entry := addTestJob(t, r, "sim-1")

	var order []string
	if _, err := r.Subscribe("sim-1", func(models.Job) { order = append(order, "first") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := r.Subscribe("sim-1", func(models.Job) { panic("observer blew up") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := r.Subscribe("sim-1", func(models.Job) { order = append(order, "third") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	r.notify(entry, entry.snapshot())

	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Fatalf("expected surviving observers in registration order, got %v", order)
	}
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry(testLogger())
	entry := addTestJob(t, r, "sim-1")

	calls := 0
	id, err := r.Subscribe("sim-1", func(models.Job) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := r.Unsubscribe("sim-1", id); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	r.notify(entry, entry.snapshot())
	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}

	if err := r.Unsubscribe("sim-1", id); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestRegistry_ConcurrentQueryDuringUpdates(t *testing.T) {
	r := NewRegistry(testLogger())
	entry := addTestJob(t, r, "sim-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				entry.update(func(j *models.Job) { j.Progress.Percent++ })
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		if _, err := r.Get("sim-1"); err != nil {
			t.Fatalf("query during updates: %v", err)
		}
		r.List()
	}
	cancel()
	<-done
}
