package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/models"
)

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Simulation.PollInterval = "50ms"
	cfg.Simulation.CancelGrace = "200ms"
	return cfg
}

func testService(t *testing.T) *Service {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub binaries require a POSIX shell")
	}
	return NewService(testConfig(), nil, nil, testLogger())
}

// writeStub creates an executable shell script standing in for a solver
func writeStub(t *testing.T, dir, script string) string {
	t.Helper()
	path := filepath.Join(dir, "solver.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func newTestJob(t *testing.T, name, binary string) *models.Job {
	t.Helper()
	workDir := t.TempDir()
	params := writeFile(t, workDir, name+".prm", "w/c 0.40\n")
	return &models.Job{
		Name:                 name,
		BinaryPath:           binary,
		WorkDir:              workDir,
		ParamFile:            params,
		Protocol:             models.ProtocolStructured,
		MaxDurationHintHours: 168.0,
	}
}

// waitTerminal subscribes and blocks until the job reaches a final state
func waitTerminal(t *testing.T, s *Service, name string) models.Job {
	t.Helper()
	terminal := make(chan models.Job, 1)
	if _, err := s.Subscribe(name, func(job models.Job) {
		if job.Status.IsTerminal() {
			select {
			case terminal <- job:
			default:
			}
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case job := <-terminal:
		return job
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for terminal state")
		return models.Job{}
	}
}

func TestService_StartRejectsDuplicateName(t *testing.T) {
	s := testService(t)
	dir := t.TempDir()
	stub := writeStub(t, dir, "sleep 5\n")

	job := newTestJob(t, "dup-sim", stub)
	if _, err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer s.Cancel("dup-sim")

	second := newTestJob(t, "dup-sim", stub)
	if _, err := s.Start(context.Background(), second); !errors.Is(err, ErrJobAlreadyActive) {
		t.Fatalf("expected ErrJobAlreadyActive, got %v", err)
	}
}

func TestService_LaunchFailureLeavesNothingRegistered(t *testing.T) {
	s := testService(t)

	job := newTestJob(t, "ghost-sim", "/nonexistent/solver")
	if _, err := s.Start(context.Background(), job); !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
	if _, err := s.Get("ghost-sim"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected no registered job, got %v", err)
	}
}

func TestService_CompletionOverridesExitCode(t *testing.T) {
	s := testService(t)
	dir := t.TempDir()
	// Writes valid artifacts, then exits non-zero like the solver's
	// known cleanup fault
	stub := writeStub(t, dir, `
echo '{"cycle": 1000, "time_hours": 84.0, "degree_of_hydration": 0.5}' > progress.json
echo "results" > HydrationOf_ok-sim.csv
sleep 1
exit 3
`)

	job := newTestJob(t, "ok-sim", stub)
	if _, err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}

	final := waitTerminal(t, s, "ok-sim")
	if final.Status != models.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", final.Status, final.Error)
	}
	if final.Progress.Percent != 100 {
		t.Errorf("expected terminal percent 100, got %f", final.Progress.Percent)
	}
	if final.ExitCode == nil || *final.ExitCode != 3 {
		t.Errorf("expected recorded exit code 3, got %v", final.ExitCode)
	}
}

func TestService_MissingArtifactsEndError(t *testing.T) {
	s := testService(t)
	dir := t.TempDir()
	stub := writeStub(t, dir, "sleep 1\nexit 0\n")

	job := newTestJob(t, "bare-sim", stub)
	if _, err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}

	final := waitTerminal(t, s, "bare-sim")
	if final.Status != models.JobStatusError {
		t.Fatalf("expected error status despite clean exit, got %s", final.Status)
	}
}

func TestService_CancelEscalatesToKill(t *testing.T) {
	s := testService(t)
	dir := t.TempDir()
	// Ignores the terminate signal, forcing the kill path
	stub := writeStub(t, dir, "trap '' TERM\nsleep 30\n")

	job := newTestJob(t, "stubborn-sim", stub)
	if _, err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}

	terminal := make(chan models.Job, 1)
	if _, err := s.Subscribe("stubborn-sim", func(j models.Job) {
		if j.Status.IsTerminal() {
			select {
			case terminal <- j:
			default:
			}
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if err := s.Cancel("stubborn-sim"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	select {
	case final := <-terminal:
		if final.Status != models.JobStatusCancelled {
			t.Fatalf("expected cancelled, got %s", final.Status)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("cancel did not reach terminal state")
	}
}

func TestService_CancelUnknownName(t *testing.T) {
	s := testService(t)
	if err := s.Cancel("never-started"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestService_LegacyProtocolFeedsStdin(t *testing.T) {
	s := testService(t)
	dir := t.TempDir()
	// Echoes the stdin parameter name into a marker file, then produces
	// artifacts so the run verifies as complete
	stub := writeStub(t, dir, `
read param
echo "$param" > received.txt
echo "data" > HydrationOf_legacy-sim.csv
echo '{"cycle": 1}' > progress.json
sleep 1
`)

	job := newTestJob(t, "legacy-sim", stub)
	job.Protocol = models.ProtocolLegacy
	if _, err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}

	final := waitTerminal(t, s, "legacy-sim")
	if final.Status != models.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}

	received, err := os.ReadFile(filepath.Join(job.WorkDir, "received.txt"))
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	want := filepath.Base(job.ParamFile) + "\n"
	if string(received) != want {
		t.Errorf("expected stdin %q, got %q", want, string(received))
	}
}

func TestService_RegistryReleasedAfterTerminal(t *testing.T) {
	s := testService(t)
	dir := t.TempDir()
	stub := writeStub(t, dir, `
echo "data" > HydrationOf_done-sim.csv
echo '{"cycle": 1}' > progress.json
sleep 1
`)

	job := newTestJob(t, "done-sim", stub)
	if _, err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitTerminal(t, s, "done-sim")

	// Removal happens from the monitor goroutine right after the
	// terminal notification
	deadline := time.After(5 * time.Second)
	for {
		if _, err := s.Get("done-sim"); errors.Is(err, ErrJobNotFound) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("job was not released from the registry")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
