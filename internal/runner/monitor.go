// -----------------------------------------------------------------------
// Job Monitor - Per-job supervision loop
// -----------------------------------------------------------------------

package runner

import (
	"context"
	"os/exec"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
)

// monitor supervises one solver process. It exclusively owns the process
// handle: no other component signals or waits on it. It is also the only
// writer of the job's runtime state and the only caller of the registry's
// final remove for its job.
type monitor struct {
	entry  *jobEntry
	handle *launchHandle

	registry  *Registry
	extractor *Extractor
	verifier  *Verifier
	sink      interfaces.StatusSink
	events    interfaces.EventService
	logger    arbor.ILogger

	pollInterval time.Duration
	cancelGrace  time.Duration
}

// run drives the job from starting to a terminal state. Parser errors are
// absorbed inside the extractor; nothing in the loop escalates them to
// job status.
func (m *monitor) run(ctx context.Context) {
	name := m.entry.snapshot().Name

	defer func() {
		m.handle.stdoutLog.Close()
		m.handle.stderrLog.Close()
	}()

	waitCh := make(chan error, 1)
	common.SafeGo(m.logger, "job-wait-"+name, func() {
		waitCh <- m.handle.cmd.Wait()
	})

	// First poll promotes the job to running
	m.poll(ctx)
	m.transition(ctx, models.JobStatusRunning)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var waitErr error
loop:
	for {
		select {
		case <-ctx.Done():
			// Cancel requested: terminate, grace period, then kill
			waitErr = m.terminate(waitCh)
			break loop

		case waitErr = <-waitCh:
			break loop

		case <-ticker.C:
			m.poll(ctx)
		}
	}

	// The terminal sequence must run to completion even when ctx was
	// cancelled, so it gets a fresh context.
	m.finish(context.Background(), waitErr)
}

// poll refreshes progress from the current telemetry source and notifies
// observers with the new snapshot.
func (m *monitor) poll(ctx context.Context) {
	m.entry.update(func(job *models.Job) {
		m.extractor.Update(job)
	})

	snapshot := m.entry.snapshot()
	m.registry.notify(m.entry, snapshot)
	m.sink.JobUpdated(ctx, snapshot)

	if m.events != nil {
		_ = m.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventSimProgress,
			JobID:   snapshot.Name,
			Payload: snapshot.Progress,
		})
	}
}

// terminate escalates from a cooperative signal to a forceful kill after
// the grace period, then collects the exit status. Failure to kill is
// logged and the job is still marked cancelled.
func (m *monitor) terminate(waitCh chan error) error {
	proc := m.handle.cmd.Process
	if proc == nil {
		return <-waitCh
	}

	name := m.entry.snapshot().Name
	if err := sendTerminate(proc); err != nil {
		m.logger.Debug().Err(err).Str("job", name).Msg("Terminate signal failed, process may have already exited")
	}

	select {
	case err := <-waitCh:
		return err
	case <-time.After(m.cancelGrace):
	}

	m.logger.Warn().Str("job", name).Msg("Process survived grace period, killing")
	if err := proc.Kill(); err != nil {
		m.logger.Warn().Err(err).Str("job", name).Msg("Kill failed, marking cancelled anyway")
	}

	select {
	case err := <-waitCh:
		return err
	case <-time.After(m.cancelGrace):
		return nil
	}
}

// finish runs the terminal sequence: one last telemetry read, completion
// verification, the final notification, then registry release.
func (m *monitor) finish(ctx context.Context, waitErr error) {
	// Push final telemetry before verification
	m.entry.update(func(job *models.Job) {
		m.extractor.Update(job)
	})

	exitCode := exitCodeFrom(m.handle.cmd, waitErr)
	cancelled := m.entry.cancelled.Load()

	m.entry.update(func(job *models.Job) {
		job.ExitCode = &exitCode
		job.EndedAt = time.Now()

		switch {
		case cancelled:
			job.Status = models.JobStatusCancelled
		case m.verifier.VerifyCompletion(job):
			job.Status = models.JobStatusCompleted
			job.Progress.Percent = 100
		default:
			job.Status = models.JobStatusError
			job.Error = "expected output artifacts missing"
		}
	})

	snapshot := m.entry.snapshot()
	m.logger.Info().
		Str("job", snapshot.Name).
		Str("status", string(snapshot.Status)).
		Int("exit_code", exitCode).
		Str("elapsed", snapshot.Elapsed().String()).
		Msg("Simulation ended")

	// Terminal notification is the last one delivered for this job
	m.registry.notify(m.entry, snapshot)
	m.sink.JobEnded(ctx, snapshot)

	if m.events != nil {
		_ = m.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventJobStatusChange,
			JobID:   snapshot.Name,
			Payload: snapshot,
		})
	}

	m.registry.remove(snapshot.Name)
}

func (m *monitor) transition(ctx context.Context, status models.JobStatus) {
	m.entry.update(func(job *models.Job) {
		job.Status = status
	})
	snapshot := m.entry.snapshot()
	m.sink.JobUpdated(ctx, snapshot)

	if m.events != nil {
		_ = m.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventJobStatusChange,
			JobID:   snapshot.Name,
			Payload: snapshot,
		})
	}
}

func exitCodeFrom(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}
