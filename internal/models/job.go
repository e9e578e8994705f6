// -----------------------------------------------------------------------
// Simulation Job - Runtime state of a managed solver process
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a simulation job
type JobStatus string

const (
	JobStatusPreparing JobStatus = "preparing"
	JobStatusStarting  JobStatus = "starting"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused" // declared for API compatibility, no transition enters it
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusError     JobStatus = "error"
)

// IsTerminal reports whether the status is a final state
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCancelled, JobStatusError:
		return true
	}
	return false
}

// ProtocolMode selects how the solver binary is invoked
type ProtocolMode string

const (
	// ProtocolStructured launches with explicit flags:
	//   <binary> --workdir . --json progress.json --parameters <paramfile>
	ProtocolStructured ProtocolMode = "structured"

	// ProtocolLegacy launches with "-v" and feeds the parameter file base
	// name on stdin, matching older solver builds.
	ProtocolLegacy ProtocolMode = "legacy"
)

// Job carries the launch description plus the runtime state of a single
// simulation run. Jobs are keyed by caller-supplied Name in the registry;
// ID is generated for persistence. Mutable fields are written only by the
// monitor goroutine that owns the job; readers get snapshot copies.
type Job struct {
	// Identity
	ID   string `json:"id"`   // run_<uuid>, assigned at Start
	Name string `json:"name"` // caller-supplied unique key

	// Launch description
	BinaryPath string       `json:"binary_path"`
	WorkDir    string       `json:"work_dir"`
	ParamFile  string       `json:"param_file"` // path to the parameter file
	Protocol   ProtocolMode `json:"protocol"`

	// MaxDurationHintHours scales simulated time to percent complete. It
	// is not enforced as a timeout. Zero means no hint; percent then comes
	// from the wall-clock heuristic.
	MaxDurationHintHours float64 `json:"max_duration_hint_hours,omitempty"`

	// MicrostructureImage is the input image the solver reads, used to
	// derive the expected artifact base name during verification.
	MicrostructureImage string `json:"microstructure_image,omitempty"`

	// Redirected stdio and the structured progress file
	StdoutLogPath    string `json:"stdout_log_path,omitempty"`
	StderrLogPath    string `json:"stderr_log_path,omitempty"`
	ProgressFilePath string `json:"progress_file_path,omitempty"`

	// Runtime state
	Status    JobStatus `json:"status"`
	PID       int       `json:"pid,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	Progress Progress `json:"progress"`
}

// Elapsed returns wall-clock time since launch, stopping at EndedAt once
// the job is terminal.
func (j *Job) Elapsed() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	if !j.EndedAt.IsZero() {
		return j.EndedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}
