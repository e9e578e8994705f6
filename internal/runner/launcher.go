// -----------------------------------------------------------------------
// Job Launcher - Working directory setup and child process spawn
// -----------------------------------------------------------------------

package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/models"
)

// Launcher prepares the working directory and spawns the solver process
// with redirected stdio. The child's lifetime is deliberately not tied to
// the parent: a host crash leaves simulations running to completion.
type Launcher struct {
	logger arbor.ILogger
}

func NewLauncher(logger arbor.ILogger) *Launcher {
	return &Launcher{logger: logger}
}

// launchHandle holds what the monitor needs to supervise the process.
// Log files stay open for the child's lifetime and are closed by the
// monitor after Wait returns.
type launchHandle struct {
	cmd       *exec.Cmd
	stdoutLog *os.File
	stderrLog *os.File
}

// Launch validates the environment, truncates the log files, and starts
// the solver using the job's protocol. Any failure returns with nothing
// spawned and no files left open.
func (l *Launcher) Launch(job *models.Job) (*launchHandle, error) {
	if err := l.prepare(job); err != nil {
		return nil, err
	}

	stdoutLog, err := os.Create(job.StdoutLogPath)
	if err != nil {
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderrLog, err := os.Create(job.StderrLogPath)
	if err != nil {
		stdoutLog.Close()
		return nil, fmt.Errorf("create stderr log: %w", err)
	}

	cmd, err := l.buildCommand(job)
	if err != nil {
		stdoutLog.Close()
		stderrLog.Close()
		return nil, err
	}
	cmd.Stdout = stdoutLog
	cmd.Stderr = stderrLog
	applyProcAttributes(cmd)

	var stdin io.WriteCloser
	if job.Protocol == models.ProtocolLegacy {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			stdoutLog.Close()
			stderrLog.Close()
			return nil, fmt.Errorf("open stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		stdoutLog.Close()
		stderrLog.Close()
		return nil, fmt.Errorf("spawn %s: %w", job.BinaryPath, err)
	}
	job.PID = cmd.Process.Pid

	if stdin != nil {
		// Legacy builds read the parameter file base name interactively
		if _, err := fmt.Fprintln(stdin, filepath.Base(job.ParamFile)); err != nil {
			l.logger.Warn().Err(err).Str("job", job.Name).Msg("Failed writing parameter name to solver stdin")
		}
		stdin.Close()
	}

	l.logger.Info().
		Str("job", job.Name).
		Str("binary", job.BinaryPath).
		Str("protocol", string(job.Protocol)).
		Int("pid", job.PID).
		Msg("Solver process started")

	return &launchHandle{cmd: cmd, stdoutLog: stdoutLog, stderrLog: stderrLog}, nil
}

// prepare validates the binary and parameter file, creates the working
// directory, and fills in the derived stdio and progress file paths.
func (l *Launcher) prepare(job *models.Job) error {
	info, err := os.Stat(job.BinaryPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, job.BinaryPath)
	}

	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWorkDirUnavailable, job.WorkDir, err)
	}

	if _, err := os.Stat(job.ParamFile); err != nil {
		return fmt.Errorf("%w: %s", ErrParamFileMissing, job.ParamFile)
	}

	job.StdoutLogPath = filepath.Join(job.WorkDir, job.Name+".out.log")
	job.StderrLogPath = filepath.Join(job.WorkDir, job.Name+".err.log")
	if job.Protocol == models.ProtocolStructured {
		job.ProgressFilePath = filepath.Join(job.WorkDir, progressFileName)
	}
	return nil
}

func (l *Launcher) buildCommand(job *models.Job) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	switch job.Protocol {
	case models.ProtocolStructured:
		cmd = exec.Command(job.BinaryPath,
			"--workdir", ".",
			"--json", progressFileName,
			"--parameters", filepath.Base(job.ParamFile))
	case models.ProtocolLegacy:
		cmd = exec.Command(job.BinaryPath, "-v")
	default:
		return nil, fmt.Errorf("unknown protocol mode %q", job.Protocol)
	}
	cmd.Dir = job.WorkDir
	return cmd, nil
}
