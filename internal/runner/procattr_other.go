//go:build !windows

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// applyProcAttributes is a no-op outside Windows. The child stays in the
// parent's process group but is not reaped on parent exit.
func applyProcAttributes(cmd *exec.Cmd) {}

// sendTerminate asks the process to exit cooperatively
func sendTerminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
