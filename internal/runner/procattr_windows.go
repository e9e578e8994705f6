//go:build windows

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// applyProcAttributes suppresses the console window the solver binaries
// would otherwise open. The child is not placed in a job object, so it
// survives a host crash.
func applyProcAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | 0x08000000, // CREATE_NO_WINDOW
	}
}

// sendTerminate has no soft-terminate equivalent on Windows for a GUI-less
// child; Kill is the only reliable signal.
func sendTerminate(p *os.Process) error {
	return p.Kill()
}
