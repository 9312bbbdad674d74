//go:build unix

package invocation

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	sigTerm = unix.SIGTERM
	sigKill = unix.SIGKILL
)

func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalGroup signals every process in the group led by proc. The child was
// started with Setpgid so its pid is the group id.
func signalGroup(proc *os.Process, sig unix.Signal) error {
	if proc == nil || proc.Pid <= 0 {
		return nil
	}
	if err := unix.Kill(-proc.Pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return proc.Signal(sig)
	}
	return nil
}
