//go:build !unix

package invocation

import (
	"os"
	"os/exec"
)

type signal int

const (
	sigTerm signal = iota
	sigKill
)

func setProcessGroup(*exec.Cmd) {}

func signalGroup(proc *os.Process, _ signal) error {
	if proc == nil {
		return nil
	}
	return proc.Kill()
}
