package invocation

import (
	"fmt"
	"strings"

	"mediaproc/internal/services"
)

// InvocationError reports a nonzero exit from a command that did not set
// IgnoreNonZero. It matches services.ErrExternalTool.
type InvocationError struct {
	Name     string
	Tool     string
	Args     []string
	ExitCode int
	Stderr   []string
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if e.Name != "" {
		msg = e.Name + ": " + msg
	}
	if tail := lastNonEmpty(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *InvocationError) Unwrap() error {
	return services.ErrExternalTool
}

func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
