package invocation

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Command is a fully resolved external process invocation.
type Command struct {
	Name          string
	Tool          string
	Args          []string
	Produces      []string
	IgnoreNonZero bool
}

// Label returns the tool's base name for logs and metrics.
func (c Command) Label() string {
	return filepath.Base(c.Tool)
}

// String renders the command for logs. Arguments containing whitespace or
// quotes are quoted; the result is not meant to be fed to a shell.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Tool)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Result captures the output of a finished process.
type Result struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands. Implementations block until the process exits or
// ctx is done.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Outcome classifies a finished invocation for observers.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeIgnored      Outcome = "ignored_nonzero"
	OutcomeFailure      Outcome = "failure"
	OutcomeStartFailure Outcome = "start_failure"
	OutcomeCancelled    Outcome = "cancelled"
)

// Observer receives one callback per invocation.
type Observer interface {
	ObserveInvocation(tool string, outcome Outcome, duration time.Duration)
}

func splitLines(output string) []string {
	output = strings.TrimRight(output, "\r\n")
	if output == "" {
		return nil
	}
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
