package invocation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"mediaproc/internal/logging"
	"mediaproc/internal/services"
)

const defaultKillGrace = 5 * time.Second

// ExecRunner runs commands as child processes in their own process group.
type ExecRunner struct {
	logger    *slog.Logger
	killGrace time.Duration
	observer  Observer
}

// RunnerOption customizes an ExecRunner.
type RunnerOption func(*ExecRunner)

// WithKillGrace sets the delay between SIGTERM and SIGKILL on cancellation.
func WithKillGrace(grace time.Duration) RunnerOption {
	return func(r *ExecRunner) {
		if grace >= 0 {
			r.killGrace = grace
		}
	}
}

// WithObserver registers an invocation observer such as the metrics recorder.
func WithObserver(observer Observer) RunnerOption {
	return func(r *ExecRunner) {
		r.observer = observer
	}
}

// NewExecRunner constructs a runner that logs through logger.
func NewExecRunner(logger *slog.Logger, opts ...RunnerOption) *ExecRunner {
	r := &ExecRunner{
		logger:    logging.NewComponentLogger(logger, "invocation"),
		killGrace: defaultKillGrace,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and blocks until it exits. Cancelling ctx terminates the
// whole process group and returns the context error.
func (r *ExecRunner) Run(ctx context.Context, command Command) (Result, error) {
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String("step", command.Name),
		logging.String("tool", command.Label()),
	)
	if err := ctx.Err(); err != nil {
		r.observe(command, OutcomeCancelled, 0)
		return Result{ExitCode: -1}, fmt.Errorf("%s: %w", command.Name, err)
	}

	cmd := exec.Command(command.Tool, command.Args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	logger.Debug("invocation started", logging.String("command", command.String()))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		r.observe(command, OutcomeStartFailure, 0)
		marker := services.ErrExternalTool
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			marker = services.ErrConfiguration
		}
		return Result{ExitCode: -1}, services.Wrap(marker, "invocation", command.Name, "start "+command.Label(), err)
	}

	done := make(chan struct{})
	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		select {
		case <-ctx.Done():
			r.terminate(cmd.Process, done, logger)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	watcher.Wait()

	result := Result{
		Stdout:   splitLines(stdout.String()),
		Stderr:   splitLines(stderr.String()),
		ExitCode: exitCode(cmd.ProcessState),
		Duration: time.Since(start),
	}

	if waitErr != nil && ctx.Err() != nil {
		r.observe(command, OutcomeCancelled, result.Duration)
		logger.Debug("invocation cancelled", logging.Duration("duration", result.Duration))
		return result, fmt.Errorf("%s: %w", command.Name, ctx.Err())
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			r.observe(command, OutcomeFailure, result.Duration)
			return result, services.Wrap(services.ErrExternalTool, "invocation", command.Name, "wait "+command.Label(), waitErr)
		}
		if command.IgnoreNonZero {
			r.observe(command, OutcomeIgnored, result.Duration)
			logger.Debug("invocation finished with ignored exit status",
				logging.Int("exit_code", result.ExitCode),
				logging.Duration("duration", result.Duration),
			)
			return result, nil
		}
		r.observe(command, OutcomeFailure, result.Duration)
		logger.Debug("invocation failed",
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("duration", result.Duration),
		)
		return result, &InvocationError{
			Name:     command.Name,
			Tool:     command.Label(),
			Args:     append([]string(nil), command.Args...),
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	r.observe(command, OutcomeSuccess, result.Duration)
	logger.Debug("invocation finished", logging.Duration("duration", result.Duration))
	return result, nil
}

func (r *ExecRunner) terminate(proc *os.Process, done <-chan struct{}, logger *slog.Logger) {
	if err := signalGroup(proc, sigTerm); err != nil {
		logger.Debug("terminate process group", logging.Error(err))
	}
	timer := time.NewTimer(r.killGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		logger.Warn("process ignored SIGTERM; killing process group",
			logging.Duration("grace", r.killGrace),
			logging.String(logging.FieldEventType, "invocation_kill"),
		)
		if err := signalGroup(proc, sigKill); err != nil {
			logger.Debug("kill process group", logging.Error(err))
		}
	}
}

func (r *ExecRunner) observe(command Command, outcome Outcome, duration time.Duration) {
	if r.observer != nil {
		r.observer.ObserveInvocation(command.Label(), outcome, duration)
	}
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}
