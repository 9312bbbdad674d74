package invocation_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"

	"mediaproc/internal/invocation"
	"mediaproc/internal/logging"
	"mediaproc/internal/services"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []invocation.Outcome
}

func (o *recordingObserver) ObserveInvocation(_ string, outcome invocation.Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func writeStub(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a unix shell")
	}
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	stub := writeStub(t, "otfinfo", `echo "Family:  Open Sans"; echo "Subfamily: Bold"; echo warn >&2`)
	observer := &recordingObserver{}
	runner := invocation.NewExecRunner(logging.NewNop(), invocation.WithObserver(observer))

	result, err := runner.Run(context.Background(), invocation.Command{Name: "font-info", Tool: stub, Args: []string{"--info"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []string{"Family:  Open Sans", "Subfamily: Bold"}
	if !reflect.DeepEqual(result.Stdout, want) {
		t.Fatalf("stdout = %q, want %q", result.Stdout, want)
	}
	if !reflect.DeepEqual(result.Stderr, []string{"warn"}) {
		t.Fatalf("stderr = %q", result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	if len(observer.outcomes) != 1 || observer.outcomes[0] != invocation.OutcomeSuccess {
		t.Fatalf("unexpected outcomes %v", observer.outcomes)
	}
}

func TestExecRunnerNonZeroExitRaises(t *testing.T) {
	stub := writeStub(t, "ffmpeg", `echo "Unknown encoder 'libfdk_aac'" >&2; exit 3`)
	runner := invocation.NewExecRunner(logging.NewNop())

	result, err := runner.Run(context.Background(), invocation.Command{Name: "mp4", Tool: stub, Args: []string{"-y"}})
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	var invErr *invocation.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvocationError, got %T", err)
	}
	if invErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", invErr.ExitCode)
	}
	if !reflect.DeepEqual(invErr.Stderr, []string{"Unknown encoder 'libfdk_aac'"}) {
		t.Fatalf("expected stderr to be carried, got %q", invErr.Stderr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected error to match ErrExternalTool")
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected result exit code 3, got %d", result.ExitCode)
	}
}

func TestExecRunnerIgnoreNonZero(t *testing.T) {
	stub := writeStub(t, "ffmpeg", `echo "At least one output file must be specified" >&2; exit 1`)
	observer := &recordingObserver{}
	runner := invocation.NewExecRunner(logging.NewNop(), invocation.WithObserver(observer))

	result, err := runner.Run(context.Background(), invocation.Command{Name: "font-dump", Tool: stub, IgnoreNonZero: true})
	if err != nil {
		t.Fatalf("expected ignored exit status, got %v", err)
	}
	if result.ExitCode != 1 {
		t.Fatalf("expected exit code to be reported, got %d", result.ExitCode)
	}
	if len(result.Stderr) != 1 {
		t.Fatalf("expected stderr to be captured, got %q", result.Stderr)
	}
	if observer.outcomes[0] != invocation.OutcomeIgnored {
		t.Fatalf("unexpected outcome %v", observer.outcomes[0])
	}
}

func TestExecRunnerMissingBinaryFailsEvenWhenIgnoring(t *testing.T) {
	runner := invocation.NewExecRunner(logging.NewNop())
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := runner.Run(context.Background(), invocation.Command{Name: "font-dump", Tool: missing, IgnoreNonZero: true})
	if err == nil {
		t.Fatal("expected start failure")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestExecRunnerCancellationKillsProcessGroup(t *testing.T) {
	stub := writeStub(t, "ffmpeg", `trap '' TERM
sleep 30 &
wait`)
	runner := invocation.NewExecRunner(logging.NewNop(), invocation.WithKillGrace(100*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runner.Run(ctx, invocation.Command{Name: "ogv", Tool: stub, IgnoreNonZero: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("expected process group to be killed promptly, took %s", elapsed)
	}
}

func TestExecRunnerAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := invocation.NewExecRunner(logging.NewNop())
	if _, err := runner.Run(ctx, invocation.Command{Name: "noop", Tool: "true"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
