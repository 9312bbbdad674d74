package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"mediaproc/internal/invocation"
)

// FakeRunner records commands and writes every path a command declares in
// Produces, standing in for the real external tools.
type FakeRunner struct {
	// Failures maps a command name to the error it returns.
	Failures map[string]error
	// Outputs supplies stdout lines for a command.
	Outputs func(cmd invocation.Command) []string
	// Block maps a command name that waits for its context to finish.
	Block map[string]bool

	mu       sync.Mutex
	commands []invocation.Command
}

// Run implements invocation.Runner.
func (r *FakeRunner) Run(ctx context.Context, cmd invocation.Command) (invocation.Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return invocation.Result{ExitCode: -1}, err
	}
	if r.Block[cmd.Name] {
		<-ctx.Done()
		return invocation.Result{ExitCode: -1}, ctx.Err()
	}
	if err, ok := r.Failures[cmd.Name]; ok {
		return invocation.Result{ExitCode: 1}, err
	}
	for _, path := range cmd.Produces {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return invocation.Result{ExitCode: 1}, err
		}
		if err := os.WriteFile(path, []byte(cmd.Name), 0o644); err != nil {
			return invocation.Result{ExitCode: 1}, err
		}
	}
	var stdout []string
	if r.Outputs != nil {
		stdout = r.Outputs(cmd)
	}
	return invocation.Result{Stdout: stdout}, nil
}

// Commands returns a copy of the recorded commands.
func (r *FakeRunner) Commands() []invocation.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invocation.Command(nil), r.commands...)
}

// Names returns the recorded command names in order.
func (r *FakeRunner) Names() []string {
	var names []string
	for _, cmd := range r.Commands() {
		names = append(names, cmd.Name)
	}
	return names
}

// Named returns the recorded commands with the given name.
func (r *FakeRunner) Named(name string) []invocation.Command {
	var out []invocation.Command
	for _, cmd := range r.Commands() {
		if cmd.Name == name {
			out = append(out, cmd)
		}
	}
	return out
}

// Reset clears recorded commands.
func (r *FakeRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
