package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mediaproc/internal/services"
)

// State is a file's position in the processing state machine.
type State string

const (
	StatePending      State = "pending"
	StateSyncRunning  State = "sync-running"
	StateSyncFailed   State = "sync-failed"
	StateSyncDone     State = "sync-done"
	StateAsyncRunning State = "async-running"
	StateAsyncFailed  State = "async-failed"
	StateAsyncDone    State = "async-done"
)

// Servable reports whether consumers may see the file's artifacts.
func (s State) Servable() bool {
	switch s {
	case StateSyncDone, StateAsyncRunning, StateAsyncFailed, StateAsyncDone:
		return true
	}
	return false
}

// Terminal reports whether no further phase can run.
func (s State) Terminal() bool {
	switch s {
	case StateSyncFailed, StateAsyncFailed, StateAsyncDone:
		return true
	}
	return false
}

// Pending is a processor whose sync phase has not completed.
type Pending struct {
	mu    sync.Mutex
	proc  Processor
	state State
}

// Begin wraps a freshly dispatched processor.
func Begin(p Processor) *Pending {
	return &Pending{proc: p, state: StatePending}
}

// Sync runs the sync phase once. Success yields the handle that exposes Async.
func (h *Pending) Sync(ctx context.Context) (*Servable, error) {
	h.mu.Lock()
	if h.state != StatePending {
		state := h.state
		h.mu.Unlock()
		return nil, fmt.Errorf("sync from %s: %w", state, ErrPhaseOrder)
	}
	h.state = StateSyncRunning
	h.mu.Unlock()

	err := h.proc.Sync(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.state = StateSyncFailed
		return nil, err
	}
	h.state = StateSyncDone
	return &Servable{proc: h.proc, state: StateSyncDone}, nil
}

// State reports the handle's state.
func (h *Pending) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Processor returns the wrapped processor.
func (h *Pending) Processor() Processor { return h.proc }

// Servable is a processor whose sync phase succeeded.
type Servable struct {
	mu    sync.Mutex
	proc  Processor
	state State
}

// Resume rebuilds a Servable handle for a file persisted in the sync-done state.
func Resume(p Processor, persisted State) (*Servable, error) {
	if persisted != StateSyncDone {
		return nil, fmt.Errorf("resume from %s: %w", persisted, ErrPhaseOrder)
	}
	return &Servable{proc: p, state: StateSyncDone}, nil
}

// Async runs the async phase at most once. Exceeding a context deadline is
// reported as a timeout; either way the file stays servable.
func (h *Servable) Async(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateSyncDone {
		state := h.state
		h.mu.Unlock()
		return fmt.Errorf("async from %s: %w", state, ErrPhaseOrder)
	}
	h.state = StateAsyncRunning
	h.mu.Unlock()

	err := h.proc.Async(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.state = StateAsyncFailed
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "async", h.proc.Variant().String(), "time budget exceeded", err)
		}
		return err
	}
	h.state = StateAsyncDone
	return nil
}

// State reports the handle's state.
func (h *Servable) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Processor returns the wrapped processor.
func (h *Servable) Processor() Processor { return h.proc }
