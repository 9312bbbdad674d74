package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mediaproc/internal/config"
	"mediaproc/internal/invocation"
	"mediaproc/internal/logging"
	"mediaproc/internal/metrics"
	"mediaproc/internal/queue"
)

// Manager coordinates queue processing across the sync and async lanes.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	runner        invocation.Runner
	tools         invocation.Tools
	recorder      *metrics.Recorder
	prober        Prober
	pollInterval  time.Duration
	retryInterval time.Duration

	heartbeat *HeartbeatMonitor
	lanes     []*laneState

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	group    *errgroup.Group
	lastErr  error
	lastItem *queue.Item
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRunner replaces the exec runner, typically with a fake in tests.
func WithRunner(runner invocation.Runner) ManagerOption {
	return func(m *Manager) {
		m.runner = runner
	}
}

// WithRecorder shares a metrics recorder with the caller.
func WithRecorder(recorder *metrics.Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

// WithPollInterval overrides the configured idle poll interval.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		tools:         invocation.Tools(cfg.ToolPaths()),
		pollInterval:  cfg.PollInterval(),
		retryInterval: cfg.RetryInterval(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.recorder == nil {
		m.recorder = metrics.New()
	}
	if m.prober == nil {
		m.prober = m.ffprobe
	}
	if m.runner == nil {
		m.runner = invocation.NewExecRunner(
			logging.NewComponentLogger(logger, "invocation"),
			invocation.WithKillGrace(cfg.KillGrace()),
			invocation.WithObserver(m.recorder),
		)
	}
	m.heartbeat = NewHeartbeatMonitor(store, m.logger, cfg.HeartbeatEvery(), cfg.HeartbeatStaleAfter())
	m.lanes = []*laneState{
		{
			kind:       laneSync,
			from:       queue.StatusPending,
			processing: queue.StatusSyncing,
			workers:    cfg.Workflow.SyncWorkers,
		},
		{
			kind:       laneAsync,
			from:       queue.StatusServable,
			processing: queue.StatusImproving,
			workers:    cfg.Workflow.AsyncWorkers,
		},
	}
	return m
}

// Recorder returns the metrics recorder the manager reports to.
func (m *Manager) Recorder() *metrics.Recorder {
	return m.recorder
}
