package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediaproc/internal/config"
	"mediaproc/internal/logging"
	"mediaproc/internal/queue"
	"mediaproc/internal/workflow"
)

// ErrAlreadyRunning is returned when another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another mediaproc daemon instance is already running")

const defaultExportInterval = 15 * time.Second

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	workflow  *workflow.Manager
	sessionID string

	lockPath string
	lock     *flock.Flock

	exportInterval time.Duration

	running  atomic.Bool
	cancel   context.CancelFunc
	exportWG sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	SessionID    string
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	MetricsFile  string
}

// Option configures optional Daemon behavior.
type Option func(*Daemon)

// WithExportInterval overrides how often metrics are written.
func WithExportInterval(interval time.Duration) Option {
	return func(d *Daemon) {
		if interval > 0 {
			d.exportInterval = interval
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	sessionID := uuid.NewString()
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:            cfg,
		logger:         logging.NewComponentLogger(logger, "daemon").With(logging.String(logging.FieldSessionID, sessionID)),
		store:          store,
		workflow:       wf,
		sessionID:      sessionID,
		lockPath:       cfg.LockPath(),
		lock:           flock.New(cfg.LockPath()),
		exportInterval: defaultExportInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, recovers abandoned items, and launches the workflow lanes.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	recovered, err := d.store.ResetProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover in-flight items: %w", err)
	}
	if recovered > 0 {
		d.logger.Info("recovered items abandoned by a previous run",
			logging.Int64("count", recovered),
			logging.String(logging.FieldEventType, "queue_recovered"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.cancel = cancel
	if strings.TrimSpace(d.cfg.Paths.MetricsFile) != "" {
		d.exportWG.Add(1)
		go d.exportLoop(runCtx)
	}
	d.running.Store(true)
	d.logger.Info("mediaproc daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("queue_db", d.store.Path()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.exportWG.Wait()
	d.exportMetrics(context.Background())

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.logger.Info("mediaproc daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon holds the lock and runs the lanes.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		SessionID:    d.sessionID,
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		MetricsFile:  d.cfg.Paths.MetricsFile,
	}
}

func (d *Daemon) exportLoop(ctx context.Context) {
	defer d.exportWG.Done()
	ticker := time.NewTicker(d.exportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.exportMetrics(ctx)
		}
	}
}

func (d *Daemon) exportMetrics(ctx context.Context) {
	path := strings.TrimSpace(d.cfg.Paths.MetricsFile)
	if path == "" {
		return
	}
	recorder := d.workflow.Recorder()
	if stats, err := d.store.Stats(ctx); err == nil {
		counts := make(map[string]int, len(stats))
		for status, count := range stats {
			counts[string(status)] = count
		}
		recorder.SetQueueDepth(counts)
	}
	if err := recorder.WriteTextfile(path); err != nil {
		logging.WarnWithContext(d.logger, "metrics export failed", "metrics_export_failed",
			logging.Error(err),
			logging.String("metrics_file", path),
			logging.String(logging.FieldImpact, "scraped metrics are stale"),
		)
	}
}
