package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mediaproc/internal/logging"
)

// Start launches the lane workers and the stale-item reclaimer.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	for _, lane := range m.lanes {
		logger := m.logger.With(logging.String(logging.FieldLane, string(lane.kind)))
		for worker := range max(lane.workers, 1) {
			workerLogger := logger.With(logging.Int("worker", worker))
			group.Go(func() error {
				m.runWorker(groupCtx, lane, workerLogger)
				return nil
			})
		}
	}
	group.Go(func() error {
		m.reclaimLoop(groupCtx)
		return nil
	})

	m.cancel = cancel
	m.group = group
	m.running = true
	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.Int("sync_workers", m.lane(laneSync).workers),
		logging.Int("async_workers", m.lane(laneAsync).workers),
	)
	return nil
}

// Stop cancels the workers and waits for in-flight phases to unwind.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	group := m.group
	m.running = false
	m.cancel = nil
	m.group = nil
	m.mu.Unlock()

	cancel()
	_ = group.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

// Running reports whether the lanes are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runWorker(ctx context.Context, lane *laneState, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := m.store.ClaimNext(ctx, lane.from, lane.processing)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleNextItemError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx, m.pollInterval)
			continue
		}

		if err := m.processItem(ctx, lane, logger, item); err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) reclaimLoop(ctx context.Context) {
	interval := m.heartbeat.heartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.heartbeat.ReclaimStaleItems(ctx, m.logger); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(m.logger, "reclaim stale processing failed; stuck items may remain", "heartbeat_reclaim_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}
	}
}

func (m *Manager) handleNextItemError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next queue item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.waitForItemOrShutdown(ctx, m.retryInterval)
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
