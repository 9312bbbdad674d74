package workflow

import (
	"context"

	"mediaproc/internal/logging"
	"mediaproc/internal/queue"
)

// LaneSummary describes one lane's configuration.
type LaneSummary struct {
	Name       string
	From       queue.Status
	Processing queue.Status
	Workers    int
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	LastItem   *queue.Item
	QueueStats map[queue.Status]int
	Lanes      []LaneSummary
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, QueueStats: stats}
	for _, lane := range m.lanes {
		summary.Lanes = append(summary.Lanes, LaneSummary{
			Name:       string(lane.kind),
			From:       lane.from,
			Processing: lane.processing,
			Workers:    lane.workers,
		})
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copy := *lastItem
		summary.LastItem = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
