package workflow

import (
	"context"

	"mediaproc/internal/metrics"
	"mediaproc/internal/queue"
	"mediaproc/internal/services"
)

type laneKind string

const (
	laneSync  laneKind = "sync"
	laneAsync laneKind = "async"
)

type laneState struct {
	kind       laneKind
	from       queue.Status
	processing queue.Status
	workers    int
}

func (l *laneState) phase() string {
	if l.kind == laneAsync {
		return metrics.PhaseAsync
	}
	return metrics.PhaseSync
}

func withPhaseContext(ctx context.Context, lane *laneState, item *queue.Item, requestID string) context.Context {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithPhase(ctx, lane.phase())
	ctx = services.WithLane(ctx, string(lane.kind))
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func (m *Manager) lane(kind laneKind) *laneState {
	for _, lane := range m.lanes {
		if lane.kind == kind {
			return lane
		}
	}
	return nil
}
