package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mediaproc/internal/logging"
	"mediaproc/internal/queue"
	"mediaproc/internal/services"
)

// ProcessNow runs whichever phases remain for one item inline: sync for a
// pending item, then async once it is servable. It returns the refreshed item
// and the first phase error. A sync error means the file was rejected; an
// async error means it stays servable but degraded.
func (m *Manager) ProcessNow(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "process", fmt.Sprintf("queue item %d not found", id), nil)
	}

	requestID := uuid.NewString()
	for _, lane := range m.lanes {
		if item.Status != lane.from {
			continue
		}
		claimed, err := m.store.ClaimByID(ctx, item.ID, lane.from, lane.processing)
		if err != nil {
			return item, err
		}
		if claimed == nil {
			return item, services.Wrap(services.ErrValidation, "workflow", "process",
				fmt.Sprintf("queue item %d was claimed by another worker", id), nil)
		}
		item = claimed

		phaseCtx := withPhaseContext(ctx, lane, item, requestID)
		logger := logging.WithContext(phaseCtx, m.logger).With(
			logging.String(logging.FieldHash, item.Hash),
			logging.String(logging.FieldVariant, item.Variant),
		)
		proc, err := m.processorFor(item, logger)
		if err != nil {
			m.failItem(phaseCtx, logger, item, lane, err, 0)
			return item, err
		}
		if lane.kind == laneSync {
			err = m.runSync(phaseCtx, logger, item, proc)
		} else {
			err = m.runAsync(phaseCtx, logger, item, proc)
		}
		if err != nil {
			return item, err
		}
	}

	if item.Status == queue.StatusPending || item.Status.IsProcessing() {
		return item, services.Wrap(services.ErrValidation, "workflow", "process",
			fmt.Sprintf("queue item %d is %s", id, item.Status), nil)
	}
	return item, nil
}
