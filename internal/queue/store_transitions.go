package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ClaimNext atomically moves the oldest item in from to the processing status
// to, stamping a fresh heartbeat. It returns nil, nil when nothing is waiting.
func (s *Store) ClaimNext(ctx context.Context, from, to Status) (*Item, error) {
	ctx = ensureContext(ctx)
	var claimed *Item
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			from,
		)
		item, err := scanItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE queue_items
             SET status = ?, last_heartbeat = ?, updated_at = ?, progress_message = NULL
             WHERE id = ? AND status = ?`,
			to, timestamp(now), timestamp(now), item.ID, from,
		)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			claimed = nil
			return nil
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		item.Status = to
		item.LastHeartbeat = &now
		item.UpdatedAt = now
		item.ProgressMessage = ""
		claimed = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim %s item: %w", from, err)
	}
	return claimed, nil
}

// ClaimByID moves a specific item from one status to another. It returns
// nil, nil when the item is not currently in from.
func (s *Store) ClaimByID(ctx context.Context, id int64, from, to Status) (*Item, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, last_heartbeat = ?, updated_at = ?, progress_message = NULL
         WHERE id = ? AND status = ?`,
		to, now, now, id, from,
	)
	if err != nil {
		return nil, fmt.Errorf("claim item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := timestamp(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items whose heartbeat expired to the status
// their lane claims from. When statuses is empty every processing status is
// considered.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	return s.rollback(ctx, "Reclaimed from stale processing", &cutoff, statuses)
}

// ResetProcessing returns every in-flight item to the status its lane claims
// from, regardless of heartbeat. Used on daemon start and stop.
func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	return s.rollback(ctx, DaemonStopReason, nil, nil)
}

func (s *Store) rollback(ctx context.Context, reason string, cutoff *time.Time, statuses []Status) (int64, error) {
	var total int64
	for _, transition := range rollbackTransitions {
		if len(statuses) > 0 && !slices.Contains(statuses, transition.from) {
			continue
		}
		query := `UPDATE queue_items
            SET status = ?, progress_message = ?, last_heartbeat = NULL, updated_at = ?
            WHERE status = ?`
		args := []any{transition.to, reason, timestamp(time.Now()), transition.from}
		if cutoff != nil {
			query += ` AND (last_heartbeat IS NULL OR last_heartbeat < ?)`
			args = append(args, timestamp(*cutoff))
		}
		res, err := s.execWithRetry(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("reclaim %s items: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// Retry re-arms failed items: rejected items return to pending and degraded
// items return to servable. With no ids every failed item is retried.
func (s *Store) Retry(ctx context.Context, ids ...int64) (int64, error) {
	var total int64
	for _, transition := range retryTransitions {
		query := `UPDATE queue_items
            SET status = ?, progress_message = 'Retry requested', error_message = NULL,
                error_kind = NULL, updated_at = ?
            WHERE status = ?`
		args := []any{transition.to, timestamp(time.Now()), transition.from}
		if len(ids) > 0 {
			query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
			for _, id := range ids {
				args = append(args, id)
			}
		}
		res, err := s.execWithRetry(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("retry %s items: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}
