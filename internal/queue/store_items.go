package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediaproc/internal/processor"
	"mediaproc/internal/services"
)

// Submission describes a file handed to the queue.
type Submission struct {
	Hash       string
	SourcePath string
	Extension  string
	// Category is the dispatch key, a coarse category or a MIME type.
	Category string
	// MetadataJSON is the encoded probe.Metadata for the file.
	MetadataJSON string
}

// Enqueue inserts a pending item. The variant is resolved from the category
// at enqueue time so later dispatch-table changes do not reroute stored items.
func (s *Store) Enqueue(ctx context.Context, sub Submission) (*Item, error) {
	hash := strings.TrimSpace(sub.Hash)
	if hash == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "hash is required", nil)
	}
	if strings.TrimSpace(sub.SourcePath) == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "source path is required", nil)
	}

	existing, err := s.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, fmt.Errorf("%w: %s (item %d)", ErrDuplicate, hash, existing.ID)
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            hash, source_path, extension, category, variant, status,
            metadata_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hash,
		sub.SourcePath,
		nullableString(strings.TrimPrefix(sub.Extension, ".")),
		sub.Category,
		processor.Lookup(sub.Category).String(),
		StatusPending,
		nullableString(sub.MetadataJSON),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. A missing item yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByHash fetches the item for a content hash. A missing item yields nil, nil.
func (s *Store) GetByHash(ctx context.Context, hash string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE hash = ?`, hash)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by hash: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET source_path = ?, extension = ?, category = ?, variant = ?, status = ?,
             metadata_json = ?, artifacts_json = ?, side_files_json = ?,
             error_message = ?, error_kind = ?, progress_message = ?, updated_at = ?,
             last_heartbeat = ?, sync_duration_ms = ?, async_duration_ms = ?
         WHERE id = ?`,
		item.SourcePath,
		nullableString(item.Extension),
		item.Category,
		item.Variant,
		item.Status,
		nullableString(item.MetadataJSON),
		nullableString(item.ArtifactsJSON),
		nullableString(item.SideFilesJSON),
		nullableString(item.ErrorMessage),
		nullableString(item.ErrorKind),
		nullableString(item.ProgressMessage),
		timestamp(item.UpdatedAt),
		nullableTime(item.LastHeartbeat),
		item.SyncDuration.Milliseconds(),
		item.AsyncDuration.Milliseconds(),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at, id`, statusArgs(statuses)...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	return scanItems(rows)
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearStatuses removes items in any of the given statuses.
func (s *Store) ClearStatuses(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM queue_items WHERE status IN (`+makePlaceholders(len(statuses))+`)`,
		statusArgs(statuses)...,
	)
	if err != nil {
		return 0, fmt.Errorf("clear statuses: %w", err)
	}
	return res.RowsAffected()
}
