package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const itemColumns = "id, hash, source_path, extension, category, variant, status, metadata_json, artifacts_json, side_files_json, error_message, error_kind, progress_message, created_at, updated_at, last_heartbeat, sync_duration_ms, async_duration_ms"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		hash             string
		sourcePath       string
		extension        sql.NullString
		category         string
		variant          string
		statusStr        string
		metadata         sql.NullString
		artifacts        sql.NullString
		sideFiles        sql.NullString
		errorMessage     sql.NullString
		errorKind        sql.NullString
		progressMessage  sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
		syncMillis       int64
		asyncMillis      int64
	)

	if err := scanner.Scan(
		&id,
		&hash,
		&sourcePath,
		&extension,
		&category,
		&variant,
		&statusStr,
		&metadata,
		&artifacts,
		&sideFiles,
		&errorMessage,
		&errorKind,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
		&syncMillis,
		&asyncMillis,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Hash:            hash,
		SourcePath:      sourcePath,
		Extension:       extension.String,
		Category:        category,
		Variant:         variant,
		Status:          Status(statusStr),
		MetadataJSON:    metadata.String,
		ArtifactsJSON:   artifacts.String,
		SideFilesJSON:   sideFiles.String,
		ErrorMessage:    errorMessage.String,
		ErrorKind:       errorKind.String,
		ProgressMessage: progressMessage.String,
		SyncDuration:    time.Duration(syncMillis) * time.Millisecond,
		AsyncDuration:   time.Duration(asyncMillis) * time.Millisecond,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return timestamp(*value)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
