package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediaproc/internal/logging"
)

// CleanResult contains the outcome of a cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a file path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanOrphaned removes staged uploads whose hash is not in activeHashes and
// whose modification time is older than minAge. A zero minAge removes every
// orphan.
func CleanOrphaned(ctx context.Context, uploadDir string, activeHashes map[string]struct{}, minAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	uploadDir = strings.TrimSpace(uploadDir)
	if uploadDir == "" {
		return result
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: uploadDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-minAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() {
			continue
		}
		if _, active := activeHashes[HashOf(entry.Name())]; active {
			continue
		}

		path := filepath.Join(uploadDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if minAge > 0 && info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove orphaned upload", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed orphaned upload",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// HashOf returns the hash portion of a staged upload name.
func HashOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
