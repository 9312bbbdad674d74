package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediaproc/internal/fileutil"
	"mediaproc/internal/logging"
	"mediaproc/internal/probe"
	"mediaproc/internal/processor"
	"mediaproc/internal/queue"
	"mediaproc/internal/services"
)

// Prober produces the stream summary for a file.
type Prober func(ctx context.Context, path string) (probe.Metadata, error)

// WithProber replaces ffprobe inspection, typically in tests.
func WithProber(prober Prober) ManagerOption {
	return func(m *Manager) {
		m.prober = prober
	}
}

// Submission describes a file to add to the queue.
type Submission struct {
	Path     string
	Category string
	// Hash overrides the content hash.
	Hash string
	// Stage copies the upload under the storage directory before queueing.
	Stage bool
}

// Enqueue hashes, probes, and queues a file. Only variants that read stream
// metadata are probed.
func (m *Manager) Enqueue(ctx context.Context, sub Submission) (*queue.Item, error) {
	path := strings.TrimSpace(sub.Path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "enqueue", "source path is required", nil)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "enqueue", "source file not readable", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "workflow", "enqueue", fmt.Sprintf("%s is a directory", absPath), nil)
	}

	hash := strings.TrimSpace(sub.Hash)
	if hash == "" {
		if hash, err = fileutil.ContentHash(absPath); err != nil {
			return nil, services.Wrap(services.ErrTransient, "workflow", "enqueue", "hash source file", err)
		}
	}
	ext := fileutil.Extension(absPath)

	var meta probe.Metadata
	if variant := processor.Lookup(sub.Category); variant == processor.VariantVideo || variant == processor.VariantAudio {
		if meta, err = m.prober(ctx, absPath); err != nil {
			return nil, err
		}
	}

	if sub.Stage {
		if absPath, err = fileutil.StageUpload(absPath, m.cfg.UploadDir(), hash, ext); err != nil {
			return nil, services.Wrap(services.ErrTransient, "workflow", "enqueue", "stage upload", err)
		}
	}

	payload, err := meta.Encode()
	if err != nil {
		return nil, err
	}
	item, err := m.store.Enqueue(ctx, queue.Submission{
		Hash:         hash,
		SourcePath:   absPath,
		Extension:    ext,
		Category:     sub.Category,
		MetadataJSON: payload,
	})
	if err != nil {
		return item, err
	}
	m.logger.Info("file queued",
		logging.String(logging.FieldEventType, "item_queued"),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldHash, item.Hash),
		logging.String(logging.FieldVariant, item.Variant),
		logging.String("source_file", item.SourcePath),
	)
	return item, nil
}

func (m *Manager) ffprobe(ctx context.Context, path string) (probe.Metadata, error) {
	result, err := probe.Inspect(ctx, m.cfg.FFprobeBinary(), path)
	if err != nil {
		return probe.Metadata{}, err
	}
	return probe.FromResult(result), nil
}
