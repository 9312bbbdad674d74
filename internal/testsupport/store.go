package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"mediaproc/internal/config"
	"mediaproc/internal/probe"
	"mediaproc/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewItem enqueues a pending item whose source file exists on disk.
// The source lives under the config's base directory, outside storage.
func NewItem(t testing.TB, store *queue.Store, cfg *config.Config, hash, category, ext string, meta probe.Metadata) *queue.Item {
	t.Helper()

	source := filepath.Join(BaseDir(cfg), "uploads", hash+"."+ext)
	WriteFile(t, source, 64)

	payload, err := meta.Encode()
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	item, err := store.Enqueue(context.Background(), queue.Submission{
		Hash:         hash,
		SourcePath:   source,
		Extension:    ext,
		Category:     category,
		MetadataJSON: payload,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
