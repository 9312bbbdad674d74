package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaproc/internal/probe"
	"mediaproc/internal/queue"
	"mediaproc/internal/services"
	"mediaproc/internal/testsupport"
	"mediaproc/internal/workflow"
)

func newIngestManager(t *testing.T, prober workflow.Prober) *harness {
	t.Helper()
	h := newHarness(t, nil)
	h.manager = workflow.NewManager(h.cfg, h.store, nil,
		workflow.WithRunner(h.runner),
		workflow.WithProber(prober),
		workflow.WithPollInterval(10*time.Millisecond),
	)
	return h
}

func TestEnqueueProbesVideoAndHashesContent(t *testing.T) {
	probed := 0
	h := newIngestManager(t, func(context.Context, string) (probe.Metadata, error) {
		probed++
		return avMetadata(), nil
	})
	source := filepath.Join(testsupport.BaseDir(h.cfg), "in", "Clip.MKV")
	testsupport.WriteFile(t, source, 128)

	item, err := h.manager.Enqueue(context.Background(), workflow.Submission{Path: source, Category: "video"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if probed != 1 {
		t.Fatalf("expected one probe, got %d", probed)
	}
	if item.Extension != "mkv" || item.Variant != "video" || item.Status != queue.StatusPending {
		t.Fatalf("unexpected item: %#v", item)
	}
	if len(item.Hash) == 0 || strings.ContainsAny(item.Hash, "/.") {
		t.Fatalf("unexpected hash %q", item.Hash)
	}
	meta, err := item.Metadata()
	if err != nil || !meta.HasVideo {
		t.Fatalf("expected probed metadata stored, got %#v, %v", meta, err)
	}

	_, err = h.manager.Enqueue(context.Background(), workflow.Submission{Path: source, Category: "video"})
	if !errors.Is(err, queue.ErrDuplicate) {
		t.Fatalf("expected duplicate content to be rejected, got %v", err)
	}
}

func TestEnqueueSkipsProbeForImages(t *testing.T) {
	h := newIngestManager(t, func(context.Context, string) (probe.Metadata, error) {
		return probe.Metadata{}, errors.New("ffprobe must not run for images")
	})
	source := filepath.Join(testsupport.BaseDir(h.cfg), "in", "pic.png")
	testsupport.WriteFile(t, source, 32)

	item, err := h.manager.Enqueue(context.Background(), workflow.Submission{Path: source, Category: "image/png", Hash: "pinned", Stage: true})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if item.Hash != "pinned" {
		t.Fatalf("expected hash override, got %q", item.Hash)
	}
	if want := filepath.Join(h.cfg.UploadDir(), "pinned.png"); item.SourcePath != want {
		t.Fatalf("expected staged source %s, got %s", want, item.SourcePath)
	}
}

func TestEnqueueSurfacesProbeFailure(t *testing.T) {
	probeErr := services.Wrap(services.ErrExternalTool, "probe", "inspect", "invalid data", nil)
	h := newIngestManager(t, func(context.Context, string) (probe.Metadata, error) {
		return probe.Metadata{}, probeErr
	})
	source := filepath.Join(testsupport.BaseDir(h.cfg), "in", "broken.mp3")
	testsupport.WriteFile(t, source, 8)

	if _, err := h.manager.Enqueue(context.Background(), workflow.Submission{Path: source, Category: "audio"}); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected probe error, got %v", err)
	}
	items, err := h.store.List(context.Background())
	if err != nil || len(items) != 0 {
		t.Fatalf("expected nothing queued, got %d items, %v", len(items), err)
	}
}

func TestEnqueueValidatesSource(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.manager.Enqueue(ctx, workflow.Submission{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := h.manager.Enqueue(ctx, workflow.Submission{Path: filepath.Join(t.TempDir(), "nope")}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.manager.Enqueue(ctx, workflow.Submission{Path: t.TempDir()}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected directory rejection, got %v", err)
	}
}
